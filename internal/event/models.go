// Package event covers organization events and member attendance.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

// Event is an organization gathering members check in to.
type Event struct {
	ID          id.EventID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Date        time.Time  `json:"event_date"`
	Location    string     `json:"location,omitempty"`
	CreatedBy   id.UserID  `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewEvent validates and builds an event.
func NewEvent(eventID id.EventID, name, description string, date time.Time, location string,
	createdBy id.UserID, now time.Time) (*Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event name is required")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event name must be 200 characters or less")
	}
	if date.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event date is required")
	}
	return &Event{
		ID:          eventID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Date:        date,
		Location:    strings.TrimSpace(location),
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}, nil
}

// Attendance is one member's check-in at one event. A member checks in at
// most once per event.
type Attendance struct {
	ID          uuid.UUID   `json:"id"`
	EventID     id.EventID  `json:"event_id"`
	MemberID    id.MemberID `json:"member_id"`
	CheckInTime time.Time   `json:"check_in_time"`
	CheckedInBy id.UserID   `json:"checked_in_by,omitempty"`
}
