package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "memberd/pkg/domain"
	"memberd/pkg/platform/sentinel"
	txcontext "memberd/pkg/platform/tx"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO events (id, name, description, event_date, location, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), e.Name, nullString(e.Description), e.Date, nullString(e.Location),
		nullUserID(e.CreatedBy), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEvent(ctx context.Context, eventID id.EventID) (*Event, error) {
	query := `
		SELECT id, name, description, event_date, location, created_by, created_at
		FROM events WHERE id = $1
	`
	return scanEvent(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(eventID)))
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]*Event, error) {
	query := `
		SELECT id, name, description, event_date, location, created_by, created_at
		FROM events ORDER BY event_date DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CreateAttendance inserts a check-in; a repeat check-in for the same member
// and event surfaces as sentinel.ErrConflict.
func (s *PostgresStore) CreateAttendance(ctx context.Context, a *Attendance) error {
	query := `
		INSERT INTO event_attendance (id, event_id, member_id, check_in_time, checked_in_by)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		a.ID, uuid.UUID(a.EventID), uuid.UUID(a.MemberID), a.CheckInTime, nullUserID(a.CheckedInBy))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAttendance(ctx context.Context, eventID id.EventID) ([]*Attendance, error) {
	query := `
		SELECT id, event_id, member_id, check_in_time, checked_in_by
		FROM event_attendance WHERE event_id = $1 ORDER BY check_in_time ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var out []*Attendance
	for rows.Next() {
		var (
			a           Attendance
			eventUUID   uuid.UUID
			memberUUID  uuid.UUID
			checkedInBy uuid.NullUUID
		)
		if err := rows.Scan(&a.ID, &eventUUID, &memberUUID, &a.CheckInTime, &checkedInBy); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		a.EventID = id.EventID(eventUUID)
		a.MemberID = id.MemberID(memberUUID)
		if checkedInBy.Valid {
			a.CheckedInBy = id.UserID(checkedInBy.UUID)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		e           Event
		eventUUID   uuid.UUID
		description sql.NullString
		location    sql.NullString
		createdBy   uuid.NullUUID
	)
	err := sc.Scan(&eventUUID, &e.Name, &description, &e.Date, &location, &createdBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.ID = id.EventID(eventUUID)
	e.Description = description.String
	e.Location = location.String
	if createdBy.Valid {
		e.CreatedBy = id.UserID(createdBy.UUID)
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUserID(u id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(u), Valid: !u.IsNil()}
}
