package models

import (
	"strings"
	"time"

	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

// CreateMemberRequest carries the data-entry input for registering a member.
// IndefiniteLeaveToRemain is a pointer so "not answered" is distinguishable
// from an explicit false; the field is mandatory only for foreign identity
// documents.
type CreateMemberRequest struct {
	TypeID id.MembershipTypeID `json:"membership_type_id"`

	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	DateOfBirth time.Time `json:"date_of_birth"`

	DocumentType            string `json:"id_document_type"`
	DocumentNumber          string `json:"id_document_number"`
	DocumentProvider        string `json:"id_document_provider"`
	IndefiniteLeaveToRemain *bool  `json:"indefinite_leave_to_remain"`

	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	PhotoURL     string `json:"photo_url"`
}

// Validate normalizes and checks the request. domesticProvider is the home
// country name: documents issued there never carry leave-to-remain status,
// so the flag is forced to false regardless of input; for any other provider
// the flag must be answered explicitly.
func (r *CreateMemberRequest) Validate(domesticProvider string) error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.DocumentProvider = strings.TrimSpace(r.DocumentProvider)

	if r.TypeID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "membership_type_id is required")
	}
	if r.FirstName == "" || r.LastName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "first_name and last_name are required")
	}
	if r.DateOfBirth.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "date_of_birth is required")
	}
	if r.DocumentType == "" || r.DocumentNumber == "" || r.DocumentProvider == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identity document type, number and provider are required")
	}

	if strings.EqualFold(r.DocumentProvider, domesticProvider) {
		f := false
		r.IndefiniteLeaveToRemain = &f
	} else if r.IndefiniteLeaveToRemain == nil {
		return dErrors.New(dErrors.CodeInvalidInput,
			"indefinite_leave_to_remain must be answered for foreign identity documents")
	}
	return nil
}

// NewMember builds the pending member from a validated request. The member
// number is assigned by the allocator, not here.
func (r *CreateMemberRequest) NewMember(memberID id.MemberID, number id.MemberNumber, createdBy id.UserID, now time.Time) *Member {
	return &Member{
		ID:                      memberID,
		MemberNumber:            number,
		TypeID:                  r.TypeID,
		FirstName:               r.FirstName,
		LastName:                r.LastName,
		Email:                   r.Email,
		DateOfBirth:             r.DateOfBirth,
		DocumentType:            r.DocumentType,
		DocumentNumber:          r.DocumentNumber,
		DocumentProvider:        r.DocumentProvider,
		IndefiniteLeaveToRemain: *r.IndefiniteLeaveToRemain,
		AddressLine1:            r.AddressLine1,
		AddressLine2:            r.AddressLine2,
		City:                    r.City,
		PostalCode:              r.PostalCode,
		Country:                 r.Country,
		PhotoURL:                r.PhotoURL,
		Status:                  StatusPending,
		AMLStatus:               AMLUnchecked,
		CreatedBy:               createdBy,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// UpdateMemberRequest patches contact details on an existing member. Only
// non-nil fields are applied; identity, type, number and status are not
// editable through updates.
type UpdateMemberRequest struct {
	Email        *string `json:"email"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	PostalCode   *string `json:"postal_code"`
	Country      *string `json:"country"`
	PhotoURL     *string `json:"photo_url"`
}

func (r *UpdateMemberRequest) Empty() bool {
	return r.Email == nil && r.AddressLine1 == nil && r.AddressLine2 == nil &&
		r.City == nil && r.PostalCode == nil && r.Country == nil && r.PhotoURL == nil
}

// Apply writes the patch onto the member.
func (r *UpdateMemberRequest) Apply(m *Member, now time.Time) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&m.Email, r.Email)
	set(&m.AddressLine1, r.AddressLine1)
	set(&m.AddressLine2, r.AddressLine2)
	set(&m.City, r.City)
	set(&m.PostalCode, r.PostalCode)
	set(&m.Country, r.Country)
	set(&m.PhotoURL, r.PhotoURL)
	m.UpdatedAt = now
}

// ListFilter narrows member listings. Deleted members are excluded unless
// IncludeDeleted is set.
type ListFilter struct {
	Status         *Status
	TypeID         *id.MembershipTypeID
	Search         string
	IncludeDeleted bool
}
