// Package store persists members.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"memberd/internal/member/models"
	id "memberd/pkg/domain"
	"memberd/pkg/platform/sentinel"
	txcontext "memberd/pkg/platform/tx"
)

const uniqueViolation = "23505"

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts the member. A duplicate member number surfaces as
// sentinel.ErrConflict so the caller can retry allocation.
func (s *Postgres) Create(ctx context.Context, m *models.Member) error {
	query := `
		INSERT INTO members (
			id, member_number, membership_type_id,
			first_name, last_name, email, date_of_birth,
			id_document_type, id_document_number, id_document_provider, indefinite_leave_to_remain,
			address_line1, address_line2, city, postal_code, country, photo_url,
			status, aml_check_status, aml_check_date,
			created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID), m.MemberNumber.String(), uuid.UUID(m.TypeID),
		m.FirstName, m.LastName, nullString(m.Email), m.DateOfBirth,
		m.DocumentType, m.DocumentNumber, m.DocumentProvider, m.IndefiniteLeaveToRemain,
		nullString(m.AddressLine1), nullString(m.AddressLine2), nullString(m.City),
		nullString(m.PostalCode), nullString(m.Country), nullString(m.PhotoURL),
		string(m.Status), nullString(string(m.AMLStatus)), nullTime(m.AMLCheckedAt),
		nullUserID(m.CreatedBy), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, member_number, membership_type_id,
		first_name, last_name, email, date_of_birth,
		id_document_type, id_document_number, id_document_provider, indefinite_leave_to_remain,
		address_line1, address_line2, city, postal_code, country, photo_url,
		status, aml_check_status, aml_check_date,
		approved_at, approved_by, created_by, created_at, updated_at,
		deleted_at, deleted_by
	FROM members`

// FindByID returns the member regardless of deletion; callers decide whether
// a tombstoned member is visible.
func (s *Postgres) FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(memberID))
	return scanMember(row)
}

// HighestNumberForType scans numerically, not lexicographically, and counts
// soft-deleted members so their numbers are never reissued.
func (s *Postgres) HighestNumberForType(ctx context.Context, typeID id.MembershipTypeID) (id.MemberNumber, error) {
	query := `
		SELECT member_number FROM members
		WHERE membership_type_id = $1
		ORDER BY CAST(member_number AS NUMERIC) DESC
		LIMIT 1
	`
	var raw string
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(typeID)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("query highest member number: %w", err)
	}
	return id.ParseMemberNumber(raw)
}

// List returns members matching the filter, newest first. Soft-deleted rows
// are excluded unless the filter asks for them.
func (s *Postgres) List(ctx context.Context, filter models.ListFilter) ([]*models.Member, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !filter.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if filter.Status != nil {
		conds = append(conds, "status = "+arg(string(*filter.Status)))
	}
	if filter.TypeID != nil {
		conds = append(conds, "membership_type_id = "+arg(uuid.UUID(*filter.TypeID)))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, "(first_name ILIKE "+p+" OR last_name ILIKE "+p+" OR member_number ILIKE "+p+")")
	}

	query := selectColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMemberRows(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// Execute atomically validates and mutates one member while holding its row
// lock, so concurrent transitions on the same member serialize.
func (s *Postgres) Execute(ctx context.Context, memberID id.MemberID,
	validate func(*models.Member) error,
	mutate func(*models.Member)) (*models.Member, error) {

	row := s.execer(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, uuid.UUID(memberID))
	m, err := scanMember(row)
	if err != nil {
		return nil, err
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	mutate(m)

	query := `
		UPDATE members SET
			email = $2, address_line1 = $3, address_line2 = $4, city = $5,
			postal_code = $6, country = $7, photo_url = $8,
			status = $9, aml_check_status = $10, aml_check_date = $11,
			approved_at = $12, approved_by = $13, updated_at = $14,
			deleted_at = $15, deleted_by = $16
		WHERE id = $1
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID),
		nullString(m.Email), nullString(m.AddressLine1), nullString(m.AddressLine2),
		nullString(m.City), nullString(m.PostalCode), nullString(m.Country), nullString(m.PhotoURL),
		string(m.Status), nullString(string(m.AMLStatus)), nullTime(m.AMLCheckedAt),
		nullTime(m.ApprovedAt), nullUserID(m.ApprovedBy), m.UpdatedAt,
		nullTime(m.DeletedAt), nullUserID(m.DeletedBy)); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*models.Member, error) {
	var (
		m            models.Member
		memberID     uuid.UUID
		rawNumber    string
		typeID       uuid.UUID
		email        sql.NullString
		addr1, addr2 sql.NullString
		city, postal sql.NullString
		country      sql.NullString
		photo        sql.NullString
		amlStatus    sql.NullString
		amlDate      sql.NullTime
		approvedAt   sql.NullTime
		approvedBy   uuid.NullUUID
		createdBy    uuid.NullUUID
		deletedAt    sql.NullTime
		deletedBy    uuid.NullUUID
		status       string
	)
	err := sc.Scan(&memberID, &rawNumber, &typeID,
		&m.FirstName, &m.LastName, &email, &m.DateOfBirth,
		&m.DocumentType, &m.DocumentNumber, &m.DocumentProvider, &m.IndefiniteLeaveToRemain,
		&addr1, &addr2, &city, &postal, &country, &photo,
		&status, &amlStatus, &amlDate,
		&approvedAt, &approvedBy, &createdBy, &m.CreatedAt, &m.UpdatedAt,
		&deletedAt, &deletedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}

	m.ID = id.MemberID(memberID)
	m.TypeID = id.MembershipTypeID(typeID)
	number, err := id.ParseMemberNumber(rawNumber)
	if err != nil {
		return nil, fmt.Errorf("stored member number %q: %w", rawNumber, err)
	}
	m.MemberNumber = number
	m.Status = models.Status(status)
	m.Email = email.String
	m.AddressLine1 = addr1.String
	m.AddressLine2 = addr2.String
	m.City = city.String
	m.PostalCode = postal.String
	m.Country = country.String
	m.PhotoURL = photo.String
	if amlStatus.Valid {
		m.AMLStatus = models.AMLStatus(amlStatus.String)
	} else {
		m.AMLStatus = models.AMLUnchecked
	}
	if amlDate.Valid {
		t := amlDate.Time
		m.AMLCheckedAt = &t
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		m.ApprovedAt = &t
	}
	if approvedBy.Valid {
		m.ApprovedBy = id.UserID(approvedBy.UUID)
	}
	if createdBy.Valid {
		m.CreatedBy = id.UserID(createdBy.UUID)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	if deletedBy.Valid {
		m.DeletedBy = id.UserID(deletedBy.UUID)
	}
	return &m, nil
}

func scanMember(row *sql.Row) (*models.Member, error)       { return scanInto(row) }
func scanMemberRows(rows *sql.Rows) (*models.Member, error) { return scanInto(rows) }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUserID(u id.UserID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(u), Valid: !u.IsNil()}
}
