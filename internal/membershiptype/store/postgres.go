// Package store persists membership types.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"memberd/internal/membershiptype/models"
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

func (s *Postgres) CreateIfAvailable(ctx context.Context, t *models.MembershipType) error {
	query := `
		INSERT INTO membership_types (id, name, fee, id_prefix, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID), t.Name, t.Fee.String(), t.IDPrefix, t.Active, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert membership type: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, name, fee, id_prefix, is_active, created_at, updated_at
	FROM membership_types`

func (s *Postgres) FindByID(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(typeID))
	return scanType(row)
}

// Lock fetches the type while taking its row lock, serializing member
// number allocation per type for the rest of the transaction.
func (s *Postgres) Lock(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, uuid.UUID(typeID))
	return scanType(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.MembershipType, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectColumns+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query membership types: %w", err)
	}
	defer rows.Close()

	var types []*models.MembershipType
	for rows.Next() {
		t, err := scanTypeRows(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership types: %w", err)
	}
	return types, nil
}

func (s *Postgres) Execute(ctx context.Context, typeID id.MembershipTypeID,
	validate func(*models.MembershipType) error,
	mutate func(*models.MembershipType)) (*models.MembershipType, error) {

	t, err := s.Lock(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)

	query := `
		UPDATE membership_types SET name = $2, fee = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID), t.Name, t.Fee.String(), t.Active, t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update membership type: %w", err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*models.MembershipType, error) {
	var (
		t      models.MembershipType
		typeID uuid.UUID
		fee    string
	)
	if err := sc.Scan(&typeID, &t.Name, &fee, &t.IDPrefix, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan membership type: %w", err)
	}
	t.ID = id.MembershipTypeID(typeID)
	parsed, err := decimal.NewFromString(fee)
	if err != nil {
		return nil, fmt.Errorf("parse fee %q: %w", fee, err)
	}
	t.Fee = parsed
	return &t, nil
}

func scanType(row *sql.Row) (*models.MembershipType, error)       { return scanInto(row) }
func scanTypeRows(rows *sql.Rows) (*models.MembershipType, error) { return scanInto(rows) }
