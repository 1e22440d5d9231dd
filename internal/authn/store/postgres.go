// Package store persists staff users.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"memberd/internal/authn/models"
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

func (s *Postgres) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Username, u.Email, u.PasswordHash, u.Role, u.Active, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, username, email, password_hash, role, is_active, created_at, updated_at
	FROM users`

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectColumns+` WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectColumns+` ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *Postgres) Execute(ctx context.Context, userID id.UserID,
	validate func(*models.User) error,
	mutate func(*models.User)) (*models.User, error) {

	row := s.execer(ctx).QueryRowContext(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, uuid.UUID(userID))
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if err := validate(u); err != nil {
		return nil, err
	}
	mutate(u)

	query := `
		UPDATE users SET email = $2, password_hash = $3, role = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Email, u.PasswordHash, u.Role, u.Active, u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*models.User, error) {
	var (
		u      models.User
		userID uuid.UUID
	)
	err := sc.Scan(&userID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(userID)
	return &u, nil
}

func scanUser(row *sql.Row) (*models.User, error)       { return scanInto(row) }
func scanUserRows(rows *sql.Rows) (*models.User, error) { return scanInto(rows) }
