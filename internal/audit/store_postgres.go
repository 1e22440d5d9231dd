package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "memberd/pkg/domain"
	txcontext "memberd/pkg/platform/tx"
)

// PostgresStore persists audit entries in the audit_logs table. Append joins
// the caller's transaction when one is in context, which is how lifecycle
// transitions couple their status change to the audit write.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	var actorID *uuid.UUID
	if !entry.ActorID.IsNil() {
		u := uuid.UUID(entry.ActorID)
		actorID = &u
	}
	var entityID *string
	if entry.EntityID != "" {
		entityID = &entry.EntityID
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id,
			old_values, new_values, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		actorID,
		string(entry.Action),
		entry.EntityType,
		entityID,
		nullableJSON(entry.OldValues),
		nullableJSON(entry.NewValues),
		nullableString(entry.IP),
		nullableString(entry.UserAgent),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + ` ORDER BY created_at DESC LIMIT $1`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	query := selectColumns + ` WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at DESC LIMIT $3`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

const selectColumns = `
	SELECT id, user_id, action, entity_type, entity_id,
	       old_values, new_values, ip_address, user_agent, created_at
	FROM audit_logs`

// ListUnpublished returns the oldest entries not yet relayed to the broker.
func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + ` WHERE NOT published ORDER BY created_at ASC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MarkPublished flags entries as relayed. Idempotent.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []id.AuditEntryID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, entryID := range ids {
		raw[i] = entryID.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_logs SET published = TRUE WHERE id = ANY($1::uuid[])`, pq.Array(raw))
	if err != nil {
		return fmt.Errorf("mark audit entries published: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			entryID   uuid.UUID
			actorID   *uuid.UUID
			action    string
			entityID  sql.NullString
			oldValues []byte
			newValues []byte
			ip        sql.NullString
			userAgent sql.NullString
		)
		err := rows.Scan(&entryID, &actorID, &action, &entry.EntityType, &entityID,
			&oldValues, &newValues, &ip, &userAgent, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID = id.AuditEntryID(entryID)
		if actorID != nil {
			entry.ActorID = id.UserID(*actorID)
		}
		entry.Action = Action(action)
		entry.EntityID = entityID.String
		entry.OldValues = oldValues
		entry.NewValues = newValues
		entry.IP = ip.String
		entry.UserAgent = userAgent.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
