// Package audit is the append-only record of every state-changing operation.
//
// Lifecycle transitions call Record inside the same database transaction as
// the mutation, so a status change can never commit without its audit entry.
// Incidental actions (logins, admin reads) use RecordBestEffort, where a
// logging failure is reported operationally but never aborts the operation.
package audit

import (
	"context"
	"log/slog"

	id "memberd/pkg/domain"
	"memberd/pkg/requestcontext"
)

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error)
}

// Recorder stamps and appends audit entries.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record appends one entry, filling identity and request metadata from the
// context where the caller left them zero. The error matters: callers inside
// a transaction propagate it to roll the whole unit back.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	return r.store.Append(ctx, r.stamp(ctx, entry))
}

// RecordBestEffort appends one entry and swallows failures after logging
// them. For actions where audit is desirable but not load-bearing.
func (r *Recorder) RecordBestEffort(ctx context.Context, entry Entry) {
	if err := r.store.Append(ctx, r.stamp(ctx, entry)); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"action", string(entry.Action),
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (r *Recorder) stamp(ctx context.Context, entry Entry) Entry {
	if entry.ID.IsNil() {
		entry.ID = id.NewAuditEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.ActorID.IsNil() {
		entry.ActorID = requestcontext.ActorID(ctx)
	}
	if entry.IP == "" {
		entry.IP = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}
	return entry
}

// List returns the most recent entries, newest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]Entry, error) {
	return r.store.ListRecent(ctx, limit)
}

// ListByEntity returns entries for one entity, newest first.
func (r *Recorder) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	return r.store.ListByEntity(ctx, entityType, entityID, limit)
}
