// Package handler exposes the audit trail read API. Capability enforcement
// happens at the mount point; every route here assumes audit:read.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"memberd/internal/audit"
	"memberd/internal/transport/http/shared"
	dErrors "memberd/pkg/domainerrors"
)

const defaultLimit = 100

type Handler struct {
	recorder *audit.Recorder
	logger   *slog.Logger
}

func New(recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{entityType}/{entityID}", h.listByEntity)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := limitFromQuery(r)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	entries, err := h.recorder.List(r.Context(), limit)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) listByEntity(w http.ResponseWriter, r *http.Request) {
	limit, err := limitFromQuery(r)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	entries, err := h.recorder.ListByEntity(r.Context(),
		chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"), limit)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

func limitFromQuery(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 1000 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 1000")
	}
	return limit, nil
}
