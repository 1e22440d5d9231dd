// Package handler exposes member registration and lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"memberd/internal/member/models"
	"memberd/internal/transport/http/shared"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

// Service is the member operations the handler needs. Capability checks
// live in the service so every caller goes through them, not just HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateMemberRequest) (*models.Member, error)
	Get(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Member, error)
	Update(ctx context.Context, memberID id.MemberID, req *models.UpdateMemberRequest) (*models.Member, error)
	Approve(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	Reject(ctx context.Context, memberID id.MemberID, reason string) (*models.Member, error)
	Suspend(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	Reinstate(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	SoftDelete(ctx context.Context, memberID id.MemberID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Route("/{memberID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Delete("/", h.softDelete)
		r.Post("/approve", h.approve)
		r.Post("/reject", h.reject)
		r.Post("/suspend", h.suspend)
		r.Post("/reinstate", h.reinstate)
	})
	return r
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMemberRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	m, err := h.service.Create(r.Context(), &req)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	members, err := h.service.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	if members == nil {
		members = []*models.Member{}
	}
	shared.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	m, err := h.service.Get(r.Context(), memberID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	var req models.UpdateMemberRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	m, err := h.service.Update(r.Context(), memberID, &req)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	if err := h.service.SoftDelete(r.Context(), memberID); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	var req rejectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	m, err := h.service.Reject(r.Context(), memberID, req.Reason)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Suspend)
}

func (h *Handler) reinstate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reinstate)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, id.MemberID) (*models.Member, error)) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	m, err := fn(r.Context(), memberID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

func filterFromQuery(r *http.Request) (models.ListFilter, error) {
	var filter models.ListFilter
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if raw := q.Get("membership_type_id"); raw != "" {
		typeID, err := id.ParseMembershipTypeID(raw)
		if err != nil {
			return filter, err
		}
		filter.TypeID = &typeID
	}
	filter.Search = q.Get("search")
	if raw := q.Get("include_deleted"); raw != "" {
		switch raw {
		case "true":
			filter.IncludeDeleted = true
		case "false":
		default:
			return filter, dErrors.New(dErrors.CodeInvalidInput, "include_deleted must be true or false")
		}
	}
	return filter, nil
}
