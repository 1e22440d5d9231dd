// Package handler exposes membership type management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"memberd/internal/membershiptype/models"
	"memberd/internal/transport/http/shared"
	id "memberd/pkg/domain"
)

type Service interface {
	Create(ctx context.Context, name string, fee decimal.Decimal, idPrefix string) (*models.MembershipType, error)
	Get(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error)
	List(ctx context.Context) ([]*models.MembershipType, error)
	Deactivate(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error)
	Reactivate(ctx context.Context, typeID id.MembershipTypeID) (*models.MembershipType, error)
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
	r.Route("/{typeID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/deactivate", h.deactivate)
		r.Post("/reactivate", h.reactivate)
	})
	return r
}

type createRequest struct {
	Name     string          `json:"name"`
	Fee      decimal.Decimal `json:"fee"`
	IDPrefix string          `json:"id_prefix"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	t, err := h.service.Create(r.Context(), req.Name, req.Fee, req.IDPrefix)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.List(r.Context())
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	if types == nil {
		types = []*models.MembershipType{}
	}
	shared.WriteJSON(w, http.StatusOK, types)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.service.Get)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.service.Deactivate)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.service.Reactivate)
}

func (h *Handler) byID(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, id.MembershipTypeID) (*models.MembershipType, error)) {
	typeID, err := id.ParseMembershipTypeID(chi.URLParam(r, "typeID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	t, err := fn(r.Context(), typeID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, t)
}
