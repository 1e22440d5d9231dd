// Package handler exposes authentication and user administration over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"memberd/internal/authn/models"
	authservice "memberd/internal/authn/service"
	"memberd/internal/transport/http/shared"
	id "memberd/pkg/domain"
)

type Service interface {
	Login(ctx context.Context, username, password string, tokenTTL time.Duration) (*authservice.LoginResult, error)
	CreateUser(ctx context.Context, username, email, password, role string) (*models.User, error)
	DeactivateUser(ctx context.Context, userID id.UserID) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type Handler struct {
	service  Service
	tokenTTL time.Duration
	logger   *slog.Logger
}

func New(service Service, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{service: service, tokenTTL: tokenTTL, logger: logger}
}

// LoginRoutes are mounted outside the authenticated router.
func (h *Handler) LoginRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	return r
}

// UserRoutes are mounted behind authentication.
func (h *Handler) UserRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.createUser)
	r.Get("/", h.listUsers)
	r.Post("/{userID}/deactivate", h.deactivateUser)
	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	result, err := h.service.Login(r.Context(), req.Username, req.Password, h.tokenTTL)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	u, err := h.service.CreateUser(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	shared.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	u, err := h.service.DeactivateUser(r.Context(), userID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, u)
}
