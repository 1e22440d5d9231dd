package event

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"memberd/internal/transport/http/shared"
	id "memberd/pkg/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Route("/{eventID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Get("/attendance", h.attendance)
		r.Post("/checkin", h.checkIn)
	})
	return r
}

type createEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"event_date"`
	Location    string    `json:"location"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	e, err := h.service.CreateEvent(r.Context(), req.Name, req.Description, req.Date, req.Location)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListEvents(r.Context())
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	if events == nil {
		events = []*Event{}
	}
	shared.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	e, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) attendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	attendance, err := h.service.Attendance(r.Context(), eventID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	if attendance == nil {
		attendance = []*Attendance{}
	}
	shared.WriteJSON(w, http.StatusOK, attendance)
}

type checkInRequest struct {
	MemberID string `json:"member_id"`
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	var req checkInRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	memberID, err := id.ParseMemberID(req.MemberID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	a, err := h.service.CheckIn(r.Context(), eventID, memberID)
	if err != nil {
		shared.WriteError(r.Context(), w, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, a)
}
