package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/dto"
	"github.com/vinylhub/eventsync/pkg/logger/types"
)

type scheduler interface {
	Status() dto.NotificationStatus
	Pending(ctx context.Context) ([]dto.PendingNotification, error)
	SendTestNotification(ctx context.Context, title, body string, now time.Time)
}

type coordinator interface {
	Reconcile(ctx context.Context, now time.Time) (dto.ReconcileReport, error)
	ExportCalendar(ctx context.Context, now time.Time) ([]byte, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]dto.EventView, error)
}

// Handler serves the notification diagnostics surface.
type Handler struct {
	scheduler   scheduler
	coordinator coordinator
	logger      *types.Logger
	now         func() time.Time
}

func NewHandler(scheduler scheduler, coordinator coordinator, logger *types.Logger) *Handler {
	if logger == nil {
		logger = types.Nop()
	}
	return &Handler{
		scheduler:   scheduler,
		coordinator: coordinator,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Router mounts every route on a fresh chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Health)
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/pending", h.Pending)
		r.Post("/reconcile", h.Reconcile)
		r.Post("/test", h.SendTest)
	})
	r.Get("/events/upcoming", h.Upcoming)
	r.Get("/calendar.ics", h.Calendar)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.scheduler.Pending(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

// Reconcile runs a cancel-then-rebuild pass for the active user. A pass with backend
// failures still returns its report, with status 502.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.coordinator.Reconcile(r.Context(), h.now())
	if errors.Is(err, errorz.ErrReconcileFailed) {
		writeJSON(w, http.StatusBadGateway, struct {
			dto.ReconcileReport
			Error string `json:"error"`
		}{report, err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, errorz.Invalid("body", err.Error()))
			return
		}
	}
	if body.Title == "" {
		body.Title = "Test notification"
	}
	h.scheduler.SendTestNotification(r.Context(), body.Title, body.Body, h.now())
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	events, err := h.coordinator.ListUpcoming(r.Context(), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	data, err := h.coordinator.ExportCalendar(r.Context(), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var verr *errorz.ValidationError
	switch {
	case errors.Is(err, errorz.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, errorz.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	default:
		h.logger.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
