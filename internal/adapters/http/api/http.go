// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iieadb/eventboard/internal/adapters/http/swagger"
	"github.com/iieadb/eventboard/internal/adapters/repository"
	service "github.com/iieadb/eventboard/internal/app"
	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/sorting"
	"github.com/iieadb/eventboard/internal/domain/types"
	"github.com/iieadb/eventboard/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// Listing sorts the current snapshot and renders it for who.
	Listing(ctx context.Context, key sorting.Key, who *session.Identity) (types.Listing, error)
	Get(ctx context.Context, id int64) (model.Event, error)

	// Create reports duplicate when the idempotency key was already used.
	Create(ctx context.Context, who session.Identity, idempotencyKey string, n model.NewEvent) (model.Event, bool, error)
	Delete(ctx context.Context, who session.Identity, id int64) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	calendarHandler *CalendarHandler

	auth        *Authenticator
	corsOrigins []string
	rateRPS     float64
	rateBurst   int
	logger      logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		eventsHandler:   NewEventsHandler(deps),
		calendarHandler: NewCalendarHandler(deps),
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router. Specific paths are registered before the
// parameterised ones.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.logger))
	r.Use(requestLogger(s.logger))
	r.Use(corsHandler(s.corsOrigins))
	r.Use(authenticate(s.auth))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Register(r)

	limiter := newRateLimiter(s.rateRPS, s.rateBurst)
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.eventsHandler.HandleList, "events_list"))
		r.Get("/{id}", MetricsMiddleware(s.eventsHandler.HandleGet, "events_get"))
		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler, requireIdentity)
			r.Post("/", MetricsMiddleware(s.eventsHandler.HandleCreate, "events_create"))
			r.Delete("/{id}", MetricsMiddleware(s.eventsHandler.HandleDelete, "events_delete"))
		})
	})
	r.Get("/api/events.ics", MetricsMiddleware(s.calendarHandler.HandleCalendar, "events_ics"))

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates errors from the service layer to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sorting.ErrInvalidField):
		writeError(w, http.StatusBadRequest, "invalid_field", err)
	case errors.Is(err, sorting.ErrInvalidDirection):
		writeError(w, http.StatusBadRequest, "invalid_direction", err)
	case errors.Is(err, model.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "invalid_event", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, service.ErrCreateInProgress):
		writeError(w, http.StatusConflict, "in_progress", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", nil)
	}
}
