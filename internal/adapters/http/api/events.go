package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/sorting"
	"github.com/iieadb/eventboard/internal/domain/types"
)

// maxBodyBytes bounds creation payloads.
const maxBodyBytes = 1 << 16

// EventsHandler serves the event listing and its mutations.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleList handles GET /api/events?sort=&order=.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	key, err := sortKeyFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	l, err := h.deps.Listing(r.Context(), key, session.FromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set(versionHeader, strconv.FormatUint(l.Version, 10))
	writeJSON(w, http.StatusOK, l)
}

// HandleGet handles GET /api/events/{id}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	e, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleCreate handles POST /api/events. The creator is the bearer.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	who := session.FromContext(r.Context())

	var req model.NewEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeDomainError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	e, duplicate, err := h.deps.Create(r.Context(), *who, strings.TrimSpace(r.Header.Get(idempotencyHdr)), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/api/events/"+strconv.FormatInt(e.ID, 10))
	writeJSON(w, status, types.CreateResult{Event: e, Duplicate: duplicate})
}

// HandleDelete handles DELETE /api/events/{id}.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.deps.Delete(r.Context(), *session.FromContext(r.Context()), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sortKeyFromQuery(r *http.Request) (sorting.Key, error) {
	q := r.URL.Query()
	return sorting.ParseKey(q.Get("sort"), q.Get("order"))
}

func eventID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid event id %q", ErrBadRequest, raw)
	}
	return id, nil
}
