package api

import (
	"net/http"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/types"
	"github.com/iieadb/eventboard/internal/listing"
)

const (
	calendarProductID = "-//eventboard//events//EN"
	creatorProperty   = ics.ComponentProperty("X-EVENTBOARD-CREATOR")
)

// CalendarHandler exports the sorted listing as iCalendar.
type CalendarHandler struct {
	deps Dependencies
	now  func() time.Time
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(deps Dependencies) *CalendarHandler {
	return &CalendarHandler{deps: deps, now: time.Now}
}

// HandleCalendar handles GET /api/events.ics?sort=&order=.
func (h *CalendarHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.Header().Set(versionHeader, strconv.FormatUint(l.Version, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(Calendar(l, h.now())))
}

// Calendar renders rows as a VCALENDAR in listing order. Rows without a
// start date are skipped.
func Calendar(l types.Listing, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	for _, row := range l.Events {
		if row.StartDate.IsZero() {
			continue
		}
		ev := cal.AddEvent(eventUID(row.ID))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(row.Name)
		ev.SetStartAt(row.StartDate.UTC())
		if !row.EndDate.IsZero() {
			ev.SetEndAt(row.EndDate.UTC())
		}
		ev.AddProperty(ics.ComponentPropertyUrl, listing.EventPath(row.ID))
		if row.TeamEvent {
			ev.AddProperty(ics.ComponentPropertyCategories, "TEAM")
		}
		if row.Creator != nil {
			ev.AddProperty(creatorProperty, row.Creator.Username)
		}
	}
	return cal.Serialize()
}

func eventUID(id int64) string {
	return "event-" + strconv.FormatInt(id, 10) + "@eventboard"
}
