package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/iieadb/eventboard/internal/adapters/http/api"
	service "github.com/iieadb/eventboard/internal/app"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/types"
	"github.com/iieadb/eventboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const testSecret = "test-secret"

type fixture struct {
	svc     *service.Service
	handler http.Handler
	auth    *api.Authenticator
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	svc := service.New(
		service.WithSeedFile("testdata/seed.yaml"),
		service.WithRefreshSchedule(""),
		service.WithLogger(logger.Nop()),
	)
	if err := svc.Start(t.Context()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	auth, err := api.NewAuthenticator(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	opts = append([]api.Option{api.WithAuthenticator(auth)}, opts...)
	return &fixture{svc: svc, handler: api.NewServer(svc, opts...).Handler(), auth: auth}
}

func (f *fixture) do(method, target, body string, who *session.Identity, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if who != nil {
		token, err := f.auth.Issue(*who)
		So(err, ShouldBeNil)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeListing(w *httptest.ResponseRecorder) types.Listing {
	var l types.Listing
	So(json.Unmarshal(w.Body.Bytes(), &l), ShouldBeNil)
	return l
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func ids(l types.Listing) []int64 {
	out := make([]int64, len(l.Events))
	for i, e := range l.Events {
		out[i] = e.ID
	}
	return out
}

var (
	ana = &session.Identity{ID: 10, Username: "ana"}
	bo  = &session.Identity{ID: 20, Username: "bo"}
)

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture(t)

		Convey("Then /healthz should report ok as JSON", func() {
			w := f.do(http.MethodGet, "/healthz", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
		})

		Convey("Then a caller supplied request id should be echoed", func() {
			w := f.do(http.MethodGet, "/healthz", "", nil, "X-Request-ID", "req-123")
			So(w.Header().Get("X-Request-ID"), ShouldEqual, "req-123")
		})

		Convey("Then /metrics should serve the Prometheus exposition", func() {
			w := f.do(http.MethodGet, "/metrics", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.Len(), ShouldBeGreaterThan, 0)
		})

		Convey("Then the OpenAPI document should be served", func() {
			w := f.do(http.MethodGet, "/openapi.yaml", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/api/events.ics")
		})

		Convey("Then /stats should describe the service", func() {
			w := f.do(http.MethodGet, "/stats", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["events"], ShouldEqual, float64(3))
		})
	})
}

func TestListEvents(t *testing.T) {
	Convey("Given a running API with three seeded events", t, func() {
		f := newFixture(t)

		Convey("When an anonymous client lists with the default order", func() {
			w := f.do(http.MethodGet, "/api/events", "", nil)

			Convey("Then rows should be sorted by name ascending without delete controls", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("X-Snapshot-Version"), ShouldEqual, "1")
				l := decodeListing(w)
				So(ids(l), ShouldResemble, []int64{5, 2, 1})
				So(l.Sort, ShouldEqual, "name")
				So(l.Order, ShouldEqual, "asc")
				for _, e := range l.Events {
					So(e.CanDelete, ShouldBeFalse)
				}
			})
		})

		Convey("When ana lists by start date descending", func() {
			w := f.do(http.MethodGet, "/api/events?sort=start_date&order=desc", "", ana)

			Convey("Then only her event should be deletable", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				l := decodeListing(w)
				So(ids(l), ShouldResemble, []int64{1, 2, 5})
				So(l.Events[0].CanDelete, ShouldBeTrue)
				So(l.Events[1].CanDelete, ShouldBeFalse)
				So(l.Events[2].CanDelete, ShouldBeFalse)
				So(l.Events[0].Display.StartDate, ShouldEqual, "March 1, 2024")
				So(l.Events[0].Display.TeamEvent, ShouldEqual, "Yes")
				So(l.Events[2].Display.Creator, ShouldEqual, "")
			})
		})

		Convey("When the sort field is not sortable", func() {
			w := f.do(http.MethodGet, "/api/events?sort=id", "", nil)

			Convey("Then it should answer 400 invalid_field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "invalid_field")
			})
		})

		Convey("When the order is unknown", func() {
			w := f.do(http.MethodGet, "/api/events?sort=name&order=sideways", "", nil)

			Convey("Then it should answer 400 invalid_direction", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "invalid_direction")
			})
		})

		Convey("When the bearer token is forged", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
			req.Header.Set("Authorization", "Bearer not-a-token")
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)

			Convey("Then it should answer 401", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(errorCode(w), ShouldEqual, "unauthorized")
			})
		})
	})
}

func TestGetEvent(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture(t)

		Convey("Then a known id should return the event", func() {
			w := f.do(http.MethodGet, "/api/events/2", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"name":"Open Trials"`)
		})

		Convey("Then an unknown id should answer 404 not_found", func() {
			w := f.do(http.MethodGet, "/api/events/99", "", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})

		Convey("Then a malformed id should answer 400", func() {
			w := f.do(http.MethodGet, "/api/events/abc", "", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")
		})
	})
}

func TestCreateEvent(t *testing.T) {
	const payload = `{"name":"Summer Cup","start_date":"2024-06-01","team_event":true}`

	Convey("Given a running API", t, func() {
		f := newFixture(t)

		Convey("When an anonymous client creates an event", func() {
			w := f.do(http.MethodPost, "/api/events", payload, nil)

			Convey("Then it should answer 401", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When bo submits the same form twice with one idempotency key", func() {
			first := f.do(http.MethodPost, "/api/events", payload, bo, "Idempotency-Key", "k-1")
			second := f.do(http.MethodPost, "/api/events", payload, bo, "Idempotency-Key", "k-1")

			Convey("Then one event should be created and the repeat flagged", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)

				var a, b types.CreateResult
				So(json.Unmarshal(first.Body.Bytes(), &a), ShouldBeNil)
				So(json.Unmarshal(second.Body.Bytes(), &b), ShouldBeNil)
				So(a.Duplicate, ShouldBeFalse)
				So(b.Duplicate, ShouldBeTrue)
				So(b.Event.ID, ShouldEqual, a.Event.ID)
				So(a.Event.Creator.Username, ShouldEqual, "bo")
				So(first.Header().Get("Location"), ShouldEqual, "/api/events/6")

				l := decodeListing(f.do(http.MethodGet, "/api/events", "", bo))
				So(l.Version, ShouldEqual, 2)
				So(l.Count, ShouldEqual, 4)
			})
		})

		Convey("When the payload misses the start date", func() {
			w := f.do(http.MethodPost, "/api/events", `{"name":"Undated"}`, bo)

			Convey("Then it should answer 400 invalid_event", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "invalid_event")
			})
		})

		Convey("When the payload has unknown fields", func() {
			w := f.do(http.MethodPost, "/api/events", `{"name":"X","start_date":"2024-06-01","creator":{"id":1}}`, bo)

			Convey("Then it should answer 400 bad_request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})
	})

	Convey("Given an API limited to one mutation per second", t, func() {
		f := newFixture(t, api.WithRateLimit(1, 1))

		Convey("When two creates arrive back to back", func() {
			first := f.do(http.MethodPost, "/api/events", payload, bo)
			second := f.do(http.MethodPost, "/api/events", payload, bo)

			Convey("Then the second should be throttled", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(second), ShouldEqual, "rate_limited")
			})
		})

		Convey("Then reads should not be throttled", func() {
			for i := 0; i < 3; i++ {
				So(f.do(http.MethodGet, "/api/events", "", nil).Code, ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestDeleteEvent(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture(t)

		Convey("When bo deletes ana's event", func() {
			w := f.do(http.MethodDelete, "/api/events/1", "", bo)

			Convey("Then it should answer 403 and keep the event", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(errorCode(w), ShouldEqual, "forbidden")
				So(f.do(http.MethodGet, "/api/events/1", "", nil).Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When ana deletes her event", func() {
			w := f.do(http.MethodDelete, "/api/events/1", "", ana)

			Convey("Then it should answer 204 and the listing should reload", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(f.do(http.MethodGet, "/api/events/1", "", nil).Code, ShouldEqual, http.StatusNotFound)
				l := decodeListing(f.do(http.MethodGet, "/api/events", "", ana))
				So(l.Version, ShouldEqual, 2)
				So(ids(l), ShouldResemble, []int64{5, 2})
			})
		})

		Convey("When the event does not exist", func() {
			w := f.do(http.MethodDelete, "/api/events/99", "", ana)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the caller is anonymous", func() {
			w := f.do(http.MethodDelete, "/api/events/1", "", nil)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestCalendarExport(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture(t)

		Convey("When exporting by start date", func() {
			w := f.do(http.MethodGet, "/api/events.ics?sort=start_date", "", nil)

			Convey("Then the calendar should list events in that order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/calendar")

				cal, err := ics.ParseCalendar(strings.NewReader(w.Body.String()))
				So(err, ShouldBeNil)
				events := cal.Events()
				So(len(events), ShouldEqual, 3)

				summaries := make([]string, len(events))
				for i, ev := range events {
					summaries[i] = ev.GetProperty(ics.ComponentPropertySummary).Value
				}
				So(summaries, ShouldResemble, []string{"Legacy Import", "Open Trials", "Spring Cup"})
				So(events[2].GetProperty(ics.ComponentPropertyUniqueId).Value, ShouldEqual, "event-1@eventboard")
				So(events[2].GetProperty(ics.ComponentPropertyCategories).Value, ShouldEqual, "TEAM")
				So(events[0].GetProperty(ics.ComponentPropertyDtEnd), ShouldBeNil)
			})
		})

		Convey("When the sort field is invalid", func() {
			w := f.do(http.MethodGet, "/api/events.ics?sort=bogus", "", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAuthenticator(t *testing.T) {
	Convey("Given an authenticator", t, func() {
		auth, err := api.NewAuthenticator(testSecret, time.Hour)
		So(err, ShouldBeNil)

		Convey("Then an issued token should verify to the same identity", func() {
			token, err := auth.Issue(session.Identity{ID: 7, Username: "cy"})
			So(err, ShouldBeNil)
			id, err := auth.Verify(token)
			So(err, ShouldBeNil)
			So(id, ShouldResemble, session.Identity{ID: 7, Username: "cy"})
		})

		Convey("Then a token signed with another secret should be refused", func() {
			other, _ := api.NewAuthenticator("another-secret", time.Hour)
			token, err := other.Issue(session.Identity{ID: 7, Username: "cy"})
			So(err, ShouldBeNil)
			_, err = auth.Verify(token)
			So(errors.Is(err, api.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("Then identities without a positive id should not be issued", func() {
			_, err := auth.Issue(session.Identity{Username: "nobody"})
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		})

		Convey("Then an empty secret should be rejected", func() {
			_, err := api.NewAuthenticator(" ", time.Hour)
			So(errors.Is(err, api.ErrUnauthorized), ShouldBeTrue)
		})
	})
}
