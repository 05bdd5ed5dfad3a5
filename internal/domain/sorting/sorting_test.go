package sorting_test

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/internal/domain/sorting"
	. "github.com/smartystreets/goconvey/convey"
)

func ids(events []model.Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func user(id int64, name string) *model.User {
	return &model.User{ID: id, Username: name}
}

// randomEvents builds a deterministic collection with plenty of ties and
// absent values.
func randomEvents(seed uint64, n int) []model.Event {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	names := []string{"Alpha", "Beta", "beta", "Cup", ""}
	creators := []*model.User{nil, user(1, "ana"), user(2, "bo"), user(3, "ana")}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Event, n)
	for i := range out {
		var start, end model.Date
		if r.IntN(5) > 0 {
			start = model.NewDate(base.AddDate(0, 0, r.IntN(10)))
		}
		if r.IntN(5) > 0 {
			end = model.NewDate(base.AddDate(0, 0, 10+r.IntN(10)))
		}
		out[i] = model.Event{
			ID:        int64(i + 1),
			Name:      names[r.IntN(len(names))],
			StartDate: start,
			EndDate:   end,
			Creator:   creators[r.IntN(len(creators))],
			TeamEvent: r.IntN(2) == 0,
		}
	}
	return out
}

func TestSortScenario(t *testing.T) {
	Convey("Given two events", t, func() {
		events := []model.Event{
			{ID: 1, Name: "B", StartDate: model.MustDate("2024-02-01")},
			{ID: 2, Name: "A", StartDate: model.MustDate("2024-01-01")},
		}

		Convey("When sorting by name ascending", func() {
			out, err := sorting.Sort(events, sorting.Key{Field: sorting.FieldName, Direction: sorting.Ascending})

			Convey("Then the order should be [2 1]", func() {
				So(err, ShouldBeNil)
				So(ids(out), ShouldResemble, []int64{2, 1})
			})
		})

		Convey("When sorting by start date ascending", func() {
			out, err := sorting.Sort(events, sorting.Key{Field: sorting.FieldStartDate, Direction: sorting.Ascending})

			Convey("Then the order should be [2 1]", func() {
				So(err, ShouldBeNil)
				So(ids(out), ShouldResemble, []int64{2, 1})
			})
		})

		Convey("When the name header is toggled twice", func() {
			key := sorting.DefaultKey()
			first := sorting.MustSort(events, key)
			key = key.Toggle(sorting.FieldName)
			second := sorting.MustSort(events, key)
			key = key.Toggle(sorting.FieldName)
			third := sorting.MustSort(events, key)

			Convey("Then the order should go [2 1] -> [1 2] -> [2 1]", func() {
				So(ids(first), ShouldResemble, []int64{2, 1})
				So(ids(second), ShouldResemble, []int64{1, 2})
				So(ids(third), ShouldResemble, []int64{2, 1})
				So(key.Direction, ShouldEqual, sorting.Ascending)
			})
		})

		Convey("Then the source slice should be left untouched", func() {
			_ = sorting.MustSort(events, sorting.DefaultKey())
			So(ids(events), ShouldResemble, []int64{1, 2})
		})
	})
}

func TestSortFields(t *testing.T) {
	Convey("Given events with absent values", t, func() {
		events := []model.Event{
			{ID: 1, Name: "b", Creator: user(7, "zoe"), TeamEvent: true, EndDate: model.MustDate("2024-03-01")},
			{ID: 2, Name: "B", Creator: nil, TeamEvent: false},
			{ID: 3, Name: "a", Creator: user(5, "ana"), TeamEvent: true, EndDate: model.MustDate("2024-01-01T09:00:00Z")},
			{ID: 4, Name: "a", Creator: user(4, "ana"), TeamEvent: false, EndDate: model.MustDate("2024-01-01T08:00:00Z")},
		}

		Convey("When sorting by name", func() {
			out := sorting.MustSort(events, sorting.Key{Field: sorting.FieldName, Direction: sorting.Ascending})

			Convey("Then byte order applies and ties keep input order", func() {
				So(ids(out), ShouldResemble, []int64{2, 3, 4, 1})
			})
		})

		Convey("When sorting by creator", func() {
			out := sorting.MustSort(events, sorting.Key{Field: sorting.FieldCreator, Direction: sorting.Ascending})

			Convey("Then the missing creator comes first and equal usernames order by id", func() {
				So(ids(out), ShouldResemble, []int64{2, 4, 3, 1})
			})
		})

		Convey("When sorting by creator descending", func() {
			out := sorting.MustSort(events, sorting.Key{Field: sorting.FieldCreator, Direction: sorting.Descending})

			Convey("Then the missing creator comes last", func() {
				So(ids(out), ShouldResemble, []int64{1, 3, 4, 2})
			})
		})

		Convey("When sorting by end date", func() {
			out := sorting.MustSort(events, sorting.Key{Field: sorting.FieldEndDate, Direction: sorting.Ascending})

			Convey("Then absent first, then by instant", func() {
				So(ids(out), ShouldResemble, []int64{2, 4, 3, 1})
			})
		})

		Convey("When sorting by team flag", func() {
			asc := sorting.MustSort(events, sorting.Key{Field: sorting.FieldTeamEvent, Direction: sorting.Ascending})
			desc := sorting.MustSort(events, sorting.Key{Field: sorting.FieldTeamEvent, Direction: sorting.Descending})

			Convey("Then false precedes true and equal flags keep input order both ways", func() {
				So(ids(asc), ShouldResemble, []int64{2, 4, 1, 3})
				So(ids(desc), ShouldResemble, []int64{1, 3, 2, 4})
			})
		})
	})

	Convey("Given dates in different zones", t, func() {
		events := []model.Event{
			{ID: 1, StartDate: model.MustDate("2024-01-01T10:00:00+05:00")},
			{ID: 2, StartDate: model.MustDate("2024-01-01T06:00:00Z")},
		}

		Convey("Then the comparison should use the instant, not the text", func() {
			out := sorting.MustSort(events, sorting.Key{Field: sorting.FieldStartDate, Direction: sorting.Ascending})
			So(ids(out), ShouldResemble, []int64{1, 2})
		})
	})
}

func TestSortEdgeCases(t *testing.T) {
	Convey("Given degenerate inputs", t, func() {
		Convey("When sorting nil", func() {
			out, err := sorting.Sort(nil, sorting.DefaultKey())

			Convey("Then an empty, non-nil slice should come back", func() {
				So(err, ShouldBeNil)
				So(out, ShouldNotBeNil)
				So(out, ShouldBeEmpty)
			})
		})

		Convey("When sorting one event", func() {
			out, err := sorting.Sort([]model.Event{{ID: 5}}, sorting.Key{Field: sorting.FieldCreator, Direction: sorting.Descending})

			Convey("Then it should come back alone", func() {
				So(err, ShouldBeNil)
				So(ids(out), ShouldResemble, []int64{5})
			})
		})

		Convey("When the field is not sortable", func() {
			_, err := sorting.Sort([]model.Event{{ID: 1}}, sorting.Key{Field: "id", Direction: sorting.Ascending})

			Convey("Then it should fail with ErrInvalidField", func() {
				So(errors.Is(err, sorting.ErrInvalidField), ShouldBeTrue)
			})
		})

		Convey("When the direction is unknown", func() {
			_, err := sorting.Sort(nil, sorting.Key{Field: sorting.FieldName, Direction: "sideways"})

			Convey("Then it should fail with ErrInvalidDirection", func() {
				So(errors.Is(err, sorting.ErrInvalidDirection), ShouldBeTrue)
			})
		})

		Convey("When MustSort gets an invalid key", func() {
			Convey("Then it should panic", func() {
				So(func() { sorting.MustSort(nil, sorting.Key{Field: "creator.id"}) }, ShouldPanic)
			})
		})
	})
}

func TestSortProperties(t *testing.T) {
	Convey("Given random collections with ties and absent values", t, func() {
		for seed := uint64(1); seed <= 25; seed++ {
			events := randomEvents(seed, int(seed%13))
			original := slices.Clone(events)

			for _, f := range sorting.Fields() {
				asc := sorting.MustSort(events, sorting.Key{Field: f, Direction: sorting.Ascending})
				desc := sorting.MustSort(events, sorting.Key{Field: f, Direction: sorting.Descending})

				// no loss, no duplication
				So(len(asc), ShouldEqual, len(events))
				gotIDs := ids(asc)
				slices.Sort(gotIDs)
				So(gotIDs, ShouldResemble, ids(original))

				// ordered under the field comparator
				for i := 1; i < len(asc); i++ {
					c, err := sorting.Compare(asc[i-1], asc[i], f)
					So(err, ShouldBeNil)
					So(c, ShouldBeLessThanOrEqualTo, 0)
				}
				for i := 1; i < len(desc); i++ {
					c, _ := sorting.Compare(desc[i-1], desc[i], f)
					So(c, ShouldBeGreaterThanOrEqualTo, 0)
				}

				// idempotent under a fixed key
				So(ids(sorting.MustSort(asc, sorting.Key{Field: f, Direction: sorting.Ascending})), ShouldResemble, ids(asc))
				So(ids(sorting.MustSort(desc, sorting.Key{Field: f, Direction: sorting.Descending})), ShouldResemble, ids(desc))

				// equal elements keep input order in both directions
				assertStableGroups(asc, f)
				assertStableGroups(desc, f)
			}

			// non-destructive
			So(ids(events), ShouldResemble, ids(original))
		}
	})

	Convey("Given strictly ordered data", t, func() {
		events := []model.Event{{ID: 1, Name: "c"}, {ID: 2, Name: "a"}, {ID: 3, Name: "d"}, {ID: 4, Name: "b"}}

		Convey("Then descending should be the exact reverse of ascending", func() {
			asc := ids(sorting.MustSort(events, sorting.Key{Field: sorting.FieldName, Direction: sorting.Ascending}))
			desc := ids(sorting.MustSort(events, sorting.Key{Field: sorting.FieldName, Direction: sorting.Descending}))
			slices.Reverse(desc)
			So(desc, ShouldResemble, asc)
		})
	})
}

// assertStableGroups checks that ids rise inside every run of equal values.
// Inputs from randomEvents carry ascending ids, so this is input order.
func assertStableGroups(out []model.Event, f sorting.Field) {
	for i := 1; i < len(out); i++ {
		if c, _ := sorting.Compare(out[i-1], out[i], f); c == 0 {
			So(out[i-1].ID, ShouldBeLessThan, out[i].ID)
		}
	}
}

func TestKey(t *testing.T) {
	Convey("Given the default key", t, func() {
		key := sorting.DefaultKey()

		Convey("Then it should be name ascending", func() {
			So(key, ShouldResemble, sorting.Key{Field: sorting.FieldName, Direction: sorting.Ascending})
			So(key.String(), ShouldEqual, "name asc")
		})

		Convey("When toggling the active field", func() {
			So(key.Toggle(sorting.FieldName).Direction, ShouldEqual, sorting.Descending)
		})

		Convey("When selecting a new field from descending", func() {
			next := key.Toggle(sorting.FieldName).Toggle(sorting.FieldEndDate)

			Convey("Then the direction should reset to ascending", func() {
				So(next, ShouldResemble, sorting.Key{Field: sorting.FieldEndDate, Direction: sorting.Ascending})
			})
		})
	})

	Convey("Given query strings", t, func() {
		Convey("When both parts are valid", func() {
			key, err := sorting.ParseKey(" Start_Date ", "DESC")
			So(err, ShouldBeNil)
			So(key, ShouldResemble, sorting.Key{Field: sorting.FieldStartDate, Direction: sorting.Descending})
		})

		Convey("When both parts are empty", func() {
			key, err := sorting.ParseKey("", "")
			So(err, ShouldBeNil)
			So(key, ShouldResemble, sorting.DefaultKey())
		})

		Convey("When the field is unknown", func() {
			_, err := sorting.ParseKey("password", "asc")
			So(errors.Is(err, sorting.ErrInvalidField), ShouldBeTrue)
		})

		Convey("When the direction is unknown", func() {
			_, err := sorting.ParseKey("name", "up")
			So(errors.Is(err, sorting.ErrInvalidDirection), ShouldBeTrue)
		})
	})

	Convey("Given the field list", t, func() {
		fs := sorting.Fields()
		fs[0] = "tampered"

		Convey("Then callers should get a copy", func() {
			So(sorting.Fields()[0], ShouldEqual, sorting.FieldName)
		})
	})
}
