// Package sorting orders event listings by a (field, direction) key.
//
// Sorting is non-destructive and stable: the input slice is never modified
// and events that compare equal keep their input order in both directions.
// Absent values (a zero date, a missing creator) order before every present
// value when ascending.
package sorting

import (
	"cmp"
	"slices"
	"strings"

	"github.com/iieadb/eventboard/internal/domain/model"
)

// Sort returns a new slice holding events ordered by key.
func Sort(events []model.Event, key Key) ([]model.Event, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	out := slices.Clone(events)
	if out == nil {
		out = []model.Event{}
	}

	compare := comparator(key.Field)
	if key.Direction == Descending {
		asc := compare
		compare = func(a, b model.Event) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, compare)
	return out, nil
}

// MustSort is Sort for keys built from the Field constants. An invalid key
// is a programming error and panics.
func MustSort(events []model.Event, key Key) []model.Event {
	out, err := Sort(events, key)
	if err != nil {
		panic(err)
	}
	return out
}

// Compare orders two events on a single field, ascending.
func Compare(a, b model.Event, f Field) (int, error) {
	if !f.Valid() {
		return 0, ErrInvalidField
	}
	return comparator(f)(a, b), nil
}

func comparator(f Field) func(a, b model.Event) int {
	switch f {
	case FieldStartDate:
		return func(a, b model.Event) int { return a.StartDate.Compare(b.StartDate) }
	case FieldEndDate:
		return func(a, b model.Event) int { return a.EndDate.Compare(b.EndDate) }
	case FieldCreator:
		return compareCreator
	case FieldTeamEvent:
		return func(a, b model.Event) int { return compareBool(a.TeamEvent, b.TeamEvent) }
	default:
		return func(a, b model.Event) int { return strings.Compare(a.Name, b.Name) }
	}
}

// compareCreator orders by username, then id. A missing creator comes first.
func compareCreator(a, b model.Event) int {
	switch {
	case a.Creator == nil && b.Creator == nil:
		return 0
	case a.Creator == nil:
		return -1
	case b.Creator == nil:
		return 1
	}
	if c := strings.Compare(a.Creator.Username, b.Creator.Username); c != 0 {
		return c
	}
	return cmp.Compare(a.Creator.ID, b.Creator.ID)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
