package sorting

import (
	"fmt"
	"strings"
)

// Field names a sortable event attribute.
type Field string

// Sortable fields, in column order.
const (
	FieldName      Field = "name"
	FieldStartDate Field = "start_date"
	FieldEndDate   Field = "end_date"
	FieldCreator   Field = "creator"
	FieldTeamEvent Field = "team_event"
)

var fields = []Field{FieldName, FieldStartDate, FieldEndDate, FieldCreator, FieldTeamEvent}

// Fields returns the sortable fields in column order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Valid reports whether f is sortable.
func (f Field) Valid() bool {
	for _, known := range fields {
		if f == known {
			return true
		}
	}
	return false
}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	return f, nil
}

// Direction is ascending or descending.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection validates a direction; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Key is the (field, direction) pair that drives ordering.
type Key struct {
	Field     Field     `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultKey is the ordering a fresh listing starts with.
func DefaultKey() Key {
	return Key{Field: FieldName, Direction: Ascending}
}

// ParseKey validates both halves of a key. An empty field selects the default.
func ParseKey(field, direction string) (Key, error) {
	if strings.TrimSpace(field) == "" {
		field = string(DefaultKey().Field)
	}
	f, err := ParseField(field)
	if err != nil {
		return Key{}, err
	}
	d, err := ParseDirection(direction)
	if err != nil {
		return Key{}, err
	}
	return Key{Field: f, Direction: d}, nil
}

// Validate checks that the key names a sortable field and a known direction.
func (k Key) Validate() error {
	if !k.Field.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidField, k.Field)
	}
	if k.Direction != Ascending && k.Direction != Descending {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, k.Direction)
	}
	return nil
}

// Toggle applies a header click: selecting the active field flips the
// direction, selecting another field starts ascending on it.
func (k Key) Toggle(f Field) Key {
	if k.Field == f {
		return Key{Field: f, Direction: k.Direction.Flip()}
	}
	return Key{Field: f, Direction: Ascending}
}

func (k Key) String() string {
	return string(k.Field) + " " + string(k.Direction)
}
