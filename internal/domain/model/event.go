// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEvent marks a creation payload that fails validation.
var ErrInvalidEvent = errors.New("invalid event")

// User is the creator reference carried by an event.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Event is a single listed record.
type Event struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	Creator   *User  `json:"creator"`
	TeamEvent bool   `json:"team_event"`
}

// CreatorID returns the creator's id and whether a creator is set.
func (e Event) CreatorID() (int64, bool) {
	if e.Creator == nil {
		return 0, false
	}
	return e.Creator.ID, true
}

// CreatorName returns the creator's username or "" when absent.
func (e Event) CreatorName() string {
	if e.Creator == nil {
		return ""
	}
	return e.Creator.Username
}

// NewEvent is the payload submitted by the creation form.
type NewEvent struct {
	Name      string `json:"name"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	TeamEvent bool   `json:"team_event"`
}

// Validate checks the fields a creation form must fill in.
func (n NewEvent) Validate() error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidEvent)
	case n.StartDate.IsZero():
		return fmt.Errorf("%w: missing start_date", ErrInvalidEvent)
	case !n.EndDate.IsZero() && n.EndDate.Before(n.StartDate.Time):
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidEvent)
	}
	return nil
}

// Build materialises the event owned by creator under the given id.
func (n NewEvent) Build(id int64, creator User) Event {
	c := creator
	return Event{
		ID:        id,
		Name:      strings.TrimSpace(n.Name),
		StartDate: n.StartDate,
		EndDate:   n.EndDate,
		Creator:   &c,
		TeamEvent: n.TeamEvent,
	}
}
