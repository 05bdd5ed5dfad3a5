// Package types contains the wire shapes shared by the HTTP API and the CLI.
package types

import "github.com/iieadb/eventboard/internal/domain/model"

// Column is a sortable table header.
type Column struct {
	Label     string `json:"label"`
	Field     string `json:"field"`
	Active    bool   `json:"active"`
	Direction string `json:"direction"`
}

// Display holds the preformatted cells of a row.
type Display struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Creator   string `json:"creator"`
	TeamEvent string `json:"team_event"`
}

// EventRow is an event as listed for a particular viewer.
type EventRow struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	StartDate model.Date  `json:"start_date"`
	EndDate   model.Date  `json:"end_date"`
	Creator   *model.User `json:"creator"`
	TeamEvent bool        `json:"team_event"`
	CanDelete bool        `json:"can_delete"`
	Display   Display     `json:"display"`
}

// Event returns the underlying record.
func (r EventRow) Event() model.Event {
	return model.Event{
		ID:        r.ID,
		Name:      r.Name,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Creator:   r.Creator,
		TeamEvent: r.TeamEvent,
	}
}

// NewEventRow flattens e with its display cells and delete permission.
func NewEventRow(e model.Event, d Display, canDelete bool) EventRow {
	return EventRow{
		ID:        e.ID,
		Name:      e.Name,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		Creator:   e.Creator,
		TeamEvent: e.TeamEvent,
		CanDelete: canDelete,
		Display:   d,
	}
}

// Listing is a sorted page of events at a snapshot version.
type Listing struct {
	Version uint64     `json:"version"`
	Sort    string     `json:"sort"`
	Order   string     `json:"order"`
	Columns []Column   `json:"columns"`
	Events  []EventRow `json:"events"`
	Count   int        `json:"count"`
}

// CreateResult answers a create request.
type CreateResult struct {
	Event     model.Event `json:"event"`
	Duplicate bool        `json:"duplicate"`
}
