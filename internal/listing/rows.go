package listing

import (
	"strconv"

	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/sorting"
)

// DateLayout is the long form used for date cells.
const DateLayout = "January 2, 2006"

var columnLabels = map[sorting.Field]string{
	sorting.FieldName:      "Name",
	sorting.FieldStartDate: "Start Date",
	sorting.FieldEndDate:   "End Date",
	sorting.FieldCreator:   "Creator",
	sorting.FieldTeamEvent: "Team Event?",
}

// DeleteColumnLabel heads the unsortable control column.
const DeleteColumnLabel = "Delete event"

// Header describes one sortable column. Direction is the active direction
// for the active column and ascending for the others.
type Header struct {
	Label     string            `json:"label"`
	Field     sorting.Field     `json:"field"`
	Active    bool              `json:"active"`
	Direction sorting.Direction `json:"direction"`
}

// HeadersFor builds the column headers for key.
func HeadersFor(key sorting.Key) []Header {
	fields := sorting.Fields()
	out := make([]Header, 0, len(fields))
	for _, f := range fields {
		h := Header{Label: columnLabels[f], Field: f, Direction: sorting.Ascending}
		if f == key.Field {
			h.Active = true
			h.Direction = key.Direction
		}
		out = append(out, h)
	}
	return out
}

// Row is a rendered table row.
type Row struct {
	Event     model.Event `json:"event"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Creator   string      `json:"creator"`
	Team      string      `json:"team"`
	Deletable bool        `json:"can_delete"`
}

// RowsFor renders events in order, gating the delete control on who.
func RowsFor(events []model.Event, who *session.Identity) []Row {
	out := make([]Row, len(events))
	for i, e := range events {
		out[i] = Row{
			Event:     e,
			StartDate: FormatDate(e.StartDate),
			EndDate:   FormatDate(e.EndDate),
			Creator:   e.CreatorName(),
			Team:      YesNo(e.TeamEvent),
			Deletable: session.CanDelete(who, e),
		}
	}
	return out
}

// FormatDate renders d in DateLayout, or "" when absent.
func FormatDate(d model.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(DateLayout)
}

// YesNo renders a flag cell.
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// EventPath is the detail route a row navigates to.
func EventPath(id int64) string {
	return "/dashboard/events/" + strconv.FormatInt(id, 10)
}
