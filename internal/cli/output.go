package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/iieadb/eventboard/internal/domain/sorting"
	"github.com/iieadb/eventboard/internal/listing"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable renders rows under headers; the active column carries an arrow.
func writeTable(w io.Writer, headers []listing.Header, rows []listing.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	cells := []string{"ID"}
	for _, h := range headers {
		label := h.Label
		if h.Active {
			label += " " + arrow(h.Direction)
		}
		cells = append(cells, label)
	}
	cells = append(cells, "")
	fmt.Fprintln(tw, strings.Join(cells, "\t"))

	for _, r := range rows {
		control := ""
		if r.Deletable {
			control = "[" + listing.DeleteColumnLabel + "]"
		}
		fmt.Fprintln(tw, strings.Join([]string{
			strconv.FormatInt(r.Event.ID, 10),
			r.Event.Name,
			r.StartDate,
			r.EndDate,
			r.Creator,
			r.Team,
			control,
		}, "\t"))
	}
	return tw.Flush()
}

func arrow(d sorting.Direction) string {
	if d == sorting.Descending {
		return "v"
	}
	return "^"
}
