package types_test

import (
	"encoding/json"
	"testing"

	"github.com/iieadb/eventboard/internal/domain/model"
	types "github.com/iieadb/eventboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEventRow(t *testing.T) {
	Convey("Given an event row", t, func() {
		e := model.Event{
			ID:        4,
			Name:      "Cup",
			StartDate: model.MustDate("2024-02-01"),
			Creator:   &model.User{ID: 3, Username: "ana"},
			TeamEvent: true,
		}
		row := types.NewEventRow(e, types.Display{StartDate: "February 1, 2024", Creator: "ana", TeamEvent: "Yes"}, true)

		Convey("Then the record should round trip through Event", func() {
			So(row.Event(), ShouldResemble, e)
		})

		Convey("Then the wire form should be flat with can_delete", func() {
			out, err := json.Marshal(row)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `{"id":4,"name":"Cup","start_date":"2024-02-01T00:00:00Z","end_date":null,`+
				`"creator":{"id":3,"username":"ana"},"team_event":true,"can_delete":true,`+
				`"display":{"start_date":"February 1, 2024","end_date":"","creator":"ana","team_event":"Yes"}}`)
		})
	})
}
