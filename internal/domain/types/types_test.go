package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/gympulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGroups(t *testing.T) {
	Convey("Given the metric groups", t, func() {
		Convey("Then they parse back from their names", func() {
			for _, g := range types.AllGroups() {
				parsed, ok := types.ParseGroup(string(g))
				So(ok, ShouldBeTrue)
				So(parsed, ShouldEqual, g)
			}
		})

		Convey("And unknown names are rejected", func() {
			_, ok := types.ParseGroup("payroll")
			So(ok, ShouldBeFalse)
		})

		Convey("And AllGroups hands out a copy", func() {
			gs := types.AllGroups()
			gs[0] = "mutated"
			So(types.AllGroups()[0], ShouldEqual, types.GroupFunnel)
		})
	})
}

func TestSnapshotJSON(t *testing.T) {
	Convey("Given a snapshot with a placeholder leaderboard", t, func() {
		snap := types.Snapshot{
			TenantID:    "gym-1",
			Status:      types.StatusComputed,
			Groups:      []types.Group{types.GroupFunnel},
			Funnel:      types.Funnel{Leads: 10, BookedPct: 40},
			Leaderboard: types.Leaderboard{Rows: types.PlaceholderRows()},
		}

		Convey("When it is serialized", func() {
			raw, err := json.Marshal(snap)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(raw, &decoded), ShouldBeNil)

			Convey("Then groups and nested fields use snake case keys", func() {
				So(decoded["status"], ShouldEqual, "computed")
				funnel := decoded["funnel"].(map[string]any)
				So(funnel["booked_pct"], ShouldEqual, 40.0)
				board := decoded["leaderboard"].(map[string]any)
				So(board["rows"], ShouldHaveLength, 1)
			})
		})
	})
}
