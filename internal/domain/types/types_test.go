package types_test

import (
	"testing"

	"github.com/goccy/go-json"
	types "github.com/okian/selector/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestModelSync(t *testing.T) {
	Convey("Given model sync reports", t, func() {
		Convey("Then only synced counts as OK", func() {
			So(types.ModelSync{Status: types.SyncSynced}.OK(), ShouldBeTrue)
			So(types.ModelSync{Status: types.SyncFailed}.OK(), ShouldBeFalse)
			So(types.ModelSync{Status: types.SyncPending}.OK(), ShouldBeFalse)
			So(types.ModelSync{}.OK(), ShouldBeFalse)
		})
	})
}

func TestPerformanceJSON(t *testing.T) {
	Convey("Given a performance record", t, func() {
		p := types.Performance{
			ID:             3,
			Average:        45.2,
			StrikeRate:     88,
			BowlingAverage: 25,
			EconomyRate:    4.5,
			FieldingStats:  3,
			Label:          1,
		}

		Convey("When encoded", func() {
			data, err := json.Marshal(p)
			So(err, ShouldBeNil)

			Convey("Then it uses camelCase field names", func() {
				var raw map[string]any
				So(json.Unmarshal(data, &raw), ShouldBeNil)
				So(raw, ShouldContainKey, "strikeRate")
				So(raw, ShouldContainKey, "bowlingAverage")
				So(raw, ShouldContainKey, "economyRate")
				So(raw, ShouldContainKey, "fieldingStats")
				So(raw["id"], ShouldEqual, 3.0)
			})
		})
	})
}

func TestMutationJSON(t *testing.T) {
	Convey("Given a failed mutation", t, func() {
		m := types.Mutation{
			Record: types.Performance{ID: 1},
			Model:  types.ModelSync{Status: types.SyncFailed, Error: "disk full"},
		}

		Convey("Then the error travels with the model report", func() {
			data, err := json.Marshal(m)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"status":"failed"`)
			So(string(data), ShouldContainSubstring, `"error":"disk full"`)
		})

		Convey("Then a synced report omits the error", func() {
			m.Model = types.ModelSync{Status: types.SyncSynced}
			data, err := json.Marshal(m)
			So(err, ShouldBeNil)
			So(string(data), ShouldNotContainSubstring, `"error"`)
		})
	})
}
