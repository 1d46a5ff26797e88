package features_test

import (
	"testing"

	"github.com/okian/selector/internal/domain/features"
	"github.com/okian/selector/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVectorEncoder_Encode(t *testing.T) {
	Convey("Given a default encoder", t, func() {
		enc := features.NewEncoder()
		rec := model.Performance{
			ID:             7,
			Average:        45.2,
			StrikeRate:     88.0,
			BowlingAverage: 25.0,
			EconomyRate:    4.5,
			FieldingStats:  3.0,
			Label:          1.0,
		}

		Convey("When encoding a record", func() {
			s := enc.Encode(rec)

			Convey("Then the inputs follow the documented order", func() {
				So(s.Inputs, ShouldResemble, []float64{45.2, 88.0, 25.0, 4.5, 3.0})
				So(len(s.Inputs), ShouldEqual, features.Count)
				So(features.Names[1], ShouldEqual, "strikeRate")
			})

			Convey("And the label is passed through", func() {
				So(s.Label, ShouldEqual, 1.0)
			})
		})

		Convey("When the label is fractional", func() {
			rec.Label = 0.3
			So(enc.Encode(rec).Label, ShouldEqual, 0.3)
		})
	})

	Convey("Given an encoder with a label threshold", t, func() {
		enc := features.NewEncoder(features.WithLabelThreshold(0.5))

		Convey("Then labels are binarised", func() {
			So(enc.Encode(model.Performance{Label: 0.7}).Label, ShouldEqual, 1)
			So(enc.Encode(model.Performance{Label: 0.5}).Label, ShouldEqual, 1)
			So(enc.Encode(model.Performance{Label: 0.2}).Label, ShouldEqual, 0)
		})
	})
}

func TestVectorEncoder_Dataset(t *testing.T) {
	Convey("Given several records", t, func() {
		enc := features.NewEncoder()
		records := []model.Performance{
			{ID: 1, Average: 10, Label: 0},
			{ID: 2, Average: 20, Label: 1},
			{ID: 3, Average: 30, Label: 1},
		}

		Convey("When building a dataset", func() {
			ds := enc.Dataset(records)

			Convey("Then there is one sample per record in order", func() {
				So(len(ds), ShouldEqual, 3)
				So(ds[0].Inputs[0], ShouldEqual, 10)
				So(ds[2].Inputs[0], ShouldEqual, 30)
				So(ds[1].Label, ShouldEqual, 1)
			})
		})

		Convey("When the table is empty", func() {
			So(enc.Dataset(nil), ShouldBeEmpty)
		})
	})
}
