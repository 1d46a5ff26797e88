package suitability

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/selector/internal/domain/model"
	"gonum.org/v1/gonum/mat"
	. "github.com/smartystreets/goconvey/convey"
)

func TestColumnStats(t *testing.T) {
	Convey("Given a column of two maximal values", t, func() {
		m := mat.NewDense(2, 1, []float64{1e308, 1e308})
		mean, std, err := columnStats(m)

		Convey("Then the mean does not overflow", func() {
			So(err, ShouldBeNil)
			So(mean[0], ShouldEqual, 1e308)
			So(std[0], ShouldEqual, 1)
		})
	})

	Convey("Given a column spanning the whole float64 range", t, func() {
		m := mat.NewDense(2, 1, []float64{-math.MaxFloat64, math.MaxFloat64})
		mean, std, err := columnStats(m)

		Convey("Then the deviation is capped to a finite value", func() {
			So(err, ShouldBeNil)
			So(mean[0], ShouldEqual, 0)
			So(math.IsInf(std[0], 0), ShouldBeFalse)
			So(std[0], ShouldBeGreaterThan, 1e308)
		})
	})
}

func TestNetwork_FitDiverged(t *testing.T) {
	Convey("Given a network whose output weight is infinite", t, func() {
		nw, err := New(WithSeed(2))
		So(err, ShouldBeNil)
		nw.w2.Set(0, 0, math.Inf(1))
		So(nw.Finite(), ShouldBeFalse)

		Convey("When it is fitted", func() {
			_, err := nw.Fit(context.Background(), []model.Sample{
				{Inputs: []float64{1, 2, 3, 4, 5}, Label: 1},
				{Inputs: []float64{2, 3, 4, 5, 6}, Label: 0},
			}, 5)

			Convey("Then the fit reports non-finite weights", func() {
				So(errors.Is(err, ErrNonFinite), ShouldBeTrue)
				So(nw.Trained(), ShouldBeFalse)
			})
		})
	})
}
