package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewRetrainJob(t *testing.T) {
	Convey("Given two retrain jobs", t, func() {
		a := NewRetrainJob(ReasonAdd, 4)
		b := NewRetrainJob(ReasonManual, 0)

		Convey("Then each has its own id and reason", func() {
			So(a.ID, ShouldNotBeEmpty)
			So(a.ID, ShouldNotEqual, b.ID)
			So(a.Reason, ShouldEqual, ReasonAdd)
			So(a.RecordID, ShouldEqual, 4)
			So(a.EnqueuedAt.IsZero(), ShouldBeFalse)
		})

		Convey("Then a reply can be sent without a receiver", func() {
			So(cap(a.Reply), ShouldEqual, 1)
			a.Reply <- RetrainResult{JobID: a.ID, Generation: 1}
			res := <-a.Reply
			So(res.JobID, ShouldEqual, a.ID)
			So(res.Generation, ShouldEqual, 1)
		})
	})
}
