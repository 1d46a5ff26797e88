package predcache_test

import (
	"testing"

	"github.com/okian/selector/internal/domain/predcache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCache(t *testing.T) {
	Convey("Given a small cache", t, func() {
		c := predcache.New(predcache.WithMaxSize(2))
		vec := []float64{1, 2, 3, 4, 5}

		Convey("When an entry is stored", func() {
			c.Put(1, vec, predcache.Entry{Suitable: true, Probability: 0.8})

			Convey("Then it is returned for the same generation", func() {
				e, ok := c.Get(1, []float64{1, 2, 3, 4, 5})
				So(ok, ShouldBeTrue)
				So(e.Suitable, ShouldBeTrue)
				So(e.Probability, ShouldEqual, 0.8)
			})

			Convey("Then a different vector misses", func() {
				_, ok := c.Get(1, []float64{1, 2, 3, 4, 6})
				So(ok, ShouldBeFalse)
			})

			Convey("Then a newer generation misses", func() {
				_, ok := c.Get(2, vec)
				So(ok, ShouldBeFalse)
			})

			Convey("And a put for a newer generation purges older entries", func() {
				c.Put(2, []float64{9, 9, 9, 9, 9}, predcache.Entry{})
				So(c.Len(), ShouldEqual, 1)
				_, ok := c.Get(1, vec)
				So(ok, ShouldBeFalse)
			})

			Convey("And a put for an older generation is ignored", func() {
				c.Put(2, vec, predcache.Entry{Probability: 0.1})
				c.Put(1, vec, predcache.Entry{Probability: 0.9})
				e, ok := c.Get(2, vec)
				So(ok, ShouldBeTrue)
				So(e.Probability, ShouldEqual, 0.1)
			})
		})

		Convey("When more vectors than capacity are stored", func() {
			c.Put(0, []float64{1}, predcache.Entry{})
			c.Put(0, []float64{2}, predcache.Entry{})
			c.Put(0, []float64{3}, predcache.Entry{})

			Convey("Then the least recently used is evicted", func() {
				So(c.Len(), ShouldEqual, 2)
				_, ok := c.Get(0, []float64{1})
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a disabled cache", t, func() {
		c := predcache.New(predcache.WithMaxSize(0))
		c.Put(1, []float64{1}, predcache.Entry{Suitable: true})
		_, ok := c.Get(1, []float64{1})
		So(ok, ShouldBeFalse)
		So(c.Len(), ShouldEqual, 0)
	})
}
