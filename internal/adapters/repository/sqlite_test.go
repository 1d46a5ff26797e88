package repository_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/selector/internal/adapters/repository"
	"github.com/okian/selector/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func openTestStore(t *testing.T) (*repository.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "selector.db")
	store, err := repository.Open(context.Background(), path, repository.WithMetricsUpdateInterval(time.Hour))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func sample(avg float64) model.Performance {
	return model.Performance{
		Average:        avg,
		StrikeRate:     88.0,
		BowlingAverage: 25.0,
		EconomyRate:    4.5,
		FieldingStats:  3.0,
		Label:          1.0,
	}
}

func TestSQLiteStore_CRUD(t *testing.T) {
	convey.Convey("Given an empty store", t, func() {
		store, _ := openTestStore(t)
		ctx := context.Background()

		convey.Convey("Then it has no records", func() {
			list, err := store.List(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(list, convey.ShouldBeEmpty)
			n, err := store.Count(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 0)
		})

		convey.Convey("When creating a record", func() {
			in := sample(45.2)
			in.ID = 999
			created, err := store.Create(ctx, in)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the store assigns the id", func() {
				convey.So(created.ID, convey.ShouldEqual, 1)
				convey.So(created.Average, convey.ShouldEqual, 45.2)
			})

			convey.Convey("Then it can be read back", func() {
				got, err := store.Get(ctx, created.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, created)
			})

			convey.Convey("And updating replaces every field", func() {
				upd := sample(50)
				upd.Label = 0
				got, err := store.Update(ctx, created.ID, upd)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.ID, convey.ShouldEqual, created.ID)

				read, err := store.Get(ctx, created.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(read.Average, convey.ShouldEqual, 50)
				convey.So(read.Label, convey.ShouldEqual, 0)
			})

			convey.Convey("And updating with identical values still succeeds", func() {
				_, err := store.Update(ctx, created.ID, sample(45.2))
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("And deleting removes it", func() {
				convey.So(store.Delete(ctx, created.ID), convey.ShouldBeNil)
				_, err := store.Get(ctx, created.ID)
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)

				convey.Convey("And ids are not reused", func() {
					next, err := store.Create(ctx, sample(1))
					convey.So(err, convey.ShouldBeNil)
					convey.So(next.ID, convey.ShouldEqual, 2)
				})
			})
		})

		convey.Convey("When several records exist", func() {
			for _, avg := range []float64{10, 20, 30} {
				_, err := store.Create(ctx, sample(avg))
				convey.So(err, convey.ShouldBeNil)
			}

			convey.Convey("Then List returns them in id order", func() {
				list, err := store.List(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(list), convey.ShouldEqual, 3)
				convey.So(list[0].Average, convey.ShouldEqual, 10)
				convey.So(list[2].Average, convey.ShouldEqual, 30)
				n, _ := store.Count(ctx)
				convey.So(n, convey.ShouldEqual, 3)
			})
		})
	})
}

func TestSQLiteStore_NotFound(t *testing.T) {
	convey.Convey("Given a store without record 42", t, func() {
		store, _ := openTestStore(t)
		ctx := context.Background()

		convey.Convey("Then Get, Update and Delete report ErrNotFound", func() {
			_, err := store.Get(ctx, 42)
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)

			_, err = store.Update(ctx, 42, sample(1))
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)

			err = store.Delete(ctx, 42)
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})
	})
}

func TestSQLiteStore_InvalidValues(t *testing.T) {
	convey.Convey("Given a record with a NaN field", t, func() {
		store, _ := openTestStore(t)
		p := sample(1)
		p.EconomyRate = math.NaN()

		convey.Convey("Then it is rejected", func() {
			_, err := store.Create(context.Background(), p)
			convey.So(errors.Is(err, repository.ErrInvalidValue), convey.ShouldBeTrue)
		})
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	convey.Convey("Given a store with data", t, func() {
		path := filepath.Join(t.TempDir(), "selector.db")
		ctx := context.Background()

		store, err := repository.Open(ctx, path)
		convey.So(err, convey.ShouldBeNil)
		_, err = store.Create(ctx, sample(33))
		convey.So(err, convey.ShouldBeNil)
		convey.So(store.Close(), convey.ShouldBeNil)
		convey.So(store.Close(), convey.ShouldBeNil)

		convey.Convey("When reopened the migration is a no-op and data survives", func() {
			again, err := repository.Open(ctx, path)
			convey.So(err, convey.ShouldBeNil)
			defer again.Close()

			list, err := again.List(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(list), convey.ShouldEqual, 1)
			convey.So(list[0].Average, convey.ShouldEqual, 33)
		})
	})
}

func TestSQLiteStore_ConcurrentWrites(t *testing.T) {
	convey.Convey("Given concurrent writers", t, func() {
		store, _ := openTestStore(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := store.Create(ctx, sample(float64(i))); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)

		convey.Convey("Then every insert lands", func() {
			for err := range errs {
				convey.So(err, convey.ShouldBeNil)
			}
			n, err := store.Count(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 20)
		})
	})
}
