package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/selector/internal/app"
	"github.com/okian/selector/internal/domain/suitability"
	"github.com/okian/selector/internal/domain/types"
	"github.com/okian/selector/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// newTestService builds a service whose files live under a temp dir.
func newTestService(t *testing.T, opts ...service.Option) (*service.Service, string) {
	t.Helper()
	dir := t.TempDir()
	base := []service.Option{
		service.WithDBPath(filepath.Join(dir, "selector.db")),
		service.WithModelPath(filepath.Join(dir, "player_model.json")),
		service.WithEpochs(10),
		service.WithSeed(42),
	}
	return service.New(append(base, opts...)...), dir
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["epochs"], ShouldEqual, 50)
			So(stats["hiddenUnits"], ShouldEqual, 10)
			So(stats["modelPath"], ShouldEqual, "data/player_model.json")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithEpochs(5),
			service.WithHiddenUnits(4),
			service.WithLearningRate(0.2),
			service.WithRetrainQueueSize(8),
			service.WithPredictionCacheSize(0),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["epochs"], ShouldEqual, 5)
			So(stats["hiddenUnits"], ShouldEqual, 4)
			So(stats["queueSize"], ShouldEqual, 8)
			So(stats["cacheSize"], ShouldEqual, 0)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then every operation reports ErrNotStarted", func() {
			_, err := svc.GetAll(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, _, err = svc.Get(ctx, 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Add(ctx, types.Performance{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, _, err = svc.Update(ctx, 1, types.Performance{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, _, err = svc.Delete(ctx, 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.PredictSuitability(ctx, []float64{1, 2, 3, 4, 5})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.TrainModel(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.ModelInfo(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then Stop is a no-op", func() {
			svc.Stop()
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc, dir := newTestService(t)
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["generation"], ShouldEqual, uint64(0))
				So(stats["totalRecords"], ShouldEqual, 0)
			})

			Convey("And the database file is created", func() {
				_, err := os.Stat(filepath.Join(dir, "selector.db"))
				So(err, ShouldBeNil)
			})

			Convey("And the cancelled start context does not stop the trainer", func() {
				cancel()
				sync, err := svc.TrainModel(context.Background())
				So(err, ShouldBeNil)
				So(sync.Status, ShouldEqual, types.SyncSynced)
			})
		})
	})

	Convey("Given a corrupt model file", t, func() {
		svc, dir := newTestService(t)
		So(os.WriteFile(filepath.Join(dir, "player_model.json"), []byte("garbage"), 0o600), ShouldBeNil)

		Convey("Then start fails", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, suitability.ErrCorruptModel), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a model saved by an earlier run", t, func() {
		dir := t.TempDir()
		opts := []service.Option{
			service.WithDBPath(filepath.Join(dir, "selector.db")),
			service.WithModelPath(filepath.Join(dir, "player_model.json")),
			service.WithEpochs(20),
			service.WithSeed(9),
		}
		ctx := context.Background()

		first := service.New(opts...)
		So(first.Start(ctx), ShouldBeNil)
		_, err := first.Add(ctx, types.Performance{Average: 40, StrikeRate: 90, BowlingAverage: 20, EconomyRate: 4, FieldingStats: 5, Label: 1})
		So(err, ShouldBeNil)
		want, err := first.PredictSuitability(ctx, []float64{40, 90, 20, 4, 5})
		So(err, ShouldBeNil)
		first.Stop()

		Convey("When a new service starts on the same paths", func() {
			second := service.New(opts...)
			So(second.Start(ctx), ShouldBeNil)
			defer second.Stop()

			Convey("Then it serves the saved weights", func() {
				got, err := second.PredictSuitability(ctx, []float64{40, 90, 20, 4, 5})
				So(err, ShouldBeNil)
				So(got.Probability, ShouldAlmostEqual, want.Probability, 1e-12)
				So(got.Suitable, ShouldEqual, want.Suitable)
			})
		})
	})
}

func TestService_PredictSuitability(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _ := newTestService(t)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the vector has the wrong length", func() {
			_, err := svc.PredictSuitability(ctx, []float64{1, 2, 3})

			Convey("Then ErrFeatureLength is returned", func() {
				So(errors.Is(err, suitability.ErrFeatureLength), ShouldBeTrue)
			})
		})

		Convey("When the same vector is asked twice", func() {
			in := []float64{45.2, 88, 25, 4.5, 3}
			a, err := svc.PredictSuitability(ctx, in)
			So(err, ShouldBeNil)
			b, err := svc.PredictSuitability(ctx, in)
			So(err, ShouldBeNil)

			Convey("Then the answers match", func() {
				So(b, ShouldResemble, a)
				So(a.Probability, ShouldBeBetween, 0, 1)
				So(a.Suitable, ShouldEqual, a.Probability >= suitability.Threshold)
				So(svc.GetStats()["cachedPredictions"], ShouldEqual, 1)
			})
		})

		Convey("When the model is retrained", func() {
			_, err := svc.Add(ctx, types.Performance{Average: 10, Label: 0})
			So(err, ShouldBeNil)
			p, err := svc.PredictSuitability(ctx, []float64{10, 0, 0, 0, 0})
			So(err, ShouldBeNil)

			Convey("Then predictions carry the new generation", func() {
				So(p.Generation, ShouldEqual, 1)
			})
		})
	})
}

func TestService_TrainModel(t *testing.T) {
	Convey("Given a started service with records", t, func() {
		svc, dir := newTestService(t)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		for i := 0; i < 4; i++ {
			_, err := svc.Add(ctx, types.Performance{Average: float64(10 * i), StrikeRate: 80, Label: float64(i % 2)})
			So(err, ShouldBeNil)
		}

		Convey("When training on demand", func() {
			sync, err := svc.TrainModel(ctx)

			Convey("Then a new generation is synced to disk", func() {
				So(err, ShouldBeNil)
				So(sync.OK(), ShouldBeTrue)
				So(sync.Generation, ShouldEqual, 5)
				So(sync.Samples, ShouldEqual, 4)
				So(sync.Epochs, ShouldEqual, 10)
				So(sync.Persisted, ShouldBeTrue)

				_, err := os.Stat(filepath.Join(dir, "player_model.json"))
				So(err, ShouldBeNil)
			})

			Convey("And the model info reflects it", func() {
				info, err := svc.ModelInfo(ctx)
				So(err, ShouldBeNil)
				So(info.Generation, ShouldEqual, 5)
				So(info.Inputs, ShouldEqual, 5)
				So(info.HiddenUnits, ShouldEqual, 10)
				So(info.Epochs, ShouldEqual, 10)
				So(info.Path, ShouldEqual, filepath.Join(dir, "player_model.json"))
				So(info.LastSync, ShouldNotBeNil)
				So(info.LastSync.Generation, ShouldEqual, 5)
				So(info.Features, ShouldResemble, []string{"average", "strikeRate", "bowlingAverage", "economyRate", "fieldingStats"})
				So(info.Trained, ShouldBeTrue)
				So(info.TrainedAt, ShouldNotBeNil)
				So(info.TrainedAt.IsZero(), ShouldBeFalse)
				So(info.LabelThreshold, ShouldBeNil)
			})
		})
	})

	Convey("Given a service that binarises labels", t, func() {
		svc, _ := newTestService(t, service.WithLabelThreshold(0.6))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When fractional labels are stored", func() {
			for _, label := range []float64{0.9, 0.7, 0.3, 0.1} {
				m, err := svc.Add(ctx, types.Performance{Average: label * 100, StrikeRate: 90, Label: label})
				So(err, ShouldBeNil)
				So(m.Model.Status, ShouldEqual, types.SyncSynced)
			}

			Convey("Then the threshold is reported with the model", func() {
				info, err := svc.ModelInfo(ctx)
				So(err, ShouldBeNil)
				So(info.LabelThreshold, ShouldNotBeNil)
				So(*info.LabelThreshold, ShouldEqual, 0.6)
				So(svc.GetStats()["labelThreshold"], ShouldEqual, 0.6)
			})
		})
	})

	Convey("Given an out of range label threshold", t, func() {
		svc, _ := newTestService(t, service.WithLabelThreshold(2))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then labels are used as stored", func() {
			info, err := svc.ModelInfo(ctx)
			So(err, ShouldBeNil)
			So(info.LabelThreshold, ShouldBeNil)
			So(info.Trained, ShouldBeFalse)
			So(info.TrainedAt, ShouldBeNil)
		})
	})

	Convey("Given a caller that stops waiting", t, func() {
		svc, _ := newTestService(t, service.WithEpochs(100000))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		// a retrain that lasts well beyond the caller's deadline
		_, err := svc.Add(context.Background(), types.Performance{Average: 1})
		So(err, ShouldBeNil)

		Convey("When its context expires mid retrain", func() {
			short, cancel := context.WithTimeout(ctx, 5*time.Millisecond)
			defer cancel()
			sync, err := svc.TrainModel(short)

			Convey("Then the report is pending", func() {
				So(err, ShouldBeNil)
				So(sync.Status, ShouldEqual, types.SyncPending)
				So(sync.Error, ShouldNotBeEmpty)
			})
		})
	})
}
