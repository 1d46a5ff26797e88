package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})

			Convey("And metric names should carry the namespace and prefix", func() {
				manager.recordsTotal.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_prefix_records_total" {
						found = true
						So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 3)
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When passing zero values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "selector")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording record and mutation metrics", func() {
			UpdateRecordsTotal(7)
			RecordMutation("add", "ok")
			RecordMutation("add", "ok")

			Convey("Then the collectors should hold the values", func() {
				So(testutil.ToFloat64(globalManager.recordsTotal), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.mutations.WithLabelValues("add", "ok")), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When recording retrain metrics", func() {
			before := testutil.ToFloat64(globalManager.modelSaveErrors)
			RecordRetrain("synced")
			RecordRetrainDuration(12)
			UpdateRetrainSamples(4)
			RecordRetrainCoalesced(2)
			RecordRetrainCoalesced(0)
			UpdateTrainingQuality(0.25, 0.75)
			UpdateModelGeneration(9)
			RecordModelSaveError()
			UpdateRetrainQueueSize(1)
			RecordRetrainQueueRejection()

			Convey("Then the gauges and counters should reflect them", func() {
				So(testutil.ToFloat64(globalManager.retrainSamples), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.trainingLoss), ShouldEqual, 0.25)
				So(testutil.ToFloat64(globalManager.trainingAccuracy), ShouldEqual, 0.75)
				So(testutil.ToFloat64(globalManager.modelGeneration), ShouldEqual, 9)
				So(testutil.ToFloat64(globalManager.modelSaveErrors), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.retrainQueueSize), ShouldEqual, 1)
			})
		})

		Convey("When recording prediction metrics", func() {
			So(func() {
				RecordPrediction(true)
				RecordPrediction(false)
				RecordPredictionCache(true)
				RecordPredictionCache(false)
				RecordPredictionError()
				RecordRepositoryQueryLatency("list", 1.5)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("performances", "GET", "200")
				RecordHTTPRequestDuration("performances", "GET", "200", 5.0)
				RecordErrorByComponent("trainer", "save_failed")
				RecordErrorByType("save_failed", "high")
				RecordErrorByEndpoint("predict", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 3.0)
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		UpdateRecordsTotal(1)

		Convey("Then it should expose the service metrics", func() {
			registry := GetRegistry()
			So(registry, ShouldNotBeNil)

			families, err := registry.Gather()
			So(err, ShouldBeNil)

			var names []string
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "selector_performance_records_total")
		})

		Convey("And the refresh interval should default to ten seconds", func() {
			So(RefreshInterval(), ShouldEqual, 10*time.Second)
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled manager installed globally", t, func() {
		saved := globalManager
		defer func() { globalManager = saved }()

		globalManager = NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("Then recording should be a no-op", func() {
			UpdateRecordsTotal(99)
			So(testutil.ToFloat64(globalManager.recordsTotal), ShouldEqual, 0)
		})
	})
}
