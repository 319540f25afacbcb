package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the metrics should live under the shapley namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.jobsSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				So(families[0].GetName(), ShouldStartWith, "shapley_service_")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("game"),
				WithSubsystem("engine"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPlayerBuckets([]float64{2, 4, 8}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "game")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.playerBuckets, ShouldResemble, []float64{2, 4, 8})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "shapley")
				So(manager.subsystem, ShouldEqual, "service")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given deployment labels and player buckets", t, func() {
		previous := GetRegistry()
		Configure(
			WithConstLabels(map[string]string{"env": "staging"}),
			WithPlayerBuckets([]float64{2, 4, 8}),
		)

		Convey("When a game is recorded", func() {
			RecordPlayersPerGame(3)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			Convey("Then the global registry should be fresh and carry the options", func() {
				So(GetRegistry(), ShouldNotEqual, previous)
				So(globalManager.playerBuckets, ShouldResemble, []float64{2, 4, 8})

				found := false
				for _, f := range families {
					if f.GetName() != "shapley_service_players_per_game" {
						continue
					}
					found = true
					m := f.GetMetric()[0]
					So(m.GetLabel()[0].GetName(), ShouldEqual, "env")
					So(m.GetLabel()[0].GetValue(), ShouldEqual, "staging")
					So(m.GetHistogram().GetBucket(), ShouldHaveLength, 3)
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording job outcomes", func() {
			before := testutil.ToFloat64(globalManager.jobsCompleted)
			RecordJobSubmitted()
			RecordJobCompleted()
			RecordJobFailed("characteristic_function_failure")
			RecordJobDuplicate()

			Convey("Then counters should advance", func() {
				So(testutil.ToFloat64(globalManager.jobsCompleted), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.jobsFailed.WithLabelValues("characteristic_function_failure")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording engine work", func() {
			perms := testutil.ToFloat64(globalManager.permutations)
			evals := testutil.ToFloat64(globalManager.evaluations)
			RecordWork(6, 36)

			Convey("Then permutations and evaluations should be added", func() {
				So(testutil.ToFloat64(globalManager.permutations), ShouldEqual, perms+6)
				So(testutil.ToFloat64(globalManager.evaluations), ShouldEqual, evals+36)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(3)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.3)
			UpdateWorkerCount(4)
			UpdateReportsStored(7)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.3)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.reportsStored), ShouldEqual, 7)
			})
		})

		Convey("When tracking busy workers", func() {
			base := testutil.ToFloat64(globalManager.workerBusy)
			IncWorkerBusy()
			IncWorkerBusy()
			DecWorkerBusy()

			So(testutil.ToFloat64(globalManager.workerBusy), ShouldEqual, base+1)
			DecWorkerBusy()
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordComputationLatency(1.5)
				RecordPlayersPerGame(3)
				RecordSyncComputation()
				RecordRejectedSubmission("too_many_players")
				RecordReportEviction()
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("queue_full")
				RecordWorkerError()
				RecordHTTPRequest("/games", "POST", "202")
				RecordHTTPRequestDuration("/games", "POST", "202", 2.5)
				RecordErrorByEndpoint("/games", "POST", "invalid_game")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			RecordHTTPRequest("/healthz", "GET", "200")
			count := testutil.CollectAndCount(globalManager.httpRequests)

			Convey("Then the registry should be the shared one", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
				So(count, ShouldBeGreaterThanOrEqualTo, 1)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
			})
		})
	})
}
