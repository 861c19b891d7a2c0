package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10}),
			WithConstLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("When a counter is incremented", func() {
			m.eventsDuplicate.Inc()
			m.eventsIngested.WithLabelValues("LeadCreated").Add(2)

			Convey("Then it is exported under the configured names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_events_duplicate_total"], ShouldBeTrue)
				So(names["test_unit_events_ingested_total"], ShouldBeTrue)
				So(testutil.ToFloat64(m.eventsIngested.WithLabelValues("LeadCreated")), ShouldEqual, 2)
			})
		})

		Convey("When a second manager registers on the same registry", func() {
			Convey("Then registration panics on duplicate collectors", func() {
				So(func() { NewManager(WithNamespace("test"), WithSubsystem("unit"), WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ingestion metrics", func() {
			before := testutil.ToFloat64(globalManager.eventsDuplicate)
			RecordEventDuplicate()
			RecordEventIngested("SaleRecorded")
			RecordEventRejected("invalid")
			RecordEventStored()

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.eventsDuplicate), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.eventsRejected.WithLabelValues("invalid")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.7)
			UpdateWorkerCount(4)

			Convey("Then the latest value wins", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.7)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When recording the remaining series", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordSnapshot("computed")
					RecordSnapshotLatency(3.2)
					RecordSnapshotEventsScanned(120)
					RecordSnapshotCacheHit()
					RecordSnapshotCacheMiss()
					RecordSnapshotCacheError()
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerActiveCount(1)
					RecordWorkerProcessingLatency(1.5)
					RecordWorkerError()
					RecordStoreAppendLatency(0.4)
					RecordStoreFetchLatency(2)
					RecordKafkaMessage("accepted")
					RecordHTTPRequest("/snapshot", "GET", "200")
					RecordHTTPRequestDuration("/snapshot", "GET", "200", 12)
					RecordErrorByComponent("worker", "append_error")
					RecordErrorByEndpoint("/events", "POST", "client_error")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("Then the registry is shared", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
