// Package health implements MetricsSink and HealthProbe (SPEC_FULL.md §4.11):
// Prometheus counters/histograms plus readiness/liveness views served
// alongside the worker's background loops.
package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the Prometheus-backed MetricsSink. It is registered against
// a private registry (not the global default) so tests can construct
// independent instances.
type Metrics struct {
	Registry *prometheus.Registry

	messagesReceived     prometheus.Counter
	messagesDeleted      prometheus.Counter
	objectsProcessed     prometheus.Counter
	linesDecoded         prometheus.Counter
	linesSkipped         *prometheus.CounterVec
	documentsRejected    *prometheus.CounterVec
	observationsRejected *prometheus.CounterVec
	recordsSerialized    prometheus.Counter
	recordsDropped       *prometheus.CounterVec
	recordsDelivered     prometheus.Counter
	recordsRetried       prometheus.Counter
	batchesDispatched    prometheus.Counter
	batchesRetried       prometheus.Counter
	deliveryErrors       *prometheus.CounterVec

	objectProcessingSeconds prometheus.Histogram
	batchDispatchSeconds    prometheus.Histogram
	receiveLoopSeconds      prometheus.Histogram
}

// NewMetrics builds and registers every series named in SPEC_FULL.md §4.11.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,

		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_messages_received_total", Help: "Queue messages received.",
		}),
		messagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_messages_deleted_total", Help: "Queue messages deleted after processing.",
		}),
		objectsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_objects_processed_total", Help: "Source objects fully processed.",
		}),
		linesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_lines_decoded_total", Help: "Lines successfully base64/gzip decoded.",
		}),
		linesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wifi_ingest_lines_skipped_total", Help: "Lines skipped by reason.",
		}, []string{"reason"}),
		documentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wifi_ingest_documents_rejected_total", Help: "Scan documents rejected by reason.",
		}, []string{"reason"}),
		observationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wifi_ingest_observations_rejected_total", Help: "Individual observations rejected by reason.",
		}, []string{"reason"}),
		recordsSerialized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_records_serialized_total", Help: "Measurements successfully serialized.",
		}),
		recordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wifi_ingest_records_dropped_total", Help: "Records dropped by reason.",
		}, []string{"reason"}),
		recordsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_records_delivered_total", Help: "Records confirmed delivered downstream.",
		}),
		recordsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_records_retried_total", Help: "Records resubmitted for retry.",
		}),
		batchesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_batches_dispatched_total", Help: "Delivery batches dispatched.",
		}),
		batchesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wifi_ingest_batches_retried_total", Help: "Delivery batches that required a retry.",
		}),
		deliveryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wifi_ingest_delivery_errors_total", Help: "Delivery errors by class.",
		}, []string{"class"}),

		objectProcessingSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "wifi_ingest_object_processing_seconds", Help: "Time to fully process one source object.",
			Buckets: prometheus.DefBuckets,
		}),
		batchDispatchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "wifi_ingest_batch_dispatch_seconds", Help: "Time spent in one PutRecords call.",
			Buckets: prometheus.DefBuckets,
		}),
		receiveLoopSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "wifi_ingest_receive_loop_seconds", Help: "Time spent in one receive-loop iteration.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.messagesReceived, m.messagesDeleted, m.objectsProcessed, m.linesDecoded,
		m.linesSkipped, m.documentsRejected, m.observationsRejected, m.recordsSerialized,
		m.recordsDropped, m.recordsDelivered, m.recordsRetried, m.batchesDispatched,
		m.batchesRetried, m.deliveryErrors, m.objectProcessingSeconds, m.batchDispatchSeconds,
		m.receiveLoopSeconds,
	)
	return m
}

func (m *Metrics) MessageReceived()          { m.messagesReceived.Inc() }
func (m *Metrics) MessageDeleted()           { m.messagesDeleted.Inc() }
func (m *Metrics) ObjectProcessed()          { m.objectsProcessed.Inc() }
func (m *Metrics) LineDecoded()              { m.linesDecoded.Inc() }
func (m *Metrics) LineSkipped(reason string) { m.linesSkipped.WithLabelValues(reason).Inc() }
func (m *Metrics) DocumentRejected(reason string) {
	m.documentsRejected.WithLabelValues(reason).Inc()
}
func (m *Metrics) ObservationRejected(reason string) {
	m.observationsRejected.WithLabelValues(reason).Inc()
}
func (m *Metrics) RecordSerialized() { m.recordsSerialized.Inc() }

// RecordsDelivered, RecordsDropped, RecordsRetried, and BatchDispatched
// implement the delivery.Metrics interface consumed by internal/delivery.
func (m *Metrics) RecordsDelivered(n int) { m.recordsDelivered.Add(float64(n)) }

func (m *Metrics) RecordsDropped(n int, reason string) {
	m.recordsDropped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) RecordsRetried(n int) {
	m.recordsRetried.Add(float64(n))
	m.batchesRetried.Inc()
}

func (m *Metrics) BatchDispatched(recordCount, byteSize int, err error) {
	m.batchesDispatched.Inc()
	if err != nil {
		m.deliveryErrors.WithLabelValues("batch").Inc()
	}
}

func (m *Metrics) ObserveObjectProcessing(seconds float64) { m.objectProcessingSeconds.Observe(seconds) }
func (m *Metrics) ObserveBatchDispatch(seconds float64)    { m.batchDispatchSeconds.Observe(seconds) }
func (m *Metrics) ObserveReceiveLoop(seconds float64)      { m.receiveLoopSeconds.Observe(seconds) }
