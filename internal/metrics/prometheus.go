// Package metrics defines the Prometheus instrumentation for the intercom
// streamer. All per-device series carry a "target" label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the intercom streamer
type Metrics struct {
	// Dispatcher metrics
	ChunksDispatched prometheus.Counter

	// Per-target queue metrics
	ChunksEnqueued *prometheus.CounterVec
	ChunksDropped  *prometheus.CounterVec
	QueueDepth     *prometheus.GaugeVec

	// Per-target transmission metrics
	ChunksSent    *prometheus.CounterVec
	BytesSent     *prometheus.CounterVec
	SendErrors    *prometheus.CounterVec
	BurstChunks   *prometheus.CounterVec
	Connects      *prometheus.CounterVec
	Disconnects   *prometheus.CounterVec
	StreamingTime *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		ChunksDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intercom_chunks_dispatched_total",
			Help: "Total number of PCM chunks read from the decoder and fanned out",
		}),

		ChunksEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_chunks_enqueued_total",
			Help: "Total number of chunks enqueued per target",
		}, []string{"target"}),
		ChunksDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_chunks_dropped_total",
			Help: "Total number of chunks evicted while the target was unreachable",
		}, []string{"target"}),
		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "intercom_queue_depth",
			Help: "Current number of chunks awaiting transmission per target",
		}, []string{"target"}),

		ChunksSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_chunks_sent_total",
			Help: "Total number of audio frames written per target",
		}, []string{"target"}),
		BytesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_payload_bytes_sent_total",
			Help: "Total audio payload bytes written per target",
		}, []string{"target"}),
		SendErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_send_errors_total",
			Help: "Total number of frame write failures per target",
		}, []string{"target"}),
		BurstChunks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_burst_chunks_total",
			Help: "Total number of chunks sent during priming bursts per target",
		}, []string{"target"}),
		Connects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_connects_total",
			Help: "Total number of accepted handshakes per target",
		}, []string{"target"}),
		Disconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_disconnects_total",
			Help: "Total number of unexpected disconnects per target",
		}, []string{"target"}),
		StreamingTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intercom_streaming_duration_seconds",
			Help:    "Duration of streaming sessions per target",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}, []string{"target"}),
	}
}

// RecordChunkDispatched increments the dispatcher fan-out counter
func (m *Metrics) RecordChunkDispatched() {
	m.ChunksDispatched.Inc()
}

// RecordEnqueue records a chunk accepted into a target's queue, plus an
// eviction when the push displaced the oldest chunk
func (m *Metrics) RecordEnqueue(target string, evicted bool) {
	m.ChunksEnqueued.WithLabelValues(target).Inc()
	if evicted {
		m.ChunksDropped.WithLabelValues(target).Inc()
	}
}

// SetQueueDepth sets the current queue depth for a target
func (m *Metrics) SetQueueDepth(target string, depth int) {
	m.QueueDepth.WithLabelValues(target).Set(float64(depth))
}

// RecordChunkSent records one transmitted frame and its payload size
func (m *Metrics) RecordChunkSent(target string, payloadBytes int, burst bool) {
	m.ChunksSent.WithLabelValues(target).Inc()
	m.BytesSent.WithLabelValues(target).Add(float64(payloadBytes))
	if burst {
		m.BurstChunks.WithLabelValues(target).Inc()
	}
}

// RecordSendError increments the write failure counter for a target
func (m *Metrics) RecordSendError(target string) {
	m.SendErrors.WithLabelValues(target).Inc()
}

// RecordConnect records an accepted handshake
func (m *Metrics) RecordConnect(target string) {
	m.Connects.WithLabelValues(target).Inc()
}

// RecordDisconnect records an unexpected disconnect and the session length
func (m *Metrics) RecordDisconnect(target string, streamingSeconds float64) {
	m.Disconnects.WithLabelValues(target).Inc()
	if streamingSeconds > 0 {
		m.StreamingTime.WithLabelValues(target).Observe(streamingSeconds)
	}
}
