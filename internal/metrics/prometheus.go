package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the bridge
type Metrics struct {
	// Ingest frame metrics
	FramesReceived  prometheus.Counter
	FramesProcessed prometheus.Counter
	ParseErrors     prometheus.Counter
	QueueSize       prometheus.Gauge

	// Session metrics
	ActiveSessions    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Encode pipeline metrics
	FramesEncoded  prometheus.Counter
	SamplesEncoded prometheus.Counter
	EncodeTime     prometheus.Histogram
	BufferOverruns prometheus.Counter

	// Sink delivery metrics
	SinkSends      prometheus.Counter
	SinkFailures   prometheus.Counter
	SinkBytesSent  prometheus.Counter
	SinkReconnects prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Ingest frame metrics
		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_received_total",
			Help: "Total number of UDP frames received",
		}),
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_processed_total",
			Help: "Total number of UDP frames successfully processed",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_parse_errors_total",
			Help: "Total number of frame parsing errors",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_frame_queue_size",
			Help: "Current number of frames in processing queue",
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_active_sessions",
			Help: "Current number of active audio sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsDestroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sessions_destroyed_total",
			Help: "Total number of sessions destroyed",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_session_duration_seconds",
			Help:    "Duration of audio sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// Encode pipeline metrics
		FramesEncoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_encoded_total",
			Help: "Total number of audio frames encoded",
		}),
		SamplesEncoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_samples_encoded_total",
			Help: "Total number of PCM samples encoded",
		}),
		EncodeTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_encode_duration_seconds",
			Help:    "Time spent encoding audio frames",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // 10us to ~40ms
		}),
		BufferOverruns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_buffer_overruns_total",
			Help: "Total number of audio buffer overruns",
		}),

		// Sink delivery metrics
		SinkSends: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sink_sends_total",
			Help: "Total number of successful sink deliveries",
		}),
		SinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sink_failures_total",
			Help: "Total number of failed sink deliveries",
		}),
		SinkBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sink_bytes_sent_total",
			Help: "Total number of encoded bytes delivered to the sink",
		}),
		SinkReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_sink_reconnects_total",
			Help: "Total number of sink reconnect attempts",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrameReceived increments the frames received counter
func (m *Metrics) RecordFrameReceived() {
	m.FramesReceived.Inc()
}

// RecordFrameProcessed increments the frames processed counter
func (m *Metrics) RecordFrameProcessed() {
	m.FramesProcessed.Inc()
}

// RecordParseError increments the parse errors counter
func (m *Metrics) RecordParseError() {
	m.ParseErrors.Inc()
}

// SetQueueSize sets the current queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionDestroyed increments the sessions destroyed counter and records duration
func (m *Metrics) RecordSessionDestroyed(durationSeconds float64) {
	m.SessionsDestroyed.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordFramesEncoded records a batch of encoded frames
func (m *Metrics) RecordFramesEncoded(frames, samples int, encodeSeconds float64) {
	m.FramesEncoded.Add(float64(frames))
	m.SamplesEncoded.Add(float64(samples))
	m.EncodeTime.Observe(encodeSeconds)
}

// RecordBufferOverrun increments the overrun counter
func (m *Metrics) RecordBufferOverrun() {
	m.BufferOverruns.Inc()
}

// RecordSinkSend records a successful delivery
func (m *Metrics) RecordSinkSend(bytes int) {
	m.SinkSends.Inc()
	m.SinkBytesSent.Add(float64(bytes))
}

// RecordSinkFailure increments the failed delivery counter
func (m *Metrics) RecordSinkFailure() {
	m.SinkFailures.Inc()
}

// RecordSinkReconnect increments the reconnect counter
func (m *Metrics) RecordSinkReconnect() {
	m.SinkReconnects.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
