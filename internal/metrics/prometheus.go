package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription agent
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsExpired prometheus.Counter
	ActiveSessions  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Audio chunk metrics
	ChunksReceived prometheus.Counter
	ChunkBytes     prometheus.Histogram
	DecodeErrors   prometheus.Counter

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Cleanup (post-processing) metrics
	CleanupRequests prometheus.Counter
	CleanupFailures prometheus.Counter

	// Persistence metrics
	TranscriptsSaved prometheus.Counter

	// Tool-call metrics
	ToolCalls  *prometheus.CounterVec
	ToolErrors *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_sessions_started_total",
			Help: "Total number of transcription sessions started",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_sessions_expired_total",
			Help: "Total number of sessions removed by idle cleanup",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mta_active_sessions",
			Help: "Current number of active transcription sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mta_session_duration_seconds",
			Help:    "Wall-clock lifetime of sessions from start to finalize",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),

		// Audio chunk metrics
		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_audio_chunks_received_total",
			Help: "Total number of audio chunks appended to sessions",
		}),
		ChunkBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mta_audio_chunk_bytes",
			Help:    "Size of received audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_audio_decode_errors_total",
			Help: "Total number of base64 audio decode failures",
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_transcription_requests_total",
			Help: "Total number of transcription requests sent to the ASR backend",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mta_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7 minutes
		}),

		// Cleanup metrics
		CleanupRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_cleanup_requests_total",
			Help: "Total number of transcript cleanup requests sent",
		}),
		CleanupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_cleanup_failures_total",
			Help: "Total number of transcript cleanup failures (degraded to raw text)",
		}),

		// Persistence metrics
		TranscriptsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mta_transcripts_saved_total",
			Help: "Total number of transcript files written to disk",
		}),

		// Tool-call metrics
		ToolCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mta_tool_calls_total",
			Help: "Total number of MCP tool calls handled",
		}, []string{"tool"}),
		ToolErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mta_tool_errors_total",
			Help: "Total number of MCP tool calls answered with an error payload",
		}, []string{"tool"}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mta_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mta_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mta_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionStarted increments the session counters
func (m *Metrics) RecordSessionStarted(activeCount int) {
	m.SessionsStarted.Inc()
	m.ActiveSessions.Set(float64(activeCount))
}

// RecordSessionFinalized records a finalized session and its lifetime
func (m *Metrics) RecordSessionFinalized(durationSeconds float64, activeCount int) {
	m.SessionDuration.Observe(durationSeconds)
	m.ActiveSessions.Set(float64(activeCount))
}

// RecordSessionsExpired counts sessions removed by idle cleanup
func (m *Metrics) RecordSessionsExpired(count, activeCount int) {
	m.SessionsExpired.Add(float64(count))
	m.ActiveSessions.Set(float64(activeCount))
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordChunkReceived records an appended audio chunk
func (m *Metrics) RecordChunkReceived(sizeBytes int) {
	m.ChunksReceived.Inc()
	m.ChunkBytes.Observe(float64(sizeBytes))
}

// RecordDecodeError increments the base64 decode error counter
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordCleanup records a cleanup attempt and whether it degraded
func (m *Metrics) RecordCleanup(processed bool) {
	m.CleanupRequests.Inc()
	if !processed {
		m.CleanupFailures.Inc()
	}
}

// RecordTranscriptSaved increments the saved transcripts counter
func (m *Metrics) RecordTranscriptSaved() {
	m.TranscriptsSaved.Inc()
}

// RecordToolCall records a handled MCP tool call
func (m *Metrics) RecordToolCall(tool string, isError bool) {
	m.ToolCalls.WithLabelValues(tool).Inc()
	if isError {
		m.ToolErrors.WithLabelValues(tool).Inc()
	}
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
