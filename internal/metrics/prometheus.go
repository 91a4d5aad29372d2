// Package metrics defines the Prometheus instrumentation for the synthesis
// service: session-level counters, audio volume tracking, and HTTP API
// request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the synthesis service
type Metrics struct {
	// Synthesis session metrics
	SynthesisRequests  prometheus.Counter
	SynthesisSuccesses prometheus.Counter
	SynthesisFailures  prometheus.Counter
	SynthesisDuration  prometheus.Histogram
	ActiveSessions     prometheus.Gauge

	// Audio stream metrics
	ChunksReceived     prometheus.Counter
	AudioBytesReceived prometheus.Counter
	WAVBytesProduced   prometheus.Histogram

	// Result store metrics
	ResultsStored  prometheus.Gauge
	ResultsExpired prometheus.Gauge

	// Voice analysis metrics
	VoiceAnalysesStarted   prometheus.Counter
	VoiceAnalysesCompleted prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SynthesisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voi_synthesis_requests_total",
			Help: "Total number of synthesis requests",
		}),
		SynthesisSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voi_synthesis_successes_total",
			Help: "Total number of synthesis requests that produced audio",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voi_synthesis_failures_total",
			Help: "Total number of failed synthesis requests",
		}),
		SynthesisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voi_synthesis_duration_seconds",
			Help:    "End-to-end duration of synthesis requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voi_active_sessions",
			Help: "Current number of in-flight synthesis sessions",
		}),

		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voi_audio_chunks_received_total",
			Help: "Total number of audio chunks received from the remote service",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voi_audio_bytes_received_total",
			Help: "Total decoded PCM bytes received from the remote service",
		}),
		WAVBytesProduced: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voi_wav_bytes_produced",
			Help:    "Size of produced WAV resources in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),

		ResultsStored: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voi_results_stored",
			Help: "Current number of WAV resources held in memory",
		}),
		ResultsExpired: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voi_results_expired",
			Help: "Total number of WAV resources released after TTL expiry",
		}),

		VoiceAnalysesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voi_voice_analyses_started_total",
			Help: "Total number of voice analyses started",
		}),
		VoiceAnalysesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voi_voice_analyses_completed_total",
			Help: "Total number of voice analyses that reached the ready state",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voi_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voi_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voi_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSynthesisRequest increments the synthesis requests counter
func (m *Metrics) RecordSynthesisRequest() {
	m.SynthesisRequests.Inc()
}

// RecordSynthesisSuccess records a completed synthesis with its duration and output size
func (m *Metrics) RecordSynthesisSuccess(durationSeconds float64, wavBytes int) {
	m.SynthesisSuccesses.Inc()
	m.SynthesisDuration.Observe(durationSeconds)
	m.WAVBytesProduced.Observe(float64(wavBytes))
}

// RecordSynthesisFailure records a failed synthesis with its duration
func (m *Metrics) RecordSynthesisFailure(durationSeconds float64) {
	m.SynthesisFailures.Inc()
	m.SynthesisDuration.Observe(durationSeconds)
}

// SetActiveSessions sets the current number of in-flight sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordChunkReceived records one received audio chunk and its decoded size
func (m *Metrics) RecordChunkReceived(decodedBytes int) {
	m.ChunksReceived.Inc()
	m.AudioBytesReceived.Add(float64(decodedBytes))
}

// SetResultsStored sets the current number of stored WAV resources
func (m *Metrics) SetResultsStored(count int) {
	m.ResultsStored.Set(float64(count))
}

// SetResultsExpired sets the cumulative count of expired WAV resources
func (m *Metrics) SetResultsExpired(count uint64) {
	m.ResultsExpired.Set(float64(count))
}

// RecordVoiceAnalysisStarted increments the started analyses counter
func (m *Metrics) RecordVoiceAnalysisStarted() {
	m.VoiceAnalysesStarted.Inc()
}

// RecordVoiceAnalysisCompleted increments the completed analyses counter
func (m *Metrics) RecordVoiceAnalysisCompleted() {
	m.VoiceAnalysesCompleted.Inc()
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
