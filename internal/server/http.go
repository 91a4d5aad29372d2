package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/expresssorder/voi-synthesis-service/internal/audio"
	"github.com/expresssorder/voi-synthesis-service/internal/config"
	"github.com/expresssorder/voi-synthesis-service/internal/metrics"
	"github.com/expresssorder/voi-synthesis-service/internal/synthesis"
	"github.com/expresssorder/voi-synthesis-service/internal/voice"
)

// HTTPServer serves the synthesis API and monitoring endpoints
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	config    *config.Config
	synthMgr  *synthesis.Manager
	analyzer  *voice.Analyzer
	metrics   *metrics.Metrics
	startTime time.Time
}

// NewHTTPServer creates the HTTP API server
func NewHTTPServer(appConfig *config.Config, logger *slog.Logger,
	synthMgr *synthesis.Manager, analyzer *voice.Analyzer, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		synthMgr:  synthMgr,
		analyzer:  analyzer,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.Server.Address, appConfig.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // synthesis requests block until the session completes
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Synthesis endpoints
	mux.HandleFunc("/synthesize", h.withMetrics("/synthesize", h.handleSynthesize))
	mux.HandleFunc("/audio/", h.withMetrics("/audio/{id}", h.handleAudio))

	// Voice analysis endpoints
	mux.HandleFunc("/voice/analyze", h.withMetrics("/voice/analyze", h.handleVoiceAnalyze))
	mux.HandleFunc("/voice/", h.withMetrics("/voice/{id}", h.handleVoiceStatus))

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// synthesizeRequest is the request body for POST /synthesize
type synthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// synthesizeResponse is the response body for POST /synthesize
type synthesizeResponse struct {
	ID         string  `json:"id"`
	AudioURL   string  `json:"audio_url"`
	Duration   float64 `json:"duration_seconds"`
	SizeBytes  int     `json:"size_bytes"`
	ChunkCount int     `json:"chunk_count"`
}

// handleSynthesize implements POST /synthesize
func (h *HTTPServer) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	if req.VoiceID != "" && !h.analyzer.IsReady(req.VoiceID) {
		http.Error(w, "voice profile not ready", http.StatusConflict)
		return
	}

	h.metrics.RecordSynthesisRequest()
	h.metrics.SetActiveSessions(h.synthMgr.ActiveRequests() + 1)

	startTime := time.Now()
	result, err := h.synthMgr.Synthesize(r.Context(), synthesis.Request{
		Text:    req.Text,
		VoiceID: req.VoiceID,
	})
	elapsed := time.Since(startTime).Seconds()

	h.metrics.SetActiveSessions(h.synthMgr.ActiveRequests())

	if err != nil {
		h.metrics.RecordSynthesisFailure(elapsed)

		status := http.StatusBadGateway
		if errors.Is(err, audio.ErrNoAudio) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, fmt.Sprintf("synthesis failed: %v", err), status)
		return
	}

	h.metrics.RecordSynthesisSuccess(elapsed, result.SizeBytes)
	h.metrics.RecordChunkReceived(result.PCMBytes)
	h.metrics.SetResultsStored(h.synthMgr.ResultCount())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(synthesizeResponse{
		ID:         result.ID,
		AudioURL:   "/audio/" + result.ID,
		Duration:   result.Duration,
		SizeBytes:  result.SizeBytes,
		ChunkCount: result.ChunkCount,
	})
}

// handleAudio implements GET /audio/{id} and GET /audio/{id}/info
func (h *HTTPServer) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/audio/")
	if rest == "" {
		http.Error(w, "Audio ID required", http.StatusBadRequest)
		return
	}

	id, wantInfo := rest, false
	if strings.HasSuffix(rest, "/info") {
		id = strings.TrimSuffix(rest, "/info")
		wantInfo = true
	}

	result, exists := h.synthMgr.GetResult(id)
	if !exists {
		http.Error(w, "Audio not found or expired", http.StatusNotFound)
		return
	}

	if wantInfo {
		info, err := audio.GetWAVInfo(result.WAV)
		if err != nil {
			http.Error(w, "Stored audio is corrupt", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(result.WAV)))
	if _, err := w.Write(result.WAV); err != nil {
		h.logger.Warn("Failed to write audio response",
			slog.String("result_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// handleVoiceAnalyze implements POST /voice/analyze
func (h *HTTPServer) handleVoiceAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Voice.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.config.Voice.MaxUploadBytes); err != nil {
		http.Error(w, "Invalid or oversized upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("recording")
	if err != nil {
		http.Error(w, "recording file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	h.metrics.RecordVoiceAnalysisStarted()

	profile, err := h.analyzer.Analyze(header.Filename, header.Size)
	if err != nil {
		http.Error(w, fmt.Sprintf("analysis rejected: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(profile)
}

// handleVoiceStatus implements GET /voice/{id}
func (h *HTTPServer) handleVoiceStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/voice/")
	if id == "" {
		http.Error(w, "Voice ID required", http.StatusBadRequest)
		return
	}

	profile, exists := h.analyzer.GetProfile(id)
	if !exists {
		http.Error(w, "Voice profile not found", http.StatusNotFound)
		return
	}

	if profile.Status == voice.StatusReady {
		h.metrics.RecordVoiceAnalysisCompleted()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	synthStats := h.synthMgr.GetStats()
	voiceStats := h.analyzer.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "voi-synthesis-service",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"synthesis": map[string]interface{}{
				"status":          "running",
				"active_requests": synthStats.ActiveRequests,
				"stored_results":  synthStats.StoredResults,
				"success_rate":    synthStats.Client.SuccessRate,
			},
			"voice_analysis": map[string]interface{}{
				"status":         "running",
				"profiles_total": voiceStats.ProfilesTotal,
				"profiles_ready": voiceStats.ProfilesReady,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	synthStats := h.synthMgr.GetStats()

	// Expiry happens in the manager's background sweep; refresh the
	// store gauges whenever stats are read
	h.metrics.SetResultsStored(synthStats.StoredResults)
	h.metrics.SetResultsExpired(synthStats.ExpiredResults)

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"synthesis": synthStats,
		"voice":     h.analyzer.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"port":             h.config.Server.Port,
			"address":          h.config.Server.Address,
			"shutdown_timeout": h.config.Server.ShutdownTimeout,
		},
		"audio": map[string]interface{}{
			"output_sample_rate":  h.config.Audio.OutputSampleRate,
			"output_channels":     h.config.Audio.OutputChannels,
			"output_bit_depth":    h.config.Audio.OutputBitDepth,
			"priming_sample_rate": h.config.Audio.PrimingSampleRate,
			"priming_samples":     h.config.Audio.PrimingSamples,
			"result_ttl":          h.config.Audio.ResultTTL,
		},
		"synthesis": map[string]interface{}{
			"endpoint":        h.config.Synthesis.Endpoint,
			"model":           h.config.Synthesis.Model,
			"timeout":         h.config.Synthesis.Timeout,
			"max_text_length": h.config.Synthesis.MaxTextLength,
			// Note: API key is intentionally omitted for security
		},
		"voice": map[string]interface{}{
			"analysis_duration": h.config.Voice.AnalysisDuration,
			"max_upload_bytes":  h.config.Voice.MaxUploadBytes,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Voi Synthesis Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                    "API documentation",
			"POST /synthesize":         "Synthesize speech from text, returns a WAV resource handle",
			"GET /audio/{id}":          "Download a synthesized WAV resource",
			"GET /audio/{id}/info":     "Get format metadata of a synthesized WAV resource",
			"POST /voice/analyze":      "Upload a recording for voice analysis",
			"GET /voice/{id}":          "Get voice profile status",
			"GET /health":              "Service health check",
			"GET /stats":               "Get service statistics",
			"GET /config":              "Get service configuration",
			"GET /metrics":             "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
