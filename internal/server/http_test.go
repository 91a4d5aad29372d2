package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/expresssorder/voi-synthesis-service/internal/audio"
	"github.com/expresssorder/voi-synthesis-service/internal/config"
	"github.com/expresssorder/voi-synthesis-service/internal/metrics"
	"github.com/expresssorder/voi-synthesis-service/internal/synthesis"
	"github.com/expresssorder/voi-synthesis-service/internal/voice"
)

// Prometheus collectors register globally, so the test binary creates them once
var testMetrics = metrics.NewMetrics()

// scriptedSession replays fixed inbound messages for HTTP-level tests
type scriptedSession struct {
	inbound [][]byte
	pos     int
}

func (s *scriptedSession) Send(ctx context.Context, data []byte) error { return nil }

func (s *scriptedSession) Receive(ctx context.Context) ([]byte, error) {
	if s.pos >= len(s.inbound) {
		return nil, synthesis.ErrSessionClosed
	}
	msg := s.inbound[s.pos]
	s.pos++
	return msg, nil
}

func (s *scriptedSession) Close() error { return nil }

type scriptedDialer struct {
	inbound [][]byte
}

func (d *scriptedDialer) Dial(ctx context.Context) (synthesis.Session, error) {
	return &scriptedSession{inbound: d.inbound}, nil
}

func chunkMessage(t *testing.T, pcm []byte) []byte {
	t.Helper()
	return []byte(`{"server_content": {"model_turn": {"parts": [{"inline_data": {"data": "` +
		base64.StdEncoding.EncodeToString(pcm) + `"}}]}}}`)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			Address:         "127.0.0.1",
			ShutdownTimeout: 5,
		},
		Audio: config.AudioConfig{
			OutputSampleRate:  24000,
			OutputChannels:    1,
			OutputBitDepth:    16,
			PrimingSampleRate: 16000,
			PrimingSamples:    160,
			ResultTTL:         300,
		},
		Synthesis: config.SynthesisConfig{
			Endpoint:      "wss://synthesis.example.com/v1/live",
			APIKey:        "test-key",
			Model:         "speech-live-1",
			Timeout:       10,
			MaxTextLength: 4096,
		},
		Voice: config.VoiceConfig{
			AnalysisDuration: 0.01,
			MaxUploadBytes:   1 << 20,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func testServer(t *testing.T, inbound [][]byte) *HTTPServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()

	client, err := synthesis.NewClient(synthesis.Config{
		Model:            cfg.Synthesis.Model,
		Timeout:          cfg.Synthesis.GetTimeout(),
		OutputSampleRate: cfg.Audio.OutputSampleRate,
		OutputChannels:   cfg.Audio.OutputChannels,
		OutputBitDepth:   cfg.Audio.OutputBitDepth,
	}, &scriptedDialer{inbound: inbound}, logger)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	mgr := synthesis.NewManager(logger, client, cfg.Audio.GetResultTTL())
	t.Cleanup(mgr.Stop)

	analyzer := voice.NewAnalyzer(logger, cfg.Voice.GetAnalysisDuration(), cfg.Voice.MaxUploadBytes)
	t.Cleanup(analyzer.Stop)

	return NewHTTPServer(cfg, logger, mgr, analyzer, testMetrics)
}

func (h *HTTPServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSynthesizeEndpoint(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	srv := testServer(t, [][]byte{
		chunkMessage(t, pcm),
		[]byte(`{"server_content": {"turn_complete": true}}`),
	})

	body := bytes.NewBufferString(`{"text": "hello"}`)
	rec := srv.serve(httptest.NewRequest(http.MethodPost, "/synthesize", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID        string  `json:"id"`
		AudioURL  string  `json:"audio_url"`
		Duration  float64 `json:"duration_seconds"`
		SizeBytes int     `json:"size_bytes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.ID == "" {
		t.Error("Expected a result ID")
	}
	if resp.AudioURL != "/audio/"+resp.ID {
		t.Errorf("Expected audio URL /audio/%s, got %s", resp.ID, resp.AudioURL)
	}
	if resp.SizeBytes != 44+len(pcm) {
		t.Errorf("Expected %d WAV bytes, got %d", 44+len(pcm), resp.SizeBytes)
	}

	// The handle must serve a playable WAV
	audioRec := srv.serve(httptest.NewRequest(http.MethodGet, resp.AudioURL, nil))
	if audioRec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from audio handle, got %d", audioRec.Code)
	}
	if ct := audioRec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Expected Content-Type audio/wav, got %q", ct)
	}

	payload, info, err := audio.DecodeWAV(audioRec.Body.Bytes())
	if err != nil {
		t.Fatalf("Served audio does not decode: %v", err)
	}
	if !bytes.Equal(payload, pcm) {
		t.Errorf("Expected payload %v, got %v", pcm, payload)
	}
	if info.SampleRate != 24000 {
		t.Errorf("Expected sample rate 24000, got %d", info.SampleRate)
	}

	// Info endpoint reports the same metadata
	infoRec := srv.serve(httptest.NewRequest(http.MethodGet, resp.AudioURL+"/info", nil))
	if infoRec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from info endpoint, got %d", infoRec.Code)
	}
	var served audio.WAVInfo
	if err := json.NewDecoder(infoRec.Body).Decode(&served); err != nil {
		t.Fatalf("Failed to decode info response: %v", err)
	}
	if served.DataSize != uint32(len(pcm)) {
		t.Errorf("Expected data size %d, got %d", len(pcm), served.DataSize)
	}
}

func TestSynthesizeEndpointValidation(t *testing.T) {
	srv := testServer(t, nil)

	tests := []struct {
		name     string
		method   string
		body     string
		expected int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed body", http.MethodPost, "{not json", http.StatusBadRequest},
		{"missing text", http.MethodPost, "{}", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.serve(httptest.NewRequest(tt.method, "/synthesize", strings.NewReader(tt.body)))
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestSynthesizeEmptySessionReturnsError(t *testing.T) {
	// Session closes without delivering any audio
	srv := testServer(t, [][]byte{
		[]byte(`{"server_content": {"turn_complete": true}}`),
	})

	body := bytes.NewBufferString(`{"text": "hello"}`)
	rec := srv.serve(httptest.NewRequest(http.MethodPost, "/synthesize", body))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for empty session, got %d", rec.Code)
	}
}

func TestSynthesizeUnreadyVoiceRejected(t *testing.T) {
	srv := testServer(t, nil)

	body := bytes.NewBufferString(`{"text": "hello", "voice_id": "not-analyzed"}`)
	rec := srv.serve(httptest.NewRequest(http.MethodPost, "/synthesize", body))

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for unready voice profile, got %d", rec.Code)
	}
}

func TestAudioEndpointUnknownID(t *testing.T) {
	srv := testServer(t, nil)

	rec := srv.serve(httptest.NewRequest(http.MethodGet, "/audio/no-such-id", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestVoiceAnalyzeFlow(t *testing.T) {
	srv := testServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("recording", "sample.mp4")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write([]byte("fake video bytes")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/voice/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := srv.serve(req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var profile voice.Profile
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("Failed to decode profile: %v", err)
	}
	if profile.Status != voice.StatusAnalyzing {
		t.Errorf("Expected status %q, got %q", voice.StatusAnalyzing, profile.Status)
	}

	// Poll until the simulated analysis finishes
	deadline := time.Now().Add(time.Second)
	for {
		statusRec := srv.serve(httptest.NewRequest(http.MethodGet, "/voice/"+profile.ID, nil))
		if statusRec.Code != http.StatusOK {
			t.Fatalf("Expected 200 from status endpoint, got %d", statusRec.Code)
		}
		var current voice.Profile
		if err := json.NewDecoder(statusRec.Body).Decode(&current); err != nil {
			t.Fatalf("Failed to decode status: %v", err)
		}
		if current.Status == voice.StatusReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Voice profile never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestVoiceAnalyzeMissingFile(t *testing.T) {
	srv := testServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/voice/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := srv.serve(req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing file, got %d", rec.Code)
	}
}

func TestMonitoringEndpoints(t *testing.T) {
	srv := testServer(t, nil)

	for _, path := range []string{"/", "/health", "/stats", "/config"} {
		t.Run(path, func(t *testing.T) {
			rec := srv.serve(httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON response, got %q", ct)
			}
		})
	}
}

func TestConfigEndpointRedactsCredential(t *testing.T) {
	srv := testServer(t, nil)

	rec := srv.serve(httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	if strings.Contains(rec.Body.String(), "test-key") {
		t.Error("Config endpoint must not expose the API key")
	}
}
