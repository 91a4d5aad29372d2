package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expresssorder/voi-synthesis-service/internal/audio"
	"github.com/expresssorder/voi-synthesis-service/internal/protocol"
)

// Config contains synthesis orchestrator configuration
type Config struct {
	Model         string
	Timeout       time.Duration
	MaxTextLength int

	// Output format documented by the remote service
	OutputSampleRate int
	OutputChannels   int
	OutputBitDepth   int

	// Priming burst format required to open a turn
	PrimingSampleRate int
	PrimingSamples    int
}

// Request describes one synthesis request
type Request struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// Result is a finished, immutable WAV resource
type Result struct {
	ID         string    `json:"id"`
	WAV        []byte    `json:"-"`
	SizeBytes  int       `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	PCMBytes   int       `json:"pcm_bytes"`
	Duration   float64   `json:"duration_seconds"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClientStats represents orchestrator statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// Client runs synthesis requests against the remote streaming service.
// Each request opens exactly one session; sessions are never pooled or
// reused, and each request resolves exactly once.
type Client struct {
	config Config
	dialer Dialer
	logger *slog.Logger

	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalDuration   time.Duration

	mu sync.RWMutex
}

// NewClient creates a synthesis orchestrator over the given session dialer.
func NewClient(config Config, dialer Dialer, logger *slog.Logger) (*Client, error) {
	if dialer == nil {
		return nil, fmt.Errorf("dialer cannot be nil")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxTextLength <= 0 {
		config.MaxTextLength = 4096
	}
	if config.OutputSampleRate <= 0 {
		config.OutputSampleRate = 24000
	}
	if config.OutputChannels <= 0 {
		config.OutputChannels = 1
	}
	if config.OutputBitDepth <= 0 {
		config.OutputBitDepth = 16
	}
	if config.PrimingSampleRate <= 0 {
		config.PrimingSampleRate = 16000
	}
	if config.PrimingSamples <= 0 {
		config.PrimingSamples = 160
	}

	return &Client{
		config: config,
		dialer: dialer,
		logger: logger,
	}, nil
}

// Synthesize runs one complete request: open a session, prime it, send the
// text turn, reassemble the returned audio, and wrap it in a WAV container.
// It returns either a complete resource or one error; partial audio is never
// returned, and after the first failure no further session callbacks are
// honored.
func (c *Client) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if req.Text == "" {
		return c.fail(time.Now(), fmt.Errorf("text cannot be empty"))
	}
	if len(req.Text) > c.config.MaxTextLength {
		return c.fail(time.Now(), fmt.Errorf("text length %d exceeds maximum %d",
			len(req.Text), c.config.MaxTextLength))
	}

	startTime := time.Now()
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	c.logger.Info("Starting synthesis session",
		slog.String("request_id", requestID),
		slog.Int("text_length", len(req.Text)),
		slog.String("voice_id", req.VoiceID),
	)

	session, err := c.dialer.Dial(ctx)
	if err != nil {
		return c.fail(startTime, fmt.Errorf("failed to open session: %w", err))
	}
	// The session must not outlive the request, even on cancellation
	defer session.Close()

	if err := c.sendJSON(ctx, session, protocol.SetupMessage{
		Setup: protocol.SetupPayload{
			Model:   c.config.Model,
			VoiceID: req.VoiceID,
		},
	}); err != nil {
		return c.fail(startTime, fmt.Errorf("failed to send setup: %w", err))
	}

	// Prime the turn with a short silent burst so the service starts
	// generating without waiting for real audio input
	priming := audio.EncodePCM(audio.Silence(c.config.PrimingSamples))
	if err := c.sendJSON(ctx, session, protocol.NewPrimingMessage(priming)); err != nil {
		return c.fail(startTime, fmt.Errorf("failed to send priming frame: %w", err))
	}

	if err := c.sendJSON(ctx, session, protocol.NewTextMessage(req.Text)); err != nil {
		return c.fail(startTime, fmt.Errorf("failed to send text turn: %w", err))
	}

	assembler := audio.NewAssembler()

	for {
		raw, err := session.Receive(ctx)
		if err != nil {
			return c.fail(startTime, fmt.Errorf("session transport error: %w", err))
		}

		event, err := protocol.ParseServerMessage(raw)
		if err != nil {
			return c.fail(startTime, err)
		}

		for _, chunk := range event.AudioChunks {
			if err := assembler.AddChunk(chunk); err != nil {
				return c.fail(startTime, err)
			}
		}

		if event.TurnComplete {
			break
		}
	}

	payload, err := assembler.Finalize()
	if err != nil {
		return c.fail(startTime, err)
	}

	stats := assembler.GetStats()

	wavData, err := audio.EncodeWAV(payload,
		c.config.OutputSampleRate, c.config.OutputChannels, c.config.OutputBitDepth)
	if err != nil {
		return c.fail(startTime, fmt.Errorf("failed to build WAV resource: %w", err))
	}

	duration, err := audio.GetWAVDuration(wavData)
	if err != nil {
		return c.fail(startTime, fmt.Errorf("failed to read back WAV resource: %w", err))
	}

	elapsed := time.Since(startTime)
	c.recordSuccess(elapsed)

	c.logger.Info("Synthesis session completed",
		slog.String("request_id", requestID),
		slog.Int("chunks", stats.ChunkCount),
		slog.Int("pcm_bytes", len(payload)),
		slog.Int("wav_bytes", len(wavData)),
		slog.Float64("audio_seconds", duration),
		slog.Duration("elapsed", elapsed),
	)

	return &Result{
		ID:         requestID,
		WAV:        wavData,
		SizeBytes:  len(wavData),
		ChunkCount: stats.ChunkCount,
		PCMBytes:   len(payload),
		Duration:   duration,
		CreatedAt:  time.Now(),
	}, nil
}

// GetStats returns current orchestrator statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	avgResponse := time.Duration(0)
	if c.successRequests > 0 {
		avgResponse = c.totalDuration / time.Duration(c.successRequests)
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: avgResponse,
	}
}

func (c *Client) sendJSON(ctx context.Context, session Session, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return session.Send(ctx, data)
}

func (c *Client) fail(startTime time.Time, err error) (*Result, error) {
	c.mu.Lock()
	c.totalRequests++
	c.failedRequests++
	c.mu.Unlock()

	c.logger.Error("Synthesis request failed",
		slog.String("error", err.Error()),
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return nil, err
}

func (c *Client) recordSuccess(elapsed time.Duration) {
	c.mu.Lock()
	c.totalRequests++
	c.successRequests++
	c.totalDuration += elapsed
	c.mu.Unlock()
}
