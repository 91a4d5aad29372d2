// Package voice implements the voice-profile analysis flow. Analysis is
// simulated: an uploaded recording is validated, held as an opaque profile,
// and marked ready after a fixed delay. No signal processing happens here;
// readiness is the only contract downstream code depends on.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a voice profile
type Status string

const (
	StatusAnalyzing Status = "analyzing"
	StatusReady     Status = "ready"
)

// Profile represents one uploaded voice recording under analysis
type Profile struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ReadyAt   time.Time `json:"ready_at,omitempty"`
}

// AnalyzerStats represents analyzer statistics for monitoring
type AnalyzerStats struct {
	ProfilesTotal int    `json:"profiles_total"`
	ProfilesReady int    `json:"profiles_ready"`
	Started       uint64 `json:"analyses_started"`
	Completed     uint64 `json:"analyses_completed"`
}

// Analyzer tracks voice profiles through the simulated analysis delay.
type Analyzer struct {
	duration  time.Duration
	maxUpload int64
	profiles  map[string]*Profile
	logger    *slog.Logger

	started   uint64
	completed uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu sync.RWMutex
}

// NewAnalyzer creates an analyzer with the given simulated analysis duration
// and upload size limit.
func NewAnalyzer(logger *slog.Logger, duration time.Duration, maxUpload int64) *Analyzer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Analyzer{
		duration:  duration,
		maxUpload: maxUpload,
		profiles:  make(map[string]*Profile),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Analyze registers an uploaded recording and starts the analysis timer.
// The returned profile is immediately addressable; its status flips to
// ready once the delay elapses.
func (a *Analyzer) Analyze(filename string, sizeBytes int64) (*Profile, error) {
	if sizeBytes <= 0 {
		return nil, fmt.Errorf("uploaded recording is empty")
	}
	if sizeBytes > a.maxUpload {
		return nil, fmt.Errorf("uploaded recording too large: %d bytes exceeds limit of %d",
			sizeBytes, a.maxUpload)
	}

	profile := &Profile{
		ID:        uuid.NewString(),
		Filename:  filename,
		SizeBytes: sizeBytes,
		Status:    StatusAnalyzing,
		CreatedAt: time.Now(),
	}

	a.mu.Lock()
	a.profiles[profile.ID] = profile
	a.started++
	a.mu.Unlock()

	a.logger.Info("Voice analysis started",
		slog.String("voice_id", profile.ID),
		slog.String("filename", filename),
		slog.Int64("size_bytes", sizeBytes),
		slog.Duration("analysis_duration", a.duration),
	)

	a.wg.Add(1)
	go a.runAnalysis(profile.ID)

	return profile, nil
}

// runAnalysis waits out the simulated analysis delay, then marks the profile ready
func (a *Analyzer) runAnalysis(id string) {
	defer a.wg.Done()

	timer := time.NewTimer(a.duration)
	defer timer.Stop()

	select {
	case <-a.ctx.Done():
		return
	case <-timer.C:
	}

	a.mu.Lock()
	profile, exists := a.profiles[id]
	if exists {
		profile.Status = StatusReady
		profile.ReadyAt = time.Now()
		a.completed++
	}
	a.mu.Unlock()

	if exists {
		a.logger.Info("Voice analysis completed",
			slog.String("voice_id", id),
		)
	}
}

// GetProfile retrieves a profile by ID.
func (a *Analyzer) GetProfile(id string) (*Profile, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	profile, exists := a.profiles[id]
	if !exists {
		return nil, false
	}

	// Copy so callers cannot observe partial updates
	snapshot := *profile
	return &snapshot, true
}

// IsReady reports whether the given profile has finished analysis.
func (a *Analyzer) IsReady(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	profile, exists := a.profiles[id]
	return exists && profile.Status == StatusReady
}

// GetStats returns current analyzer statistics
func (a *Analyzer) GetStats() AnalyzerStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ready := 0
	for _, p := range a.profiles {
		if p.Status == StatusReady {
			ready++
		}
	}

	return AnalyzerStats{
		ProfilesTotal: len(a.profiles),
		ProfilesReady: ready,
		Started:       a.started,
		Completed:     a.completed,
	}
}

// Stop cancels all pending analyses and waits for their timers to unwind.
func (a *Analyzer) Stop() {
	a.cancel()
	a.wg.Wait()
}
