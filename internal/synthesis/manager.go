package synthesis

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// cleanupInterval is how often expired results are swept.
const cleanupInterval = 30 * time.Second

// Manager runs synthesis requests and keeps finished WAV resources
// addressable in memory until they expire. Results are never persisted;
// once the TTL passes the handle is gone.
type Manager struct {
	client  *Client
	results map[string]*Result
	ttl     time.Duration
	logger  *slog.Logger

	activeRequests int
	resultsExpired uint64

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}

	mu sync.RWMutex
}

// ManagerStats represents manager state for monitoring
type ManagerStats struct {
	ActiveRequests int         `json:"active_requests"`
	StoredResults  int         `json:"stored_results"`
	ExpiredResults uint64      `json:"expired_results"`
	Client         ClientStats `json:"client"`
}

// NewManager creates a manager around the given orchestrator and starts the
// background expiry routine.
func NewManager(logger *slog.Logger, client *Client, ttl time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		client:  client,
		results: make(map[string]*Result),
		ttl:     ttl,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		cleanup: make(chan struct{}),
	}

	go m.startCleanupRoutine()

	return m
}

// Synthesize runs one synthesis request and stores the finished resource
// under its ID for later retrieval.
func (m *Manager) Synthesize(ctx context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.activeRequests++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.activeRequests--
		m.mu.Unlock()
	}()

	result, err := m.client.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.results[result.ID] = result
	stored := len(m.results)
	m.mu.Unlock()

	m.logger.Debug("Stored synthesis result",
		slog.String("result_id", result.ID),
		slog.Int("stored_results", stored),
		slog.Duration("ttl", m.ttl),
	)

	return result, nil
}

// GetResult retrieves a stored resource by ID. Expired resources are gone.
func (m *Manager) GetResult(id string) (*Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, exists := m.results[id]
	return result, exists
}

// ActiveRequests returns the number of in-flight synthesis requests.
func (m *Manager) ActiveRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeRequests
}

// ResultCount returns the number of stored resources.
func (m *Manager) ResultCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results)
}

// GetStats returns current manager statistics
func (m *Manager) GetStats() ManagerStats {
	m.mu.RLock()
	active := m.activeRequests
	stored := len(m.results)
	expired := m.resultsExpired
	m.mu.RUnlock()

	return ManagerStats{
		ActiveRequests: active,
		StoredResults:  stored,
		ExpiredResults: expired,
		Client:         m.client.GetStats(),
	}
}

// Stop shuts down the expiry routine and releases all stored resources.
func (m *Manager) Stop() {
	m.logger.Info("Stopping synthesis manager...")

	m.cancel()
	<-m.cleanup

	m.mu.Lock()
	remaining := len(m.results)
	m.results = make(map[string]*Result)
	m.mu.Unlock()

	m.logger.Info("Synthesis manager stopped",
		slog.Int("released_results", remaining),
	)
}

// startCleanupRoutine sweeps expired results until the manager stops
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	m.logger.Info("Result cleanup routine started",
		slog.Duration("ttl", m.ttl),
		slog.Duration("check_interval", cleanupInterval),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Result cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupExpiredResults()
		}
	}
}

// cleanupExpiredResults removes resources older than the TTL
func (m *Manager) cleanupExpiredResults() {
	now := time.Now()

	m.mu.Lock()
	expired := make([]string, 0)
	for id, result := range m.results {
		if now.Sub(result.CreatedAt) > m.ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.results, id)
		m.resultsExpired++
	}
	m.mu.Unlock()

	if len(expired) > 0 {
		m.logger.Info("Released expired synthesis results",
			slog.Int("expired_count", len(expired)),
		)
	}
}
