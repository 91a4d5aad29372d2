package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoAudio is returned by Finalize when the session closed without
// delivering a single audio chunk. An empty synthesis result is always an
// error, never a silent empty file.
var ErrNoAudio = errors.New("no audio received from synthesis session")

// ErrFinalized is returned when an assembler is used after Finalize.
// Each session gets a fresh assembler; instances are never reused.
var ErrFinalized = errors.New("assembler already finalized")

// Assembler accumulates base64-encoded PCM chunks arriving from a streaming
// synthesis session and flattens them, in arrival order, into one contiguous
// byte buffer. Chunk delivery is single-writer, but Stats may be read
// concurrently by monitoring handlers.
type Assembler struct {
	chunks     [][]byte
	chunkCount int
	totalBytes int
	finalized  bool
	lastUpdate time.Time

	mu sync.RWMutex
}

// AssemblerStats represents assembler state for monitoring
type AssemblerStats struct {
	ChunkCount int       `json:"chunk_count"`
	TotalBytes int       `json:"total_bytes"`
	Finalized  bool      `json:"finalized"`
	LastUpdate time.Time `json:"last_update"`
}

// NewAssembler creates an empty assembler for a single synthesis session.
func NewAssembler() *Assembler {
	return &Assembler{
		chunks:     make([][]byte, 0, 64),
		lastUpdate: time.Now(),
	}
}

// AddChunk decodes a base64 chunk and appends it to the accumulator.
// A malformed chunk is a fatal error for the session: dropping it would
// desynchronize the byte-exact reassembly.
func (a *Assembler) AddChunk(encoded string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrFinalized
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode audio chunk %d: %w", len(a.chunks), err)
	}

	a.chunks = append(a.chunks, data)
	a.chunkCount++
	a.totalBytes += len(data)
	a.lastUpdate = time.Now()

	return nil
}

// Finalize flattens all accumulated chunks into one contiguous buffer and
// returns it. The total length is known up front, so the payload is built
// with a single allocation and one copy per chunk. Finalize is terminal:
// the assembler rejects all further calls afterward.
func (a *Assembler) Finalize() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return nil, ErrFinalized
	}
	a.finalized = true

	if len(a.chunks) == 0 {
		return nil, ErrNoAudio
	}

	payload := make([]byte, a.totalBytes)
	offset := 0
	for _, chunk := range a.chunks {
		copy(payload[offset:], chunk)
		offset += len(chunk)
	}

	a.chunks = nil

	return payload, nil
}

// ChunkCount returns the number of chunks accumulated so far.
func (a *Assembler) ChunkCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chunkCount
}

// TotalBytes returns the total decoded payload size accumulated so far.
func (a *Assembler) TotalBytes() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.totalBytes
}

// GetStats returns current assembler statistics
func (a *Assembler) GetStats() AssemblerStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return AssemblerStats{
		ChunkCount: a.chunkCount,
		TotalBytes: a.totalBytes,
		Finalized:  a.finalized,
		LastUpdate: a.lastUpdate,
	}
}
