package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestAssemblerConcatenation(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]byte
	}{
		{"single chunk", [][]byte{{1, 2, 3, 4}}},
		{"two chunks of 4 and 6 bytes", [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8, 9, 10}}},
		{"many small chunks", [][]byte{{1}, {2}, {3}, {4}, {5}}},
		{"chunk containing zero bytes", [][]byte{{0, 0}, {1, 0, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm := NewAssembler()

			var expected []byte
			for _, chunk := range tt.chunks {
				expected = append(expected, chunk...)
				if err := asm.AddChunk(base64.StdEncoding.EncodeToString(chunk)); err != nil {
					t.Fatalf("AddChunk failed: %v", err)
				}
			}

			payload, err := asm.Finalize()
			if err != nil {
				t.Fatalf("Finalize failed: %v", err)
			}

			if !bytes.Equal(payload, expected) {
				t.Errorf("Expected payload %v, got %v", expected, payload)
			}
		})
	}
}

func TestAssemblerEmptySession(t *testing.T) {
	asm := NewAssembler()

	_, err := asm.Finalize()
	if !errors.Is(err, ErrNoAudio) {
		t.Errorf("Expected ErrNoAudio for zero chunks, got %v", err)
	}
}

func TestAssemblerMalformedChunk(t *testing.T) {
	asm := NewAssembler()

	if err := asm.AddChunk(base64.StdEncoding.EncodeToString([]byte{1, 2})); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	// A malformed chunk must be surfaced, not silently dropped
	if err := asm.AddChunk("not-valid-base64!!!"); err == nil {
		t.Fatal("Expected error for malformed base64 chunk")
	}
}

func TestAssemblerFinalizeIsTerminal(t *testing.T) {
	asm := NewAssembler()

	if err := asm.AddChunk(base64.StdEncoding.EncodeToString([]byte{1, 2, 3})); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	if _, err := asm.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if err := asm.AddChunk(base64.StdEncoding.EncodeToString([]byte{4})); !errors.Is(err, ErrFinalized) {
		t.Errorf("Expected ErrFinalized from AddChunk after Finalize, got %v", err)
	}

	if _, err := asm.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Errorf("Expected ErrFinalized from second Finalize, got %v", err)
	}
}

func TestAssemblerStats(t *testing.T) {
	asm := NewAssembler()

	if err := asm.AddChunk(base64.StdEncoding.EncodeToString(make([]byte, 320))); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}
	if err := asm.AddChunk(base64.StdEncoding.EncodeToString(make([]byte, 480))); err != nil {
		t.Fatalf("AddChunk failed: %v", err)
	}

	stats := asm.GetStats()
	if stats.ChunkCount != 2 {
		t.Errorf("Expected 2 chunks, got %d", stats.ChunkCount)
	}
	if stats.TotalBytes != 800 {
		t.Errorf("Expected 800 total bytes, got %d", stats.TotalBytes)
	}
	if stats.Finalized {
		t.Error("Assembler should not be finalized yet")
	}

	payload, err := asm.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(payload) != 800 {
		t.Errorf("Expected 800-byte payload, got %d", len(payload))
	}

	if !asm.GetStats().Finalized {
		t.Error("Stats should report finalized after Finalize")
	}
}
