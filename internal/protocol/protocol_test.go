package protocol

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestParseServerMessageWithAudio(t *testing.T) {
	chunk := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
	raw := []byte(`{
		"server_content": {
			"model_turn": {
				"parts": [
					{"inline_data": {"mime_type": "audio/pcm;rate=24000", "data": "` + chunk + `"}}
				]
			}
		}
	}`)

	event, err := ParseServerMessage(raw)
	if err != nil {
		t.Fatalf("ParseServerMessage failed: %v", err)
	}

	if len(event.AudioChunks) != 1 {
		t.Fatalf("Expected 1 audio chunk, got %d", len(event.AudioChunks))
	}
	if event.AudioChunks[0] != chunk {
		t.Errorf("Expected chunk %q, got %q", chunk, event.AudioChunks[0])
	}
	if event.TurnComplete {
		t.Error("Turn should not be complete")
	}
}

func TestParseServerMessageTurnComplete(t *testing.T) {
	raw := []byte(`{"server_content": {"turn_complete": true}}`)

	event, err := ParseServerMessage(raw)
	if err != nil {
		t.Fatalf("ParseServerMessage failed: %v", err)
	}

	if !event.TurnComplete {
		t.Error("Expected turn complete signal")
	}
	if len(event.AudioChunks) != 0 {
		t.Errorf("Expected no audio chunks, got %d", len(event.AudioChunks))
	}
}

func TestParseServerMessageControlNoOp(t *testing.T) {
	// Control messages without an audio payload are a per-message no-op,
	// not an error
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"unrelated fields only", `{"usage_metadata": {"total_tokens": 42}}`},
		{"server content without model turn", `{"server_content": {}}`},
		{"model turn with empty parts", `{"server_content": {"model_turn": {"parts": []}}}`},
		{"part without inline data", `{"server_content": {"model_turn": {"parts": [{"text": "hello"}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseServerMessage([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseServerMessage failed: %v", err)
			}
			if len(event.AudioChunks) != 0 {
				t.Errorf("Expected no audio chunks, got %d", len(event.AudioChunks))
			}
			if event.TurnComplete {
				t.Error("Turn should not be complete")
			}
		})
	}
}

func TestParseServerMessageMalformed(t *testing.T) {
	_, err := ParseServerMessage([]byte(`{"server_content": `))
	if err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestNewPrimingMessage(t *testing.T) {
	pcm := make([]byte, 320)
	msg := NewPrimingMessage(pcm)

	if len(msg.RealtimeInput.MediaChunks) != 1 {
		t.Fatalf("Expected 1 media chunk, got %d", len(msg.RealtimeInput.MediaChunks))
	}

	chunk := msg.RealtimeInput.MediaChunks[0]
	if chunk.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("Expected MIME type audio/pcm;rate=16000, got %q", chunk.MIMEType)
	}

	decoded, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil {
		t.Fatalf("Priming payload is not valid base64: %v", err)
	}
	if len(decoded) != 320 {
		t.Errorf("Expected 320 decoded bytes, got %d", len(decoded))
	}
}

func TestNewTextMessageSerialization(t *testing.T) {
	msg := NewTextMessage("hello world")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var parsed TextMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if parsed.ClientContent.Text != "hello world" {
		t.Errorf("Expected text %q, got %q", "hello world", parsed.ClientContent.Text)
	}
	if !parsed.ClientContent.TurnComplete {
		t.Error("Text turn should be marked complete")
	}
}
