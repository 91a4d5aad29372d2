package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PrimingMIMEType identifies the priming frame format the remote service
// requires to begin a turn: 16-bit PCM at 16000 Hz.
const PrimingMIMEType = "audio/pcm;rate=16000"

// SetupMessage opens a synthesis session and declares the model and voice
// to use for all turns on that session.
type SetupMessage struct {
	Setup SetupPayload `json:"setup"`
}

// SetupPayload contains session-level generation parameters
type SetupPayload struct {
	Model   string `json:"model"`
	VoiceID string `json:"voice_id,omitempty"`
}

// MediaChunk carries one base64-encoded audio fragment with its MIME type
type MediaChunk struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// AudioMessage sends audio input to the service. Used only for the short
// priming burst that triggers the service to start generating.
type AudioMessage struct {
	RealtimeInput RealtimeInput `json:"realtime_input"`
}

// RealtimeInput wraps outbound media chunks
type RealtimeInput struct {
	MediaChunks []MediaChunk `json:"media_chunks"`
}

// TextMessage sends the text to synthesize as one complete turn
type TextMessage struct {
	ClientContent ClientContent `json:"client_content"`
}

// ClientContent contains the turn text and marks the turn as complete
type ClientContent struct {
	Text         string `json:"text"`
	TurnComplete bool   `json:"turn_complete"`
}

// serverMessage mirrors only the parts of an inbound message the client
// cares about. The service interleaves non-audio control messages with
// audio-bearing ones; everything we do not recognize is ignored, not
// validated.
type serverMessage struct {
	ServerContent *serverContent `json:"server_content"`
}

type serverContent struct {
	ModelTurn    *modelTurn `json:"model_turn"`
	TurnComplete bool       `json:"turn_complete"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type part struct {
	InlineData *inlineData `json:"inline_data"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ServerEvent is the distilled result of parsing one inbound message:
// zero or more base64 audio payloads and an optional turn-completion signal.
type ServerEvent struct {
	AudioChunks  []string
	TurnComplete bool
}

// NewPrimingMessage builds the outbound priming frame from raw PCM bytes.
func NewPrimingMessage(pcm []byte) *AudioMessage {
	return &AudioMessage{
		RealtimeInput: RealtimeInput{
			MediaChunks: []MediaChunk{{
				MIMEType: PrimingMIMEType,
				Data:     base64.StdEncoding.EncodeToString(pcm),
			}},
		},
	}
}

// NewTextMessage builds the outbound text turn.
func NewTextMessage(text string) *TextMessage {
	return &TextMessage{
		ClientContent: ClientContent{
			Text:         text,
			TurnComplete: true,
		},
	}
}

// ParseServerMessage extracts the audio payloads and turn-completion signal
// from one inbound message. A message without an audio payload field is a
// valid control message and yields an empty event. Malformed JSON is an
// error: the transport framing itself is broken at that point.
func ParseServerMessage(raw []byte) (*ServerEvent, error) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse server message: %w", err)
	}

	event := &ServerEvent{}

	if msg.ServerContent == nil {
		return event, nil
	}

	event.TurnComplete = msg.ServerContent.TurnComplete

	if msg.ServerContent.ModelTurn != nil {
		for _, p := range msg.ServerContent.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			event.AudioChunks = append(event.AudioChunks, p.InlineData.Data)
		}
	}

	return event, nil
}
