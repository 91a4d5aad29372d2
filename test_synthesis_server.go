// Standalone fake remote synthesis service for local development.
// It speaks the websocket protocol the service client expects: it consumes
// the setup message, priming frame and text turn, then streams back a few
// base64 PCM chunks of a sine tone followed by a turn-completion signal.
//
// Run with: go run test_synthesis_server.go
// Then point synthesis.endpoint at ws://localhost:9999/v1/live
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	listenAddr   = ":9999"
	sampleRate   = 24000
	chunkSamples = 2400 // 100ms per chunk
	numChunks    = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type clientMessage struct {
	Setup         json.RawMessage `json:"setup"`
	RealtimeInput json.RawMessage `json:"realtime_input"`
	ClientContent *struct {
		Text string `json:"text"`
	} `json:"client_content"`
}

func sineChunk(offset int) []byte {
	buf := make([]byte, chunkSamples*2)
	for i := 0; i < chunkSamples; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(offset+i)/sampleRate))
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	return buf
}

func liveHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") == "" {
		http.Error(w, "missing key", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("session opened from %s", r.RemoteAddr)

	// Consume client messages until the text turn arrives
	var text string
	for text == "" {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("read failed: %v", err)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("ignoring unparseable message: %v", err)
			continue
		}

		switch {
		case msg.Setup != nil:
			log.Printf("setup received")
		case msg.RealtimeInput != nil:
			log.Printf("priming frame received")
		case msg.ClientContent != nil:
			text = msg.ClientContent.Text
			log.Printf("text turn received: %q", text)
		}
	}

	// Stream audio chunks back with realistic pacing
	for i := 0; i < numChunks; i++ {
		pcm := sineChunk(i * chunkSamples)
		chunk := map[string]any{
			"server_content": map[string]any{
				"model_turn": map[string]any{
					"parts": []any{
						map[string]any{
							"inline_data": map[string]any{
								"mime_type": fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
								"data":      base64.StdEncoding.EncodeToString(pcm),
							},
						},
					},
				},
			},
		}
		if err := conn.WriteJSON(chunk); err != nil {
			log.Printf("write failed: %v", err)
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	done := map[string]any{
		"server_content": map[string]any{"turn_complete": true},
	}
	if err := conn.WriteJSON(done); err != nil {
		log.Printf("write failed: %v", err)
		return
	}

	log.Printf("turn complete, %d chunks sent", numChunks)
}

func main() {
	http.HandleFunc("/v1/live", liveHandler)

	log.Printf("Fake synthesis service listening on %s", listenAddr)
	log.Printf("Endpoint: ws://localhost%s/v1/live", listenAddr)

	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
