package synthesis

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSDialer opens websocket sessions against the remote synthesis endpoint.
// The API credential travels as a query parameter on the dial URL.
type WSDialer struct {
	endpoint *url.URL
	apiKey   string
}

// NewWSDialer validates the endpoint URL and builds a dialer for it.
func NewWSDialer(endpoint, apiKey string) (*WSDialer, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL %s: %w", endpoint, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("endpoint scheme must be ws or wss, got %q", u.Scheme)
	}

	return &WSDialer{endpoint: u, apiKey: apiKey}, nil
}

// Dial opens one websocket connection to the service.
func (d *WSDialer) Dial(ctx context.Context) (Session, error) {
	u := *d.endpoint
	q := u.Query()
	q.Set("key", d.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to synthesis service: %w", err)
	}

	return &wsSession{conn: conn}, nil
}

// wsSession adapts a gorilla websocket connection to the Session capability
type wsSession struct {
	conn *websocket.Conn

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

func (s *wsSession) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (s *wsSession) Receive(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}

	return data, nil
}

func (s *wsSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		// Best-effort close handshake before tearing down the connection
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.conn.Close()
	})
	return err
}
