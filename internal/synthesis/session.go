package synthesis

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by session operations after the underlying
// connection has been closed.
var ErrSessionClosed = errors.New("synthesis session closed")

// Session is the capability handed to the orchestrator for one streaming
// exchange with the remote service. Implementations deliver inbound messages
// strictly in arrival order; the orchestrator never reads concurrently.
type Session interface {
	// Send transmits one outbound message to the service.
	Send(ctx context.Context, data []byte) error

	// Receive blocks until the next inbound message arrives, the context is
	// cancelled, or the transport fails.
	Receive(ctx context.Context) ([]byte, error)

	// Close terminates the session. Safe to call more than once.
	Close() error
}

// Dialer opens sessions against the remote service. Injecting it keeps the
// orchestrator testable against an in-memory fake.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
