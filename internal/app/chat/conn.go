package chat

import (
	"context"
	"errors"
)

// ErrConnClosed is returned by Conn.Send once the connection is closed.
var ErrConnClosed = errors.New("connection closed")

// Conn is the transport's view of one live client connection.
type Conn interface {
	// ID returns the transport-assigned identity, stable for the connection's lifetime.
	ID() string

	// Send queues an encoded frame. It returns when the frame is queued, the connection
	// is closed, or ctx is done, whichever comes first.
	Send(ctx context.Context, frame []byte) error

	// Close releases the connection. It is safe to call more than once.
	Close() error
}
