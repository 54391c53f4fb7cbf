/*
Package chat contains the presence-and-messaging core of the relay.

This file defines the Hub, the explicitly constructed owner of the Registry, the Broadcaster
and every live Session. It attaches new connections, drops stalled ones, and shuts everything
down cleanly.
*/
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roomrelay/internal/app/history"
	"roomrelay/internal/app/registry"
	"roomrelay/internal/app/sanitize"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
)

const (
	// MaxContentBytes is the largest accepted message body.
	MaxContentBytes = 5000

	// DefaultMessageRate and DefaultMessageBurst bound how fast one connection may send.
	DefaultMessageRate  = 5
	DefaultMessageBurst = 10
)

// ErrHubClosed is returned by Attach after Shutdown has started.
var ErrHubClosed = errors.New("hub is shutting down")

// Recorder receives every relayed room message. It must not block.
type Recorder interface {
	Record(rec history.Record) bool
}

// Options configures a Hub. Zero values select the defaults.
type Options struct {
	// DeliveryTimeout bounds each member delivery.
	DeliveryTimeout time.Duration

	// MessageRate and MessageBurst configure the per-connection flood limiter.
	MessageRate  rate.Limit
	MessageBurst int

	// Sanitizer cleans user-authored text; defaults to sanitize.Text.
	Sanitizer func(string) string

	// Recorder, when set, is handed every room message after it is broadcast.
	Recorder Recorder

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Hub coordinates all sessions of the process.
type Hub struct {
	registry    *registry.Registry
	broadcaster *Broadcaster
	opts        Options

	// mu protects sessions and closing.
	mu       sync.RWMutex
	sessions map[string]*Session
	closing  bool

	logger zerolog.Logger
}

// NewHub constructs a Hub with its own Registry and Broadcaster.
func NewHub(opts Options) *Hub {
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if opts.MessageRate <= 0 {
		opts.MessageRate = DefaultMessageRate
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = DefaultMessageBurst
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = sanitize.Text
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Hub{
		registry: registry.New(),
		opts:     opts,
		sessions: make(map[string]*Session),
		logger:   logx.Component("hub"),
	}
	h.broadcaster = NewBroadcaster(h.registry, opts.DeliveryTimeout, h.drop)

	return h
}

// Registry exposes the hub's user registry for read-only inspection.
func (h *Hub) Registry() *registry.Registry {
	return h.registry
}

// Broadcaster exposes the hub's room broadcaster.
func (h *Hub) Broadcaster() *Broadcaster {
	return h.broadcaster
}

// Attach creates the Session for a freshly accepted connection.
func (h *Hub) Attach(conn Conn) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return nil, ErrHubClosed
	}
	if _, exists := h.sessions[conn.ID()]; exists {
		return nil, fmt.Errorf("connection %s already attached", conn.ID())
	}

	s := newSession(h, conn)
	h.sessions[conn.ID()] = s
	h.broadcaster.Attach(conn)
	metrics.ConnectionsActive.Inc()

	h.logger.Debug().Str("conn_id", conn.ID()).Int("sessions", len(h.sessions)).Msg("Connection attached.")
	return s, nil
}

// Session returns the live session for connID.
func (h *Hub) Session(connID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.sessions[connID]
	return s, ok
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// detach forgets a session that has reached the Closed state.
func (h *Hub) detach(connID string) {
	h.mu.Lock()
	_, ok := h.sessions[connID]
	delete(h.sessions, connID)
	h.mu.Unlock()

	h.broadcaster.Detach(connID)
	if ok {
		metrics.ConnectionsActive.Dec()
	}
}

// drop force-closes a connection whose delivery stalled or whose session is inconsistent.
func (h *Hub) drop(connID string, cause error) {
	s, ok := h.Session(connID)
	if !ok {
		return
	}

	metrics.DroppedConnections.Inc()
	h.logger.Warn().Err(cause).Str("conn_id", connID).Msg("Dropping connection.")

	s.Disconnect()
	if err := s.conn.Close(); err != nil {
		h.logger.Debug().Err(err).Str("conn_id", connID).Msg("Close after drop failed.")
	}
}

func (h *Hub) sanitize(text string) (clean string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sanitizer panic: %v", r)
		}
	}()
	return h.opts.Sanitizer(text), nil
}

func (h *Hub) record(rec history.Record) {
	if h.opts.Recorder == nil {
		return
	}
	h.opts.Recorder.Record(rec)
}

// Shutdown closes every session without leave announcements and releases their
// connections. New connections are refused from the moment it starts.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info().Msg("Shutting down hub...")

	h.mu.Lock()
	h.closing = true
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			h.logger.Warn().Int("remaining", h.Len()).Msg("Hub shutdown interrupted.")
			return err
		}

		s.close(false)
		if err := s.conn.Close(); err != nil {
			h.logger.Debug().Err(err).Str("conn_id", s.id).Msg("Connection close error during shutdown.")
		}
	}

	h.logger.Info().Int("closed_sessions", len(sessions)).Msg("Hub shutdown complete.")
	return nil
}
