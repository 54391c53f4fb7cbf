/*
Package chat contains the presence-and-messaging core of the relay.

This file defines the Broadcaster, which fans an event out to every connection in a room.
Each delivery is bounded by a timeout; a member that cannot take the frame in time is
reported to the stall handler and dropped instead of holding up the room.
*/
package chat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"roomrelay/internal/app/registry"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
)

// DefaultDeliveryTimeout bounds a single member delivery when none is configured.
const DefaultDeliveryTimeout = 2 * time.Second

// StallHandler is told about a connection whose delivery failed or timed out.
type StallHandler func(connID string, err error)

// Broadcaster delivers encoded frames to live connections looked up through the Registry.
type Broadcaster struct {
	registry *registry.Registry
	timeout  time.Duration

	// mu protects conns.
	mu    sync.RWMutex
	conns map[string]Conn

	onStall StallHandler

	logger zerolog.Logger
}

// NewBroadcaster creates a Broadcaster. onStall may be nil, in which case stalled
// connections are only logged.
func NewBroadcaster(reg *registry.Registry, timeout time.Duration, onStall StallHandler) *Broadcaster {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}

	return &Broadcaster{
		registry: reg,
		timeout:  timeout,
		conns:    make(map[string]Conn),
		onStall:  onStall,
		logger:   logx.Component("broadcaster"),
	}
}

// Attach makes conn reachable for deliveries.
func (b *Broadcaster) Attach(conn Conn) {
	b.mu.Lock()
	b.conns[conn.ID()] = conn
	b.mu.Unlock()
}

// Detach removes the connection with the given id; later deliveries skip it.
func (b *Broadcaster) Detach(connID string) {
	b.mu.Lock()
	delete(b.conns, connID)
	b.mu.Unlock()
}

func (b *Broadcaster) conn(connID string) (Conn, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.conns[connID]
	return c, ok
}

// SendTo delivers one event to a single connection.
func (b *Broadcaster) SendTo(ctx context.Context, connID, event string, payload any) error {
	frame, err := encodeFrame(event, "", payload)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}

	conn, ok := b.conn(connID)
	if !ok {
		return ErrConnClosed
	}

	if err := b.deliver(ctx, conn, frame); err != nil {
		b.stalled(connID, err)
		return err
	}
	return nil
}

// BroadcastToRoom delivers one event to every connection whose user is in room, except
// excludeID when it is non-empty. Members are served in parallel; members that fail are
// reported to the stall handler. It returns the number of successful deliveries and an
// error only when the payload cannot be encoded.
func (b *Broadcaster) BroadcastToRoom(ctx context.Context, room, event string, payload any, excludeID string) (int, error) {
	frame, err := encodeFrame(event, "", payload)
	if err != nil {
		return 0, fmt.Errorf("encode %s frame: %w", event, err)
	}

	start := time.Now()
	defer func() {
		metrics.FanoutDuration.Observe(time.Since(start).Seconds())
	}()

	members := b.registry.GetUsersInRoom(room)
	targets := make([]Conn, 0, len(members))
	for _, m := range members {
		if m.ConnID == excludeID {
			continue
		}
		if c, ok := b.conn(m.ConnID); ok {
			targets = append(targets, c)
		}
	}

	switch len(targets) {
	case 0:
		return 0, nil
	case 1:
		if err := b.deliver(ctx, targets[0], frame); err != nil {
			b.stalled(targets[0].ID(), err)
			return 0, nil
		}
		return 1, nil
	}

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, c := range targets {
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			if err := b.deliver(ctx, c, frame); err != nil {
				b.stalled(c.ID(), err)
				return
			}
			delivered.Add(1)
		}(c)
	}
	wg.Wait()

	return int(delivered.Load()), nil
}

func (b *Broadcaster) deliver(ctx context.Context, conn Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return conn.Send(ctx, frame)
}

func (b *Broadcaster) stalled(connID string, err error) {
	b.logger.Warn().Err(err).
		Str("conn_id", connID).
		Dur("timeout", b.timeout).
		Msg("Delivery failed, dropping connection")

	if b.onStall != nil {
		go b.onStall(connID, err)
	}
}
