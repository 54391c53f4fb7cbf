/*
Package socket adapts gorilla/websocket connections to the chat core.

This file defines the Client, one accepted WebSocket connection. It owns the read and write
loops (ReadPump and WritePump), the heartbeat, and the bounded outbound queue behind Send.
*/
package socket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384

	// number of outbound frames queued before Send starts waiting.
	sendQueueSize = 256
)

// FrameHandler consumes the frames of one connection. chat.Session implements it.
type FrameHandler interface {
	HandleFrame(ctx context.Context, raw []byte) []byte
	Disconnect()
}

// Client is an accepted WebSocket connection. It implements chat.Conn.
type Client struct {
	id string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// done is closed by Close; WritePump then flushes and closes the socket.
	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

var _ chat.Conn = (*Client)(nil)

// NewClient wraps an upgraded connection.
func NewClient(id string, wsConn *websocket.Conn) *Client {
	return &Client{
		id:     id,
		conn:   wsConn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		logger: logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send queues frame for WritePump. A full queue makes it wait until ctx is done.
func (c *Client) Send(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return chat.ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return chat.ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close asks WritePump to flush what is queued, send a close frame and release the socket.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// ReadPump reads frames until the connection fails or is closed, handing each one to h
// and queueing its reply. When it returns, h is disconnected and the client closed.
func (c *Client) ReadPump(ctx context.Context, h FrameHandler) {
	defer func() {
		h.Disconnect()
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			return
		}

		reply := h.HandleFrame(ctx, raw)
		if reply == nil {
			continue
		}

		replyCtx, cancel := context.WithTimeout(ctx, writeWait)
		err = c.Send(replyCtx, reply)
		cancel()
		if err != nil {
			c.logger.Debug().Err(err).Msg("Reply not queued")
		}
	}
}

// WritePump writes queued frames to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				_ = c.Close()
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				_ = c.Close()
				return
			}

		case <-c.done:
			c.flush()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes the frames already queued when the client was closed.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}
		default:
			return
		}
	}
}

// write sends one message under the write deadline. Returns false if the WritePump loop
// should terminate.
func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing to connection")
		return false
	}

	return true
}
