/*
Package chat contains the presence-and-messaging core of the relay.

This file defines the Session, the per-connection state machine
(Unjoined -> Joined -> Closed). Every client event is validated against the current
state and the Registry before anything is broadcast.
*/
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roomrelay/internal/app/history"
	"roomrelay/internal/app/registry"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
	"roomrelay/internal/pkg/randx"
)

// State is the lifecycle stage of a Session.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session handles the events of one connection. Its mutex serializes the connection's
// own events with disconnects arriving from other goroutines.
type Session struct {
	hub  *Hub
	conn Conn
	id   string

	// limiter throttles message and private message events.
	limiter *rate.Limiter

	mu    sync.Mutex
	state State

	logger zerolog.Logger
}

func newSession(h *Hub, conn Conn) *Session {
	return &Session{
		hub:     h,
		conn:    conn,
		id:      conn.ID(),
		limiter: rate.NewLimiter(h.opts.MessageRate, h.opts.MessageBurst),
		state:   StateUnjoined,
		logger:  logx.Logger().With().Str("component", "session").Str("conn_id", conn.ID()).Logger(),
	}
}

// ID returns the connection id of the session.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Join registers the connection as name in room. On success the joiner gets a welcome
// notice, the rest of the room a joined notice, and everyone the new roster.
func (s *Session) Join(ctx context.Context, name, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return errs.NewError(errs.ErrSessionClosed)
	case StateJoined:
		return errs.NewError(errs.ErrAlreadyJoined)
	}

	// Names and rooms end up in notices and rosters, so they get the same cleaning as text.
	name, err := s.hub.sanitize(name)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sanitizer failed on join.")
		return errs.NewError(errs.ErrUnknown, err)
	}
	room, err = s.hub.sanitize(room)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sanitizer failed on join.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	u, err := s.hub.registry.AddUser(s.id, name, room)
	if err != nil {
		return err
	}

	s.state = StateJoined
	metrics.UsersJoined.Inc()
	s.logger = s.logger.With().Str("room", u.Room).Str("user", u.Name).Logger()
	s.logger.Info().Msg("User joined room.")

	b := s.hub.broadcaster
	if err := b.SendTo(ctx, s.id, EventMessage, s.hub.notice(fmt.Sprintf("%s, welcome to room %s.", u.Name, u.Room))); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to deliver welcome notice.")
	}
	if _, err := b.BroadcastToRoom(ctx, u.Room, EventMessage, s.hub.notice(fmt.Sprintf("%s has joined!", u.Name)), s.id); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast joined notice.")
	}
	if _, err := b.BroadcastToRoom(ctx, u.Room, EventRoomData, s.hub.roster(u.Room), ""); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast roster.")
	}

	return nil
}

// SendMessage sanitizes text and broadcasts it to the sender's room, sender included.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.currentUser()
	if err != nil {
		return err
	}

	if err := s.checkBody(text); err != nil {
		return err
	}

	clean, err := s.hub.sanitize(text)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sanitizer failed.")
		return errs.NewError(errs.ErrMessageNotSent)
	}

	now := s.hub.opts.Now()
	msg := MessagePayload{
		ID:        randx.MessageID(),
		User:      u.Name,
		Text:      clean,
		Timestamp: now.UnixMilli(),
	}

	if _, err := s.hub.broadcaster.BroadcastToRoom(ctx, u.Room, EventMessage, msg, ""); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast message.")
		return errs.NewError(errs.ErrMessageNotSent)
	}

	s.hub.record(history.Record{
		ID:         msg.ID,
		Room:       u.Room,
		SenderName: u.Name,
		Text:       clean,
		SentAt:     now,
	})

	return nil
}

// PrivateMessage delivers text to the user named to in the sender's room, and to nobody else.
func (s *Session) PrivateMessage(ctx context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.currentUser()
	if err != nil {
		return err
	}

	// Stored names are sanitized; look the recipient up the same way.
	to, err = s.hub.sanitize(to)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sanitizer failed.")
		return errs.NewError(errs.ErrMessageNotSent)
	}

	recipient, ok := s.hub.registry.GetUserByName(to, sender.Room)
	if !ok {
		return errs.NewError(errs.ErrRecipientNotFound)
	}

	if err := s.checkBody(text); err != nil {
		return err
	}

	clean, err := s.hub.sanitize(text)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sanitizer failed.")
		return errs.NewError(errs.ErrMessageNotSent)
	}

	payload := PrivateMessagePayload{From: sender.Name, Message: clean}
	if err := s.hub.broadcaster.SendTo(ctx, recipient.ConnID, EventPrivateMessage, payload); err != nil {
		s.logger.Warn().Err(err).Str("recipient_conn_id", recipient.ConnID).Msg("Private message not delivered.")
		return errs.NewError(errs.ErrMessageNotSent)
	}

	return nil
}

// MessageSeen broadcasts a read receipt for messageID to room, or to the user's own room
// when room is empty. The id is not checked against past messages.
func (s *Session) MessageSeen(ctx context.Context, messageID, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.currentUser()
	if err != nil {
		return err
	}

	room = strings.TrimSpace(room)
	if room == "" {
		room = u.Room
	}

	payload := MessageStatusPayload{
		MessageID: messageID,
		SeenBy:    u.Name,
		Timestamp: s.hub.opts.Now().UTC(),
	}
	if _, err := s.hub.broadcaster.BroadcastToRoom(ctx, room, EventMessageStatus, payload, ""); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast message status.")
		return errs.NewError(errs.ErrMessageNotSent)
	}

	return nil
}

// Leave ends the session at the client's request and closes the connection.
func (s *Session) Leave() {
	s.Disconnect()
	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection close after leave failed.")
	}
}

// Disconnect moves the session to Closed. A joined user is removed and the room is told
// about it. Calling it again, or on a session that never joined, has no side effects.
func (s *Session) Disconnect() {
	s.close(true)
}

func (s *Session) close(announce bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	wasJoined := s.state == StateJoined
	s.state = StateClosed
	s.hub.detach(s.id)

	if !wasJoined {
		s.logger.Debug().Msg("Unjoined connection closed.")
		return
	}

	u, ok := s.hub.registry.RemoveUser(s.id)
	if !ok {
		s.logger.Error().Msg("Joined session had no registry entry at disconnect.")
		return
	}
	metrics.UsersJoined.Dec()
	s.logger.Info().Bool("announce", announce).Msg("User left room.")

	if !announce {
		return
	}

	ctx := context.Background()
	b := s.hub.broadcaster
	if _, err := b.BroadcastToRoom(ctx, u.Room, EventMessage, s.hub.notice(fmt.Sprintf("%s has left.", u.Name)), ""); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast left notice.")
	}
	if _, err := b.BroadcastToRoom(ctx, u.Room, EventRoomData, s.hub.roster(u.Room), ""); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast roster.")
	}
}

// currentUser resolves the caller's registry entry. Must be called with s.mu held.
// A joined session without an entry is an internal fault: it is logged and the
// connection is dropped.
func (s *Session) currentUser() (registry.User, error) {
	switch s.state {
	case StateClosed:
		return registry.User{}, errs.NewError(errs.ErrSessionClosed)
	case StateUnjoined:
		return registry.User{}, errs.NewError(errs.ErrUserNotFound)
	}

	u, ok := s.hub.registry.GetUser(s.id)
	if !ok {
		s.logger.Error().Msg("Session is joined but the registry has no user. Forcing disconnect.")
		go s.hub.drop(s.id, fmt.Errorf("registry entry missing for joined session"))
		return registry.User{}, errs.NewError(errs.ErrUserNotFound)
	}
	return u, nil
}

func (s *Session) checkBody(text string) error {
	if len(text) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}
	if !s.limiter.Allow() {
		return errs.NewError(errs.ErrMessageFlood)
	}
	return nil
}

func (h *Hub) notice(text string) MessagePayload {
	return MessagePayload{
		ID:        randx.MessageID(),
		User:      SystemName,
		Text:      text,
		Timestamp: h.opts.Now().UnixMilli(),
	}
}

func (h *Hub) roster(room string) RoomDataPayload {
	return RoomDataPayload{Room: room, Users: h.registry.GetUsersInRoom(room)}
}
