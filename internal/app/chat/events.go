/*
Package chat contains the presence-and-messaging core of the relay: the per-connection
Session state machine, the room Broadcaster, and the Hub that owns both.

This file defines the event names and the JSON frames exchanged with clients.
*/
package chat

import (
	"encoding/json"
	"time"

	"roomrelay/internal/app/registry"
)

// Client -> Server events.
const (
	EventJoin        = "join"
	EventSendMessage = "sendMessage"
	EventMessageSeen = "message seen"
	EventLeave       = "leave"
)

// Server -> Client events.
const (
	EventMessage       = "message"
	EventRoomData      = "roomData"
	EventMessageStatus = "message status"
	EventAck           = "ack"
	EventError         = "error"
)

// EventPrivateMessage travels in both directions with different payloads.
const EventPrivateMessage = "private message"

// SystemName is the sender shown on welcome, joined and left notices.
const SystemName = "admin"

// InboundFrame is a frame received from a client. Ack, when present, is echoed on the
// acknowledgement so the client can match it to its request.
type InboundFrame struct {
	Event string          `json:"event"`
	Ack   string          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundFrame is a frame sent to a client.
type OutboundFrame struct {
	Event string `json:"event"`
	Ack   string `json:"ack,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// JoinRequest is the data of a join event.
type JoinRequest struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

// PrivateMessageRequest is the data of a client private message.
type PrivateMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// MessageSeenRequest is the data of a read receipt.
type MessageSeenRequest struct {
	MessageID string `json:"messageId"`
	Room      string `json:"room"`
}

// MessagePayload is a room message or a system notice.
type MessagePayload struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// RoomDataPayload is the roster of a room.
type RoomDataPayload struct {
	Room  string          `json:"room"`
	Users []registry.User `json:"users"`
}

// PrivateMessagePayload is delivered to the recipient of a private message only.
type PrivateMessagePayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// MessageStatusPayload announces that a user has seen a message.
type MessageStatusPayload struct {
	MessageID string    `json:"messageId"`
	SeenBy    string    `json:"seenBy"`
	Timestamp time.Time `json:"timestamp"`
}

// AckPayload acknowledges a client event; Error is empty on success.
type AckPayload struct {
	Error string `json:"error,omitempty"`
	Code  int    `json:"code,omitempty"`
}

func encodeFrame(event, ack string, data any) ([]byte, error) {
	return json.Marshal(OutboundFrame{Event: event, Ack: ack, Data: data})
}
