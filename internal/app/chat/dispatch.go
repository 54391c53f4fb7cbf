package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/metrics"
)

// HandleFrame decodes one client frame, runs the matching event and returns the reply
// frame to send back to this connection, or nil when no reply is due.
// Events with an ack id always get an ack; failures without one get an error frame.
func (s *Session) HandleFrame(ctx context.Context, raw []byte) []byte {
	var in InboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		s.logger.Warn().Err(err).Int("frame_bytes", len(raw)).Msg("Client sent invalid JSON frame.")
		metrics.EventsTotal.WithLabelValues("invalid", errs.KindValidation.String()).Inc()
		return s.reply(EventError, "", errs.NewError(errs.ErrInvalidJSONFormat))
	}

	err := s.dispatch(ctx, in)
	metrics.EventsTotal.WithLabelValues(eventLabel(in.Event), outcome(err)).Inc()

	if err != nil {
		s.logger.Debug().Err(err).Str("event", in.Event).Msg("Event rejected.")
	}

	if in.Ack != "" {
		return s.reply(EventAck, in.Ack, err)
	}
	if err != nil {
		return s.reply(EventError, "", err)
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, in InboundFrame) error {
	switch in.Event {
	case EventJoin:
		var req JoinRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		return s.Join(ctx, req.Name, req.Room)

	case EventSendMessage:
		text, err := decodeText(in.Data)
		if err != nil {
			return err
		}
		return s.SendMessage(ctx, text)

	case EventPrivateMessage:
		var req PrivateMessageRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		return s.PrivateMessage(ctx, req.To, req.Message)

	case EventMessageSeen:
		var req MessageSeenRequest
		if err := decodeData(in.Data, &req); err != nil {
			return err
		}
		return s.MessageSeen(ctx, req.MessageID, req.Room)

	case EventLeave:
		s.Leave()
		return nil

	default:
		return errs.NewError(errs.ErrUnsupportedEvent, in.Event)
	}
}

// reply encodes an ack or error frame carrying err, if any.
func (s *Session) reply(event, ack string, err error) []byte {
	payload := AckPayload{}
	if err != nil {
		var customErr *errs.CustomError
		if !errors.As(err, &customErr) {
			customErr = errs.NewError(errs.ErrUnknown, err)
		}
		payload.Error = customErr.Message
		payload.Code = customErr.Code
	}

	frame, encErr := encodeFrame(event, ack, payload)
	if encErr != nil {
		s.logger.Error().Err(encErr).Msg("Failed to encode reply frame.")
		return nil
	}
	return frame
}

// decodeData unmarshals optional event data; absent data leaves v at its zero value.
func decodeData(raw json.RawMessage, v any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// decodeText accepts a message body sent either as a bare JSON string or as {"text": "..."}.
func decodeText(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var wrapped struct {
		Text string `json:"text"`
	}
	if err := decodeData(raw, &wrapped); err != nil {
		return "", err
	}
	return wrapped.Text, nil
}

func eventLabel(event string) string {
	switch event {
	case EventJoin, EventSendMessage, EventPrivateMessage, EventMessageSeen, EventLeave:
		return event
	default:
		return "unknown"
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errs.KindOf(err).String()
}
