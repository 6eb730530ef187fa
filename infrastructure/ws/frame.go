package ws

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

const (
	frameJoin       = "join"
	frameSend       = "send"
	frameListOnline = "list_online"
)

// clientFrame is one inbound operation over the live connection.
type clientFrame struct {
	Type           string `json:"type" validate:"required,oneof=join send list_online"`
	ConversationID int64  `json:"conversation_id" validate:"required_unless=Type list_online"`
	Content        string `json:"content" validate:"required_if=Type send"`
}

func decodeClientFrame(raw []byte) (clientFrame, error) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return clientFrame{}, fmt.Errorf("%w: %v", errors.ErrInvalidFrame, err)
	}
	if err := validate.Struct(frame); err != nil {
		return clientFrame{}, fmt.Errorf("%w: %v", errors.ErrInvalidFrame, err)
	}
	return frame, nil
}

type messagePayload struct {
	ID             string    `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
}

type serverFrame struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id,omitempty"`
	Message   *messagePayload `json:"message,omitempty"`
	UserIDs   []string        `json:"user_ids,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	ErrorText string          `json:"error,omitempty"`
}

// encodeEvent maps a domain event to its wire frame.
func encodeEvent(e event.DomainEvent) ([]byte, error) {
	switch evt := e.(type) {
	case event.MessagePosted:
		return json.Marshal(serverFrame{
			Type:    evt.EventName(),
			Message: lo.ToPtr(toMessagePayload(evt.Message)),
		})
	case event.UserOnline:
		return json.Marshal(serverFrame{Type: evt.EventName(), UserID: string(evt.UserID)})
	case event.UserOffline:
		return json.Marshal(serverFrame{Type: evt.EventName(), UserID: string(evt.UserID)})
	default:
		return nil, fmt.Errorf("unknown event type %q", e.EventName())
	}
}

func encodeOnlineUsers(userIDs []domain.UserID) ([]byte, error) {
	return json.Marshal(serverFrame{
		Type: "online_users",
		UserIDs: lo.Map(userIDs, func(id domain.UserID, _ int) string {
			return string(id)
		}),
	})
}

// encodeError maps core errors to wire error codes. Errors are sent to
// the offending connection only, never broadcast.
func encodeError(err error) []byte {
	frame := serverFrame{Type: "error", ErrorCode: errorCode(err), ErrorText: err.Error()}
	data, marshalErr := json.Marshal(frame)
	if marshalErr != nil {
		return []byte(`{"type":"error","error_code":"internal"}`)
	}
	return data
}

func errorCode(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrConversationNotFound), stderrors.Is(err, errors.ErrMessageNotFound):
		return "not_found"
	case stderrors.Is(err, errors.ErrEmptyContent), stderrors.Is(err, errors.ErrInvalidFrame):
		return "validation"
	case stderrors.Is(err, errors.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "persistence"
	}
}

func toMessagePayload(m domain.Message) messagePayload {
	return messagePayload{
		ID:             m.ID.String(),
		ConversationID: int64(m.ConversationID),
		SenderID:       string(m.SenderID),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Read:           m.Read,
	}
}
