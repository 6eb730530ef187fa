// This file defines Message entities and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one persisted chat message. CreatedAt is assigned
// by the store and strictly increases within a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID ConversationID
	SenderID       UserID
	Content        string
	CreatedAt      time.Time
	Read           bool
}
