// Package domain contains core concepts of the messaging system.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"time"
)

// UserID is an opaque handle issued by the external auth layer.
// The core never creates or validates identities.
type UserID string

// ConnectionID identifies one live transport session. A user may hold
// zero or more connections at any time (multiple devices or tabs).
type ConnectionID string

type ConversationID int64

// Conversation is a persistent two-party message thread, optionally
// scoped to a job. At most one conversation exists per unordered
// participant pair and job context.
type Conversation struct {
	ID             ConversationID
	ParticipantA   UserID
	ParticipantB   UserID
	JobID          *int64
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// HasParticipant reports whether the user is one of the two parties.
func (c Conversation) HasParticipant(userID UserID) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}
