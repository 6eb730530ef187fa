// Package event defines the transient events fanned out to live
// connections. None of these are persisted.
package event

import (
	"chat-core/domain"
)

type DomainEvent interface {
	EventName() string
}

// MessagePosted carries a durably persisted message to the members of
// its conversation group.
type MessagePosted struct {
	Message domain.Message
}

func (MessagePosted) EventName() string { return "message" }

// UserOnline is announced when a user's first connection registers.
type UserOnline struct {
	UserID domain.UserID
}

func (UserOnline) EventName() string { return "user_online" }

// UserOffline is announced when a user's last connection deregisters.
type UserOffline struct {
	UserID domain.UserID
}

func (UserOffline) EventName() string { return "user_offline" }
