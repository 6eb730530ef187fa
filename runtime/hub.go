// Package runtime is the concurrency-bearing core: it tracks which
// users are connected, which connections subscribe to which
// conversations, and fans persisted messages and presence changes out
// to live connections. Business rules about who may talk to whom live
// outside; the core only registers, appends, and broadcasts.
package runtime

import (
	"context"
	"log/slog"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
)

// Hub is the connection lifecycle controller. Each connection moves
// through Connecting -> Connected -> Disconnected; Connect and
// Disconnect are the only transitions with presence side effects.
type Hub struct {
	log        *slog.Logger
	registry   contract.IRegistry
	groups     contract.IGroups
	dispatcher contract.IDispatcher
	store      contract.IStore
}

func NewHub(log *slog.Logger, registry contract.IRegistry, groups contract.IGroups,
	dispatcher contract.IDispatcher, store contract.IStore) *Hub {
	return &Hub{
		log:        log,
		registry:   registry,
		groups:     groups,
		dispatcher: dispatcher,
		store:      store,
	}
}

// Connect registers an established connection and announces the user
// online to everyone else. A connection without a resolved user id is
// accepted but never registered: it is excluded from presence.
func (h *Hub) Connect(ctx context.Context, conn contract.Connection) {
	userID := conn.UserID()
	if userID == "" {
		h.log.Debug("Anonymous connection accepted", "connection_id", conn.ID())
		return
	}
	h.registry.Register(userID, conn)
	h.log.Info("Connection registered", "connection_id", conn.ID(), "user_id", userID)
	h.dispatcher.ToOthers(ctx, conn.ID(), event.UserOnline{UserID: userID})
}

// Disconnect deregisters the connection, removes it from every group,
// and announces the user offline only when this was the user's last
// connection. A user with a second device open never flaps offline.
// Cleanup is unconditional: it runs whether the transport closed
// normally or the connection's handler failed.
func (h *Hub) Disconnect(ctx context.Context, conn contract.Connection) {
	userID, registered := h.registry.Deregister(conn)
	h.groups.LeaveAll(conn)
	if !registered {
		return
	}
	h.log.Info("Connection deregistered", "connection_id", conn.ID(), "user_id", userID)
	if !h.registry.IsOnline(userID) {
		h.dispatcher.ToOthers(ctx, conn.ID(), event.UserOffline{UserID: userID})
	}
}

// Join subscribes the connection to a conversation's live events.
// No presence effect.
func (h *Hub) Join(conversationID domain.ConversationID, conn contract.Connection) {
	h.groups.Join(conversationID, conn)
}

// Send persists the message, then fans it out to the conversation's
// group. On a failed append the error goes to the caller only: nothing
// is broadcast and the connection stays up. Sends from one connection
// arrive here sequentially (the transport's read loop is serial), so
// per-sender broadcast order follows append order.
func (h *Hub) Send(ctx context.Context, conversationID domain.ConversationID,
	senderID domain.UserID, content string) (domain.Message, error) {
	message, err := h.store.Append(ctx, conversationID, senderID, content)
	if err != nil {
		return domain.Message{}, err
	}
	h.dispatcher.ToGroup(ctx, conversationID, event.MessagePosted{Message: message})
	return message, nil
}

// OnlineUsers returns the users with at least one live connection.
func (h *Hub) OnlineUsers() []domain.UserID {
	return h.registry.ListOnlineUsers()
}
