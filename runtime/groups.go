package runtime

import (
	"sync"

	"chat-core/contract"
	"chat-core/domain"
)

// Groups owns the conversation to connection mapping. Like the
// Registry it maintains a reverse map, connection to conversation set,
// so that LeaveAll on disconnect touches only the groups the
// connection actually joined.
//
// Membership is independent of presence: an unauthenticated connection
// may join a group, and a connection may belong to zero, one, or many
// groups over its lifetime.
type Groups struct {
	mu             sync.RWMutex
	byConversation map[domain.ConversationID]connSet
	byConn         map[domain.ConnectionID]map[domain.ConversationID]struct{}
}

func NewGroups() *Groups {
	return &Groups{
		byConversation: make(map[domain.ConversationID]connSet),
		byConn:         make(map[domain.ConnectionID]map[domain.ConversationID]struct{}),
	}
}

// Join adds the connection to the conversation's group. Joining twice
// is a no-op.
func (g *Groups) Join(conversationID domain.ConversationID, conn contract.Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.byConversation[conversationID]; !ok {
		g.byConversation[conversationID] = make(connSet)
	}
	g.byConversation[conversationID][conn.ID()] = conn

	if _, ok := g.byConn[conn.ID()]; !ok {
		g.byConn[conn.ID()] = make(map[domain.ConversationID]struct{})
	}
	g.byConn[conn.ID()][conversationID] = struct{}{}
}

// LeaveAll removes the connection from every group it belongs to.
// Called once per disconnect; calling it for an unknown connection is
// a no-op.
func (g *Groups) LeaveAll(conn contract.Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for conversationID := range g.byConn[conn.ID()] {
		if members, ok := g.byConversation[conversationID]; ok {
			delete(members, conn.ID())
			// Empty groups are removed entirely to avoid leaking map
			// entries for long-dead conversations.
			if len(members) == 0 {
				delete(g.byConversation, conversationID)
			}
		}
	}
	delete(g.byConn, conn.ID())
}

// Members returns a snapshot of the group's current connections for
// delivery. Connections joining after the snapshot do not appear.
func (g *Groups) Members(conversationID domain.ConversationID) []contract.Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	members, ok := g.byConversation[conversationID]
	if !ok {
		return nil
	}
	conns := make([]contract.Connection, 0, len(members))
	for _, conn := range members {
		conns = append(conns, conn)
	}
	return conns
}
