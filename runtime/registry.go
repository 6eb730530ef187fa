package runtime

import (
	"sync"

	"chat-core/contract"
	"chat-core/domain"
)

type connSet map[domain.ConnectionID]contract.Connection

// Registry owns the user to connection mapping. Two maps are kept in
// sync under one lock:
//  1. byUser resolves a user to every live connection, so presence is
//     a set-emptiness check.
//  2. byConn resolves a connection back to its owner, so deregistration
//     is a direct reverse lookup instead of a scan over all users.
//
// Registry is safe for concurrent use by arbitrarily many connection
// goroutines. No I/O happens while the lock is held.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]connSet
	byConn map[domain.ConnectionID]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[domain.UserID]connSet),
		byConn: make(map[domain.ConnectionID]domain.UserID),
	}
}

// Register adds the connection to the user's connection set. Adding the
// same connection twice is a no-op, never a duplicate.
func (r *Registry) Register(userID domain.UserID, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUser[userID]; !ok {
		r.byUser[userID] = make(connSet)
	}
	r.byUser[userID][conn.ID()] = conn
	r.byConn[conn.ID()] = userID
}

// Deregister removes the connection and returns the owning user.
// A connection that was already removed returns false, which is not an
// error: disconnect teardown racing with deregistration is expected.
func (r *Registry) Deregister(conn contract.Connection) (domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn.ID()]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn.ID())

	if conns, exists := r.byUser[userID]; exists {
		delete(conns, conn.ID())
		// No empty sets left behind, so IsOnline stays a map lookup.
		if len(conns) == 0 {
			delete(r.byUser, userID)
		}
	}
	return userID, true
}

// IsOnline is true iff at least one connection remains for the user.
func (r *Registry) IsOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// ListOnlineUsers returns the current set of users with at least one
// live connection.
func (r *Registry) ListOnlineUsers() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.UserID, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}

// Snapshot returns every registered connection at call time, for
// presence fan-out.
func (r *Registry) Snapshot() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []contract.Connection
	for _, set := range r.byUser {
		for _, conn := range set {
			conns = append(conns, conn)
		}
	}
	return conns
}
