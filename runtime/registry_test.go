package runtime

import (
	"fmt"
	"sync"
	"testing"

	"chat-core/domain"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_One_User_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := domain.UserID("alice")
	conn := newFakeConn(userID)

	// Given no user is connected
	req.Empty(registry.ListOnlineUsers())
	req.False(registry.IsOnline(userID))

	// When a connection registers
	registry.Register(userID, conn)

	// Then the user is online
	req.True(registry.IsOnline(userID))
	req.Equal([]domain.UserID{userID}, registry.ListOnlineUsers())
	req.Len(registry.Snapshot(), 1)
}

func TestRegistry_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := domain.UserID("alice")
	conn := newFakeConn(userID)

	// When the same connection registers twice
	registry.Register(userID, conn)
	registry.Register(userID, conn)

	// Then it is not duplicated
	req.Len(registry.Snapshot(), 1)

	// And a single deregistration takes the user offline
	owner, ok := registry.Deregister(conn)
	req.True(ok)
	req.Equal(userID, owner)
	req.False(registry.IsOnline(userID))
}

func TestRegistry_Deregister_Returns_Owner(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := domain.UserID("alice")
	conn := newFakeConn(userID)
	registry.Register(userID, conn)

	// When the connection deregisters
	owner, ok := registry.Deregister(conn)

	// Then the owning user is returned and no entry remains
	req.True(ok)
	req.Equal(userID, owner)
	req.Empty(registry.ListOnlineUsers())
	req.Empty(registry.Snapshot())
}

func TestRegistry_Deregister_Twice_Is_Not_An_Error(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("alice")
	registry.Register("alice", conn)

	_, ok := registry.Deregister(conn)
	req.True(ok)

	// Disconnect racing with deregistration is expected
	_, ok = registry.Deregister(conn)
	req.False(ok)
}

func TestRegistry_User_With_Two_Connections_Stays_Online(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := domain.UserID("alice")
	first := newFakeConn(userID)
	second := newFakeConn(userID)

	// Given a user with two simultaneous connections
	registry.Register(userID, first)
	registry.Register(userID, second)
	req.Len(registry.Snapshot(), 2)

	// When either one disconnects
	_, ok := registry.Deregister(second)
	req.True(ok)

	// Then the user remains online
	req.True(registry.IsOnline(userID))

	// And only after both disconnect the user is offline
	_, ok = registry.Deregister(first)
	req.True(ok)
	req.False(registry.IsOnline(userID))
	req.Empty(registry.ListOnlineUsers())
}

func TestRegistry_Online_Set_Matches_Registered_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given an arbitrary register/deregister sequence on disjoint users
	alice1 := newFakeConn("alice")
	alice2 := newFakeConn("alice")
	bob := newFakeConn("bob")
	clara := newFakeConn("clara")

	registry.Register("alice", alice1)
	registry.Register("alice", alice2)
	registry.Register("bob", bob)
	registry.Register("clara", clara)
	registry.Deregister(alice1)
	registry.Deregister(clara)

	// Then ListOnlineUsers equals the set of users with a live connection
	req.ElementsMatch([]domain.UserID{"alice", "bob"}, registry.ListOnlineUsers())
}

func TestRegistry_Concurrent_Register_Deregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	users := 50

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := domain.UserID(fmt.Sprintf("user-%d", i))
			keep := newFakeConn(userID)
			gone := newFakeConn(userID)
			registry.Register(userID, keep)
			registry.Register(userID, gone)
			registry.Deregister(gone)
		}(i)
	}
	wg.Wait()

	// Every user kept exactly one connection
	req.Len(registry.ListOnlineUsers(), users)
	req.Len(registry.Snapshot(), users)
}
