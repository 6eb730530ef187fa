package runtime

import (
	"context"
	"sync"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"

	"github.com/google/uuid"
)

// fakeConn records delivered events in memory. failing simulates a
// dead transport whose writes always error.
type fakeConn struct {
	id      domain.ConnectionID
	userID  domain.UserID
	failing bool

	mu     sync.Mutex
	events []event.DomainEvent
}

func newFakeConn(userID domain.UserID) *fakeConn {
	return &fakeConn{id: domain.ConnectionID(uuid.NewString()), userID: userID}
}

func (c *fakeConn) ID() domain.ConnectionID { return c.id }
func (c *fakeConn) UserID() domain.UserID   { return c.userID }

func (c *fakeConn) Consume(_ context.Context, e event.DomainEvent) error {
	if c.failing {
		return errors.ErrDelivery
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *fakeConn) Events() []event.DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.DomainEvent(nil), c.events...)
}
