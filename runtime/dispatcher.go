package runtime

import (
	"context"
	"log/slog"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
)

// Dispatcher fans events out to live connections.
//
// Delivery to an individual connection is best-effort: a failed write
// is logged and skipped, it never aborts delivery to the remaining
// members and never reaches the sender. The dispatcher only reads
// snapshots from the registry and the groups, it mutates neither.
type Dispatcher struct {
	log      *slog.Logger
	registry contract.IRegistry
	groups   contract.IGroups
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry, groups contract.IGroups) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, groups: groups}
}

// ToGroup delivers the event to every connection in the conversation's
// group at call time. Connections joining after the snapshot was taken
// receive nothing; there is no buffering.
func (d *Dispatcher) ToGroup(ctx context.Context, conversationID domain.ConversationID, e event.DomainEvent) {
	for _, conn := range d.groups.Members(conversationID) {
		d.deliver(ctx, conn, e)
	}
}

// ToOthers delivers a presence event to every registered connection
// except the originating one.
func (d *Dispatcher) ToOthers(ctx context.Context, exclude domain.ConnectionID, e event.DomainEvent) {
	for _, conn := range d.registry.Snapshot() {
		if conn.ID() == exclude {
			continue
		}
		d.deliver(ctx, conn, e)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, conn contract.Connection, e event.DomainEvent) {
	if err := conn.Consume(ctx, e); err != nil {
		d.log.Warn("Dropping event for connection",
			"connection_id", conn.ID(),
			"user_id", conn.UserID(),
			"event", e.EventName(),
			"error", err)
	}
}
