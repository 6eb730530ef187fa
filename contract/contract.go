//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-core/domain"
	"chat-core/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself. The supervisor recovers its panics.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one live transport session. Consume delivers an event
// to the session; a failed Consume concerns this session only and must
// never abort delivery to other connections.
type Connection interface {
	ID() domain.ConnectionID
	UserID() domain.UserID
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry owns the user to connection mapping. Mutations are
// linearizable across concurrent connect/disconnect calls and never
// block on I/O while holding the internal lock.
type IRegistry interface {
	Register(userID domain.UserID, conn Connection)
	Deregister(conn Connection) (domain.UserID, bool)
	IsOnline(userID domain.UserID) bool
	ListOnlineUsers() []domain.UserID
	Snapshot() []Connection
}

// IGroups owns the conversation to connection mapping. Membership is
// independent of presence state.
type IGroups interface {
	Join(conversationID domain.ConversationID, conn Connection)
	LeaveAll(conn Connection)
	Members(conversationID domain.ConversationID) []Connection
}

type IDispatcher interface {
	ToGroup(ctx context.Context, conversationID domain.ConversationID, e event.DomainEvent)
	ToOthers(ctx context.Context, exclude domain.ConnectionID, e event.DomainEvent)
}

// IStore is the durable-append gateway over the message log. Append
// must be durable before it returns success: the dispatcher treats a
// returned Message as authoritative and broadcasts it immediately
// after.
type IStore interface {
	OpenConversation(ctx context.Context, a, b domain.UserID, jobID *int64) (domain.Conversation, error)
	GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error)
	Append(ctx context.Context, conversationID domain.ConversationID, senderID domain.UserID, content string) (domain.Message, error)
	GetMessages(ctx context.Context, conversationID domain.ConversationID, cursor *string) ([]domain.Message, *string, error)
	MarkRead(ctx context.Context, conversationID domain.ConversationID, messageID string) error
}

// IChatHub is the connection lifecycle controller: the live-core
// operations tied to a single connection.
type IChatHub interface {
	Connect(ctx context.Context, conn Connection)
	Disconnect(ctx context.Context, conn Connection)
	Join(conversationID domain.ConversationID, conn Connection)
	Send(ctx context.Context, conversationID domain.ConversationID, senderID domain.UserID, content string) (domain.Message, error)
	OnlineUsers() []domain.UserID
}

// IChatService is the surface consumed by the transport layer and by
// the external REST layer: the hub operations plus the
// request/response collaborator operations.
type IChatService interface {
	IChatHub
	OpenConversation(ctx context.Context, a, b domain.UserID, jobID *int64) (domain.Conversation, error)
	History(ctx context.Context, conversationID domain.ConversationID, cursor *string) ([]domain.Message, *string, error)
	MarkRead(ctx context.Context, conversationID domain.ConversationID, messageID string) error
}
