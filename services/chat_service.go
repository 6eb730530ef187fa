package services

import (
	"context"

	"chat-core/contract"
	"chat-core/domain"
)

// ChatService is the surface the transport layer and the external REST
// layer consume. The live core behind it only appends and broadcasts;
// history and conversation opening exist for the request/response side.
type ChatService struct {
	hub   contract.IChatHub
	store contract.IStore
}

func NewChatService(hub contract.IChatHub, store contract.IStore) *ChatService {
	return &ChatService{hub: hub, store: store}
}

func (s *ChatService) Connect(ctx context.Context, conn contract.Connection) {
	s.hub.Connect(ctx, conn)
}

func (s *ChatService) Disconnect(ctx context.Context, conn contract.Connection) {
	s.hub.Disconnect(ctx, conn)
}

func (s *ChatService) Join(conversationID domain.ConversationID, conn contract.Connection) {
	s.hub.Join(conversationID, conn)
}

func (s *ChatService) Send(ctx context.Context, conversationID domain.ConversationID,
	senderID domain.UserID, content string) (domain.Message, error) {
	return s.hub.Send(ctx, conversationID, senderID, content)
}

func (s *ChatService) OnlineUsers() []domain.UserID {
	return s.hub.OnlineUsers()
}

func (s *ChatService) OpenConversation(ctx context.Context, a, b domain.UserID, jobID *int64) (domain.Conversation, error) {
	return s.store.OpenConversation(ctx, a, b, jobID)
}

func (s *ChatService) History(ctx context.Context, conversationID domain.ConversationID, cursor *string) ([]domain.Message, *string, error) {
	return s.store.GetMessages(ctx, conversationID, cursor)
}

func (s *ChatService) MarkRead(ctx context.Context, conversationID domain.ConversationID, messageID string) error {
	return s.store.MarkRead(ctx, conversationID, messageID)
}
