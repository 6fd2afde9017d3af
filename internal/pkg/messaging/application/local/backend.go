// Package local wires the messaging use cases into the in-process backend
// and subscriber consumed by session state machines running inside the same
// binary. A remote deployment would swap these for HTTP/websocket clients
// with the same shape.
package local

import (
	"context"

	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/usecase"
	repository "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/port"
)

// Backend satisfies session.Backend by calling the use cases directly.
type Backend struct {
	start    *usecase.StartConversationUseCase
	list     *usecase.ListConversationsUseCase
	messages *usecase.ListMessagesUseCase
	send     *usecase.SendMessageUseCase
	clear    *usecase.ClearConversationUseCase
	hide     *usecase.HideConversationUseCase
	block    *usecase.BlockUserUseCase
	markRead *usecase.MarkReadUseCase
}

func NewBackend(repo repository.MessagingRepository, cache cacheport.Cache, notifier usecase.MessageNotifier) *Backend {
	return &Backend{
		start:    usecase.NewStartConversationUseCase(repo),
		list:     usecase.NewListConversationsUseCase(repo, cache),
		messages: usecase.NewListMessagesUseCase(repo),
		send:     usecase.NewSendMessageUseCase(repo, notifier, cache),
		clear:    usecase.NewClearConversationUseCase(repo, cache),
		hide:     usecase.NewHideConversationUseCase(repo, cache),
		block:    usecase.NewBlockUserUseCase(repo),
		markRead: usecase.NewMarkReadUseCase(repo, cache),
	}
}

func (b *Backend) ListConversations(ctx context.Context, viewerID string) ([]messaging.ConversationView, error) {
	return b.list.Execute(ctx, usecase.ListConversationsInput{ViewerID: viewerID})
}

func (b *Backend) ListMessages(ctx context.Context, conversationID, viewerID string, before *messaging.MessageCursor, limit int) ([]messaging.Message, error) {
	return b.messages.Execute(ctx, usecase.ListMessagesInput{
		ConversationID: conversationID,
		ViewerID:       viewerID,
		Before:         before,
		Limit:          limit,
	})
}

func (b *Backend) Send(ctx context.Context, conversationID, viewerID, body string) (*messaging.Message, error) {
	return b.send.Execute(ctx, usecase.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       viewerID,
		Body:           body,
	})
}

func (b *Backend) StartConversation(ctx context.Context, viewerID, peerID string) (*messaging.Conversation, error) {
	return b.start.Execute(ctx, usecase.StartConversationInput{ViewerID: viewerID, PeerID: peerID})
}

func (b *Backend) Clear(ctx context.Context, conversationID, viewerID string) error {
	return b.clear.Execute(ctx, usecase.ClearConversationInput{ConversationID: conversationID, ViewerID: viewerID})
}

func (b *Backend) Hide(ctx context.Context, conversationID, viewerID string) error {
	return b.hide.Execute(ctx, usecase.HideConversationInput{ConversationID: conversationID, ViewerID: viewerID})
}

func (b *Backend) Block(ctx context.Context, viewerID, userID string) error {
	return b.block.Execute(ctx, usecase.BlockUserInput{ViewerID: viewerID, UserID: userID})
}

func (b *Backend) MarkRead(ctx context.Context, conversationID, viewerID string) error {
	return b.markRead.Execute(ctx, usecase.MarkReadInput{ConversationID: conversationID, ViewerID: viewerID})
}
