package usecase

import (
	"context"
	"fmt"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	repository "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/port"
)

// DefaultPageSize is the backward-pagination window size.
const DefaultPageSize = 20

// ListMessagesInput fetches one backward page of a conversation for a viewer.
// Before nil means the newest page.
type ListMessagesInput struct {
	ConversationID string
	ViewerID       string
	Before         *messaging.MessageCursor
	Limit          int
}

// ListMessagesUseCase serves backward-paged message windows: strictly older
// than the cursor, filtered by the viewer's cleared-before marker, ascending
// by created-at for display. Requesting the same cursor twice returns the
// same page.
type ListMessagesUseCase struct {
	Repo repository.MessagingRepository
}

func NewListMessagesUseCase(repo repository.MessagingRepository) *ListMessagesUseCase {
	return &ListMessagesUseCase{Repo: repo}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, in ListMessagesInput) ([]messaging.Message, error) {
	if in.ConversationID == "" || in.ViewerID == "" {
		return nil, messaging.ErrConversationNotFound
	}
	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		if err == messaging.ErrConversationNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(in.ViewerID) {
		return nil, messaging.ErrNotParticipant
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	msgs, err := uc.Repo.ListMessagesBefore(ctx, in.ConversationID, in.ViewerID, in.Before, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
