package usecase

import (
	"context"
	"fmt"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	repository "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/port"
)

// StartConversationInput carries the pair to resolve into a conversation.
type StartConversationInput struct {
	ViewerID string
	PeerID   string
}

// StartConversationUseCase resolves the canonical conversation for a pair of
// users, creating it on first contact. Idempotent under concurrent calls from
// both sides: the repository recovers create races via read-repair, so a
// duplicate-pair conflict never surfaces to the caller.
type StartConversationUseCase struct {
	Repo repository.MessagingRepository
}

func NewStartConversationUseCase(repo repository.MessagingRepository) *StartConversationUseCase {
	return &StartConversationUseCase{Repo: repo}
}

func (uc *StartConversationUseCase) Execute(ctx context.Context, in StartConversationInput) (*messaging.Conversation, error) {
	if _, _, err := messaging.CanonicalPair(in.ViewerID, in.PeerID); err != nil {
		return nil, err
	}

	block, err := uc.Repo.GetBlock(ctx, in.ViewerID, in.PeerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if block.Covers(in.ViewerID, in.PeerID) {
		return nil, messaging.ErrUserBlocked
	}

	conv, _, err := uc.Repo.GetOrCreateConversation(ctx, in.ViewerID, in.PeerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return conv, nil
}
