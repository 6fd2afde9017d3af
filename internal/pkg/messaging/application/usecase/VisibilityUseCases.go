package usecase

import (
	"context"
	"fmt"
	"time"

	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	repository "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/port"
)

// The visibility operations are single-row updates scoped to
// (conversation, viewer). The counterpart's view is never touched: that
// asymmetry is the core correctness property here.

// ClearConversationInput advances the viewer's cleared-before cursor to now.
type ClearConversationInput struct {
	ConversationID string
	ViewerID       string
}

// ClearConversationUseCase hides all prior messages from the viewer only.
// New messages from either party remain visible. The cursor is monotonic.
type ClearConversationUseCase struct {
	Repo  repository.MessagingRepository
	Cache cacheport.Cache // optional
	Now   func() time.Time
}

func NewClearConversationUseCase(repo repository.MessagingRepository, cache cacheport.Cache) *ClearConversationUseCase {
	return &ClearConversationUseCase{Repo: repo, Cache: cache, Now: time.Now}
}

func (uc *ClearConversationUseCase) Execute(ctx context.Context, in ClearConversationInput) error {
	if err := requireMembership(ctx, uc.Repo, in.ConversationID, in.ViewerID); err != nil {
		return err
	}
	if err := uc.Repo.SetClearedBefore(ctx, in.ConversationID, in.ViewerID, uc.Now().UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	invalidateInbox(ctx, uc.Cache, in.ViewerID)
	return nil
}

// HideConversationInput removes the conversation from the viewer's inbox.
type HideConversationInput struct {
	ConversationID string
	ViewerID       string
}

// HideConversationUseCase sets the viewer's hidden flag. The conversation
// row and the peer's view survive untouched; the flag drops again when the
// viewer sends into the thread or (per policy) on a fresh inbound message.
type HideConversationUseCase struct {
	Repo  repository.MessagingRepository
	Cache cacheport.Cache // optional
}

func NewHideConversationUseCase(repo repository.MessagingRepository, cache cacheport.Cache) *HideConversationUseCase {
	return &HideConversationUseCase{Repo: repo, Cache: cache}
}

func (uc *HideConversationUseCase) Execute(ctx context.Context, in HideConversationInput) error {
	if err := requireMembership(ctx, uc.Repo, in.ConversationID, in.ViewerID); err != nil {
		return err
	}
	if err := uc.Repo.SetHidden(ctx, in.ConversationID, in.ViewerID, true); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	invalidateInbox(ctx, uc.Cache, in.ViewerID)
	return nil
}

// MarkReadInput advances the viewer's read watermark for a conversation.
type MarkReadInput struct {
	ConversationID string
	ViewerID       string
}

// MarkReadUseCase records the best-effort read watermark used for unread
// counts. Opening a conversation triggers it.
type MarkReadUseCase struct {
	Repo  repository.MessagingRepository
	Cache cacheport.Cache // optional
	Now   func() time.Time
}

func NewMarkReadUseCase(repo repository.MessagingRepository, cache cacheport.Cache) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo, Cache: cache, Now: time.Now}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) error {
	if err := requireMembership(ctx, uc.Repo, in.ConversationID, in.ViewerID); err != nil {
		return err
	}
	if err := uc.Repo.SetLastReadAt(ctx, in.ConversationID, in.ViewerID, uc.Now().UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	invalidateInbox(ctx, uc.Cache, in.ViewerID)
	return nil
}

// BlockUserInput blocks all future messaging between the viewer and the user.
type BlockUserInput struct {
	ViewerID string
	UserID   string
}

// BlockUserUseCase records a block. Existing history is preserved; new
// sends and new conversations between the pair fail with ErrUserBlocked.
type BlockUserUseCase struct {
	Repo repository.MessagingRepository
}

func NewBlockUserUseCase(repo repository.MessagingRepository) *BlockUserUseCase {
	return &BlockUserUseCase{Repo: repo}
}

func (uc *BlockUserUseCase) Execute(ctx context.Context, in BlockUserInput) error {
	if in.ViewerID == "" || in.UserID == "" {
		return messaging.ErrNotParticipant
	}
	if in.ViewerID == in.UserID {
		return messaging.ErrSelfConversation
	}
	if err := uc.Repo.AddBlock(ctx, messaging.Block{BlockerID: in.ViewerID, BlockedID: in.UserID}); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func requireMembership(ctx context.Context, repo repository.MessagingRepository, conversationID, viewerID string) error {
	if conversationID == "" || viewerID == "" {
		return messaging.ErrConversationNotFound
	}
	conv, err := repo.GetConversation(ctx, conversationID)
	if err != nil {
		if err == messaging.ErrConversationNotFound {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !conv.HasParticipant(viewerID) {
		return messaging.ErrNotParticipant
	}
	return nil
}
