package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	repository "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/port"
)

// inboxTTL bounds staleness of a cached conversation list between
// invalidations.
const inboxTTL = 30 * time.Second

func inboxCacheKey(viewerID string) string {
	return "messaging:inbox:" + viewerID
}

// invalidateInbox drops cached conversation lists for the given viewers.
// Best-effort: a cache failure never fails the calling operation.
func invalidateInbox(ctx context.Context, cache cacheport.Cache, viewerIDs ...string) {
	if cache == nil || len(viewerIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(viewerIDs))
	for _, id := range viewerIDs {
		if id != "" {
			keys = append(keys, inboxCacheKey(id))
		}
	}
	_, _ = cache.Del(ctx, keys...)
}

// ListConversationsInput identifies the viewer whose inbox to fetch.
type ListConversationsInput struct {
	ViewerID string
}

// ListConversationsUseCase serves the viewer's inbox: last-activity
// descending, hidden conversations excluded, each entry carrying peer id,
// preview and unread count. A cache-aside snapshot avoids re-running the
// aggregate query on every poll; writes invalidate it.
type ListConversationsUseCase struct {
	Repo  repository.MessagingRepository
	Cache cacheport.Cache // optional
}

func NewListConversationsUseCase(repo repository.MessagingRepository, cache cacheport.Cache) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Cache: cache}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]messaging.ConversationView, error) {
	if in.ViewerID == "" {
		return nil, messaging.ErrUnauthenticated
	}

	if uc.Cache != nil {
		if raw, err := uc.Cache.Get(ctx, inboxCacheKey(in.ViewerID)); err == nil {
			var views []messaging.ConversationView
			if json.Unmarshal([]byte(raw), &views) == nil {
				return views, nil
			}
		} else if !errors.Is(err, cacheport.ErrMiss) {
			// Transport errors degrade to a direct read.
			_ = err
		}
	}

	views, err := uc.Repo.ListConversations(ctx, in.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Cache != nil {
		if raw, err := json.Marshal(views); err == nil {
			_ = uc.Cache.Set(ctx, inboxCacheKey(in.ViewerID), string(raw), inboxTTL)
		}
	}
	return views, nil
}
