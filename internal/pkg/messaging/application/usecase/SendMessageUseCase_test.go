package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
)

func seedConversation(t *testing.T, repo *fakeRepo, a, b string) *messaging.Conversation {
	t.Helper()
	conv, _, err := repo.GetOrCreateConversation(context.Background(), a, b)
	require.NoError(t, err)
	return conv
}

func TestSendMessagePersistsAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	uc := NewSendMessageUseCase(repo, notifier, nil)
	conv := seedConversation(t, repo, "alice", "bob")

	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Body:           "  hello bob  ",
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.NotEmpty(t, msg.ID, "store assigns the id")
	assert.False(t, msg.CreatedAt.IsZero(), "store assigns the timestamp")
	assert.Equal(t, "hello bob", msg.Body, "body is trimmed before persisting")

	calls := notifier.callsFor(conv.ID)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"bob"}, calls[0].recipients)
	assert.Equal(t, msg.ID, calls[0].message.ID)

	// Watermark advanced to the message timestamp.
	stored, err := repo.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.CreatedAt, stored.LastActivityAt)
}

func TestSendMessageConcurrentFanOutFollowsPersistOrder(t *testing.T) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	uc := NewSendMessageUseCase(repo, notifier, nil)
	conv := seedConversation(t, repo, "alice", "bob")

	// A burst of concurrent sends into one conversation: the per-conversation
	// lock holds append and fan-out together, so notification order must
	// match the stored order exactly.
	const burst = 16
	var wg sync.WaitGroup
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), SendMessageInput{
				ConversationID: conv.ID,
				SenderID:       "alice",
				Body:           fmt.Sprintf("burst %d", n),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored := repo.msgs[conv.ID]
	calls := notifier.callsFor(conv.ID)
	require.Len(t, stored, burst)
	require.Len(t, calls, burst)
	for i := range stored {
		assert.Equal(t, stored[i].ID, calls[i].message.ID)
	}
}

func TestSendMessageValidation(t *testing.T) {
	repo := newFakeRepo()
	uc := NewSendMessageUseCase(repo, nil, nil)
	conv := seedConversation(t, repo, "alice", "bob")

	_, err := uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, SenderID: "alice", Body: "   "})
	assert.ErrorIs(t, err, messaging.ErrEmptyMessage)

	_, err = uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, SenderID: "mallory", Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrNotParticipant)

	_, err = uc.Execute(context.Background(), SendMessageInput{ConversationID: "conv-missing", SenderID: "alice", Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrConversationNotFound)
}

func TestSendMessageBlockedPair(t *testing.T) {
	repo := newFakeRepo()
	uc := NewSendMessageUseCase(repo, nil, nil)
	conv := seedConversation(t, repo, "alice", "bob")
	require.NoError(t, repo.AddBlock(context.Background(), messaging.Block{BlockerID: "bob", BlockedID: "alice"}))

	// Neither side can send over the existing conversation.
	_, err := uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, SenderID: "alice", Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrUserBlocked)
	_, err = uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, SenderID: "bob", Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrUserBlocked)
}

func TestSendMessageResurfacesHiddenThreads(t *testing.T) {
	repo := newFakeRepo()
	uc := NewSendMessageUseCase(repo, nil, nil)
	conv := seedConversation(t, repo, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, repo.SetHidden(ctx, conv.ID, "alice", true))
	require.NoError(t, repo.SetHidden(ctx, conv.ID, "bob", true))

	_, err := uc.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "alice", Body: "ping"})
	require.NoError(t, err)

	sender, err := repo.ParticipantState(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.False(t, sender.Hidden, "sending always resurfaces the sender")

	peer, err := repo.ParticipantState(ctx, conv.ID, "bob")
	require.NoError(t, err)
	assert.False(t, peer.Hidden, "inbound resurfaces the recipient under the default policy")
}

func TestSendMessagePolicyKeepsPeerHidden(t *testing.T) {
	repo := newFakeRepo()
	uc := NewSendMessageUseCase(repo, nil, nil)
	uc.Policy = messaging.VisibilityPolicy{ResurfaceOnInbound: false}
	conv := seedConversation(t, repo, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, repo.SetHidden(ctx, conv.ID, "bob", true))
	_, err := uc.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "alice", Body: "ping"})
	require.NoError(t, err)

	peer, err := repo.ParticipantState(ctx, conv.ID, "bob")
	require.NoError(t, err)
	assert.True(t, peer.Hidden)
}

func TestSendMessageNoRetryOnPersistFailure(t *testing.T) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	uc := NewSendMessageUseCase(repo, notifier, nil)
	conv := seedConversation(t, repo, "alice", "bob")

	repo.failAppend = errors.New("connection reset")
	_, err := uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, SenderID: "alice", Body: "hi"})
	require.ErrorIs(t, err, ErrPersistence)

	// The failure surfaces once: nothing was stored and nothing fanned out.
	assert.Empty(t, repo.msgs[conv.ID])
	assert.Empty(t, notifier.callsFor(conv.ID))
}

func TestSendMessageInvalidatesInboxSnapshots(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	uc := NewSendMessageUseCase(repo, nil, cache)
	conv := seedConversation(t, repo, "alice", "bob")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, inboxCacheKey("alice"), "[]", inboxTTL))
	require.NoError(t, cache.Set(ctx, inboxCacheKey("bob"), "[]", inboxTTL))

	_, err := uc.Execute(ctx, SendMessageInput{ConversationID: conv.ID, SenderID: "alice", Body: "hi"})
	require.NoError(t, err)

	_, err = cache.Get(ctx, inboxCacheKey("alice"))
	assert.Error(t, err, "sender snapshot dropped")
	_, err = cache.Get(ctx, inboxCacheKey("bob"))
	assert.Error(t, err, "recipient snapshot dropped")
}
