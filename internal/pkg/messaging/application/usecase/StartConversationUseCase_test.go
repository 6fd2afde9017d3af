package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
)

func TestStartConversationIdempotent(t *testing.T) {
	repo := newFakeRepo()
	uc := NewStartConversationUseCase(repo)
	ctx := context.Background()

	first, err := uc.Execute(ctx, StartConversationInput{ViewerID: "bob", PeerID: "alice"})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "alice", first.ParticipantLo)
	assert.Equal(t, "bob", first.ParticipantHi)

	// Same pair from the other side resolves to the same row.
	second, err := uc.Execute(ctx, StartConversationInput{ViewerID: "alice", PeerID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestStartConversationRecoversLostCreateRace(t *testing.T) {
	repo := newFakeRepo()
	repo.raceCreate = true
	uc := NewStartConversationUseCase(repo)
	ctx := context.Background()

	// The insert conflicts because the other side created the row between
	// lookup and insert; the loser re-reads instead of failing.
	conv, err := uc.Execute(ctx, StartConversationInput{ViewerID: "bob", PeerID: "alice"})
	require.NoError(t, err)
	require.NotNil(t, conv)

	again, err := uc.Execute(ctx, StartConversationInput{ViewerID: "alice", PeerID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
	assert.Len(t, repo.convs, 1)
}

func TestStartConversationConcurrentCallersShareOneRow(t *testing.T) {
	repo := newFakeRepo()
	uc := NewStartConversationUseCase(repo)

	const callers = 16
	ids := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		viewer, peer := "alice", "bob"
		if i%2 == 0 {
			viewer, peer = peer, viewer
		}
		wg.Add(1)
		go func(viewer, peer string) {
			defer wg.Done()
			conv, err := uc.Execute(context.Background(), StartConversationInput{ViewerID: viewer, PeerID: peer})
			assert.NoError(t, err)
			if conv != nil {
				ids <- conv.ID
			}
		}(viewer, peer)
	}
	wg.Wait()
	close(ids)

	distinct := make(map[string]struct{})
	for id := range ids {
		distinct[id] = struct{}{}
	}
	assert.Len(t, distinct, 1, "every caller resolves to the same conversation")
	assert.Len(t, repo.convs, 1)
}

func TestStartConversationRejectsSelf(t *testing.T) {
	uc := NewStartConversationUseCase(newFakeRepo())

	_, err := uc.Execute(context.Background(), StartConversationInput{ViewerID: "alice", PeerID: "alice"})
	assert.ErrorIs(t, err, messaging.ErrSelfConversation)
}

func TestStartConversationBlocked(t *testing.T) {
	repo := newFakeRepo()
	require.NoError(t, repo.AddBlock(context.Background(), messaging.Block{BlockerID: "alice", BlockedID: "bob"}))
	uc := NewStartConversationUseCase(repo)

	// Blocked in either direction.
	_, err := uc.Execute(context.Background(), StartConversationInput{ViewerID: "bob", PeerID: "alice"})
	assert.ErrorIs(t, err, messaging.ErrUserBlocked)
	_, err = uc.Execute(context.Background(), StartConversationInput{ViewerID: "alice", PeerID: "bob"})
	assert.ErrorIs(t, err, messaging.ErrUserBlocked)

	// Unrelated pairs are unaffected.
	_, err = uc.Execute(context.Background(), StartConversationInput{ViewerID: "alice", PeerID: "carol"})
	assert.NoError(t, err)
}
