package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
)

// fakeRepo is an in-memory MessagingRepository honoring the same invariants
// as the postgres adapter: canonical-pair uniqueness, atomic append+bump,
// monotonic cursors.
type fakeRepo struct {
	mu     sync.Mutex
	convs  map[string]*messaging.Conversation
	byPair map[string]string
	states map[string]*messaging.ParticipantState
	msgs   map[string][]messaging.Message
	blocks []messaging.Block
	nextID int
	clock  time.Time

	failAppend error
	// raceCreate makes the next create lose the insert race: a competing
	// creator materializes the row first, exercising the read-repair path.
	raceCreate bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		convs:  make(map[string]*messaging.Conversation),
		byPair: make(map[string]string),
		states: make(map[string]*messaging.ParticipantState),
		msgs:   make(map[string][]messaging.Message),
		clock:  time.Now().UTC(),
	}
}

func stateKey(conversationID, userID string) string {
	return conversationID + "|" + userID
}

func (f *fakeRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

func (f *fakeRepo) GetOrCreateConversation(ctx context.Context, userA, userB string) (*messaging.Conversation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lo, hi, err := messaging.CanonicalPair(userA, userB)
	if err != nil {
		return nil, false, err
	}
	pair := lo + "|" + hi
	if id, ok := f.byPair[pair]; ok {
		c := *f.convs[id]
		return &c, false, nil
	}
	if f.raceCreate {
		// The competing side wins the insert; this call's insert conflicts
		// and is repaired by re-reading the winner's row.
		f.raceCreate = false
		f.createLocked(lo, hi)
		c := *f.convs[f.byPair[pair]]
		return &c, false, nil
	}
	c := f.createLocked(lo, hi)
	out := *c
	return &out, true, nil
}

func (f *fakeRepo) createLocked(lo, hi string) *messaging.Conversation {
	f.nextID++
	now := f.tick()
	c := &messaging.Conversation{
		ID:             fmt.Sprintf("conv-%d", f.nextID),
		ParticipantLo:  lo,
		ParticipantHi:  hi,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	f.convs[c.ID] = c
	f.byPair[lo+"|"+hi] = c.ID
	return c
}

func (f *fakeRepo) GetConversation(ctx context.Context, id string) (*messaging.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, messaging.ErrConversationNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeRepo) ListConversations(ctx context.Context, viewerID string) ([]messaging.ConversationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var views []messaging.ConversationView
	for _, c := range f.convs {
		if !c.HasParticipant(viewerID) {
			continue
		}
		st := f.stateLocked(c.ID, viewerID)
		if st.Hidden {
			continue
		}
		v := messaging.ConversationView{ID: c.ID, PeerID: c.PeerOf(viewerID), LastActivityAt: c.LastActivityAt}
		for _, m := range f.msgs[c.ID] {
			if !st.Sees(m) {
				continue
			}
			body := m.Body
			v.LastMessage = &body
			if m.SenderID != viewerID && (st.LastReadAt == nil || m.CreatedAt.After(*st.LastReadAt)) {
				v.Unread++
			}
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].LastActivityAt.After(views[j].LastActivityAt)
	})
	return views, nil
}

func (f *fakeRepo) AppendMessage(ctx context.Context, m messaging.Message, unhideUserIDs []string) (*messaging.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend != nil {
		return nil, f.failAppend
	}
	c, ok := f.convs[m.ConversationID]
	if !ok {
		return nil, messaging.ErrConversationNotFound
	}
	f.nextID++
	m.ID = fmt.Sprintf("msg-%d", f.nextID)
	m.CreatedAt = f.tick()
	f.msgs[m.ConversationID] = append(f.msgs[m.ConversationID], m)
	c.Touch(m.CreatedAt)
	for _, uid := range unhideUserIDs {
		if uid != "" {
			f.stateLocked(m.ConversationID, uid).Resurface()
		}
	}
	out := m
	return &out, nil
}

func (f *fakeRepo) ListMessagesBefore(ctx context.Context, conversationID, viewerID string, before *messaging.MessageCursor, limit int) ([]messaging.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	st := f.stateLocked(conversationID, viewerID)
	all := f.msgs[conversationID]

	// Keyset "strictly older" in (created_at, id) order, same as the
	// postgres adapter's row comparison.
	olderThanCursor := func(m messaging.Message) bool {
		if before == nil {
			return true
		}
		if m.CreatedAt.Before(before.CreatedAt) {
			return true
		}
		return before.ID != "" && m.CreatedAt.Equal(before.CreatedAt) && m.ID < before.ID
	}

	// Walk newest-first collecting the page, then flip ascending.
	var page []messaging.Message
	for i := len(all) - 1; i >= 0 && len(page) < limit; i-- {
		m := all[i]
		if !olderThanCursor(m) {
			continue
		}
		if !st.Sees(m) {
			continue
		}
		page = append(page, m)
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (f *fakeRepo) ParticipantState(ctx context.Context, conversationID, viewerID string) (*messaging.ParticipantState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *f.stateLocked(conversationID, viewerID)
	return &out, nil
}

func (f *fakeRepo) SetHidden(ctx context.Context, conversationID, viewerID string, hidden bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateLocked(conversationID, viewerID).Hidden = hidden
	return nil
}

func (f *fakeRepo) SetClearedBefore(ctx context.Context, conversationID, viewerID string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateLocked(conversationID, viewerID).Clear(t)
	return nil
}

func (f *fakeRepo) SetLastReadAt(ctx context.Context, conversationID, viewerID string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateLocked(conversationID, viewerID).MarkRead(t)
	return nil
}

func (f *fakeRepo) AddBlock(ctx context.Context, b messaging.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.blocks {
		if existing.BlockerID == b.BlockerID && existing.BlockedID == b.BlockedID {
			return nil
		}
	}
	b.CreatedAt = f.tick()
	f.blocks = append(f.blocks, b)
	return nil
}

func (f *fakeRepo) GetBlock(ctx context.Context, a, z string) (*messaging.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.blocks {
		if f.blocks[i].Covers(a, z) {
			out := f.blocks[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) stateLocked(conversationID, userID string) *messaging.ParticipantState {
	key := stateKey(conversationID, userID)
	st, ok := f.states[key]
	if !ok {
		st = &messaging.ParticipantState{ConversationID: conversationID, UserID: userID}
		f.states[key] = st
	}
	return st
}

// fakeCache is an in-memory cache port, TTLs ignored.
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int
	dels int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", cacheport.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.sets++
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	f.dels++
	return n, nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

// recordingNotifier captures fan-out calls in order.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

type notifyCall struct {
	conversationID string
	recipients     []string
	message        messaging.Message
}

func (n *recordingNotifier) MessagePersisted(conversationID string, recipientIDs []string, m messaging.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{conversationID: conversationID, recipients: recipientIDs, message: m})
}

func (n *recordingNotifier) callsFor(conversationID string) []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifyCall
	for _, c := range n.calls {
		if c.conversationID == conversationID {
			out = append(out, c)
		}
	}
	return out
}
