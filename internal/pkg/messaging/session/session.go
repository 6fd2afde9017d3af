package session

import (
	"context"
	"sort"
	"sync"
	"time"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"

	"go.uber.org/zap"
)

// Event is one "message inserted" notification scoped to the session's
// account. Events for a single conversation arrive in persist order.
type Event struct {
	ConversationID string
	Message        messaging.Message
}

// Stream is one live subscription. Events closes when the transport drops;
// Err reports why. Close releases the subscription on session end.
type Stream interface {
	Events() <-chan Event
	Err() error
	Close() error
}

// Subscriber opens subscriptions. Reconnect backoff is the transport's
// responsibility; resync after reconnect is the session's.
type Subscriber interface {
	Subscribe(ctx context.Context, viewerID string) (Stream, error)
}

// Backend is the durable side of the core as seen from one session. The
// in-process adapter wraps the use cases; a remote client would wrap HTTP.
type Backend interface {
	ListConversations(ctx context.Context, viewerID string) ([]messaging.ConversationView, error)
	ListMessages(ctx context.Context, conversationID, viewerID string, before *messaging.MessageCursor, limit int) ([]messaging.Message, error)
	Send(ctx context.Context, conversationID, viewerID, body string) (*messaging.Message, error)
	StartConversation(ctx context.Context, viewerID, peerID string) (*messaging.Conversation, error)
	Clear(ctx context.Context, conversationID, viewerID string) error
	Hide(ctx context.Context, conversationID, viewerID string) error
	Block(ctx context.Context, viewerID, userID string) error
	MarkRead(ctx context.Context, conversationID, viewerID string) error
}

// Session is the per-viewer state machine the UI renders from: the ordered
// conversation list, the unread set, one open thread window and the
// "new message below" affordance. One subscription per session, opened by
// Run and resynced after every transport drop.
//
// All mutating entry points serialize on one mutex; the UI event loop and
// the subscription goroutine are the only callers.
type Session struct {
	viewerID string
	backend  Backend
	sub      Subscriber
	log      *zap.Logger
	pageSize int

	mu            sync.Mutex
	conversations []messaging.ConversationView
	unread        map[string]struct{}
	openID        string
	window        *Window
	atBottom      bool
	newBelow      bool
	pageGen       uint64
	drafts        map[string]string // conversationID -> failed send body
}

func New(viewerID string, backend Backend, sub Subscriber, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		viewerID: viewerID,
		backend:  backend,
		sub:      sub,
		log:      log,
		pageSize: 20,
		unread:   make(map[string]struct{}),
		drafts:   make(map[string]string),
	}
}

// Run drives the subscription lifecycle until ctx is canceled: subscribe,
// full resync (recovering anything missed while disconnected), drain events,
// repeat on drop. Delivery during a disconnect window is not promised, only
// eventual consistency on reconnect.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		stream, err := s.sub.Subscribe(ctx, s.viewerID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("subscribe failed, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := s.Resync(ctx); err != nil {
			s.log.Warn("resync failed", zap.Error(err))
		}

		s.drain(ctx, stream)
		_ = stream.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := stream.Err(); err != nil {
			s.log.Warn("subscription dropped", zap.Error(err))
		}
	}
}

func (s *Session) drain(ctx context.Context, stream Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

// handleEvent applies one inserted message to session state:
//   - the conversation bumps to the top of the list;
//   - a message for a thread that is not open marks it unread;
//   - a message for the open thread appends, auto-scrolling only when the
//     viewer already sits at the bottom, otherwise surfacing the
//     "new message below" affordance instead of yanking them out of history.
func (s *Session) handleEvent(ctx context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := ev.Message
	s.bumpLocked(ev.ConversationID, m)

	if m.SenderID == s.viewerID {
		// Own message echoed back from another device or the send path.
		if s.openID == ev.ConversationID && s.window != nil {
			s.window.Append(m)
		}
		return
	}

	if s.openID != ev.ConversationID {
		s.unread[ev.ConversationID] = struct{}{}
		s.setUnreadCountLocked(ev.ConversationID, +1)
		return
	}

	if s.window != nil {
		s.window.Append(m)
	}
	if s.atBottom {
		s.markReadAsync(ctx, ev.ConversationID)
	} else {
		s.newBelow = true
	}
}

// bumpLocked re-sorts the list for a fresh message, synthesizing an entry
// when the conversation was hidden or brand new (resurface-on-inbound).
func (s *Session) bumpLocked(conversationID string, m messaging.Message) {
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations[i].Touch(m)
			s.sortLocked()
			return
		}
	}
	body := m.Body
	view := messaging.ConversationView{
		ID:             conversationID,
		PeerID:         m.SenderID,
		LastActivityAt: m.CreatedAt,
		LastMessage:    &body,
	}
	if m.SenderID == s.viewerID {
		view.PeerID = "" // peer unknown until the next resync
	}
	s.conversations = append(s.conversations, view)
	s.sortLocked()
}

func (s *Session) setUnreadCountLocked(conversationID string, delta int) {
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations[i].Unread += delta
			if s.conversations[i].Unread < 0 {
				s.conversations[i].Unread = 0
			}
			return
		}
	}
}

func (s *Session) sortLocked() {
	sort.SliceStable(s.conversations, func(i, j int) bool {
		return s.conversations[i].LastActivityAt.After(s.conversations[j].LastActivityAt)
	})
}

// Resync replaces the conversation list and unread set with a fresh
// snapshot.
func (s *Session) Resync(ctx context.Context) error {
	views, err := s.backend.ListConversations(ctx, s.viewerID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = views
	s.unread = make(map[string]struct{}, len(views))
	for _, v := range views {
		if v.Unread > 0 && v.ID != s.openID {
			s.unread[v.ID] = struct{}{}
		}
	}
	return nil
}

// OpenConversation loads the newest page of the thread, makes it the open
// thread and clears its unread state.
func (s *Session) OpenConversation(ctx context.Context, conversationID string) ([]messaging.Message, error) {
	s.mu.Lock()
	s.pageGen++
	gen := s.pageGen
	s.mu.Unlock()

	page, err := s.backend.ListMessages(ctx, conversationID, s.viewerID, nil, s.pageSize)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if gen != s.pageGen {
		s.mu.Unlock()
		return nil, nil // superseded while in flight
	}
	s.openID = conversationID
	s.window = NewWindow(s.pageSize)
	s.window.Reset(page)
	s.atBottom = true
	s.newBelow = false
	delete(s.unread, conversationID)
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations[i].Unread = 0
		}
	}
	s.mu.Unlock()

	s.markReadAsync(ctx, conversationID)
	return page, nil
}

// CloseConversation leaves the open thread.
func (s *Session) CloseConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openID = ""
	s.window = nil
	s.newBelow = false
}

// LoadOlderMessages requests one backward page when the viewport geometry
// calls for it. Returns the number of messages spliced in. A response
// superseded by a newer request (the viewer scrolled away or re-opened) is
// discarded on arrival.
func (s *Session) LoadOlderMessages(ctx context.Context, vp Viewport) (int, error) {
	s.mu.Lock()
	if s.window == nil || !s.window.ShouldLoadOlder(vp) {
		s.mu.Unlock()
		return 0, nil
	}
	conversationID := s.openID
	cursor := s.window.OldestCursor()
	s.pageGen++
	gen := s.pageGen
	s.mu.Unlock()

	page, err := s.backend.ListMessages(ctx, conversationID, s.viewerID, cursor, s.pageSize)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.pageGen || s.openID != conversationID || s.window == nil {
		return 0, nil // stale response
	}
	before := s.window.Len()
	s.window.SpliceOlder(page)
	return s.window.Len() - before, nil
}

// Send persists a user-authored message. The UI clears its input before
// calling; on failure the body is kept as a retry draft rather than
// silently retried, so content is never duplicated or dropped.
func (s *Session) Send(ctx context.Context, conversationID, body string) (*messaging.Message, error) {
	msg, err := s.backend.Send(ctx, conversationID, s.viewerID, body)
	if err != nil {
		s.mu.Lock()
		s.drafts[conversationID] = body
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	delete(s.drafts, conversationID)
	if s.openID == conversationID && s.window != nil {
		// The realtime echo may have already landed while the append was in
		// flight; Append dedupes on the durable id.
		s.window.Append(*msg)
	}
	s.bumpLocked(conversationID, *msg)
	s.mu.Unlock()
	return msg, nil
}

// RetryDraft returns the body of the last failed send for the conversation,
// the retry affordance surfaced to the viewer.
func (s *Session) RetryDraft(conversationID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.drafts[conversationID]
	return body, ok
}

// StartConversation resolves (or creates) the thread with the peer.
func (s *Session) StartConversation(ctx context.Context, peerID string) (*messaging.Conversation, error) {
	return s.backend.StartConversation(ctx, s.viewerID, peerID)
}

// Clear advances this viewer's cleared-before cursor for the conversation
// and empties the open window if it is the open thread.
func (s *Session) Clear(ctx context.Context, conversationID string) error {
	if err := s.backend.Clear(ctx, conversationID, s.viewerID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openID == conversationID && s.window != nil {
		s.window = NewWindow(s.pageSize)
	}
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations[i].LastMessage = nil
			s.conversations[i].Unread = 0
		}
	}
	delete(s.unread, conversationID)
	return nil
}

// Hide removes the conversation from this viewer's list.
func (s *Session) Hide(ctx context.Context, conversationID string) error {
	if err := s.backend.Hide(ctx, conversationID, s.viewerID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openID == conversationID {
		s.openID = ""
		s.window = nil
		s.newBelow = false
	}
	delete(s.unread, conversationID)
	filtered := s.conversations[:0]
	for _, v := range s.conversations {
		if v.ID != conversationID {
			filtered = append(filtered, v)
		}
	}
	s.conversations = filtered
	return nil
}

// Block stops all future messaging with the user.
func (s *Session) Block(ctx context.Context, userID string) error {
	return s.backend.Block(ctx, s.viewerID, userID)
}

// SetAtBottom records the viewer's scroll position for the open thread.
// Scrolling back to the bottom consumes the "new message below" affordance
// and advances the read watermark.
func (s *Session) SetAtBottom(ctx context.Context, atBottom bool) {
	s.mu.Lock()
	s.atBottom = atBottom
	conversationID := s.openID
	consume := atBottom && s.newBelow
	if atBottom {
		s.newBelow = false
	}
	s.mu.Unlock()
	if consume && conversationID != "" {
		s.markReadAsync(ctx, conversationID)
	}
}

// Conversations returns the list snapshot, last activity descending.
func (s *Session) Conversations() []messaging.ConversationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]messaging.ConversationView, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// UnreadSet returns the conversation ids with unseen messages.
func (s *Session) UnreadSet() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.unread))
	for id := range s.unread {
		out[id] = struct{}{}
	}
	return out
}

// NewMessageBelow reports the non-intrusive "new message, scroll to see"
// flag for the open thread.
func (s *Session) NewMessageBelow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newBelow
}

// OpenWindow returns the open thread's loaded messages, oldest first.
func (s *Session) OpenWindow() []messaging.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window == nil {
		return nil
	}
	out := make([]messaging.Message, s.window.Len())
	copy(out, s.window.Messages())
	return out
}

func (s *Session) markReadAsync(ctx context.Context, conversationID string) {
	go func() {
		if err := s.backend.MarkRead(ctx, conversationID, s.viewerID); err != nil {
			s.log.Debug("mark read failed", zap.String("conversation", conversationID), zap.Error(err))
		}
	}()
}
