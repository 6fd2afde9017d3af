package repository

import (
	"context"
	"time"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
)

// MessagingRepository defines persistence operations for the messaging
// domain. Implementations must guarantee:
//
//   - GetOrCreateConversation is idempotent under concurrent calls for the
//     same unordered pair (unique-constraint insert plus read-repair, no
//     application-level locking).
//   - AppendMessage inserts the message, bumps the conversation's
//     last-activity watermark and applies the unhide transitions in ONE
//     transaction, so list ordering never races the thread view.
//   - Reads after a successful AppendMessage observe the appended message.
type MessagingRepository interface {
	// GetOrCreateConversation resolves the canonical conversation for the
	// pair, creating it on first contact. created reports whether this call
	// inserted the row.
	GetOrCreateConversation(ctx context.Context, userA, userB string) (conv *messaging.Conversation, created bool, err error)

	// GetConversation fetches one conversation by id.
	// Returns messaging.ErrConversationNotFound when absent.
	GetConversation(ctx context.Context, id string) (*messaging.Conversation, error)

	// ListConversations returns the viewer's inbox ordered by last activity
	// descending, excluding conversations hidden for the viewer. Each entry
	// carries the peer id, last visible message preview and unread count.
	ListConversations(ctx context.Context, viewerID string) ([]messaging.ConversationView, error)

	// AppendMessage persists m (id and created-at assigned by the store) and
	// atomically bumps the parent conversation's last-activity watermark.
	// unhideUserIDs lists participants whose hidden flag must drop in the
	// same transaction.
	AppendMessage(ctx context.Context, m messaging.Message, unhideUserIDs []string) (*messaging.Message, error)

	// ListMessagesBefore returns up to limit messages strictly older than
	// the cursor in (created_at, id) order (newest page when before is
	// nil), filtered by the viewer's cleared-before cursor, ascending. A
	// cursor without an id falls back to created_at alone.
	ListMessagesBefore(ctx context.Context, conversationID, viewerID string, before *messaging.MessageCursor, limit int) ([]messaging.Message, error)

	// ParticipantState fetches the viewer's per-conversation state. A viewer
	// with no materialized row gets a zero-value state, not an error.
	ParticipantState(ctx context.Context, conversationID, viewerID string) (*messaging.ParticipantState, error)

	// SetHidden flips the viewer's hidden flag. Scoped to one (conversation,
	// viewer) row; the counterpart is untouched.
	SetHidden(ctx context.Context, conversationID, viewerID string, hidden bool) error

	// SetClearedBefore advances the viewer's cleared-before cursor. The
	// cursor is monotonic: implementations must not move it backwards.
	SetClearedBefore(ctx context.Context, conversationID, viewerID string, t time.Time) error

	// SetLastReadAt advances the viewer's read watermark (best-effort).
	SetLastReadAt(ctx context.Context, conversationID, viewerID string, t time.Time) error

	// AddBlock records a block; duplicate blocks are a no-op.
	AddBlock(ctx context.Context, b messaging.Block) error

	// GetBlock returns a block covering the pair in either direction, or nil.
	GetBlock(ctx context.Context, a, z string) (*messaging.Block, error)
}
