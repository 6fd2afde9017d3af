package messaging

import (
	"strings"
	"time"
)

// Conversation is the single canonical channel between an unordered pair of
// users. The pair is stored in canonical order (lo < hi lexicographically) so
// a unique constraint on (participant_lo, participant_hi) enforces the
// at-most-one-per-pair invariant at the store.
type Conversation struct {
	ID             string    `db:"id"`
	ParticipantLo  string    `db:"participant_lo"`
	ParticipantHi  string    `db:"participant_hi"`
	CreatedAt      time.Time `db:"created_at"`
	LastActivityAt time.Time `db:"last_activity_at"`
}

// CanonicalPair normalizes two user ids into store order. It rejects empty
// ids and self-conversations.
func CanonicalPair(a, b string) (lo, hi string, err error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", "", ErrNotParticipant
	}
	if a == b {
		return "", "", ErrSelfConversation
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}

// HasParticipant tells whether userID is one of the two members.
func (c *Conversation) HasParticipant(userID string) bool {
	if c == nil || userID == "" {
		return false
	}
	return c.ParticipantLo == userID || c.ParticipantHi == userID
}

// PeerOf returns the other member, or "" when userID is not a member.
func (c *Conversation) PeerOf(userID string) string {
	switch {
	case c == nil:
		return ""
	case c.ParticipantLo == userID:
		return c.ParticipantHi
	case c.ParticipantHi == userID:
		return c.ParticipantLo
	default:
		return ""
	}
}

// Touch advances the last-activity watermark. The watermark never moves
// backwards; it is the sort key for conversation lists.
func (c *Conversation) Touch(ts time.Time) {
	if ts.After(c.LastActivityAt) {
		c.LastActivityAt = ts
	}
}

// ParticipantState holds one viewer's private view of a conversation:
// whether it is hidden from their inbox, below which timestamp history is
// cleared, and the best-effort read watermark.
// Primary key: (ConversationID, UserID). The counterpart's row is never
// touched by any of these transitions.
type ParticipantState struct {
	ConversationID string     `db:"conversation_id"`
	UserID         string     `db:"user_id"`
	Hidden         bool       `db:"hidden"`
	ClearedBefore  *time.Time `db:"cleared_before"`
	LastReadAt     *time.Time `db:"last_read_at"`
}

// Hide removes the conversation from this viewer's inbox.
// Visible -> Hidden.
func (s *ParticipantState) Hide() {
	s.Hidden = true
}

// Resurface makes a hidden conversation visible again. Triggered when the
// viewer sends into it, or on an inbound message when the resurface policy
// allows. Hidden -> Visible.
func (s *ParticipantState) Resurface() {
	s.Hidden = false
}

// Clear advances the cleared-before cursor to now. All messages created
// before the cursor become invisible to this viewer; the cursor never moves
// backwards. Clear does not change the hidden state.
func (s *ParticipantState) Clear(now time.Time) {
	if s.ClearedBefore == nil || now.After(*s.ClearedBefore) {
		s.ClearedBefore = &now
	}
}

// Sees reports whether a message is visible to this viewer given the
// cleared-before cursor. Hidden-ness is a list-level concern and is not
// consulted here.
func (s *ParticipantState) Sees(m Message) bool {
	if s == nil || s.ClearedBefore == nil {
		return true
	}
	return !m.CreatedAt.Before(*s.ClearedBefore)
}

// MarkRead advances the read watermark, best-effort and monotonic.
func (s *ParticipantState) MarkRead(now time.Time) {
	if s.LastReadAt == nil || now.After(*s.LastReadAt) {
		s.LastReadAt = &now
	}
}

// ConversationView is the list-entry shape served to a viewer: the
// conversation plus viewer-relative fields.
type ConversationView struct {
	ID             string    `json:"id"`
	PeerID         string    `json:"peer_id"`
	LastActivityAt time.Time `json:"last_activity_at"`
	LastMessage    *string   `json:"last_message,omitempty"`
	Unread         int       `json:"unread"`
}

// Touch applies a fresh message to the list entry: the activity watermark
// advances monotonically and the preview follows it.
func (v *ConversationView) Touch(m Message) {
	if m.CreatedAt.After(v.LastActivityAt) {
		v.LastActivityAt = m.CreatedAt
		body := m.Body
		v.LastMessage = &body
	}
}
