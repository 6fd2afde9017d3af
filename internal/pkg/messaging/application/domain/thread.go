package messaging

import "time"

// VisibilityPolicy names the knobs for per-viewer visibility behavior.
// ResurfaceOnInbound controls whether an incoming message un-hides a
// conversation the recipient previously hid.
type VisibilityPolicy struct {
	ResurfaceOnInbound bool
}

// DefaultVisibilityPolicy resurfaces hidden conversations on inbound
// messages, matching the observed product behavior.
var DefaultVisibilityPolicy = VisibilityPolicy{ResurfaceOnInbound: true}

// Thread is the domain aggregate for a conversation and its invariants.
//
// The application layer hydrates it with both participant states and any
// block covering the pair before invoking its behaviors. Persistence lives
// in repositories outside the domain; this type only enforces rules and
// shapes intent.
type Thread struct {
	Conversation Conversation
	States       map[string]*ParticipantState // keyed by userID
	Block        *Block
	Policy       VisibilityPolicy
}

// StateOf returns the viewer's participant state, creating a zero-value one
// in the map when the row has not been materialized yet.
func (t *Thread) StateOf(userID string) *ParticipantState {
	if t.States == nil {
		t.States = make(map[string]*ParticipantState, 2)
	}
	s, ok := t.States[userID]
	if !ok {
		s = &ParticipantState{ConversationID: t.Conversation.ID, UserID: userID}
		t.States[userID] = s
	}
	return s
}

// PostMessage applies domain rules and returns a validated message ready to
// persist, together with the participant-state transitions the append
// implies.
//
// Validations:
//   - Sender must be a participant.
//   - No block between the pair in either direction.
//   - Body must be non-empty (checked by NewMessage upstream; re-checked here).
//   - A caller-supplied timestamp must not be backdated relative to the
//     activity watermark.
//
// Behavior:
//   - A zero CreatedAt is stamped with now.
//   - The activity watermark advances to the message timestamp.
//   - The sender's hidden flag drops (sending re-surfaces).
//   - The recipient's hidden flag drops when the policy allows.
func (t *Thread) PostMessage(m Message, now time.Time) (Message, error) {
	if m.ConversationID == "" || t.Conversation.ID == "" || m.ConversationID != t.Conversation.ID {
		return Message{}, ErrConversationNotFound
	}
	if !t.Conversation.HasParticipant(m.SenderID) {
		return Message{}, ErrNotParticipant
	}
	peer := t.Conversation.PeerOf(m.SenderID)
	if t.Block.Covers(m.SenderID, peer) {
		return Message{}, ErrUserBlocked
	}
	if m.Body == "" {
		return Message{}, ErrEmptyMessage
	}

	ts := m.CreatedAt
	if ts.IsZero() {
		// Stamped timestamps are advisory; the store's clock is
		// authoritative and reassigns on insert.
		if now.IsZero() {
			now = time.Now().UTC()
		}
		ts = now.UTC()
	} else if ts.Before(t.Conversation.LastActivityAt) {
		return Message{}, ErrBackdatedMessage
	}
	m.CreatedAt = ts

	t.Conversation.Touch(ts)
	t.StateOf(m.SenderID).Resurface()
	if t.Policy.ResurfaceOnInbound {
		t.StateOf(peer).Resurface()
	}
	return m, nil
}

// VisibleTo reports whether the message is visible to the viewer under the
// viewer's cleared-before cursor.
func (t *Thread) VisibleTo(viewerID string, m Message) bool {
	if !t.Conversation.HasParticipant(viewerID) {
		return false
	}
	return t.StateOf(viewerID).Sees(m)
}
