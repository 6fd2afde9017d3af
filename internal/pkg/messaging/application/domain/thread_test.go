package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestThread() *Thread {
	return &Thread{
		Conversation: Conversation{ID: "c1", ParticipantLo: "alice", ParticipantHi: "bob"},
		Policy:       DefaultVisibilityPolicy,
	}
}

func TestNewMessageValidation(t *testing.T) {
	_, err := NewMessage("c1", "alice", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = NewMessage("", "alice", "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)

	m, err := NewMessage("c1", "alice", "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", m.Body)
	assert.Equal(t, StatusSent, m.Status)
}

func TestPostMessageRules(t *testing.T) {
	now := time.Now().UTC()

	t.Run("stranger rejected", func(t *testing.T) {
		th := newTestThread()
		_, err := th.PostMessage(Message{ConversationID: "c1", SenderID: "mallory", Body: "hi"}, now)
		assert.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("conversation mismatch", func(t *testing.T) {
		th := newTestThread()
		_, err := th.PostMessage(Message{ConversationID: "other", SenderID: "alice", Body: "hi"}, now)
		assert.ErrorIs(t, err, ErrConversationNotFound)
	})

	t.Run("blocked pair rejected either direction", func(t *testing.T) {
		th := newTestThread()
		th.Block = &Block{BlockerID: "bob", BlockedID: "alice"}
		_, err := th.PostMessage(Message{ConversationID: "c1", SenderID: "alice", Body: "hi"}, now)
		assert.ErrorIs(t, err, ErrUserBlocked)
		_, err = th.PostMessage(Message{ConversationID: "c1", SenderID: "bob", Body: "hi"}, now)
		assert.ErrorIs(t, err, ErrUserBlocked)
	})

	t.Run("backdated rejected", func(t *testing.T) {
		th := newTestThread()
		th.Conversation.LastActivityAt = now
		_, err := th.PostMessage(Message{ConversationID: "c1", SenderID: "alice", Body: "hi", CreatedAt: now.Add(-time.Minute)}, now)
		assert.ErrorIs(t, err, ErrBackdatedMessage)
	})

	t.Run("accepted message advances watermark and resurfaces both", func(t *testing.T) {
		th := newTestThread()
		th.StateOf("alice").Hide()
		th.StateOf("bob").Hide()

		m, err := th.PostMessage(Message{ConversationID: "c1", SenderID: "alice", Body: "hi"}, now)
		require.NoError(t, err)
		assert.Equal(t, now, m.CreatedAt)
		assert.Equal(t, now, th.Conversation.LastActivityAt)
		assert.False(t, th.StateOf("alice").Hidden, "sending re-surfaces for the sender")
		assert.False(t, th.StateOf("bob").Hidden, "inbound re-surfaces for the recipient by policy")
	})

	t.Run("recipient stays hidden when policy disables resurface", func(t *testing.T) {
		th := newTestThread()
		th.Policy = VisibilityPolicy{ResurfaceOnInbound: false}
		th.StateOf("bob").Hide()

		_, err := th.PostMessage(Message{ConversationID: "c1", SenderID: "alice", Body: "hi"}, now)
		require.NoError(t, err)
		assert.True(t, th.StateOf("bob").Hidden)
	})
}

func TestThreadVisibilityAsymmetry(t *testing.T) {
	now := time.Now().UTC()
	th := newTestThread()

	m, err := th.PostMessage(Message{ConversationID: "c1", SenderID: "bob", Body: "old"}, now)
	require.NoError(t, err)

	// Alice clears; only Alice loses the old message.
	th.StateOf("alice").Clear(now.Add(time.Second))
	assert.False(t, th.VisibleTo("alice", m))
	assert.True(t, th.VisibleTo("bob", m))

	// Alice hides; Bob's state is untouched.
	th.StateOf("alice").Hide()
	assert.False(t, th.StateOf("bob").Hidden)
}

func TestDeliveryStatusAdvancesForwardOnly(t *testing.T) {
	m := Message{Status: StatusSent}
	m.Advance(StatusRead)
	assert.Equal(t, StatusRead, m.Status)
	m.Advance(StatusDelivered)
	assert.Equal(t, StatusRead, m.Status)
}
