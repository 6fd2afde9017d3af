package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Frame types carried on the realtime channel.
const (
	FrameConnected = "connected"
	FrameMessage   = "message"
	FrameResync    = "resync"
	FrameError     = "error"
)

// MessagePayload mirrors a persisted message on the wire.
type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	Status         int16     `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageFrame is the "row inserted" notification fanned out to sessions.
type MessageFrame struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Message        MessagePayload `json:"message"`
}

// EncodeMessageFrame marshals one fan-out frame.
func EncodeMessageFrame(f MessageFrame) ([]byte, error) {
	f.Type = FrameMessage
	return json.Marshal(f)
}

// DecodeMessageFrame parses a frame and reports whether it carries a
// message (other frame types are skipped by stream consumers).
func DecodeMessageFrame(payload []byte) (MessageFrame, bool, error) {
	var f MessageFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		return MessageFrame{}, false, err
	}
	return f, f.Type == FrameMessage, nil
}

// ChannelOutlet is an in-process outlet: payloads fan into a buffered
// channel consumed by a session event loop in attach order. The mutex keeps
// Send and Close from racing on the channel close.
type ChannelOutlet struct {
	id     string
	userID string

	mu       sync.Mutex
	closed   bool
	payloads chan []byte
}

// NewChannelOutlet builds an outlet for the given user.
func NewChannelOutlet(userID string) *ChannelOutlet {
	return &ChannelOutlet{
		id:       uuid.NewString(),
		userID:   userID,
		payloads: make(chan []byte, 256),
	}
}

func (c *ChannelOutlet) ID() string     { return c.id }
func (c *ChannelOutlet) UserID() string { return c.userID }

// Payloads is the consumer side; it closes when the outlet is closed.
func (c *ChannelOutlet) Payloads() <-chan []byte { return c.payloads }

// Send enqueues payload. A consumer that stops draining gets cut off, same
// backpressure rule as the websocket path.
func (c *ChannelOutlet) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("outlet closed")
	}
	select {
	case c.payloads <- payload:
		return nil
	default:
		c.closeLocked()
		return errors.New("outlet buffer exceeded")
	}
}

// Close stops the outlet; idempotent.
func (c *ChannelOutlet) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *ChannelOutlet) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.payloads)
}
