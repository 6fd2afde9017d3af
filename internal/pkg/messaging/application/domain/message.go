package messaging

import (
	"strings"
	"time"
)

// DeliveryStatus tracks best-effort delivery progress.
// 0=sent, 1=delivered, 2=read. Read is advisory and not required for
// correctness; transitions only move forward.
type DeliveryStatus int16

const (
	StatusSent      DeliveryStatus = 0
	StatusDelivered DeliveryStatus = 1
	StatusRead      DeliveryStatus = 2
)

// Message is an immutable log entry in a conversation. Only the delivery
// status may change once persisted.
type Message struct {
	ID             string         `db:"id" json:"id"`
	ConversationID string         `db:"conversation_id" json:"conversation_id"`
	SenderID       string         `db:"sender_id" json:"sender_id"`
	Body           string         `db:"body" json:"body"`
	Status         DeliveryStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// NewMessage validates and normalizes a message before persistence.
// The store-assigned id is authoritative; callers never supply one.
func NewMessage(conversationID, senderID, body string) (*Message, error) {
	if conversationID == "" || senderID == "" {
		return nil, ErrNotParticipant
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		Status:         StatusSent,
	}, nil
}

// Advance moves the delivery status forward. Backward transitions are
// ignored rather than rejected; status is best-effort.
func (m *Message) Advance(to DeliveryStatus) {
	if to > m.Status {
		m.Status = to
	}
}

// MessageCursor is a keyset-pagination position. Pages are strictly older
// in (created_at, id) order; the id breaks timestamp ties so a page
// boundary falling between same-timestamp siblings cannot skip one.
type MessageCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// Cursor returns the message's pagination position.
func (m *Message) Cursor() MessageCursor {
	return MessageCursor{CreatedAt: m.CreatedAt, ID: m.ID}
}
