package fanout

import (
	"context"
	"encoding/json"
	"time"

	qport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/queue/port"
	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/realtime"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/task"

	"go.uber.org/zap"
)

// Dispatcher routes a freshly persisted message to its consumers: live
// sessions of the recipient and the sender's other devices get the realtime
// frame; a recipient with no attached session gets an offline-notification
// task instead. The send pipeline invokes it under the per-conversation
// stripe lock, so frames for one conversation go out in persist order.
type Dispatcher struct {
	Router *realtime.Router
	Queue  qport.Client // optional
	Log    *zap.Logger
}

func NewDispatcher(router *realtime.Router, queue qport.Client, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{Router: router, Queue: queue, Log: log}
}

// MessagePersisted implements the send pipeline's notifier contract.
func (d *Dispatcher) MessagePersisted(conversationID string, recipientIDs []string, m messaging.Message) {
	payload, err := realtime.EncodeMessageFrame(realtime.MessageFrame{
		ConversationID: conversationID,
		Message: realtime.MessagePayload{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			Body:           m.Body,
			Status:         int16(m.Status),
			CreatedAt:      m.CreatedAt,
		},
	})
	if err != nil {
		d.Log.Error("encode message frame", zap.Error(err))
		return
	}

	// Echo to the sender's own sessions so other devices stay current.
	d.Router.NotifyUser(m.SenderID, payload)

	for _, uid := range recipientIDs {
		if uid == "" || uid == m.SenderID {
			continue
		}
		if d.Router.NotifyUser(uid, payload) > 0 {
			continue
		}
		d.queueOffline(uid, conversationID, m)
	}
}

func (d *Dispatcher) queueOffline(userID, conversationID string, m messaging.Message) {
	if d.Queue == nil {
		return
	}
	body, err := json.Marshal(task.NotifyOfflinePayload{
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      m.ID,
		SenderID:       m.SenderID,
		Preview:        m.Body,
	})
	if err != nil {
		d.Log.Error("encode offline payload", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err = d.Queue.Enqueue(ctx, qport.Task{Type: task.NotifyOfflineTaskType, Payload: body},
		qport.EnqueueOption{Queue: "messaging", MaxRetry: 5, UniqueTTL: time.Minute})
	if err != nil {
		d.Log.Warn("enqueue offline notification",
			zap.String("user", userID), zap.String("message", m.ID), zap.Error(err))
	}
}
