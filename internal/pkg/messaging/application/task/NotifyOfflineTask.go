package task

import (
	"context"
	"encoding/json"

	qport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/queue/port"

	"go.uber.org/zap"
)

// NotifyOfflineTaskType is the queue task name for notifying a recipient who
// had no live session when a message was persisted.
const NotifyOfflineTaskType = "messaging:notify_offline"

// NotifyOfflinePayload is the JSON payload transported via the queue.
type NotifyOfflinePayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	SenderID       string `json:"senderId"`
	Preview        string `json:"preview"`
}

// PushSender hands a notification to the external push gateway.
type PushSender interface {
	Push(ctx context.Context, userID, title, body string) error
}

// RegisterNotifyOfflineTask binds the task handler to the provided server.
// The push gateway is an external collaborator; a nil sender makes the
// handler a logged no-op, which keeps the worker deployable without one.
func RegisterNotifyOfflineTask(srv qport.Server, sender PushSender, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	srv.Register(NotifyOfflineTaskType, func(ctx context.Context, t qport.Task) error {
		var p NotifyOfflinePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return err
		}
		if sender == nil {
			log.Info("offline notification skipped (no push gateway)",
				zap.String("user", p.UserID), zap.String("message", p.MessageID))
			return nil
		}
		if err := sender.Push(ctx, p.UserID, "New message", p.Preview); err != nil {
			// retry per queue policy
			return err
		}
		log.Debug("offline notification pushed",
			zap.String("user", p.UserID), zap.String("message", p.MessageID))
		return nil
	})
}
