package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/queue/port"
	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/realtime"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/task"
)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []qport.Task
	opts  []qport.EnqueueOption
}

func (q *fakeQueue) Enqueue(ctx context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	if len(opts) > 0 {
		q.opts = append(q.opts, opts[0])
	} else {
		q.opts = append(q.opts, qport.EnqueueOption{})
	}
	return "task-1", nil
}

func (q *fakeQueue) Close() error { return nil }

func testMessage() messaging.Message {
	return messaging.Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		Body:           "hello bob",
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func drainFrame(t *testing.T, o *realtime.ChannelOutlet) realtime.MessageFrame {
	t.Helper()
	select {
	case payload := <-o.Payloads():
		frame, isMessage, err := realtime.DecodeMessageFrame(payload)
		require.NoError(t, err)
		require.True(t, isMessage)
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return realtime.MessageFrame{}
	}
}

func TestDispatcherDeliversToLiveRecipient(t *testing.T) {
	router := realtime.NewRouter(nil)
	queue := &fakeQueue{}
	d := NewDispatcher(router, queue, nil)

	bob := realtime.NewChannelOutlet("bob")
	router.Attach(bob)

	d.MessagePersisted("conv-1", []string{"bob"}, testMessage())

	frame := drainFrame(t, bob)
	assert.Equal(t, "conv-1", frame.ConversationID)
	assert.Equal(t, "msg-1", frame.Message.ID)
	assert.Equal(t, "alice", frame.Message.SenderID)
	assert.Empty(t, queue.tasks, "live recipients are not queued")
}

func TestDispatcherEchoesToSenderDevices(t *testing.T) {
	router := realtime.NewRouter(nil)
	d := NewDispatcher(router, nil, nil)

	phone := realtime.NewChannelOutlet("alice")
	laptop := realtime.NewChannelOutlet("alice")
	router.Attach(phone)
	router.Attach(laptop)

	d.MessagePersisted("conv-1", []string{"bob"}, testMessage())

	// Both of the sender's own sessions see the durable copy.
	assert.Equal(t, "msg-1", drainFrame(t, phone).Message.ID)
	assert.Equal(t, "msg-1", drainFrame(t, laptop).Message.ID)
}

func TestDispatcherQueuesOfflineRecipient(t *testing.T) {
	router := realtime.NewRouter(nil)
	queue := &fakeQueue{}
	d := NewDispatcher(router, queue, nil)

	d.MessagePersisted("conv-1", []string{"bob"}, testMessage())

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, task.NotifyOfflineTaskType, queue.tasks[0].Type)
	assert.Equal(t, "messaging", queue.opts[0].Queue)
	assert.Equal(t, 5, queue.opts[0].MaxRetry)

	var payload task.NotifyOfflinePayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload, &payload))
	assert.Equal(t, "bob", payload.UserID)
	assert.Equal(t, "conv-1", payload.ConversationID)
	assert.Equal(t, "msg-1", payload.MessageID)
	assert.Equal(t, "hello bob", payload.Preview)
}

func TestDispatcherSkipsSenderInRecipients(t *testing.T) {
	router := realtime.NewRouter(nil)
	queue := &fakeQueue{}
	d := NewDispatcher(router, queue, nil)

	// A recipient list naming the sender or an empty id must not generate
	// a self notification.
	d.MessagePersisted("conv-1", []string{"alice", ""}, testMessage())
	assert.Empty(t, queue.tasks)
}

func TestDispatcherWithoutQueueDegrades(t *testing.T) {
	router := realtime.NewRouter(nil)
	d := NewDispatcher(router, nil, nil)

	// No live session and no queue: the message is still durable, the
	// notification is simply skipped.
	d.MessagePersisted("conv-1", []string{"bob"}, testMessage())
}
