package local

import (
	"context"
	"errors"
	"sync"

	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/realtime"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/session"
)

// Subscriber attaches channel outlets to the realtime router, implementing
// session.Subscriber for sessions hosted in this process.
type Subscriber struct {
	Router *realtime.Router
}

func NewSubscriber(router *realtime.Router) *Subscriber {
	return &Subscriber{Router: router}
}

func (s *Subscriber) Subscribe(ctx context.Context, viewerID string) (session.Stream, error) {
	if viewerID == "" {
		return nil, messaging.ErrUnauthenticated
	}
	outlet := realtime.NewChannelOutlet(viewerID)
	s.Router.Attach(outlet)

	st := &stream{
		router: s.Router,
		outlet: outlet,
		events: make(chan session.Event, 64),
		done:   make(chan struct{}),
	}
	go st.decodeLoop()
	return st, nil
}

// stream adapts raw router payloads into typed session events.
type stream struct {
	router *realtime.Router
	outlet *realtime.ChannelOutlet
	events chan session.Event
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *stream) Events() <-chan session.Event { return s.events }

func (s *stream) Err() error { return s.err }

func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.router.Detach(s.outlet)
		s.outlet.Close(0, "session closed")
	})
	return nil
}

func (s *stream) decodeLoop() {
	defer close(s.events)
	for payload := range s.outlet.Payloads() {
		frame, isMessage, err := realtime.DecodeMessageFrame(payload)
		if err != nil || !isMessage {
			continue
		}
		ev := session.Event{
			ConversationID: frame.ConversationID,
			Message: messaging.Message{
				ID:             frame.Message.ID,
				ConversationID: frame.Message.ConversationID,
				SenderID:       frame.Message.SenderID,
				Body:           frame.Message.Body,
				Status:         messaging.DeliveryStatus(frame.Message.Status),
				CreatedAt:      frame.Message.CreatedAt,
			},
		}
		// The session may stop draining before Close; the done channel
		// keeps this goroutine from blocking forever on a full buffer.
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
	if s.err == nil {
		s.err = errors.New("realtime outlet closed")
	}
}
