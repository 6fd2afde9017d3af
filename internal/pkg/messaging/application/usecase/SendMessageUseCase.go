package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	repository "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/port"
)

// MessageNotifier receives a message after it has been durably persisted.
// Implementations fan the message out to live sessions and queue offline
// notifications. Calls for one conversation arrive in persist order.
type MessageNotifier interface {
	MessagePersisted(conversationID string, recipientIDs []string, m messaging.Message)
}

// sendStripes bounds the lock table for per-conversation send serialization.
const sendStripes = 64

// SendMessageInput carries the data needed to send a new message.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Body           string
}

// SendMessageUseCase is the send pipeline: validate against the thread
// aggregate, persist (store id and timestamp are authoritative), then notify.
// Append and notify run under a per-conversation stripe lock so realtime
// delivery order matches persist order within a conversation. The pipeline
// never retries on failure; the caller decides, so user content is never
// silently duplicated or dropped.
type SendMessageUseCase struct {
	Repo     repository.MessagingRepository
	Notifier MessageNotifier // optional
	Cache    cacheport.Cache // optional, inbox snapshots to invalidate
	Policy   messaging.VisibilityPolicy

	locks [sendStripes]sync.Mutex
}

func NewSendMessageUseCase(repo repository.MessagingRepository, notifier MessageNotifier, cache cacheport.Cache) *SendMessageUseCase {
	return &SendMessageUseCase{
		Repo:     repo,
		Notifier: notifier,
		Cache:    cache,
		Policy:   messaging.DefaultVisibilityPolicy,
	}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*messaging.Message, error) {
	msg, err := messaging.NewMessage(in.ConversationID, in.SenderID, in.Body)
	if err != nil {
		return nil, err
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		if err == messaging.ErrConversationNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	block, err := uc.Repo.GetBlock(ctx, conv.ParticipantLo, conv.ParticipantHi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	thread := messaging.Thread{Conversation: *conv, Block: block, Policy: uc.Policy}
	validated, err := thread.PostMessage(*msg, msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	peer := conv.PeerOf(in.SenderID)
	unhide := []string{in.SenderID}
	if uc.Policy.ResurfaceOnInbound {
		unhide = append(unhide, peer)
	}

	lock := uc.stripe(in.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	persisted, err := uc.Repo.AppendMessage(ctx, validated, unhide)
	if err != nil {
		if err == messaging.ErrConversationNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	invalidateInbox(ctx, uc.Cache, in.SenderID, peer)

	if uc.Notifier != nil {
		uc.Notifier.MessagePersisted(in.ConversationID, []string{peer}, *persisted)
	}
	return persisted, nil
}

func (uc *SendMessageUseCase) stripe(conversationID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return &uc.locks[h.Sum32()%sendStripes]
}
