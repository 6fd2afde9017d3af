package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	"github.com/GamerOZE123/unigramm1-sub000/internal/identity"
	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/realtime"
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/usecase"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/adapter"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MessagingSocketController is the realtime endpoint. Each upgraded socket
// is one subscription scoped to the authenticated user: the server pushes
// every message addressed to that account and the client resolves the local
// thread. Clients may also send and request a resync over the same socket;
// a resync returns the full conversation list so a reconnecting client
// recovers anything missed while disconnected.
type MessagingSocketController struct {
	router          *realtime.Router
	sendUC          *usecase.SendMessageUseCase
	listUC          *usecase.ListConversationsUseCase
	log             *zap.Logger
	inflightTimeout time.Duration
}

func NewMessagingSocketController(pool *pgxpool.Pool, router *realtime.Router, sendUC *usecase.SendMessageUseCase, cache cacheport.Cache, log *zap.Logger) *MessagingSocketController {
	repo := adapter.NewPgMessagingRepository(pool)
	if log == nil {
		log = zap.NewNop()
	}
	return &MessagingSocketController{
		router:          router,
		sendUC:          sendUC,
		listUC:          usecase.NewListConversationsUseCase(repo, cache),
		log:             log,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin enforcement happens at the gateway.
		return true
	},
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Body           string `json:"body,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type           string             `json:"type"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Message        *messaging.Message `json:"message,omitempty"`
}

type resyncFrame struct {
	Type          string                       `json:"type"`
	Conversations []messaging.ConversationView `json:"conversations"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades the connection and processes frames until the client
// disconnects.
func (ctl *MessagingSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := identity.CurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		conn.Start()
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(conn, ackFrame{Type: realtime.FrameConnected})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.log.Debug("socket read", zap.String("user", userID), zap.Error(err))
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case realtime.FrameMessage:
				ctl.handleSend(c, conn, userID, frame)
			case realtime.FrameResync:
				ctl.handleResync(c, conn, userID)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *MessagingSocketController) handleSend(c *gin.Context, conn *realtime.Connection, userID string, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.sendUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       userID,
		Body:           frame.Body,
	})
	if err != nil {
		// The client keeps the body and owns the retry; no server-side
		// requeue of user content.
		ctl.replyError(conn, sendErrorCode(err), err.Error())
		return
	}

	// The fan-out already echoed the message to this user's outlets; the
	// ack confirms the durable id to the sending socket.
	ctl.reply(conn, ackFrame{Type: "sent", ConversationID: frame.ConversationID, Message: msg})
}

func (ctl *MessagingSocketController) handleResync(c *gin.Context, conn *realtime.Connection, userID string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	views, err := ctl.listUC.Execute(ctx, usecase.ListConversationsInput{ViewerID: userID})
	if err != nil {
		ctl.replyError(conn, "resync_failed", err.Error())
		return
	}
	ctl.reply(conn, resyncFrame{Type: realtime.FrameResync, Conversations: views})
}

func (ctl *MessagingSocketController) reply(conn *realtime.Connection, v any) {
	if payload, err := json.Marshal(v); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *MessagingSocketController) replyError(conn *realtime.Connection, code, msg string) {
	ctl.reply(conn, errorFrame{Type: realtime.FrameError, Code: code, Error: msg})
}

func sendErrorCode(err error) string {
	switch {
	case errors.Is(err, messaging.ErrValidation):
		return "invalid_message"
	case errors.Is(err, messaging.ErrNotFound):
		return "not_found"
	case errors.Is(err, usecase.ErrPersistence):
		return "store_unavailable"
	default:
		return "send_failed"
	}
}
