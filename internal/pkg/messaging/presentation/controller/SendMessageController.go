package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/GamerOZE123/unigramm1-sub000/internal/identity"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/usecase"

	"github.com/gin-gonic/gin"
)

// SendMessageController persists a message synchronously and returns the
// durable row. Sends are never queued or retried server-side: a failure
// surfaces to the caller, who owns the retry decision, so user content is
// never duplicated.
//
// The pipeline is shared with the websocket endpoint so sends into one
// conversation serialize regardless of transport.
type SendMessageController struct {
	UC *usecase.SendMessageUseCase
}

func NewSendMessageController(sendUC *usecase.SendMessageUseCase) *SendMessageController {
	return &SendMessageController{UC: sendUC}
}

type sendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, err := identity.CurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: conversationID,
			SenderID:       viewerID,
			Body:           req.Body,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}
