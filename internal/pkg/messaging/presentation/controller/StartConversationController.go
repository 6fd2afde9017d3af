package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GamerOZE123/unigramm1-sub000/internal/identity"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/usecase"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/adapter"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StartConversationController resolves the canonical conversation with a
// peer, creating it on first contact. One controller per endpoint.
type StartConversationController struct {
	UC    *usecase.StartConversationUseCase
	Users identity.Directory
}

func NewStartConversationController(pool *pgxpool.Pool, users identity.Directory) *StartConversationController {
	repo := adapter.NewPgMessagingRepository(pool)
	return &StartConversationController{
		UC:    usecase.NewStartConversationUseCase(repo),
		Users: users,
	}
}

type startConversationRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

func (h *StartConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, err := identity.CurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		var req startConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		// The peer must still exist in the directory; a vanished user is a
		// dead end, not a new conversation.
		if h.Users != nil {
			if _, err := h.Users.FindByID(ctx, req.PeerID); err != nil {
				if errors.Is(err, identity.ErrUserNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
					return
				}
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "directory unavailable"})
				return
			}
		}

		conv, err := h.UC.Execute(ctx, usecase.StartConversationInput{
			ViewerID: viewerID,
			PeerID:   req.PeerID,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":               conv.ID,
			"peer_id":          conv.PeerOf(viewerID),
			"created_at":       conv.CreatedAt,
			"last_activity_at": conv.LastActivityAt,
		})
	}
}
