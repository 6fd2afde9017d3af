package controller

import (
	"context"
	"net/http"
	"time"

	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	"github.com/GamerOZE123/unigramm1-sub000/internal/identity"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/usecase"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/adapter"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The visibility endpoints all follow the same shape: authenticate, scope
// the single-row update to (conversation, viewer), 204 on success.

// ClearConversationController advances the viewer's cleared-before cursor.
type ClearConversationController struct {
	UC *usecase.ClearConversationUseCase
}

func NewClearConversationController(pool *pgxpool.Pool, cache cacheport.Cache) *ClearConversationController {
	repo := adapter.NewPgMessagingRepository(pool)
	return &ClearConversationController{UC: usecase.NewClearConversationUseCase(repo, cache)}
}

func (h *ClearConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, conversationID, ok := viewerAndConversation(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.UC.Execute(ctx, usecase.ClearConversationInput{
			ConversationID: conversationID,
			ViewerID:       viewerID,
		}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HideConversationController removes the conversation from the viewer's
// inbox ("delete for me"). The peer's view is untouched.
type HideConversationController struct {
	UC *usecase.HideConversationUseCase
}

func NewHideConversationController(pool *pgxpool.Pool, cache cacheport.Cache) *HideConversationController {
	repo := adapter.NewPgMessagingRepository(pool)
	return &HideConversationController{UC: usecase.NewHideConversationUseCase(repo, cache)}
}

func (h *HideConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, conversationID, ok := viewerAndConversation(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.UC.Execute(ctx, usecase.HideConversationInput{
			ConversationID: conversationID,
			ViewerID:       viewerID,
		}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// MarkReadController advances the viewer's read watermark.
type MarkReadController struct {
	UC *usecase.MarkReadUseCase
}

func NewMarkReadController(pool *pgxpool.Pool, cache cacheport.Cache) *MarkReadController {
	repo := adapter.NewPgMessagingRepository(pool)
	return &MarkReadController{UC: usecase.NewMarkReadUseCase(repo, cache)}
}

func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, conversationID, ok := viewerAndConversation(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.UC.Execute(ctx, usecase.MarkReadInput{
			ConversationID: conversationID,
			ViewerID:       viewerID,
		}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// BlockUserController records a block against another user.
type BlockUserController struct {
	UC *usecase.BlockUserUseCase
}

func NewBlockUserController(pool *pgxpool.Pool) *BlockUserController {
	repo := adapter.NewPgMessagingRepository(pool)
	return &BlockUserController{UC: usecase.NewBlockUserUseCase(repo)}
}

type blockUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *BlockUserController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, err := identity.CurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		var req blockUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.UC.Execute(ctx, usecase.BlockUserInput{
			ViewerID: viewerID,
			UserID:   req.UserID,
		}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func viewerAndConversation(c *gin.Context) (viewerID, conversationID string, ok bool) {
	viewerID, err := identity.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", "", false
	}
	conversationID = c.Param("conversationId")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
		return "", "", false
	}
	return viewerID, conversationID, true
}
