package http

import (
	cacheport "github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/cache/port"
	"github.com/GamerOZE123/unigramm1-sub000/internal/identity"
	"github.com/GamerOZE123/unigramm1-sub000/internal/infrastructure/realtime"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/usecase"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/persistence/repository/adapter"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/presentation/controller"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps carries the shared infrastructure handed down from main.
type Deps struct {
	Pool     *pgxpool.Pool
	Cache    cacheport.Cache
	Router   *realtime.Router
	Notifier usecase.MessageNotifier
	Users    identity.Directory
	Log      *zap.Logger
}

// RegisterRoutes registers messaging endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d Deps) {
	// One send pipeline for both transports: its per-conversation locks
	// keep append and fan-out in persist order.
	sendUC := usecase.NewSendMessageUseCase(adapter.NewPgMessagingRepository(d.Pool), d.Notifier, d.Cache)

	startCtl := controller.NewStartConversationController(d.Pool, d.Users)
	listCtl := controller.NewListConversationsController(d.Pool, d.Cache)
	getMsgCtl := controller.NewGetMessagesController(d.Pool)
	sendCtl := controller.NewSendMessageController(sendUC)
	clearCtl := controller.NewClearConversationController(d.Pool, d.Cache)
	hideCtl := controller.NewHideConversationController(d.Pool, d.Cache)
	readCtl := controller.NewMarkReadController(d.Pool, d.Cache)
	blockCtl := controller.NewBlockUserController(d.Pool)
	socketCtl := controller.NewMessagingSocketController(d.Pool, d.Router, sendUC, d.Cache, d.Log)

	g.POST("/conversations", startCtl.Handle())
	g.GET("/conversations", listCtl.Handle())
	g.GET("/conversations/:conversationId/messages", getMsgCtl.Handle())
	g.POST("/conversations/:conversationId/messages", sendCtl.Handle())
	g.POST("/conversations/:conversationId/clear", clearCtl.Handle())
	g.DELETE("/conversations/:conversationId", hideCtl.Handle())
	g.POST("/conversations/:conversationId/read", readCtl.Handle())
	g.POST("/blocks", blockCtl.Handle())
	g.GET("/messaging/ws", socketCtl.Handle())
}
