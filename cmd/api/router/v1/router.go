package v1

import (
	"github.com/GamerOZE123/unigramm1-sub000/internal/identity"
	httpHandler "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/presentation/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1.
// Every messaging route requires an authenticated user.
func RegisterRoutes(r *gin.Engine, jwtSecret string, deps httpHandler.Deps) {
	v1 := r.Group("/api/v1")
	v1.Use(identity.Middleware(jwtSecret))
	httpHandler.RegisterRoutes(v1, deps)
}
