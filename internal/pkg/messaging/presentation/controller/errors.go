package controller

import (
	"errors"
	"net/http"

	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
	"github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/usecase"

	"github.com/gin-gonic/gin"
)

// respondError maps the domain error taxonomy onto HTTP statuses. Conflicts
// are recovered inside the registry and should never reach this point; 409
// is kept for safety.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, messaging.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, messaging.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, messaging.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, messaging.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, usecase.ErrPersistence):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
