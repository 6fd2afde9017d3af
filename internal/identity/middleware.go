package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const contextUserKey = "identity.userID"

// Claims is the token shape issued by the identity provider.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Middleware authenticates the bearer token and stores the user id on the
// gin context. Requests without a valid token are rejected with 401.
func Middleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := userIDFromRequest(c, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(contextUserKey, userID)
		c.Next()
	}
}

// CurrentUser returns the authenticated user id for the request.
func CurrentUser(c *gin.Context) (string, error) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return "", ErrUnauthenticated
	}
	id, _ := v.(string)
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}

func userIDFromRequest(c *gin.Context, jwtSecret string) (string, error) {
	h := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(h, "Bearer ")
	if tokenStr == "" || tokenStr == h {
		// Websocket clients cannot set headers from the browser; accept the
		// token as a query parameter on upgrade requests only.
		if websocketUpgrade(c.Request) {
			tokenStr = c.Query("token")
		}
	}
	if tokenStr == "" {
		return "", ErrUnauthenticated
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", ErrUnauthenticated
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return "", ErrUnauthenticated
	}
	return claims.UserID, nil
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
