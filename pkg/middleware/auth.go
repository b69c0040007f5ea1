package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserIDKey - ключ gin контекста с UUID аутентифицированного пользователя.
const UserIDKey = "user_id"

// TokenVerifier проверяет токен и возвращает UUID пользователя.
type TokenVerifier func(ctx context.Context, tokenString string) (uuid.UUID, error)

// AuthMiddleware требует заголовок "Authorization: Bearer <jwt>".
// Любая ошибка верификации отвечает 401 с телом unauthorizedBody.
func AuthMiddleware(verifier TokenVerifier, logger *zap.Logger, unauthorizedBody interface{}) gin.HandlerFunc {
	log := logger.Named("AuthMiddleware")

	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			log.Warn("Rejecting request", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		userID, err := verifier(c.Request.Context(), tokenString)
		if err != nil {
			log.Warn("Token verification failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID возвращает UUID, положенный AuthMiddleware.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	return userID, ok
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("malformed authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
