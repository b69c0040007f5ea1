package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newAuthRouter(verifier TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(verifier, zap.NewNop(), "Unauthorized"))
	r.GET("/me", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, userID.String())
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	verifier := func(ctx context.Context, token string) (uuid.UUID, error) {
		if token == "good" {
			return userID, nil
		}
		return uuid.Nil, errors.New("bad token")
	}
	r := newAuthRouter(verifier)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusUnauthorized, `"Unauthorized"`},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, `"Unauthorized"`},
		{"empty token", "Bearer ", http.StatusUnauthorized, `"Unauthorized"`},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, `"Unauthorized"`},
		{"valid token", "Bearer good", http.StatusOK, userID.String()},
		{"lowercase scheme", "bearer good", http.StatusOK, userID.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestGinZapLogger_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinZapLogger(zap.NewNop(), "/health"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
}
