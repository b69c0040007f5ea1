package authutils

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWTVerifier проверяет HS256 токены и извлекает UUID пользователя из sub.
type JWTVerifier struct {
	jwtSecret []byte
	logger    *zap.Logger
	parser    *jwt.Parser
}

// NewJWTVerifier создаёт верификатор. Если logger nil, используется Noop.
func NewJWTVerifier(jwtSecret string, logger *zap.Logger) (*JWTVerifier, error) {
	if jwtSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTVerifier{
		jwtSecret: []byte(jwtSecret),
		logger:    logger.Named("JWTVerifier"),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// VerifyToken проверяет подпись и срок действия, возвращает UUID из sub.
func (v *JWTVerifier) VerifyToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	log := v.logger.With(zap.String("tokenSnippet", tokenSnippet(tokenString)))
	claims := &Claims{}

	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.jwtSecret, nil
	})
	if err != nil {
		log.Warn("Failed to parse or verify token", zap.Error(err))
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return uuid.Nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, ErrTokenInvalid
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		log.Warn("Token is invalid despite no parsing error")
		return uuid.Nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		log.Warn("Token subject is not a user UUID", zap.String("sub", claims.Subject))
		return uuid.Nil, fmt.Errorf("%w: subject is not a UUID", ErrTokenInvalid)
	}

	log.Debug("Token verified successfully", zap.String("userID", userID.String()))
	return userID, nil
}

func tokenSnippet(tokenString string) string {
	limit := 15
	if len(tokenString) > limit {
		return tokenString[:limit] + "..."
	}
	return tokenString
}
