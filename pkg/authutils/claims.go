package authutils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
)

// Claims - поля access токена. Subject содержит UUID пользователя.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
