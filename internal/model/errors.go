package model

import "errors"

var (
	// Отказы до генерации. Транзакция откатывается, ничего не пишется.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStyleNotFound     = errors.New("style not found or disabled")
	// ErrUserNotFound - строки аутентифицированного пользователя нет в users.
	ErrUserNotFound = errors.New("user not found")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input data")
	ErrUnknownLLM   = errors.New("unknown llm provider")
)
