package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rephrase-server/internal/model"
)

// DBTX - общий интерфейс для *pgxpool.Pool и pgx.Tx.
// Репозитории принимают его параметром, чтобы работать внутри чужой транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserRepository работает с балансом пользователя.
type UserRepository interface {
	// LockBalance читает баланс с SELECT ... FOR UPDATE. Блокировка держится до конца транзакции.
	// Возвращает model.ErrUserNotFound, если строки нет.
	LockBalance(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error)
	// UpdateBalance записывает новый баланс и updated_at.
	UpdateBalance(ctx context.Context, db DBTX, userID uuid.UUID, newBalance int64) error
}

// StyleRepository читает стили (только чтение).
type StyleRepository interface {
	// GetEnabledPrompt возвращает prompt включённого стиля или model.ErrStyleNotFound.
	GetEnabledPrompt(ctx context.Context, db DBTX, styleID uuid.UUID) (string, error)
	// ListEnabled возвращает все включённые стили по имени.
	ListEnabled(ctx context.Context, db DBTX) ([]model.Style, error)
}

// RephraseRepository - история запросов, только добавление.
type RephraseRepository interface {
	// FindReplayable возвращает последнюю запись REPHRASED или BAD_USER_REQUEST
	// для (userID, key). FAILED записи пропускаются. Нет записи - model.ErrNotFound.
	FindReplayable(ctx context.Context, db DBTX, userID, idempotencyKey uuid.UUID) (*model.RephraseRecord, error)
	// Insert добавляет запись и заполняет ID и CreatedAt.
	Insert(ctx context.Context, db DBTX, record *model.RephraseRecord) error
}
