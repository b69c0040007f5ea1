package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

const (
	lockUserBalanceQuery   = `SELECT balance FROM users WHERE user_id = $1 FOR UPDATE`
	updateUserBalanceQuery = `UPDATE users SET balance = $1, updated_at = NOW() WHERE user_id = $2`
)

var _ UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	logger *zap.Logger
}

func NewPgUserRepository(logger *zap.Logger) UserRepository {
	return &pgUserRepository{logger: logger.Named("PgUserRepo")}
}

func (r *pgUserRepository) LockBalance(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error) {
	var balance int64
	err := db.QueryRow(ctx, lockUserBalanceQuery, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("User row not found while locking balance", zap.String("userID", userID.String()))
			return 0, model.ErrUserNotFound
		}
		r.logger.Error("Failed to lock user balance", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to lock balance for user %s: %w", userID, err)
	}
	return balance, nil
}

func (r *pgUserRepository) UpdateBalance(ctx context.Context, db DBTX, userID uuid.UUID, newBalance int64) error {
	tag, err := db.Exec(ctx, updateUserBalanceQuery, newBalance, userID)
	if err != nil {
		r.logger.Error("Failed to update user balance",
			zap.String("userID", userID.String()),
			zap.Int64("newBalance", newBalance),
			zap.Error(err))
		return fmt.Errorf("failed to update balance for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	r.logger.Debug("User balance updated", zap.String("userID", userID.String()), zap.Int64("newBalance", newBalance))
	return nil
}
