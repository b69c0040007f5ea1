package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
	"rephrase-server/internal/repository"
)

// BalanceLock - баланс, прочитанный под FOR UPDATE. Действителен до конца транзакции.
type BalanceLock struct {
	UserID  uuid.UUID
	Balance int64
}

// Debit - рассчитанное списание. Записывается только через BalanceLedger.Apply.
type Debit struct {
	UserID     uuid.UUID
	Cost       int64
	NewBalance int64
}

// Debit проверяет, хватает ли средств. Ничего не меняет.
func (l BalanceLock) Debit(cost int64) (Debit, error) {
	if cost < 0 {
		return Debit{}, fmt.Errorf("%w: negative cost %d", model.ErrInvalidInput, cost)
	}
	newBalance := l.Balance - cost
	if newBalance < 0 {
		return Debit{}, model.ErrInsufficientFunds
	}
	return Debit{UserID: l.UserID, Cost: cost, NewBalance: newBalance}, nil
}

// BalanceLedger блокирует и меняет баланс пользователя внутри текущей транзакции.
type BalanceLedger struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewBalanceLedger(users repository.UserRepository, logger *zap.Logger) *BalanceLedger {
	return &BalanceLedger{users: users, logger: logger.Named("BalanceLedger")}
}

// Lock берёт эксклюзивную блокировку строки пользователя.
// Параллельные запросы того же пользователя ждут здесь, другие пользователи не блокируются.
func (l *BalanceLedger) Lock(ctx context.Context, db repository.DBTX, userID uuid.UUID) (BalanceLock, error) {
	balance, err := l.users.LockBalance(ctx, db, userID)
	if err != nil {
		return BalanceLock{}, err
	}
	return BalanceLock{UserID: userID, Balance: balance}, nil
}

// Apply записывает новый баланс. Вызывается только на пути фиксации.
func (l *BalanceLedger) Apply(ctx context.Context, db repository.DBTX, debit Debit) error {
	if err := l.users.UpdateBalance(ctx, db, debit.UserID, debit.NewBalance); err != nil {
		return fmt.Errorf("failed to apply debit: %w", err)
	}
	l.logger.Debug("Debit applied",
		zap.String("userID", debit.UserID.String()),
		zap.Int64("cost", debit.Cost),
		zap.Int64("newBalance", debit.NewBalance))
	return nil
}
