package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrRollbackFailed оборачивает исходную ошибку вместе с ошибкой отката.
var ErrRollbackFailed = errors.New("transaction rollback failed")

// Beginner открывает транзакцию. *pgxpool.Pool удовлетворяет интерфейсу,
// соединение возвращается в пул на Commit/Rollback.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxResult - значение, которое вернёт WithTransaction, и решение о фиксации.
// Решение влияет только на долговечность изменений, значение возвращается всегда.
type TxResult[T any] struct {
	Ret    T
	Commit bool
}

// TxOk - зафиксировать транзакцию и вернуть v.
func TxOk[T any](v T) TxResult[T] {
	return TxResult[T]{Ret: v, Commit: true}
}

// TxFail - откатить транзакцию и вернуть v.
func TxFail[T any](v T) TxResult[T] {
	return TxResult[T]{Ret: v, Commit: false}
}

// TxFunc - тело транзакции.
type TxFunc[T any] func(ctx context.Context, tx pgx.Tx) (TxResult[T], error)

// WithTransaction выполняет fn в одной транзакции.
//
// TxOk фиксирует, TxFail откатывает, в обоих случаях возвращается Ret.
// Ошибка или паника в fn приводят к откату. Если откат тоже упал, обе ошибки
// возвращаются вместе под ErrRollbackFailed. Паника пробрасывается дальше после отката.
func WithTransaction[T any](ctx context.Context, db Beginner, logger *zap.Logger, fn TxFunc[T]) (ret T, err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return ret, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := rollback(ctx, tx); rbErr != nil {
			logger.Error("Failed to rollback transaction after panic",
				zap.Error(rbErr),
				zap.Any("panic", p))
			panic(fmt.Errorf("%w: %w", ErrRollbackFailed, multierr.Combine(fmt.Errorf("panic: %v", p), rbErr)))
		}
		panic(p)
	}()

	res, fnErr := fn(ctx, tx)
	if fnErr != nil {
		if rbErr := rollback(ctx, tx); rbErr != nil {
			logger.Error("Failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", fnErr))
			return ret, fmt.Errorf("%w: %w", ErrRollbackFailed, multierr.Combine(fnErr, rbErr))
		}
		return ret, fnErr
	}

	if !res.Commit {
		if rbErr := rollback(ctx, tx); rbErr != nil {
			logger.Error("Failed to rollback transaction on fail disposition", zap.Error(rbErr))
			return ret, fmt.Errorf("%w: %w", ErrRollbackFailed, rbErr)
		}
		return res.Ret, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return ret, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res.Ret, nil
}

// rollback выполняется и при отменённом ctx запроса. Повторный откат закрытой транзакции не ошибка.
func rollback(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
