package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

const (
	findReplayableRephraseQuery = `
		SELECT id, user_id, idempotency_key, input_text, style_id, prompt, model,
		       model_input_tokens, model_output_tokens, cost, output_text,
		       status::text AS status, error_message, error_message_internal, created_at
		FROM rephrase_history
		WHERE user_id = $1 AND idempotency_key = $2 AND status IN ('REPHRASED', 'BAD_USER_REQUEST')
		ORDER BY created_at DESC
		LIMIT 1`

	insertRephraseQuery = `
		INSERT INTO rephrase_history
			(user_id, idempotency_key, input_text, style_id, prompt, model,
			 model_input_tokens, model_output_tokens, cost, output_text,
			 status, error_message, error_message_internal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::rephrase_status, $12, $13)
		RETURNING id, created_at`
)

var _ RephraseRepository = (*pgRephraseRepository)(nil)

type pgRephraseRepository struct {
	logger *zap.Logger
}

func NewPgRephraseRepository(logger *zap.Logger) RephraseRepository {
	return &pgRephraseRepository{logger: logger.Named("PgRephraseRepo")}
}

func (r *pgRephraseRepository) FindReplayable(ctx context.Context, db DBTX, userID, idempotencyKey uuid.UUID) (*model.RephraseRecord, error) {
	log := r.logger.With(zap.String("userID", userID.String()), zap.String("idempotencyKey", idempotencyKey.String()))

	var record model.RephraseRecord
	if err := pgxscan.Get(ctx, db, &record, findReplayableRephraseQuery, userID, idempotencyKey); err != nil {
		if pgxscan.NotFound(err) {
			return nil, model.ErrNotFound
		}
		log.Error("Failed to look up replayable rephrase", zap.Error(err))
		return nil, fmt.Errorf("failed to find rephrase for key %s: %w", idempotencyKey, err)
	}
	log.Debug("Replayable rephrase found", zap.String("status", string(record.Status)))
	return &record, nil
}

func (r *pgRephraseRepository) Insert(ctx context.Context, db DBTX, record *model.RephraseRecord) error {
	if record == nil {
		return errors.New("rephrase record is nil")
	}
	err := db.QueryRow(ctx, insertRephraseQuery,
		record.UserID,
		record.IdempotencyKey,
		record.InputText,
		record.StyleID,
		record.Prompt,
		record.Model,
		record.ModelInputTokens,
		record.ModelOutputTokens,
		record.Cost,
		record.OutputText,
		string(record.Status),
		record.ErrorMessage,
		record.ErrorMessageInternal,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert rephrase record",
			zap.String("userID", record.UserID.String()),
			zap.String("status", string(record.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to insert rephrase record: %w", err)
	}
	r.logger.Debug("Rephrase record inserted",
		zap.String("id", record.ID.String()),
		zap.String("status", string(record.Status)))
	return nil
}
