package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

const (
	getEnabledStylePromptQuery = `SELECT prompt FROM rephrase_styles WHERE id = $1 AND is_enabled = TRUE`
	listEnabledStylesQuery     = `
		SELECT id, name, description, example_input, example_output, prompt, is_enabled, created_at, updated_at
		FROM rephrase_styles
		WHERE is_enabled = TRUE
		ORDER BY name`
)

var _ StyleRepository = (*pgStyleRepository)(nil)

type pgStyleRepository struct {
	logger *zap.Logger
}

func NewPgStyleRepository(logger *zap.Logger) StyleRepository {
	return &pgStyleRepository{logger: logger.Named("PgStyleRepo")}
}

func (r *pgStyleRepository) GetEnabledPrompt(ctx context.Context, db DBTX, styleID uuid.UUID) (string, error) {
	var prompt string
	err := db.QueryRow(ctx, getEnabledStylePromptQuery, styleID).Scan(&prompt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Enabled style not found", zap.String("styleID", styleID.String()))
			return "", model.ErrStyleNotFound
		}
		r.logger.Error("Failed to get style prompt", zap.String("styleID", styleID.String()), zap.Error(err))
		return "", fmt.Errorf("failed to get style %s: %w", styleID, err)
	}
	// пустой prompt считается отсутствующим стилем
	if prompt == "" {
		return "", model.ErrStyleNotFound
	}
	return prompt, nil
}

func (r *pgStyleRepository) ListEnabled(ctx context.Context, db DBTX) ([]model.Style, error) {
	styles := make([]model.Style, 0)
	if err := pgxscan.Select(ctx, db, &styles, listEnabledStylesQuery); err != nil {
		r.logger.Error("Failed to list enabled styles", zap.Error(err))
		return nil, fmt.Errorf("failed to list enabled styles: %w", err)
	}
	return styles, nil
}
