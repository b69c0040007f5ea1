package model

import (
	"time"

	"github.com/google/uuid"
)

// RephraseStatus - итог попытки, хранится в rephrase_history.status.
type RephraseStatus string

const (
	StatusRephrased      RephraseStatus = "REPHRASED"
	StatusFailed         RephraseStatus = "FAILED"
	StatusBadUserRequest RephraseStatus = "BAD_USER_REQUEST"
)

// Replayable - статусы, которые расходуют ключ идемпотентности.
func (s RephraseStatus) Replayable() bool {
	return s == StatusRephrased || s == StatusBadUserRequest
}

// RephraseRecord - строка истории. Таблица только дополняется.
type RephraseRecord struct {
	ID                   uuid.UUID      `db:"id"`
	UserID               uuid.UUID      `db:"user_id"`
	IdempotencyKey       uuid.UUID      `db:"idempotency_key"`
	InputText            string         `db:"input_text"`
	StyleID              uuid.UUID      `db:"style_id"`
	Prompt               string         `db:"prompt"`
	Model                string         `db:"model"`
	ModelInputTokens     int            `db:"model_input_tokens"`
	ModelOutputTokens    int            `db:"model_output_tokens"`
	Cost                 int64          `db:"cost"`
	OutputText           *string        `db:"output_text"`
	Status               RephraseStatus `db:"status"`
	ErrorMessage         *string        `db:"error_message"`
	ErrorMessageInternal *string        `db:"error_message_internal"`
	CreatedAt            time.Time      `db:"created_at"`
}

// RephraseUsageEvent публикуется после фиксации попытки генерации.
type RephraseUsageEvent struct {
	EventID        string         `json:"event_id"`
	UserID         string         `json:"user_id"`
	IdempotencyKey string         `json:"idempotency_key"`
	StyleID        string         `json:"style_id"`
	Status         RephraseStatus `json:"status"`
	Model          string         `json:"model"`
	Cost           int64          `json:"cost"`
	InputTokens    int            `json:"input_tokens"`
	OutputTokens   int            `json:"output_tokens"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
