package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
	"rephrase-server/internal/repository"
)

// Attempt - всё, что известно о попытке генерации до её исхода.
type Attempt struct {
	UserID         uuid.UUID
	IdempotencyKey uuid.UUID
	StyleID        uuid.UUID
	InputText      string
	Prompt         string
	Model          string
	Debit          Debit
}

// OutcomePersister превращает исход генератора в запись истории и, если нужно, списание.
//
//	Success       - списание, REPHRASED, 201
//	UserFailure   - списание, BAD_USER_REQUEST, 422 с общей причиной
//	SystemFailure - без списания, FAILED с cost 0, 500
//
// Во всех трёх случаях транзакция фиксируется.
type OutcomePersister struct {
	ledger    *BalanceLedger
	rephrases repository.RephraseRepository
	logger    *zap.Logger
}

func NewOutcomePersister(ledger *BalanceLedger, rephrases repository.RephraseRepository, logger *zap.Logger) *OutcomePersister {
	return &OutcomePersister{
		ledger:    ledger,
		rephrases: rephrases,
		logger:    logger.Named("OutcomePersister"),
	}
}

type persistPlan struct {
	record model.RephraseRecord
	charge bool
	result model.RephraseResult
}

func (p *OutcomePersister) plan(a Attempt, outcome model.Outcome) persistPlan {
	base := model.RephraseRecord{
		UserID:         a.UserID,
		IdempotencyKey: a.IdempotencyKey,
		StyleID:        a.StyleID,
		InputText:      a.InputText,
		Prompt:         a.Prompt,
		Model:          a.Model,
	}

	return model.MatchOutcome(outcome,
		func(o model.Success) persistPlan {
			rec := base
			rec.Status = model.StatusRephrased
			rec.Cost = a.Debit.Cost
			rec.OutputText = stringPtr(o.Text)
			rec.ModelInputTokens, rec.ModelOutputTokens = o.InputTokens, o.OutputTokens
			return persistPlan{
				record: rec,
				charge: true,
				result: model.RephraseResult{Kind: model.ResultRephrased, Rephrased: o.Text},
			}
		},
		func(o model.UserFailure) persistPlan {
			rec := base
			rec.Status = model.StatusBadUserRequest
			rec.Cost = a.Debit.Cost
			rec.ErrorMessage = stringPtr(model.MsgInputViolatesAgreement)
			rec.ErrorMessageInternal = stringPtr(o.Message)
			rec.ModelInputTokens, rec.ModelOutputTokens = o.InputTokens, o.OutputTokens
			return persistPlan{
				record: rec,
				charge: true,
				result: model.RephraseResult{Kind: model.ResultRejectedByGenerator, Reason: model.MsgInputViolatesAgreement},
			}
		},
		func(o model.SystemFailure) persistPlan {
			rec := base
			rec.Status = model.StatusFailed
			rec.Cost = 0
			rec.ErrorMessage = stringPtr(model.MsgServerError)
			rec.ErrorMessageInternal = stringPtr(o.Message)
			rec.ModelInputTokens, rec.ModelOutputTokens = o.InputTokens, o.OutputTokens
			return persistPlan{
				record: rec,
				charge: false,
				result: model.RephraseResult{Kind: model.ResultGenerationFailed},
			}
		},
	)
}

// Persist пишет списание (для Success и UserFailure) и строку истории.
// Ошибка означает, что транзакцию нужно откатить.
func (p *OutcomePersister) Persist(ctx context.Context, db repository.DBTX, a Attempt, outcome model.Outcome) (model.RephraseResult, *model.RephraseRecord, error) {
	plan := p.plan(a, outcome)

	if plan.charge {
		if err := p.ledger.Apply(ctx, db, a.Debit); err != nil {
			return model.RephraseResult{}, nil, err
		}
	}
	if err := p.rephrases.Insert(ctx, db, &plan.record); err != nil {
		return model.RephraseResult{}, nil, err
	}

	p.logger.Info("Rephrase outcome persisted",
		zap.String("userID", a.UserID.String()),
		zap.String("idempotencyKey", a.IdempotencyKey.String()),
		zap.String("status", string(plan.record.Status)),
		zap.Int64("cost", plan.record.Cost),
		zap.Int("input_tokens", plan.record.ModelInputTokens),
		zap.Int("output_tokens", plan.record.ModelOutputTokens))
	return plan.result, &plan.record, nil
}

// ReplayResult восстанавливает ответ по авторитетной записи истории.
func ReplayResult(rec *model.RephraseRecord) model.RephraseResult {
	if rec.Status == model.StatusBadUserRequest {
		reason := model.MsgInputViolatesAgreement
		if rec.ErrorMessage != nil && *rec.ErrorMessage != "" {
			reason = *rec.ErrorMessage
		}
		return model.RephraseResult{Kind: model.ResultRejectedByGenerator, Reason: reason}
	}
	var text string
	if rec.OutputText != nil {
		text = *rec.OutputText
	}
	return model.RephraseResult{Kind: model.ResultReplayed, Rephrased: text}
}

func stringPtr(s string) *string { return &s }
