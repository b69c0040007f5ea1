package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
	"rephrase-server/internal/repository"
	"rephrase-server/pkg/database"
)

const usagePublishTimeout = 5 * time.Second

var rephraseResultsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rephrase_workflow_results_total",
		Help: "Total number of rephrase workflow results by kind.",
	},
	[]string{"result"},
)

// DB - пул соединений: открывает транзакции и выполняет запросы вне их.
type DB interface {
	database.Beginner
	repository.DBTX
}

// RephraseService - платное идемпотентное перефразирование.
type RephraseService interface {
	// Rephrase выполняет сценарий целиком. Отказы до генерации возвращаются как
	// model.ErrInsufficientFunds, model.ErrStyleNotFound, model.ErrUserNotFound.
	Rephrase(ctx context.Context, userID uuid.UUID, req model.RephraseRequest) (model.RephraseResult, error)
	// ListStyles возвращает включённые стили.
	ListStyles(ctx context.Context) ([]model.Style, error)
}

type rephraseService struct {
	db        DB
	styles    repository.StyleRepository
	rephrases repository.RephraseRepository
	ledger    *BalanceLedger
	persister *OutcomePersister
	llm       LLMProvider
	cache     ReplayCache
	publisher UsagePublisher
	logger    *zap.Logger
}

// Deps - зависимости RephraseService.
type Deps struct {
	DB        DB
	Users     repository.UserRepository
	Styles    repository.StyleRepository
	Rephrases repository.RephraseRepository
	LLM       LLMProvider
	Cache     ReplayCache
	Publisher UsagePublisher
	Logger    *zap.Logger
}

func NewRephraseService(d Deps) RephraseService {
	if d.Cache == nil {
		d.Cache = NewNoopReplayCache()
	}
	if d.Publisher == nil {
		d.Publisher = NewNoopUsagePublisher()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	ledger := NewBalanceLedger(d.Users, d.Logger)
	return &rephraseService{
		db:        d.DB,
		styles:    d.Styles,
		rephrases: d.Rephrases,
		ledger:    ledger,
		persister: NewOutcomePersister(ledger, d.Rephrases, d.Logger),
		llm:       d.LLM,
		cache:     d.Cache,
		publisher: d.Publisher,
		logger:    d.Logger.Named("RephraseService"),
	}
}

// txValue - то, что тело транзакции передаёт наружу вместе с решением о фиксации.
type txValue struct {
	result    model.RephraseResult
	rejection error
	record    *model.RephraseRecord
	replayed  bool
}

func (s *rephraseService) Rephrase(ctx context.Context, userID uuid.UUID, req model.RephraseRequest) (model.RephraseResult, error) {
	styleID, err := uuid.Parse(req.StyleID)
	if err != nil {
		return model.RephraseResult{}, fmt.Errorf("%w: style_id: %v", model.ErrInvalidInput, err)
	}
	key, err := uuid.Parse(req.IdempotencyKey)
	if err != nil {
		return model.RephraseResult{}, fmt.Errorf("%w: idempotency_key: %v", model.ErrInvalidInput, err)
	}
	log := s.logger.With(zap.String("userID", userID.String()), zap.String("idempotencyKey", key.String()))

	if cached, ok := s.cache.Get(ctx, userID, key); ok {
		log.Debug("Replay served from cache")
		rephraseResultsTotal.WithLabelValues("replay_cache").Inc()
		return cached, nil
	}

	// Исход попытки не зависит от обрыва соединения клиента: генерация ограничена своим таймаутом.
	txCtx := context.WithoutCancel(ctx)

	out, err := database.WithTransaction(txCtx, s.db, s.logger,
		func(ctx context.Context, tx pgx.Tx) (database.TxResult[txValue], error) {
			return s.rephraseTx(ctx, tx, log, userID, styleID, key, req.Text)
		})
	if err != nil {
		rephraseResultsTotal.WithLabelValues("error").Inc()
		log.Error("Rephrase transaction failed", zap.Error(err))
		return model.RephraseResult{}, err
	}

	if out.rejection != nil {
		rephraseResultsTotal.WithLabelValues(rejectionLabel(out.rejection)).Inc()
		return model.RephraseResult{}, out.rejection
	}

	s.afterCommit(txCtx, log, userID, key, out)
	return out.result, nil
}

func (s *rephraseService) rephraseTx(
	ctx context.Context,
	tx pgx.Tx,
	log *zap.Logger,
	userID, styleID, key uuid.UUID,
	text string,
) (database.TxResult[txValue], error) {
	// Блокировка баланса до поиска по ключу: проигравший гонку за тот же ключ
	// увидит зафиксированную запись победителя.
	lock, err := s.ledger.Lock(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			log.Error("Authenticated user has no balance row")
			return database.TxFail(txValue{rejection: err}), nil
		}
		return database.TxResult[txValue]{}, err
	}

	prior, err := s.rephrases.FindReplayable(ctx, tx, userID, key)
	switch {
	case err == nil:
		log.Info("Idempotent replay", zap.String("status", string(prior.Status)))
		return database.TxOk(txValue{result: ReplayResult(prior), replayed: true}), nil
	case !errors.Is(err, model.ErrNotFound):
		return database.TxResult[txValue]{}, err
	}

	debit, err := lock.Debit(CalcUserTokens(text))
	if err != nil {
		if errors.Is(err, model.ErrInsufficientFunds) {
			log.Info("Balance too low", zap.Int64("balance", lock.Balance), zap.Int64("cost", CalcUserTokens(text)))
			return database.TxFail(txValue{rejection: err}), nil
		}
		return database.TxResult[txValue]{}, err
	}

	stylePrompt, err := s.styles.GetEnabledPrompt(ctx, tx, styleID)
	if err != nil {
		if errors.Is(err, model.ErrStyleNotFound) {
			log.Info("Style not found or disabled", zap.String("styleID", styleID.String()))
			return database.TxFail(txValue{rejection: err}), nil
		}
		return database.TxResult[txValue]{}, err
	}

	prompt := BuildRephrasePrompt(text, stylePrompt)
	outcome := s.llm.Rephrase(ctx, prompt)
	log.Info("Generation finished", zap.String("outcome", model.OutcomeKind(outcome)))

	result, record, err := s.persister.Persist(ctx, tx, Attempt{
		UserID:         userID,
		IdempotencyKey: key,
		StyleID:        styleID,
		InputText:      text,
		Prompt:         prompt,
		Model:          s.llm.Name(),
		Debit:          debit,
	}, outcome)
	if err != nil {
		return database.TxResult[txValue]{}, err
	}
	return database.TxOk(txValue{result: result, record: record}), nil
}

// afterCommit выполняется только после успешной фиксации. Ошибки здесь не меняют ответ.
func (s *rephraseService) afterCommit(ctx context.Context, log *zap.Logger, userID, key uuid.UUID, out txValue) {
	if out.replayed {
		rephraseResultsTotal.WithLabelValues("replay").Inc()
		s.cache.Put(ctx, userID, key, out.result)
		return
	}
	if out.record == nil {
		return
	}
	rephraseResultsTotal.WithLabelValues(string(out.record.Status)).Inc()

	if out.record.Status.Replayable() {
		s.cache.Put(ctx, userID, key, ReplayResult(out.record))
	}

	pubCtx, cancel := context.WithTimeout(ctx, usagePublishTimeout)
	defer cancel()
	if err := s.publisher.PublishUsage(pubCtx, NewUsageEvent(out.record)); err != nil {
		log.Warn("Failed to publish usage event", zap.Error(err))
	}
}

func (s *rephraseService) ListStyles(ctx context.Context) ([]model.Style, error) {
	return s.styles.ListEnabled(ctx, s.db)
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, model.ErrStyleNotFound):
		return "style_not_found"
	case errors.Is(err, model.ErrUserNotFound):
		return "user_not_found"
	default:
		return "rejected"
	}
}
