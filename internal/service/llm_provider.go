package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"rephrase-server/internal/config"
	"rephrase-server/internal/model"
)

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rephrase_llm_requests_total",
			Help: "Total number of generation requests by provider and outcome kind.",
		},
		[]string{"provider", "outcome"},
	)
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rephrase_llm_request_duration_seconds",
			Help:    "Histogram of generation request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rephrase_llm_tokens_total",
			Help: "Total number of model tokens by provider and direction.",
		},
		[]string{"provider", "direction"},
	)
)

// LLMProvider - единый контракт над генераторами текста.
// Rephrase всегда возвращает ровно один вид model.Outcome. Ошибки сети и бэкенда
// превращаются в model.SystemFailure, паники наружу не выходят.
type LLMProvider interface {
	Name() string
	Rephrase(ctx context.Context, prompt string) model.Outcome
}

// NewLLMProvider выбирает провайдера по cfg.LLMProvider. Неизвестное имя - ошибка запуска.
func NewLLMProvider(cfg *config.Config, logger *zap.Logger) (LLMProvider, error) {
	var provider LLMProvider
	switch cfg.LLMProvider {
	case config.LLMProviderFake:
		provider = NewFakeLLMProvider(cfg.FakeLLMDelay)
	case config.LLMProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			return nil, errors.New("openai provider requires an API key")
		}
		provider = newOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, logger)
	case config.LLMProviderOllama:
		p, err := newOllamaProvider(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownLLM, cfg.LLMProvider)
	}

	logger.Info("LLM provider configured",
		zap.String("provider", provider.Name()),
		zap.Duration("timeout", cfg.LLMTimeout))
	return NewTimeoutProvider(provider, cfg.LLMTimeout, logger), nil
}

// timeoutProvider ограничивает вызов по времени и пишет метрики.
type timeoutProvider struct {
	inner   LLMProvider
	timeout time.Duration
	logger  *zap.Logger
}

// NewTimeoutProvider оборачивает провайдера. Истёкший таймаут даёт SystemFailure.
func NewTimeoutProvider(inner LLMProvider, timeout time.Duration, logger *zap.Logger) LLMProvider {
	return &timeoutProvider{
		inner:   inner,
		timeout: timeout,
		logger:  logger.Named("LLMProvider").With(zap.String("provider", inner.Name())),
	}
}

func (p *timeoutProvider) Name() string { return p.inner.Name() }

func (p *timeoutProvider) Rephrase(ctx context.Context, prompt string) (outcome model.Outcome) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("LLM provider panicked", zap.Any("panic", r))
			outcome = model.SystemFailure{Message: fmt.Sprintf("provider panic: %v", r)}
		}
		p.observe(outcome, time.Since(start))
	}()

	outcome = p.inner.Rephrase(callCtx, prompt)
	if outcome == nil {
		outcome = model.SystemFailure{Message: "provider returned no outcome"}
	}
	outcome = model.Normalize(outcome)

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		if _, ok := outcome.(model.Success); !ok {
			in, out := tokensOf(outcome)
			p.logger.Warn("LLM request timed out", zap.Duration("timeout", p.timeout))
			return model.SystemFailure{
				Message:      fmt.Sprintf("llm request timed out after %s", p.timeout),
				InputTokens:  in,
				OutputTokens: out,
			}
		}
	}
	return outcome
}

func (p *timeoutProvider) observe(outcome model.Outcome, took time.Duration) {
	name := p.inner.Name()
	kind := model.OutcomeKind(outcome)
	llmRequestsTotal.WithLabelValues(name, kind).Inc()
	llmRequestDuration.WithLabelValues(name).Observe(took.Seconds())

	in, out := tokensOf(outcome)
	if in > 0 {
		llmTokensTotal.WithLabelValues(name, "input").Add(float64(in))
	}
	if out > 0 {
		llmTokensTotal.WithLabelValues(name, "output").Add(float64(out))
	}
	p.logger.Debug("LLM request finished",
		zap.String("outcome", kind),
		zap.Duration("latency", took),
		zap.Int("input_tokens", in),
		zap.Int("output_tokens", out))
}

func tokensOf(o model.Outcome) (int, int) {
	if o == nil {
		return 0, 0
	}
	return model.Normalize(o).Tokens()
}
