package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

const replayCacheKeyPrefix = "rephrase:replay:"

// ReplayCache хранит ответы, которые уже израсходовали ключ идемпотентности.
// Такие ответы неизменны, поэтому их можно отдавать без транзакции.
// База остаётся источником истины: промах или ошибка кэша ведут в обычный сценарий.
type ReplayCache interface {
	Get(ctx context.Context, userID, idempotencyKey uuid.UUID) (model.RephraseResult, bool)
	Put(ctx context.Context, userID, idempotencyKey uuid.UUID, result model.RephraseResult)
}

type cachedReplay struct {
	Kind      model.ResultKind `json:"kind"`
	Rephrased string           `json:"rephrased,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

type redisReplayCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisReplayCache создаёт кэш поверх Redis.
func NewRedisReplayCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) ReplayCache {
	return &redisReplayCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("ReplayCache"),
	}
}

func replayCacheKey(userID, idempotencyKey uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", replayCacheKeyPrefix, userID, idempotencyKey)
}

func (c *redisReplayCache) Get(ctx context.Context, userID, idempotencyKey uuid.UUID) (model.RephraseResult, bool) {
	data, err := c.client.Get(ctx, replayCacheKey(userID, idempotencyKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Replay cache read failed", zap.Error(err))
		}
		return model.RephraseResult{}, false
	}

	var cached cachedReplay
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("Replay cache entry is corrupted", zap.Error(err))
		return model.RephraseResult{}, false
	}
	if cached.Kind != model.ResultReplayed && cached.Kind != model.ResultRejectedByGenerator {
		return model.RephraseResult{}, false
	}
	return model.RephraseResult{Kind: cached.Kind, Rephrased: cached.Rephrased, Reason: cached.Reason}, true
}

func (c *redisReplayCache) Put(ctx context.Context, userID, idempotencyKey uuid.UUID, result model.RephraseResult) {
	if result.Kind != model.ResultReplayed && result.Kind != model.ResultRejectedByGenerator {
		return
	}
	data, err := json.Marshal(cachedReplay{Kind: result.Kind, Rephrased: result.Rephrased, Reason: result.Reason})
	if err != nil {
		c.logger.Warn("Failed to encode replay cache entry", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, replayCacheKey(userID, idempotencyKey), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Replay cache write failed", zap.Error(err))
	}
}

type noopReplayCache struct{}

// NewNoopReplayCache - кэш, который ничего не хранит (REDIS_ADDR не задан).
func NewNoopReplayCache() ReplayCache { return noopReplayCache{} }

func (noopReplayCache) Get(context.Context, uuid.UUID, uuid.UUID) (model.RephraseResult, bool) {
	return model.RephraseResult{}, false
}

func (noopReplayCache) Put(context.Context, uuid.UUID, uuid.UUID, model.RephraseResult) {}
