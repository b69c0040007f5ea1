package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

// UsagePublisher отправляет событие о зафиксированной попытке генерации.
type UsagePublisher interface {
	PublishUsage(ctx context.Context, event model.RephraseUsageEvent) error
}

type rabbitMQUsagePublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQUsagePublisher объявляет durable очередь. Канал закрывает вызывающий.
func NewRabbitMQUsagePublisher(ch *amqp.Channel, queueName string, logger *zap.Logger) (UsagePublisher, error) {
	_, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare usage queue '%s': %w", queueName, err)
	}
	logger.Info("Usage events queue declared", zap.String("queue", queueName))

	return &rabbitMQUsagePublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("UsagePublisher"),
	}, nil
}

func (p *rabbitMQUsagePublisher) PublishUsage(ctx context.Context, event model.RephraseUsageEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal usage event %s: %w", event.EventID, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish usage event %s: %w", event.EventID, err)
	}
	p.logger.Debug("Usage event published",
		zap.String("eventID", event.EventID),
		zap.String("status", string(event.Status)))
	return nil
}

type noopUsagePublisher struct{}

// NewNoopUsagePublisher - публикация отключена (RABBITMQ_URL не задан).
func NewNoopUsagePublisher() UsagePublisher { return noopUsagePublisher{} }

func (noopUsagePublisher) PublishUsage(context.Context, model.RephraseUsageEvent) error { return nil }

// NewUsageEvent собирает событие по записи истории.
func NewUsageEvent(rec *model.RephraseRecord) model.RephraseUsageEvent {
	return model.RephraseUsageEvent{
		EventID:        rec.ID.String(),
		UserID:         rec.UserID.String(),
		IdempotencyKey: rec.IdempotencyKey.String(),
		StyleID:        rec.StyleID.String(),
		Status:         rec.Status,
		Model:          rec.Model,
		Cost:           rec.Cost,
		InputTokens:    rec.ModelInputTokens,
		OutputTokens:   rec.ModelOutputTokens,
		OccurredAt:     rec.CreatedAt,
	}
}
