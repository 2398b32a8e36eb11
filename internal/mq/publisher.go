package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Conveyor/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeBatchProcessed MessageType = "automation.batch.processed"
	MessageTypeActionFailed   MessageType = "automation.action.failed"
)

// Exchange и очереди событий.
const (
	ExchangeEvents = "conveyor.events"

	QueueBatchesProcessed = "automations.batches"
	QueueActionFailures   = "automations.failures"

	RoutingKeyBatchProcessed = "batch.processed"
	RoutingKeyActionFailed   = "action.failed"
)

// Message — сообщение для публикации.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// BatchProcessedPayload — итог обработки одного батча.
type BatchProcessedPayload struct {
	TableName   string                  `json:"table_name"`
	Status      domain.AutomationStatus `json:"status"`
	FinalStatus domain.AutomationStatus `json:"final_status"`
	RecordCount int                     `json:"record_count"`
	ShardValue  string                  `json:"shard_value,omitempty"`
}

// ActionFailedPayload — упавшая автоматизация.
type ActionFailedPayload struct {
	TableName  string `json:"table_name"`
	ActionName string `json:"action_name"`
	Error      string `json:"error"`
}

// Publisher публикует события жизненного цикла автоматизаций.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// SetupTopology объявляет exchange, очереди и привязки.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(ExchangeEvents, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		bindings := []struct {
			queue string
			key   string
		}{
			{QueueBatchesProcessed, RoutingKeyBatchProcessed},
			{QueueActionFailures, RoutingKeyActionFailed},
		}
		for _, b := range bindings {
			if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(b.queue, b.key, ExchangeEvents, false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}
		return nil
	})
}

// Publish публикует сообщение с указанным routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			ExchangeEvents,
			routingKey,
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish %s: %w", routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishBatchProcessed публикует итог обработки батча.
func (p *Publisher) PublishBatchProcessed(ctx context.Context, payload BatchProcessedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeBatchProcessed,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, RoutingKeyBatchProcessed, msg)
}

// PublishActionFailed публикует событие об упавшей автоматизации.
func (p *Publisher) PublishActionFailed(ctx context.Context, payload ActionFailedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeActionFailed,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, RoutingKeyActionFailed, msg)
}
