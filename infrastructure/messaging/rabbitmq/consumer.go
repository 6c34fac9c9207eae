package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumerChannel is the part of *amqp.Channel the consumer uses
type ConsumerChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// EntityDeletedHandler reacts to an entity being removed from its own store
type EntityDeletedHandler func(ctx context.Context, detail events.EntityDeletedDetail) error

// Consumer feeds entity.deleted messages from a durable queue to a handler
type Consumer struct {
	ch       ConsumerChannel
	exchange string
	queue    string
	handler  EntityDeletedHandler
	logger   *zap.Logger
}

// NewConsumer creates a consumer; call Setup before Run
func NewConsumer(ch ConsumerChannel, exchange, queue string, handler EntityDeletedHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		ch:       ch,
		exchange: exchange,
		queue:    queue,
		handler:  handler,
		logger:   logger.Named("consumer"),
	}
}

// Setup declares the exchange and queue and binds them on the entity.deleted key
func (c *Consumer) Setup() error {
	if err := DeclareExchange(c.ch, c.exchange); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	if _, err := c.ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := c.ch.QueueBind(c.queue, events.EventTypeEntityDeleted, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.queue, err)
	}
	return c.ch.Qos(1, 0, false)
}

// Run consumes until ctx is cancelled or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(
		c.queue,
		"",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("Listening for messages", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	var detail events.EntityDeletedDetail
	if err := json.Unmarshal(msg.Body, &detail); err != nil {
		c.logger.Error("Dropping malformed message", zap.Error(err), zap.String("messageID", msg.MessageId))
		c.settle(msg.Nack(false, false))
		return
	}

	err := c.handler(ctx, detail)
	switch {
	case err == nil:
		c.settle(msg.Ack(false))
	case apperrors.IsCallerError(err):
		c.logger.Warn("Dropping rejected message",
			zap.Error(err),
			zap.String("entityType", detail.EntityType),
			zap.String("entityID", detail.EntityID))
		c.settle(msg.Nack(false, false))
	default:
		// redelivered once, then dropped so a poison message cannot loop
		requeue := !msg.Redelivered
		c.logger.Error("Failed to handle message",
			zap.Error(err),
			zap.String("entityType", detail.EntityType),
			zap.String("entityID", detail.EntityID),
			zap.Bool("requeue", requeue))
		c.settle(msg.Nack(false, requeue))
	}
}

func (c *Consumer) settle(err error) {
	if err != nil {
		c.logger.Error("Failed to settle message", zap.Error(err))
	}
}
