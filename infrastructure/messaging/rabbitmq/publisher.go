// Package rabbitmq publishes link events to, and consumes entity events from,
// a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Channel is the part of *amqp.Channel the publisher uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements ports.EventPublisher on a topic exchange. The routing
// key of every message is the event type.
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
	logger   *zap.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Dial connects to url and opens a channel
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	return conn, ch, nil
}

// DeclareExchange declares the durable topic exchange shared by publishers
// and consumers
func DeclareExchange(ch Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// NewPublisher declares exchange on ch and returns a publisher for it
func NewPublisher(ch Channel, exchange string, logger *zap.Logger) (*Publisher, error) {
	if err := DeclareExchange(ch, exchange); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends one persistent message
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event")
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.GetTimestamp(),
		Type:         event.GetEventType(),
		AppId:        events.SourceLinks,
		MessageId:    fmt.Sprintf("%s:%s:%d", event.GetEventType(), event.GetAggregateID(), event.GetTimestamp().UnixNano()),
		Body:         body,
	}

	// channels are not safe for concurrent publishing
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, event.GetEventType(), false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return apperrors.NewExternalError("rabbitmq", err)
	}

	p.logger.Debug("Event published to RabbitMQ",
		zap.String("exchange", p.exchange),
		zap.String("routingKey", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
	)
	return nil
}

// PublishBatch publishes events in order, stopping at the first failure
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the channel
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
