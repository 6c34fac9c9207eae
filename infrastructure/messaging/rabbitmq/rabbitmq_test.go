package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	published  []published
	publishErr error
	bindings   map[string]string
	deliveries chan amqp.Delivery
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{bindings: map[string]string{}, deliveries: make(chan amqp.Delivery, 8)}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bindings[name] = exchange + "/" + key
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error { return nil }

// fakeAcker records how each delivery was settled
type fakeAcker struct {
	mu      sync.Mutex
	acks    []uint64
	nacks   []uint64
	requeue []bool
	done    chan struct{}
}

func newFakeAcker() *fakeAcker { return &fakeAcker{done: make(chan struct{}, 8)} }

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks = append(a.acks, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacks = append(a.nacks, tag)
	a.requeue = append(a.requeue, requeue)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func TestPublisher_RoutesByEventType(t *testing.T) {
	ch := newFakeChannel()
	publisher, err := NewPublisher(ch, "eln.links", zap.NewNop())
	require.NoError(t, err)
	ref := valueobjects.EntityRef{Type: valueobjects.EntityTypeNote, ID: "A"}

	err = publisher.PublishBatch(context.Background(), []events.DomainEvent{
		events.NewLinksPurged(ref, 2, time.Now()),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"eln.links:topic"}, ch.exchanges)
	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "eln.links", got.exchange)
	assert.Equal(t, events.EventTypeLinksPurged, got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)

	var body events.LinksPurged
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, 2, body.Removed)
}

func TestPublisher_WrapsPublishErrors(t *testing.T) {
	ch := newFakeChannel()
	ch.publishErr = amqp.ErrClosed
	publisher, err := NewPublisher(ch, "eln.links", zap.NewNop())
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), events.NewLinksPurged(valueobjects.EntityRef{}, 0, time.Now()))

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func deliver(t *testing.T, ch *fakeChannel, acker *fakeAcker, tag uint64, body string, redelivered bool) {
	t.Helper()
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: []byte(body), Redelivered: redelivered}
	select {
	case <-acker.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("delivery %d was never settled", tag)
	}
}

func TestConsumer_SettlesByOutcome(t *testing.T) {
	ch := newFakeChannel()
	acker := newFakeAcker()

	var handled []events.EntityDeletedDetail
	handler := func(ctx context.Context, d events.EntityDeletedDetail) error {
		handled = append(handled, d)
		switch d.EntityID {
		case "bad":
			return apperrors.NewValidationError("unknown entity type")
		case "flaky":
			return errors.New("store down")
		}
		return nil
	}

	consumer := NewConsumer(ch, "eln.links", "links.cleanup", handler, zap.NewNop())
	require.NoError(t, consumer.Setup())
	assert.Equal(t, "eln.links/entity.deleted", ch.bindings["links.cleanup"])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	deliver(t, ch, acker, 1, `{"entity_type":"note","entity_id":"A"}`, false)
	deliver(t, ch, acker, 2, `not json`, false)
	deliver(t, ch, acker, 3, `{"entity_type":"note","entity_id":"bad"}`, false)
	deliver(t, ch, acker, 4, `{"entity_type":"note","entity_id":"flaky"}`, false)
	deliver(t, ch, acker, 5, `{"entity_type":"note","entity_id":"flaky"}`, true)

	cancel()
	require.NoError(t, <-done)

	acker.mu.Lock()
	defer acker.mu.Unlock()
	assert.Equal(t, []uint64{1}, acker.acks)
	assert.Equal(t, []uint64{2, 3, 4, 5}, acker.nacks)
	assert.Equal(t, []bool{false, false, true, false}, acker.requeue)
	assert.Len(t, handled, 4)
}
