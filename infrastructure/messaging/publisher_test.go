package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogPublisher_LogsEachEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	publisher := NewLogPublisher(zap.New(core))
	ref := valueobjects.EntityRef{Type: valueobjects.EntityTypeNote, ID: "A"}

	err := publisher.PublishBatch(context.Background(), []events.DomainEvent{
		events.NewLinksPurged(ref, 3, time.Now()),
		events.NewLinksPurged(ref, 1, time.Now()),
	})

	require.NoError(t, err)
	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, events.EventTypeLinksPurged, entries[0].ContextMap()["eventType"])
	assert.Equal(t, "note:A", entries[0].ContextMap()["aggregateID"])
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), events.NewLinksPurged(valueobjects.EntityRef{}, 0, time.Now())))
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}
