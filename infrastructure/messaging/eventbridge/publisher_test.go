package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePutEvents struct {
	calls  []*eventbridge.PutEventsInput
	err    error
	failed int32
}

func (f *fakePutEvents) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for i := range params.Entries {
		entry := types.PutEventsResultEntry{EventId: aws.String(fmt.Sprintf("e%d", i))}
		if int32(i) < f.failed {
			entry.ErrorCode = aws.String("InternalFailure")
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func purged(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		ref := valueobjects.EntityRef{Type: valueobjects.EntityTypeNote, ID: fmt.Sprintf("n%d", i)}
		out[i] = events.NewLinksPurged(ref, i, time.Now())
	}
	return out
}

func TestPublisher_BatchesOfTen(t *testing.T) {
	client := &fakePutEvents{}
	publisher := NewPublisher(client, "eln-bus", zap.NewNop())

	err := publisher.PublishBatch(context.Background(), purged(23))

	require.NoError(t, err)
	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[1].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 3)
}

func TestPublisher_EntryShape(t *testing.T) {
	client := &fakePutEvents{}
	publisher := NewPublisher(client, "eln-bus", zap.NewNop())
	event := purged(1)[0]

	require.NoError(t, publisher.Publish(context.Background(), event))

	entry := client.calls[0].Entries[0]
	assert.Equal(t, "eln-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, events.SourceLinks, aws.ToString(entry.Source))
	assert.Equal(t, events.EventTypeLinksPurged, aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "n0", detail["entity_id"])
}

func TestPublisher_Failures(t *testing.T) {
	t.Run("call error", func(t *testing.T) {
		publisher := NewPublisher(&fakePutEvents{err: errors.New("boom")}, "bus", zap.NewNop())

		err := publisher.Publish(context.Background(), purged(1)[0])

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})

	t.Run("partial failure", func(t *testing.T) {
		publisher := NewPublisher(&fakePutEvents{failed: 1}, "bus", zap.NewNop())

		err := publisher.PublishBatch(context.Background(), purged(2))

		assert.Error(t, err)
	})

	t.Run("empty batch makes no call", func(t *testing.T) {
		client := &fakePutEvents{}
		publisher := NewPublisher(client, "bus", zap.NewNop())

		require.NoError(t, publisher.PublishBatch(context.Background(), nil))
		assert.Empty(t, client.calls)
	})
}
