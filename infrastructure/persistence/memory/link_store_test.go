package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/persistence/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) ports.LinkStore {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewLinkStoreWithClock(storetest.TickingClock(start, time.Millisecond))
}

func TestLinkStore_Contract(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestLinkStore_ReturnsCopies(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	created, err := store.Create(ctx, entities.LinkInput{SourceType: "note", SourceID: "A", TargetType: "note", TargetID: "B"})
	require.NoError(t, err)

	created.Source = &entities.EntitySummary{Title: "mutated"}

	found, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, found.Source)
}

func TestLinkStore_TiesBrokenByIDDescending(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewLinkStoreWithClock(func() time.Time { return fixed })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Create(ctx, entities.LinkInput{SourceType: "note", SourceID: "A", TargetType: "note", TargetID: "B"})
		require.NoError(t, err)
	}

	links, err := store.FindMany(ctx, ports.LinkFilter{}, 0, 10)
	require.NoError(t, err)
	for i := 1; i < len(links); i++ {
		assert.Greater(t, links[i-1].ID, links[i].ID)
	}
}

func TestLinkStore_ConcurrentDuplicateCreation(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	in := entities.LinkInput{SourceType: "note", SourceID: "A", TargetType: "project", TargetID: "P"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, in)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := store.Count(ctx, ports.LinkFilter{})
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
