// Package storetest holds the behavioural checks every ports.LinkStore must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Stores should stamp successive links with
// strictly increasing createdAt so ordering checks are deterministic.
type Factory func(t *testing.T) ports.LinkStore

func strPtr(s string) *string { return &s }

func input(st, sid, tt, tid string) entities.LinkInput {
	return entities.LinkInput{SourceType: st, SourceID: sid, TargetType: tt, TargetID: tid}
}

func ids(links []*entities.Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.ID
	}
	return out
}

// Run executes the contract against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newStore(t)) })
	t.Run("CreateRejectsInvalidInput", func(t *testing.T) { testCreateRejectsInvalid(t, newStore(t)) })
	t.Run("FindByIDAbsent", func(t *testing.T) { testFindAbsent(t, newStore(t)) })
	t.Run("DeleteAbsent", func(t *testing.T) { testDeleteAbsent(t, newStore(t)) })
	t.Run("Symmetry", func(t *testing.T) { testSymmetry(t, newStore(t)) })
	t.Run("DeleteRemovesFromBothViews", func(t *testing.T) { testDeleteBothViews(t, newStore(t)) })
	t.Run("NoImplicitUniqueness", func(t *testing.T) { testDuplicates(t, newStore(t)) })
	t.Run("FindManyFiltersAndOrders", func(t *testing.T) { testFindMany(t, newStore(t)) })
	t.Run("SearchBound", func(t *testing.T) { testSearch(t, newStore(t)) })
	t.Run("SearchKeepsWhitespace", func(t *testing.T) { testSearchWhitespace(t, newStore(t)) })
	t.Run("CreatePair", func(t *testing.T) { testCreatePair(t, newStore(t)) })
	t.Run("CreatePairAllOrNothing", func(t *testing.T) { testCreatePairAtomic(t, newStore(t)) })
	t.Run("DeleteByEntity", func(t *testing.T) { testDeleteByEntity(t, newStore(t)) })
}

func testCreateAndFind(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	in := input("note", "A", "databaseEntry", "B")
	in.Metadata = strPtr(`{"role":"reagent"}`)

	created, err := store.Create(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	found, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, valueobjects.EntityTypeNote, found.SourceType)
	assert.Equal(t, "A", found.SourceID)
	assert.Equal(t, valueobjects.EntityTypeDatabaseEntry, found.TargetType)
	assert.Equal(t, "B", found.TargetID)
	assert.Equal(t, `{"role":"reagent"}`, found.MetadataValue())
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
}

func testCreateRejectsInvalid(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()

	_, err := store.Create(ctx, input("pdf", "A", "note", "B"))
	assert.True(t, apperrors.IsValidation(err))

	_, err = store.Create(ctx, input("note", "  ", "note", "B"))
	assert.True(t, apperrors.IsValidation(err))

	n, err := store.Count(ctx, ports.LinkFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testFindAbsent(t *testing.T, store ports.LinkStore) {
	found, err := store.FindByID(context.Background(), "6f1c8a52-2f61-4c43-9a55-6a0d2c1e7b11")

	require.NoError(t, err)
	assert.Nil(t, found)
}

func testDeleteAbsent(t *testing.T, store ports.LinkStore) {
	err := store.Delete(context.Background(), "6f1c8a52-2f61-4c43-9a55-6a0d2c1e7b11")

	assert.True(t, apperrors.IsNotFound(err))
}

func testSymmetry(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	created, err := store.Create(ctx, input("experiment", "E1", "protocol", "P1"))
	require.NoError(t, err)

	outgoing, err := store.GetOutgoing(ctx, created.SourceRef())
	require.NoError(t, err)
	backlinks, err := store.GetBacklinks(ctx, created.TargetRef())
	require.NoError(t, err)

	assert.Contains(t, ids(outgoing), created.ID)
	assert.Contains(t, ids(backlinks), created.ID)

	// Same id under a different type is a different endpoint
	other, err := store.GetOutgoing(ctx, valueobjects.EntityRef{Type: valueobjects.EntityTypeNote, ID: "E1"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testDeleteBothViews(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	created, err := store.Create(ctx, input("note", "A", "table", "T"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))

	found, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	outgoing, err := store.GetOutgoing(ctx, created.SourceRef())
	require.NoError(t, err)
	assert.NotContains(t, ids(outgoing), created.ID)

	backlinks, err := store.GetBacklinks(ctx, created.TargetRef())
	require.NoError(t, err)
	assert.NotContains(t, ids(backlinks), created.ID)
}

func testDuplicates(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	first, err := store.Create(ctx, input("note", "A", "note", "A"))
	require.NoError(t, err)
	second, err := store.Create(ctx, input("note", "A", "note", "A"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	outgoing, err := store.GetOutgoing(ctx, first.SourceRef())
	require.NoError(t, err)
	assert.Len(t, outgoing, 2)
}

func testFindMany(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	var created []*entities.Link
	for i := 0; i < 5; i++ {
		l, err := store.Create(ctx, input("note", "A", "project", fmt.Sprintf("P%d", i)))
		require.NoError(t, err)
		created = append(created, l)
	}
	_, err := store.Create(ctx, input("highlight", "H", "project", "P0"))
	require.NoError(t, err)

	filter := ports.LinkFilter{SourceType: valueobjects.EntityTypeNote, SourceID: "A"}

	all, err := store.FindMany(ctx, filter, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
	// newest first
	assert.Equal(t, created[4].ID, all[0].ID)
	assert.Equal(t, created[0].ID, all[4].ID)

	window, err := store.FindMany(ctx, filter, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{created[3].ID, created[2].ID}, ids(window))

	past, err := store.FindMany(ctx, filter, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, past)

	n, err := store.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	byTarget, err := store.Count(ctx, ports.LinkFilter{TargetType: valueobjects.EntityTypeProject, TargetID: "P0"})
	require.NoError(t, err)
	assert.Equal(t, 2, byTarget)

	total, err := store.Count(ctx, ports.LinkFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}

func testSearch(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		in := input("note", "A", "table", fmt.Sprintf("T%d", i))
		in.Metadata = strPtr(fmt.Sprintf(`{"context":"buffer prep %d"}`, i))
		_, err := store.Create(ctx, in)
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, input("note", "A", "table", "plain"))
	require.NoError(t, err)

	hits, err := store.Search(ctx, "buffer", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	for _, h := range hits {
		assert.Contains(t, h.MetadataValue(), "buffer")
	}

	none, err := store.Search(ctx, "Buffer", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSearchWhitespace(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	tagged := input("note", "A", "table", "T1")
	tagged.Metadata = strPtr(`{"tag":"abc"}`)
	_, err := store.Create(ctx, tagged)
	require.NoError(t, err)
	spaced := input("note", "A", "table", "T2")
	spaced.Metadata = strPtr(`{"context":"gel buffer"}`)
	want, err := store.Create(ctx, spaced)
	require.NoError(t, err)

	none, err := store.Search(ctx, " abc", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	hits, err := store.Search(ctx, " buffer", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{want.ID}, ids(hits))
}

func testCreatePair(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	in := input("note", "A", "databaseEntry", "B")
	in.Metadata = strPtr("m")

	fwd, rev, err := store.CreatePair(ctx, in, in.Reversed())
	require.NoError(t, err)

	assert.NotEqual(t, fwd.ID, rev.ID)
	assert.Equal(t, fwd.SourceRef(), rev.TargetRef())
	assert.Equal(t, fwd.TargetRef(), rev.SourceRef())
	assert.Equal(t, "m", rev.MetadataValue())

	// halves are independent
	require.NoError(t, store.Delete(ctx, fwd.ID))
	found, err := store.FindByID(ctx, rev.ID)
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func testCreatePairAtomic(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()

	_, _, err := store.CreatePair(ctx, input("note", "A", "note", "B"), input("note", "B", "unknown", "A"))
	require.Error(t, err)

	n, err := store.Count(ctx, ports.LinkFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDeleteByEntity(t *testing.T, store ports.LinkStore) {
	ctx := context.Background()
	_, err := store.Create(ctx, input("note", "X", "project", "P"))
	require.NoError(t, err)
	_, err = store.Create(ctx, input("experiment", "E", "note", "X"))
	require.NoError(t, err)
	_, err = store.Create(ctx, input("note", "X", "note", "X"))
	require.NoError(t, err)
	keep, err := store.Create(ctx, input("note", "Y", "project", "P"))
	require.NoError(t, err)

	removed, err := store.DeleteByEntity(ctx, valueobjects.EntityRef{Type: valueobjects.EntityTypeNote, ID: "X"})
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	remaining, err := store.FindMany(ctx, ports.LinkFilter{}, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(remaining))

	again, err := store.DeleteByEntity(ctx, valueobjects.EntityRef{Type: valueobjects.EntityTypeNote, ID: "X"})
	require.NoError(t, err)
	assert.Zero(t, again)
}

// TickingClock returns a clock that advances by step on every call
func TickingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}
