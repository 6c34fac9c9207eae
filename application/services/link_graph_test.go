package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports/mocks"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

func nodeIDs(result *GraphResult) []string {
	out := make([]string, len(result.Nodes))
	for i, n := range result.Nodes {
		out[i] = n.ID
	}
	return out
}

// chain builds note:0 -> note:1 -> ... -> note:n
func chain(t *testing.T, service *LinkService, n int) []*entities.Link {
	t.Helper()
	var links []*entities.Link
	for i := 0; i < n; i++ {
		l, err := service.CreateLink(context.Background(), linkInput("note", fmt.Sprint(i), "note", fmt.Sprint(i+1)))
		require.NoError(t, err)
		links = append(links, l)
	}
	return links
}

func TestLinkGraph_FlatMode_RowCap(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockLinkStore)
	service := newTestService(store)

	store.On("FindMany", ctx, ports.LinkFilter{}, 0, 100).Return([]*entities.Link{}, nil).Once()
	store.On("FindMany", ctx, ports.LinkFilter{}, 0, 30).Return([]*entities.Link{}, nil).Once()
	store.On("FindMany", ctx, ports.LinkFilter{SourceType: valueobjects.EntityTypeProject}, 0, 10).Return([]*entities.Link{}, nil).Once()
	// capped at 10 hops worth of rows
	store.On("FindMany", ctx, ports.LinkFilter{SourceType: valueobjects.EntityTypeNote}, 0, 100).Return([]*entities.Link{}, nil).Once()

	_, err := service.GetLinkGraph(ctx, GraphQuery{})
	require.NoError(t, err)
	_, err = service.GetLinkGraph(ctx, GraphQuery{MaxDepth: intPtr(3)})
	require.NoError(t, err)
	_, err = service.GetLinkGraph(ctx, GraphQuery{EntityType: "project", MaxDepth: intPtr(1)})
	require.NoError(t, err)
	_, err = service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", MaxDepth: intPtr(1 << 20)})
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestLinkGraph_Validation(t *testing.T) {
	service := newTestService(new(mocks.MockLinkStore))

	tests := []struct {
		name  string
		query GraphQuery
	}{
		{"zero depth", GraphQuery{MaxDepth: intPtr(0)}},
		{"negative depth", GraphQuery{MaxDepth: intPtr(-3)}},
		{"unknown type", GraphQuery{EntityType: "pdf"}},
		{"id without type", GraphQuery{EntityID: "A"}},
		{"unknown seed type", GraphQuery{EntityType: "pdf", EntityID: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetLinkGraph(context.Background(), tt.query)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestLinkGraph_Expansion_StopsAtDepth(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service := newTestService(newMemoryStore())
	links := chain(t, service, 5)

	// Act
	oneHop, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", EntityID: "0", MaxDepth: intPtr(1)})
	require.NoError(t, err)
	twoHops, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", EntityID: "0"})
	require.NoError(t, err)
	all, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", EntityID: "0", MaxDepth: intPtr(10)})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"note:0", "note:1"}, nodeIDs(oneHop))
	assert.Equal(t, []string{"note:0", "note:1", "note:2"}, nodeIDs(twoHops))
	assert.Len(t, all.Edges, len(links))
	assert.Len(t, all.Nodes, 6)
	assert.False(t, all.Truncated)
}

func TestLinkGraph_Expansion_ClampsDepthToMax(t *testing.T) {
	ctx := context.Background()
	service := newTestService(newMemoryStore())
	chain(t, service, 12)

	capped, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", EntityID: "0", MaxDepth: intPtr(11)})
	require.NoError(t, err)
	atMax, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", EntityID: "0", MaxDepth: intPtr(10)})
	require.NoError(t, err)

	assert.Len(t, capped.Edges, 10)
	assert.Equal(t, nodeIDs(atMax), nodeIDs(capped))
	assert.NotContains(t, nodeIDs(capped), "note:11")
}

func TestLinkGraph_Expansion_FollowsBacklinks(t *testing.T) {
	ctx := context.Background()
	service := newTestService(newMemoryStore())
	_, err := service.CreateLink(ctx, linkInput("project", "P", "experiment", "E"))
	require.NoError(t, err)
	_, err = service.CreateLink(ctx, linkInput("experiment", "E", "protocol", "X"))
	require.NoError(t, err)
	_, err = service.CreateLink(ctx, linkInput("note", "unrelated", "table", "T"))
	require.NoError(t, err)

	result, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "experiment", EntityID: "E", MaxDepth: intPtr(1)})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"experiment:E", "project:P", "protocol:X"}, nodeIDs(result))
	assert.Len(t, result.Edges, 2)
}

func TestLinkGraph_Expansion_DeduplicatesCycles(t *testing.T) {
	ctx := context.Background()
	service := newTestService(newMemoryStore())
	_, err := service.CreateBidirectionalLink(ctx, linkInput("note", "A", "note", "B"))
	require.NoError(t, err)
	_, err = service.CreateLink(ctx, linkInput("note", "B", "note", "B"))
	require.NoError(t, err)

	result, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", EntityID: "A", MaxDepth: intPtr(5)})

	require.NoError(t, err)
	assert.Len(t, result.Nodes, 2)
	assert.Len(t, result.Edges, 3)

	seen := map[string]bool{}
	for _, e := range result.Edges {
		assert.False(t, seen[e.ID], "edge %s emitted twice", e.ID)
		seen[e.ID] = true
	}
}

func TestLinkGraph_Expansion_NodeBudget(t *testing.T) {
	// Arrange
	ctx := context.Background()
	limits := config.DefaultLimits()
	limits.MaxGraphNodes = 3
	service := NewLinkService(newMemoryStore(), nil, nil, nil, config.NewLiveLimits(limits), nil, zap.NewNop())
	chain(t, service, 6)

	// Act
	result, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "note", EntityID: "0", MaxDepth: intPtr(10)})

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Equal(t, []string{"note:0", "note:1", "note:2"}, nodeIDs(result))
	assert.Len(t, result.Edges, 2)
}

func TestLinkGraph_Expansion_EdgeBudget(t *testing.T) {
	ctx := context.Background()
	limits := config.DefaultLimits()
	limits.MaxGraphEdges = 4
	service := NewLinkService(newMemoryStore(), nil, nil, nil, config.NewLiveLimits(limits), nil, zap.NewNop())
	for i := 0; i < 10; i++ {
		_, err := service.CreateLink(ctx, linkInput("project", "hub", "experiment", fmt.Sprint(i)))
		require.NoError(t, err)
	}

	result, err := service.GetLinkGraph(ctx, GraphQuery{EntityType: "project", EntityID: "hub"})

	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Len(t, result.Edges, 4)
	assert.Len(t, result.Nodes, 5)
}

func TestLinkGraph_Expansion_IsolatedSeed(t *testing.T) {
	service := newTestService(newMemoryStore())

	result, err := service.GetLinkGraph(context.Background(), GraphQuery{EntityType: "table", EntityID: "lonely"})

	require.NoError(t, err)
	assert.Empty(t, result.Nodes)
	assert.Empty(t, result.Edges)
}

func TestLinkGraph_Expansion_StoreErrorSurfaces(t *testing.T) {
	store := new(mocks.MockLinkStore)
	store.On("GetOutgoing", mock.Anything, mock.Anything).Return(nil, apperrors.NewStorageError("get_outgoing", errors.New("boom")))
	store.On("GetBacklinks", mock.Anything, mock.Anything).Return([]*entities.Link{}, nil)
	service := newTestService(store)

	_, err := service.GetLinkGraph(context.Background(), GraphQuery{EntityType: "note", EntityID: "A"})

	assert.True(t, apperrors.IsStorage(err))
}

func TestLinkGraph_NodeEdgeConsistency(t *testing.T) {
	ctx := context.Background()
	service := newTestService(newMemoryStore())
	types := valueobjects.AllEntityTypes()
	for i := 0; i < 40; i++ {
		_, err := service.CreateLink(ctx, linkInput(
			string(types[i%len(types)]), fmt.Sprint(i%4),
			string(types[(i+3)%len(types)]), fmt.Sprint(i%3),
		))
		require.NoError(t, err)
	}

	for _, q := range []GraphQuery{{}, {EntityType: "note", EntityID: "0", MaxDepth: intPtr(4)}} {
		result, err := service.GetLinkGraph(ctx, q)
		require.NoError(t, err)

		endpoints := map[string]bool{}
		for _, e := range result.Edges {
			endpoints[e.Source] = true
			endpoints[e.Target] = true
		}
		assert.Len(t, result.Nodes, len(endpoints))
		for _, n := range result.Nodes {
			assert.True(t, endpoints[n.ID], "node %s has no edge", n.ID)
		}
	}
}
