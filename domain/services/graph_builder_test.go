package services

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLink(t *testing.T, st, sid, tt, tid string) *entities.Link {
	t.Helper()
	link, err := entities.NewLink(entities.LinkInput{SourceType: st, SourceID: sid, TargetType: tt, TargetID: tid}, time.Now())
	require.NoError(t, err)
	return link
}

func TestGraphBuilder_ExampleScenario(t *testing.T) {
	// Arrange
	builder := NewGraphBuilder(NewEntityTypeRegistry())
	link := mustLink(t, "note", "A", "databaseEntry", "B")

	// Act
	graph := builder.Build([]*entities.Link{link})

	// Assert
	require.Len(t, graph.Nodes, 2)
	assert.Equal(t, "note:A", graph.Nodes[0].ID)
	assert.Equal(t, valueobjects.EntityTypeNote, graph.Nodes[0].Type)
	assert.Equal(t, "A", graph.Nodes[0].EntityID)
	assert.Equal(t, "note A", graph.Nodes[0].Label)
	assert.Equal(t, "databaseEntry:B", graph.Nodes[1].ID)

	require.Len(t, graph.Edges, 1)
	assert.Equal(t, GraphEdge{ID: link.ID, Source: "note:A", Target: "databaseEntry:B"}, graph.Edges[0])
}

func TestGraphBuilder_DeduplicatesNodes(t *testing.T) {
	builder := NewGraphBuilder(NewEntityTypeRegistry())
	links := []*entities.Link{
		mustLink(t, "note", "A", "project", "P"),
		mustLink(t, "note", "A", "project", "P"),
		mustLink(t, "project", "P", "note", "A"),
		mustLink(t, "note", "A", "note", "A"),
	}

	graph := builder.Build(links)

	assert.Len(t, graph.Nodes, 2)
	assert.Len(t, graph.Edges, 4)
}

func TestGraphBuilder_UsesAttachedSummaries(t *testing.T) {
	builder := NewGraphBuilder(NewEntityTypeRegistry())
	link := mustLink(t, "note", "A", "highlight", "H")
	link.Source = &entities.EntitySummary{Type: valueobjects.EntityTypeNote, ID: "A", Title: "Lab meeting"}
	link.Target = &entities.EntitySummary{Type: valueobjects.EntityTypeHighlight, ID: "H", Text: "growth plateau", Page: 2}

	graph := builder.Build([]*entities.Link{link})

	assert.Equal(t, "Lab meeting", graph.Nodes[0].Label)
	assert.Equal(t, "growth plateau (p. 2)", graph.Nodes[1].Label)
}

func TestGraphBuilder_LaterSummaryUpgradesNode(t *testing.T) {
	builder := NewGraphBuilder(NewEntityTypeRegistry())
	bare := mustLink(t, "note", "A", "project", "P")
	described := mustLink(t, "experiment", "E", "note", "A")
	described.Target = &entities.EntitySummary{Type: valueobjects.EntityTypeNote, ID: "A", Title: "Lab meeting"}
	later := mustLink(t, "note", "A", "table", "T")
	later.Source = &entities.EntitySummary{Type: valueobjects.EntityTypeNote, ID: "A", Title: "Renamed"}

	graph := builder.Build([]*entities.Link{bare, described, later})

	require.Len(t, graph.Nodes, 4)
	assert.Equal(t, "note:A", graph.Nodes[0].ID)
	assert.Equal(t, "Lab meeting", graph.Nodes[0].Label)
	assert.Equal(t, []string{"note:A", "project:P", "experiment:E", "table:T"},
		[]string{graph.Nodes[0].ID, graph.Nodes[1].ID, graph.Nodes[2].ID, graph.Nodes[3].ID})
}

func TestGraphBuilder_CarriesMetadataOnEdges(t *testing.T) {
	builder := NewGraphBuilder(NewEntityTypeRegistry())
	meta := `{"reason":"derived from"}`
	link, err := entities.NewLink(entities.LinkInput{
		SourceType: "recipeExecution", SourceID: "r", TargetType: "table", TargetID: "t", Metadata: &meta,
	}, time.Now())
	require.NoError(t, err)

	graph := builder.Build([]*entities.Link{link})

	require.NotNil(t, graph.Edges[0].Metadata)
	assert.Equal(t, meta, *graph.Edges[0].Metadata)
}

func TestGraphBuilder_EmptyInput(t *testing.T) {
	graph := NewGraphBuilder(NewEntityTypeRegistry()).Build(nil)

	assert.NotNil(t, graph.Nodes)
	assert.NotNil(t, graph.Edges)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
}

// The node id set must equal exactly the set of distinct endpoints of the edges.
func TestGraphBuilder_NodeEdgeConsistency(t *testing.T) {
	builder := NewGraphBuilder(NewEntityTypeRegistry())
	types := valueobjects.AllEntityTypes()

	var links []*entities.Link
	for i := 0; i < 60; i++ {
		src := types[i%len(types)]
		dst := types[(i*7+3)%len(types)]
		links = append(links, mustLink(t, string(src), fmt.Sprintf("%d", i%9), string(dst), fmt.Sprintf("%d", i%5)))
	}

	graph := builder.Build(links)

	endpoints := map[string]struct{}{}
	for _, e := range graph.Edges {
		endpoints[e.Source] = struct{}{}
		endpoints[e.Target] = struct{}{}
	}

	nodeIDs := make([]string, 0, len(graph.Nodes))
	seen := map[string]struct{}{}
	for _, n := range graph.Nodes {
		_, dup := seen[n.ID]
		assert.False(t, dup, "duplicate node %s", n.ID)
		seen[n.ID] = struct{}{}
		nodeIDs = append(nodeIDs, n.ID)
	}

	endpointIDs := make([]string, 0, len(endpoints))
	for id := range endpoints {
		endpointIDs = append(endpointIDs, id)
	}
	sort.Strings(nodeIDs)
	sort.Strings(endpointIDs)

	assert.Equal(t, endpointIDs, nodeIDs)
	assert.Len(t, graph.Edges, len(links))
}
