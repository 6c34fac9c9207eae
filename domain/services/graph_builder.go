package services

import (
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
)

// GraphNode is a derived, non-persisted visualization node
type GraphNode struct {
	ID       string                  `json:"id"`
	Type     valueobjects.EntityType `json:"type"`
	EntityID string                  `json:"entityId"`
	Label    string                  `json:"label"`
	Title    string                  `json:"title"`
}

// GraphEdge is a derived, non-persisted visualization edge
type GraphEdge struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Metadata *string `json:"metadata,omitempty"`
}

// Graph is the output of graph extraction
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphBuilder turns links into a deduplicated node set and an edge list
type GraphBuilder struct {
	registry *EntityTypeRegistry
}

// NewGraphBuilder creates a builder that labels nodes through registry
func NewGraphBuilder(registry *EntityTypeRegistry) *GraphBuilder {
	return &GraphBuilder{registry: registry}
}

// Build is pure: it never touches storage and never fails. Nodes are returned
// in first-seen order, edges in link order. A node first seen without a
// summary is relabelled by the first later link that carries one.
func (b *GraphBuilder) Build(links []*entities.Link) *Graph {
	graph := &Graph{
		Nodes: make([]GraphNode, 0, len(links)*2),
		Edges: make([]GraphEdge, 0, len(links)),
	}
	index := make(map[string]int, len(links)*2)
	summarized := make(map[string]bool, len(links)*2)

	addNode := func(ref valueobjects.EntityRef, summary *entities.EntitySummary) string {
		key := ref.Key()
		i, ok := index[key]
		if ok && (summarized[key] || summary == nil) {
			return key
		}

		desc := b.registry.Describe(ref, summary)
		node := GraphNode{
			ID:       key,
			Type:     ref.Type,
			EntityID: ref.ID,
			Label:    desc.Label,
			Title:    desc.Title,
		}
		summarized[key] = summary != nil
		if ok {
			graph.Nodes[i] = node
			return key
		}
		index[key] = len(graph.Nodes)
		graph.Nodes = append(graph.Nodes, node)
		return key
	}

	for _, link := range links {
		if link == nil {
			continue
		}
		source := addNode(link.SourceRef(), link.Source)
		target := addNode(link.TargetRef(), link.Target)

		graph.Edges = append(graph.Edges, GraphEdge{
			ID:       link.ID,
			Source:   source,
			Target:   target,
			Metadata: link.Metadata,
		})
	}

	return graph
}
