package services

import (
	"context"
	"strings"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	domainservices "github.com/ariellewolter/research-notebook-ver4-sub004/domain/services"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// expansionConcurrency bounds store calls issued per BFS hop
const expansionConcurrency = 8

// GraphQuery selects the links a graph is built from. Without EntityID the
// graph is a flat, row-capped listing; with EntityType and EntityID it is a
// breadth-first expansion from that entity.
type GraphQuery struct {
	EntityType string
	EntityID   string
	MaxDepth   *int
}

// GraphResult is the derived graph plus whether a budget cut it short
type GraphResult struct {
	*domainservices.Graph
	Truncated bool `json:"truncated"`
}

// GetLinkGraph builds a node/edge graph for visualization
func (s *LinkService) GetLinkGraph(ctx context.Context, q GraphQuery) (*GraphResult, error) {
	limits := s.limits.Load()

	entityType := strings.TrimSpace(q.EntityType)
	entityID := strings.TrimSpace(q.EntityID)

	// Depths past the cap are served at the cap
	maxDepth := q.MaxDepth
	if maxDepth != nil {
		if *maxDepth < 1 {
			return nil, apperrors.NewValidationErrorf("maxDepth must be at least 1, got %d", *maxDepth).
				WithCode("INVALID_DEPTH")
		}
		if *maxDepth > limits.MaxGraphDepth {
			capped := limits.MaxGraphDepth
			maxDepth = &capped
		}
	}

	var (
		links     []*entities.Link
		truncated bool
		err       error
	)

	if entityID == "" {
		links, err = s.flatGraphLinks(ctx, entityType, maxDepth, limits)
	} else {
		if entityType == "" {
			return nil, apperrors.NewValidationError("entityType is required when entityId is given").
				WithCode("MISSING_ENTITY_TYPE")
		}
		var seed valueobjects.EntityRef
		seed, err = valueobjects.NewEntityRef(entityType, entityID)
		if err != nil {
			return nil, err
		}
		depth := limits.DefaultGraphDepth
		if maxDepth != nil {
			depth = *maxDepth
		}
		links, truncated, err = s.expandGraphLinks(ctx, seed, depth, limits)
	}
	if err != nil {
		return nil, err
	}

	s.attachSummaries(ctx, links)
	graph := s.builder.Build(links)

	if s.metrics != nil {
		s.metrics.GraphNodes.Observe(float64(len(graph.Nodes)))
	}
	s.logger.Debug("Link graph built",
		zap.String("entityType", entityType),
		zap.String("entityID", entityID),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
		zap.Bool("truncated", truncated),
	)

	return &GraphResult{Graph: graph, Truncated: truncated}, nil
}

// flatGraphLinks returns the newest links, optionally restricted to one source type
func (s *LinkService) flatGraphLinks(ctx context.Context, entityType string, maxDepth *int, limits config.Limits) ([]*entities.Link, error) {
	var filter ports.LinkFilter
	if entityType != "" {
		t, err := valueobjects.ParseEntityType(entityType)
		if err != nil {
			return nil, err
		}
		filter.SourceType = t
	}

	rows := limits.DefaultFlatRows
	if maxDepth != nil {
		rows = *maxDepth * limits.FlatRowsPerDepth
	}

	return s.store.FindMany(ctx, filter, 0, rows)
}

// expandGraphLinks walks outgoing links and backlinks hop by hop from seed.
// It stops after depth hops, when the frontier empties, or at the first link
// that would exceed the node or edge budget.
func (s *LinkService) expandGraphLinks(
	ctx context.Context,
	seed valueobjects.EntityRef,
	depth int,
	limits config.Limits,
) ([]*entities.Link, bool, error) {
	visited := map[valueobjects.EntityRef]struct{}{seed: {}}
	seenLinks := make(map[string]struct{})
	collected := make([]*entities.Link, 0)
	frontier := []valueobjects.EntityRef{seed}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		neighbours, err := s.fetchNeighbourhood(ctx, frontier)
		if err != nil {
			return nil, false, err
		}

		var next []valueobjects.EntityRef
		for _, links := range neighbours {
			for _, link := range links {
				if _, ok := seenLinks[link.ID]; ok {
					continue
				}

				var fresh []valueobjects.EntityRef
				for _, ref := range []valueobjects.EntityRef{link.SourceRef(), link.TargetRef()} {
					if _, ok := visited[ref]; ok {
						continue
					}
					if len(fresh) == 1 && fresh[0] == ref {
						continue
					}
					fresh = append(fresh, ref)
				}

				if len(collected)+1 > limits.MaxGraphEdges || len(visited)+len(fresh) > limits.MaxGraphNodes {
					return collected, true, nil
				}

				seenLinks[link.ID] = struct{}{}
				collected = append(collected, link)
				for _, ref := range fresh {
					visited[ref] = struct{}{}
					next = append(next, ref)
				}
			}
		}
		frontier = next
	}

	return collected, false, nil
}

// fetchNeighbourhood loads outgoing links then backlinks for each frontier entity.
// Results keep frontier order so expansion is deterministic.
func (s *LinkService) fetchNeighbourhood(ctx context.Context, frontier []valueobjects.EntityRef) ([][]*entities.Link, error) {
	results := make([][]*entities.Link, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(expansionConcurrency)
	for i, ref := range frontier {
		g.Go(func() error {
			outgoing, err := s.store.GetOutgoing(gctx, ref)
			if err != nil {
				return err
			}
			backlinks, err := s.store.GetBacklinks(gctx, ref)
			if err != nil {
				return err
			}
			results[i] = append(outgoing, backlinks...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
