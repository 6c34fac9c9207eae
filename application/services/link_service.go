package services

import (
	"context"
	"math"
	"strings"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"
	domainservices "github.com/ariellewolter/research-notebook-ver4-sub004/domain/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/common"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LinkListResult is one page of links with the exact total
type LinkListResult struct {
	Links      []*entities.Link       `json:"links"`
	Total      int                    `json:"total"`
	Pagination *common.PaginationInfo `json:"pagination"`
}

// ConnectionsResult holds both directions of an entity's links
type ConnectionsResult struct {
	Backlinks []*entities.Link `json:"backlinks"`
	Outgoing  []*entities.Link `json:"outgoing"`
	Total     int              `json:"total"`
}

// LinkFilterInput carries raw, caller-supplied filter values
type LinkFilterInput struct {
	SourceType string
	SourceID   string
	TargetType string
	TargetID   string
}

// LinkService implements the link use cases on top of a LinkStore.
// Summaries and events are optional collaborators; failures in either are
// logged and never fail the operation.
type LinkService struct {
	store     ports.LinkStore
	summaries ports.SummaryResolver
	publisher ports.EventPublisher
	builder   *domainservices.GraphBuilder
	limits    *config.LiveLimits
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewLinkService creates a new link service
func NewLinkService(
	store ports.LinkStore,
	summaries ports.SummaryResolver,
	publisher ports.EventPublisher,
	builder *domainservices.GraphBuilder,
	limits *config.LiveLimits,
	metrics *observability.Collector,
	logger *zap.Logger,
) *LinkService {
	if limits == nil {
		limits = config.NewLiveLimits(config.DefaultLimits())
	}
	if builder == nil {
		builder = domainservices.NewGraphBuilder(domainservices.NewEntityTypeRegistry())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{
		store:     store,
		summaries: summaries,
		publisher: publisher,
		builder:   builder,
		limits:    limits,
		metrics:   metrics,
		logger:    logger,
	}
}

// ParseLinkFilter validates raw filter values. Empty values are treated as absent.
func ParseLinkFilter(in LinkFilterInput) (ports.LinkFilter, error) {
	var filter ports.LinkFilter
	var err error

	if s := strings.TrimSpace(in.SourceType); s != "" {
		if filter.SourceType, err = valueobjects.ParseEntityType(s); err != nil {
			return ports.LinkFilter{}, err
		}
	}
	if s := strings.TrimSpace(in.TargetType); s != "" {
		if filter.TargetType, err = valueobjects.ParseEntityType(s); err != nil {
			return ports.LinkFilter{}, err
		}
	}
	filter.SourceID = strings.TrimSpace(in.SourceID)
	filter.TargetID = strings.TrimSpace(in.TargetID)
	return filter, nil
}

// ListLinks returns one page of links matching filter together with the exact total
func (s *LinkService) ListLinks(ctx context.Context, filter ports.LinkFilter, page, limit int) (*LinkListResult, error) {
	maxPageSize := s.limits.Load().MaxPageSize
	if page < 1 {
		return nil, apperrors.NewValidationErrorf("page must be at least 1, got %d", page).WithCode("INVALID_PAGE")
	}
	if limit < 1 || limit > maxPageSize {
		return nil, apperrors.NewValidationErrorf("limit must be between 1 and %d, got %d", maxPageSize, limit).
			WithCode("INVALID_LIMIT")
	}
	if page-1 > math.MaxInt/limit {
		return nil, apperrors.NewValidationErrorf("page %d is out of range", page).WithCode("INVALID_PAGE")
	}

	params := common.PaginationParams{Page: page, PageSize: limit}

	var links []*entities.Link
	var total int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		links, err = s.store.FindMany(gctx, filter, params.CalculateOffset(), limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.attachSummaries(ctx, links)

	return &LinkListResult{
		Links:      links,
		Total:      total,
		Pagination: common.BuildPaginationMeta(page, limit, total),
	}, nil
}

// GetLink returns the link or nil when it does not exist
func (s *LinkService) GetLink(ctx context.Context, id string) (*entities.Link, error) {
	link, err := s.store.FindByID(ctx, id)
	if err != nil || link == nil {
		return nil, err
	}
	s.attachSummaries(ctx, []*entities.Link{link})
	return link, nil
}

// CreateLink stores one directed link. Duplicates are allowed.
func (s *LinkService) CreateLink(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	link, err := s.store.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Link created",
		zap.String("linkID", link.ID),
		zap.String("source", link.SourceRef().Key()),
		zap.String("target", link.TargetRef().Key()),
	)
	if s.metrics != nil {
		s.metrics.LinksCreated.Inc()
	}
	s.publish(ctx, events.NewLinkCreated(link, utils.NowUTC()))

	return link, nil
}

// DeleteLink removes a link, returning a not found error when it does not exist
func (s *LinkService) DeleteLink(ctx context.Context, id string) error {
	link, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if link == nil {
		return apperrors.NewNotFoundError("link").WithDetails(map[string]interface{}{"id": id})
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Link deleted", zap.String("linkID", id))
	if s.metrics != nil {
		s.metrics.LinksDeleted.Inc()
	}
	s.publish(ctx, events.NewLinkDeleted(link, utils.NowUTC()))

	return nil
}

// CreateBidirectionalLink stores input and its mirror atomically. The two
// links are independent afterwards: deleting one leaves the other.
func (s *LinkService) CreateBidirectionalLink(ctx context.Context, input entities.LinkInput) (*entities.LinkPair, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	forward, reverse, err := s.store.CreatePair(ctx, input, input.Reversed())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bidirectional link created",
		zap.String("forwardID", forward.ID),
		zap.String("reverseID", reverse.ID),
	)
	if s.metrics != nil {
		s.metrics.LinksCreated.Add(2)
	}
	now := utils.NowUTC()
	s.publish(ctx,
		events.NewPairedLinkCreated(forward, reverse, now),
		events.NewPairedLinkCreated(reverse, forward, now),
	)

	return &entities.LinkPair{Forward: forward, Reverse: reverse}, nil
}

// GetBacklinks returns every link pointing at the entity, newest first
func (s *LinkService) GetBacklinks(ctx context.Context, entityType, entityID string) ([]*entities.Link, error) {
	ref, err := valueobjects.NewEntityRef(entityType, entityID)
	if err != nil {
		return nil, err
	}
	links, err := s.store.GetBacklinks(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.attachSummaries(ctx, links)
	return links, nil
}

// GetOutgoing returns every link leaving the entity, newest first
func (s *LinkService) GetOutgoing(ctx context.Context, entityType, entityID string) ([]*entities.Link, error) {
	ref, err := valueobjects.NewEntityRef(entityType, entityID)
	if err != nil {
		return nil, err
	}
	links, err := s.store.GetOutgoing(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.attachSummaries(ctx, links)
	return links, nil
}

// SearchLinks returns at most limit links whose metadata contains query.
// A zero limit selects the configured default.
func (s *LinkService) SearchLinks(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	if query == "" {
		return nil, apperrors.NewValidationError("search query cannot be empty").WithCode("EMPTY_QUERY")
	}

	limits := s.limits.Load()
	if limit == 0 {
		limit = limits.DefaultSearchLimit
	}
	if limit < 1 || limit > limits.MaxSearchLimit {
		return nil, apperrors.NewValidationErrorf("limit must be between 1 and %d, got %d", limits.MaxSearchLimit, limit).
			WithCode("INVALID_LIMIT")
	}

	links, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	s.attachSummaries(ctx, links)
	return links, nil
}

// GetEntityConnections fetches both directions concurrently
func (s *LinkService) GetEntityConnections(ctx context.Context, entityType, entityID string) (*ConnectionsResult, error) {
	ref, err := valueobjects.NewEntityRef(entityType, entityID)
	if err != nil {
		return nil, err
	}

	var backlinks, outgoing []*entities.Link

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		backlinks, err = s.store.GetBacklinks(gctx, ref)
		return err
	})
	g.Go(func() error {
		var err error
		outgoing, err = s.store.GetOutgoing(gctx, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]*entities.Link, 0, len(backlinks)+len(outgoing))
	all = append(all, backlinks...)
	all = append(all, outgoing...)
	s.attachSummaries(ctx, all)

	return &ConnectionsResult{
		Backlinks: backlinks,
		Outgoing:  outgoing,
		Total:     len(backlinks) + len(outgoing),
	}, nil
}

// DeleteLinksForEntity removes every link touching the entity. It is the
// cleanup path for records deleted from their own store.
func (s *LinkService) DeleteLinksForEntity(ctx context.Context, entityType, entityID string) (int, error) {
	ref, err := valueobjects.NewEntityRef(entityType, entityID)
	if err != nil {
		return 0, err
	}

	removed, err := s.store.DeleteByEntity(ctx, ref)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Links purged for entity",
		zap.String("entity", ref.Key()),
		zap.Int("removed", removed),
	)
	if removed > 0 {
		if s.metrics != nil {
			s.metrics.LinksDeleted.Add(float64(removed))
		}
		s.publish(ctx, events.NewLinksPurged(ref, removed, utils.NowUTC()))
	}

	return removed, nil
}

// Ping checks the link store is reachable
func (s *LinkService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// attachSummaries resolves endpoint summaries in one batch and sets them on links
func (s *LinkService) attachSummaries(ctx context.Context, links []*entities.Link) {
	if s.summaries == nil || len(links) == 0 {
		return
	}

	seen := make(map[valueobjects.EntityRef]struct{}, len(links)*2)
	refs := make([]valueobjects.EntityRef, 0, len(links)*2)
	for _, l := range links {
		for _, ref := range []valueobjects.EntityRef{l.SourceRef(), l.TargetRef()} {
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				refs = append(refs, ref)
			}
		}
	}

	resolved, err := s.summaries.Resolve(ctx, refs)
	if err != nil {
		s.logger.Warn("Failed to resolve entity summaries", zap.Int("refs", len(refs)), zap.Error(err))
		return
	}

	for _, l := range links {
		l.Source = resolved[l.SourceRef()]
		l.Target = resolved[l.TargetRef()]
	}
}

func (s *LinkService) publish(ctx context.Context, evts ...events.DomainEvent) {
	if s.publisher == nil || len(evts) == 0 {
		return
	}

	var err error
	if len(evts) == 1 {
		err = s.publisher.Publish(ctx, evts[0])
	} else {
		err = s.publisher.PublishBatch(ctx, evts)
	}
	if err != nil {
		s.logger.Warn("Failed to publish link events",
			zap.String("eventType", evts[0].GetEventType()),
			zap.Int("count", len(evts)),
			zap.Error(err),
		)
	}
}
