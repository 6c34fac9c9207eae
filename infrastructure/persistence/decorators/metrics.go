package decorators

import (
	"context"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"
)

// MetricsLinkStore records a Prometheus counter and histogram per store call
type MetricsLinkStore struct {
	inner     ports.LinkStore
	collector *observability.Collector
	backend   string
}

var _ ports.LinkStore = (*MetricsLinkStore)(nil)

// NewMetricsLinkStore wraps inner, labelling samples with backend
func NewMetricsLinkStore(inner ports.LinkStore, collector *observability.Collector, backend string) *MetricsLinkStore {
	return &MetricsLinkStore{inner: inner, collector: collector, backend: backend}
}

func (s *MetricsLinkStore) record(operation string, start time.Time, err error) {
	// Caller errors say nothing about backend health
	if apperrors.IsCallerError(err) {
		err = nil
	}
	s.collector.RecordStoreOperation(operation, s.backend, time.Since(start), err)
}

func (s *MetricsLinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	start := time.Now()
	link, err := s.inner.Create(ctx, input)
	s.record("create", start, err)
	return link, err
}

func (s *MetricsLinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	start := time.Now()
	fwd, rev, err := s.inner.CreatePair(ctx, forward, reverse)
	s.record("create_pair", start, err)
	return fwd, rev, err
}

func (s *MetricsLinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	start := time.Now()
	link, err := s.inner.FindByID(ctx, id)
	s.record("find_by_id", start, err)
	return link, err
}

func (s *MetricsLinkStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, id)
	s.record("delete", start, err)
	return err
}

func (s *MetricsLinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.FindMany(ctx, filter, skip, take)
	s.record("find_many", start, err)
	return links, err
}

func (s *MetricsLinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	start := time.Now()
	n, err := s.inner.Count(ctx, filter)
	s.record("count", start, err)
	return n, err
}

func (s *MetricsLinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.GetOutgoing(ctx, ref)
	s.record("get_outgoing", start, err)
	return links, err
}

func (s *MetricsLinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.GetBacklinks(ctx, ref)
	s.record("get_backlinks", start, err)
	return links, err
}

func (s *MetricsLinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.Search(ctx, query, limit)
	s.record("search", start, err)
	return links, err
}

func (s *MetricsLinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	start := time.Now()
	n, err := s.inner.DeleteByEntity(ctx, ref)
	s.record("delete_by_entity", start, err)
	return n, err
}

func (s *MetricsLinkStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record("ping", start, err)
	return err
}
