// Package decorators wraps a ports.LinkStore with cross-cutting behaviour.
// ProvideLinkStore composes them as tracing(metrics(logging(breaker(store)))).
package decorators

import (
	"context"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"go.uber.org/zap"
)

// LoggingLinkStore logs failed and slow store calls
type LoggingLinkStore struct {
	inner         ports.LinkStore
	logger        *zap.Logger
	slowThreshold time.Duration
}

var _ ports.LinkStore = (*LoggingLinkStore)(nil)

// NewLoggingLinkStore wraps inner. Calls slower than slowThreshold are logged at warn.
func NewLoggingLinkStore(inner ports.LinkStore, logger *zap.Logger, slowThreshold time.Duration) *LoggingLinkStore {
	return &LoggingLinkStore{
		inner:         inner,
		logger:        logger.Named("linkstore"),
		slowThreshold: slowThreshold,
	}
}

func (s *LoggingLinkStore) log(operation string, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	fields = append(fields, zap.String("operation", operation), zap.Duration("duration", elapsed))

	switch {
	case err != nil && apperrors.IsCallerError(err):
		s.logger.Debug("Link store call rejected", append(fields, zap.Error(err))...)
	case err != nil:
		s.logger.Error("Link store call failed", append(fields, zap.Error(err))...)
	case s.slowThreshold > 0 && elapsed > s.slowThreshold:
		s.logger.Warn("Slow link store call", fields...)
	default:
		s.logger.Debug("Link store call", fields...)
	}
}

func (s *LoggingLinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	start := time.Now()
	link, err := s.inner.Create(ctx, input)
	s.log("create", start, err)
	return link, err
}

func (s *LoggingLinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	start := time.Now()
	fwd, rev, err := s.inner.CreatePair(ctx, forward, reverse)
	s.log("create_pair", start, err)
	return fwd, rev, err
}

func (s *LoggingLinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	start := time.Now()
	link, err := s.inner.FindByID(ctx, id)
	s.log("find_by_id", start, err, zap.String("linkID", id))
	return link, err
}

func (s *LoggingLinkStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, id)
	s.log("delete", start, err, zap.String("linkID", id))
	return err
}

func (s *LoggingLinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.FindMany(ctx, filter, skip, take)
	s.log("find_many", start, err, zap.Int("skip", skip), zap.Int("take", take), zap.Int("rows", len(links)))
	return links, err
}

func (s *LoggingLinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	start := time.Now()
	n, err := s.inner.Count(ctx, filter)
	s.log("count", start, err)
	return n, err
}

func (s *LoggingLinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.GetOutgoing(ctx, ref)
	s.log("get_outgoing", start, err, zap.String("entity", ref.Key()), zap.Int("rows", len(links)))
	return links, err
}

func (s *LoggingLinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.GetBacklinks(ctx, ref)
	s.log("get_backlinks", start, err, zap.String("entity", ref.Key()), zap.Int("rows", len(links)))
	return links, err
}

func (s *LoggingLinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	start := time.Now()
	links, err := s.inner.Search(ctx, query, limit)
	s.log("search", start, err, zap.Int("limit", limit), zap.Int("rows", len(links)))
	return links, err
}

func (s *LoggingLinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	start := time.Now()
	n, err := s.inner.DeleteByEntity(ctx, ref)
	s.log("delete_by_entity", start, err, zap.String("entity", ref.Key()), zap.Int("removed", n))
	return n, err
}

func (s *LoggingLinkStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.log("ping", start, err)
	return err
}
