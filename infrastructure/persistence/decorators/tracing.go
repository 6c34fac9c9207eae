package decorators

import (
	"context"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingLinkStore opens one span per store call
type TracingLinkStore struct {
	inner   ports.LinkStore
	tracer  trace.Tracer
	backend string
}

var _ ports.LinkStore = (*TracingLinkStore)(nil)

// NewTracingLinkStore wraps inner
func NewTracingLinkStore(inner ports.LinkStore, tracer trace.Tracer, backend string) *TracingLinkStore {
	return &TracingLinkStore{inner: inner, tracer: tracer, backend: backend}
}

func (s *TracingLinkStore) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", s.backend),
		attribute.String("db.operation", operation),
	)
	return s.tracer.Start(ctx, "LinkStore."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func finish(span trace.Span, err error) {
	if err != nil && !apperrors.IsCallerError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *TracingLinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	ctx, span := s.start(ctx, "create")
	link, err := s.inner.Create(ctx, input)
	if link != nil {
		span.SetAttributes(attribute.String("link.id", link.ID))
	}
	finish(span, err)
	return link, err
}

func (s *TracingLinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	ctx, span := s.start(ctx, "create_pair")
	fwd, rev, err := s.inner.CreatePair(ctx, forward, reverse)
	finish(span, err)
	return fwd, rev, err
}

func (s *TracingLinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	ctx, span := s.start(ctx, "find_by_id", attribute.String("link.id", id))
	link, err := s.inner.FindByID(ctx, id)
	span.SetAttributes(attribute.Bool("link.found", link != nil))
	finish(span, err)
	return link, err
}

func (s *TracingLinkStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.start(ctx, "delete", attribute.String("link.id", id))
	err := s.inner.Delete(ctx, id)
	finish(span, err)
	return err
}

func (s *TracingLinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	ctx, span := s.start(ctx, "find_many", attribute.Int("skip", skip), attribute.Int("take", take))
	links, err := s.inner.FindMany(ctx, filter, skip, take)
	span.SetAttributes(attribute.Int("rows", len(links)))
	finish(span, err)
	return links, err
}

func (s *TracingLinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	ctx, span := s.start(ctx, "count")
	n, err := s.inner.Count(ctx, filter)
	span.SetAttributes(attribute.Int("count", n))
	finish(span, err)
	return n, err
}

func (s *TracingLinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	ctx, span := s.start(ctx, "get_outgoing", attribute.String("entity", ref.Key()))
	links, err := s.inner.GetOutgoing(ctx, ref)
	span.SetAttributes(attribute.Int("rows", len(links)))
	finish(span, err)
	return links, err
}

func (s *TracingLinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	ctx, span := s.start(ctx, "get_backlinks", attribute.String("entity", ref.Key()))
	links, err := s.inner.GetBacklinks(ctx, ref)
	span.SetAttributes(attribute.Int("rows", len(links)))
	finish(span, err)
	return links, err
}

func (s *TracingLinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	ctx, span := s.start(ctx, "search", attribute.Int("limit", limit))
	links, err := s.inner.Search(ctx, query, limit)
	span.SetAttributes(attribute.Int("rows", len(links)))
	finish(span, err)
	return links, err
}

func (s *TracingLinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	ctx, span := s.start(ctx, "delete_by_entity", attribute.String("entity", ref.Key()))
	n, err := s.inner.DeleteByEntity(ctx, ref)
	span.SetAttributes(attribute.Int("removed", n))
	finish(span, err)
	return n, err
}

func (s *TracingLinkStore) Ping(ctx context.Context) error {
	ctx, span := s.start(ctx, "ping")
	err := s.inner.Ping(ctx)
	finish(span, err)
	return err
}
