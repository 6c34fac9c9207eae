package decorators

import (
	"context"
	"errors"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds configuration for the store circuit breaker
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		MaxFailures: 5,
	}
}

// CircuitBreakerLinkStore fails fast with an unavailable error while the
// backend is unhealthy. Validation and not found errors count as successes.
type CircuitBreakerLinkStore struct {
	inner   ports.LinkStore
	breaker *gobreaker.CircuitBreaker
	name    string
}

var _ ports.LinkStore = (*CircuitBreakerLinkStore)(nil)

// NewCircuitBreakerLinkStore wraps inner
func NewCircuitBreakerLinkStore(inner ports.LinkStore, cfg CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerLinkStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || apperrors.IsCallerError(err) || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerLinkStore{inner: inner, breaker: breaker, name: cfg.Name}
}

// State reports the breaker state
func (s *CircuitBreakerLinkStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *CircuitBreakerLinkStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewUnavailableError(s.name).WithCause(err)
	}
	return result, err
}

func asLink(v interface{}) *entities.Link {
	if v == nil {
		return nil
	}
	return v.(*entities.Link)
}

func asLinks(v interface{}) []*entities.Link {
	if v == nil {
		return nil
	}
	return v.([]*entities.Link)
}

func (s *CircuitBreakerLinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.Create(ctx, input)
	})
	return asLink(v), err
}

func (s *CircuitBreakerLinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	v, err := s.execute(func() (interface{}, error) {
		fwd, rev, err := s.inner.CreatePair(ctx, forward, reverse)
		if err != nil {
			return nil, err
		}
		return &entities.LinkPair{Forward: fwd, Reverse: rev}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	pair := v.(*entities.LinkPair)
	return pair.Forward, pair.Reverse, nil
}

func (s *CircuitBreakerLinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.FindByID(ctx, id)
	})
	return asLink(v), err
}

func (s *CircuitBreakerLinkStore) Delete(ctx context.Context, id string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.Delete(ctx, id)
	})
	return err
}

func (s *CircuitBreakerLinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.FindMany(ctx, filter, skip, take)
	})
	return asLinks(v), err
}

func (s *CircuitBreakerLinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.Count(ctx, filter)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *CircuitBreakerLinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.GetOutgoing(ctx, ref)
	})
	return asLinks(v), err
}

func (s *CircuitBreakerLinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.GetBacklinks(ctx, ref)
	})
	return asLinks(v), err
}

func (s *CircuitBreakerLinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.Search(ctx, query, limit)
	})
	return asLinks(v), err
}

func (s *CircuitBreakerLinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	v, err := s.execute(func() (interface{}, error) {
		return s.inner.DeleteByEntity(ctx, ref)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Ping bypasses the breaker so readiness reflects the backend, not the breaker
func (s *CircuitBreakerLinkStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}
