// Package mocks provides testify mocks for the application ports.
package mocks

import (
	"context"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockLinkStore is a mock implementation of ports.LinkStore
type MockLinkStore struct {
	mock.Mock
}

var _ ports.LinkStore = (*MockLinkStore)(nil)

func linkOrNil(v interface{}) *entities.Link {
	if v == nil {
		return nil
	}
	return v.(*entities.Link)
}

func linksOrNil(v interface{}) []*entities.Link {
	if v == nil {
		return nil
	}
	return v.([]*entities.Link)
}

func (m *MockLinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	args := m.Called(ctx, input)
	return linkOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	args := m.Called(ctx, forward, reverse)
	return linkOrNil(args.Get(0)), linkOrNil(args.Get(1)), args.Error(2)
}

func (m *MockLinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	args := m.Called(ctx, id)
	return linkOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLinkStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	args := m.Called(ctx, filter, skip, take)
	return linksOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockLinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	args := m.Called(ctx, ref)
	return linksOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	args := m.Called(ctx, ref)
	return linksOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	args := m.Called(ctx, query, limit)
	return linksOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	args := m.Called(ctx, ref)
	return args.Int(0), args.Error(1)
}

func (m *MockLinkStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

var _ ports.EventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockSummaryResolver is a mock implementation of ports.SummaryResolver
type MockSummaryResolver struct {
	mock.Mock
}

var _ ports.SummaryResolver = (*MockSummaryResolver)(nil)

func (m *MockSummaryResolver) Resolve(ctx context.Context, refs []valueobjects.EntityRef) (map[valueobjects.EntityRef]*entities.EntitySummary, error) {
	args := m.Called(ctx, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[valueobjects.EntityRef]*entities.EntitySummary), args.Error(1)
}

// MockCache is a mock implementation of ports.Cache
type MockCache struct {
	mock.Mock
}

var _ ports.Cache = (*MockCache)(nil)

func (m *MockCache) Get(ctx context.Context, key string) (interface{}, bool) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Bool(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
