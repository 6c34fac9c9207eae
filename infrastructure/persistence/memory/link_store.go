package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/utils"
)

// LinkStore provides an in-memory implementation of ports.LinkStore.
// Returned links are copies; callers may attach summaries freely.
type LinkStore struct {
	mu    sync.RWMutex
	links map[string]*entities.Link
	now   func() time.Time
}

var _ ports.LinkStore = (*LinkStore)(nil)

// NewLinkStore creates an empty store stamped with the wall clock
func NewLinkStore() *LinkStore {
	return NewLinkStoreWithClock(utils.NowUTC)
}

// NewLinkStoreWithClock creates an empty store stamped with now
func NewLinkStoreWithClock(now func() time.Time) *LinkStore {
	return &LinkStore{
		links: make(map[string]*entities.Link),
		now:   now,
	}
}

// Create validates and stores a link
func (s *LinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := entities.NewLink(input, s.now())
	if err != nil {
		return nil, err
	}
	s.links[link.ID] = link
	return link.Clone(), nil
}

// CreatePair stores both links under one lock, or neither when either input is invalid
func (s *LinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	fwd, err := entities.NewLink(forward, now)
	if err != nil {
		return nil, nil, err
	}
	rev, err := entities.NewLink(reverse, now)
	if err != nil {
		return nil, nil, err
	}

	s.links[fwd.ID] = fwd
	s.links[rev.ID] = rev
	return fwd.Clone(), rev.Clone(), nil
}

// FindByID returns nil, nil when absent
func (s *LinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[id]
	if !ok {
		return nil, nil
	}
	return link.Clone(), nil
}

// Delete removes a link
func (s *LinkStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[id]; !ok {
		return apperrors.NewNotFoundError("link").WithDetails(map[string]interface{}{"id": id})
	}
	delete(s.links, id)
	return nil
}

// FindMany returns a window of the filtered, ordered links
func (s *LinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	matched := s.collect(filter.Matches)

	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return []*entities.Link{}, nil
	}
	end := len(matched)
	if take >= 0 && skip+take < end {
		end = skip + take
	}
	return matched[skip:end], nil
}

// Count returns the number of links matching filter
func (s *LinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, link := range s.links {
		if filter.Matches(link) {
			n++
		}
	}
	return n, nil
}

// GetOutgoing returns links whose source is ref
func (s *LinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	return s.collect(ports.LinkFilter{SourceType: ref.Type, SourceID: ref.ID}.Matches), nil
}

// GetBacklinks returns links whose target is ref
func (s *LinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	return s.collect(ports.LinkFilter{TargetType: ref.Type, TargetID: ref.ID}.Matches), nil
}

// Search matches query as a case-sensitive substring of metadata
func (s *LinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	matched := s.collect(func(l *entities.Link) bool {
		return l.Metadata != nil && strings.Contains(*l.Metadata, query)
	})
	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// DeleteByEntity removes every link touching ref
func (s *LinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, link := range s.links {
		if link.SourceRef() == ref || link.TargetRef() == ref {
			delete(s.links, id)
			removed++
		}
	}
	return removed, nil
}

// Ping always succeeds
func (s *LinkStore) Ping(ctx context.Context) error {
	return nil
}

func (s *LinkStore) collect(match func(*entities.Link) bool) []*entities.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Link, 0)
	for _, link := range s.links {
		if match(link) {
			out = append(out, link.Clone())
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders links by createdAt desc, then id desc
func SortNewestFirst(links []*entities.Link) {
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].ID > links[j].ID
	})
}
