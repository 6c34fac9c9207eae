package ports

import (
	"context"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/events"
)

// LinkFilter narrows a link listing. Empty fields are ignored; present fields
// are combined with AND.
type LinkFilter struct {
	SourceType valueobjects.EntityType
	SourceID   string
	TargetType valueobjects.EntityType
	TargetID   string
}

// IsEmpty reports whether no filter field is set
func (f LinkFilter) IsEmpty() bool {
	return f.SourceType == "" && f.SourceID == "" && f.TargetType == "" && f.TargetID == ""
}

// Matches reports whether link satisfies every present field
func (f LinkFilter) Matches(link *entities.Link) bool {
	if f.SourceType != "" && link.SourceType != f.SourceType {
		return false
	}
	if f.SourceID != "" && link.SourceID != f.SourceID {
		return false
	}
	if f.TargetType != "" && link.TargetType != f.TargetType {
		return false
	}
	if f.TargetID != "" && link.TargetID != f.TargetID {
		return false
	}
	return true
}

// LinkStore defines the interface for link persistence.
// Every listing returns links newest first (createdAt desc, id desc).
type LinkStore interface {
	// Create validates input, assigns id and timestamps, and persists the link
	Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error)

	// CreatePair persists two links atomically: both or neither
	CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error)

	// FindByID returns nil, nil when the link does not exist
	FindByID(ctx context.Context, id string) (*entities.Link, error)

	// Delete removes a link, returning a not found error when absent
	Delete(ctx context.Context, id string) error

	// FindMany returns at most take links matching filter after skipping skip
	FindMany(ctx context.Context, filter LinkFilter, skip, take int) ([]*entities.Link, error)

	// Count returns the exact number of links matching filter
	Count(ctx context.Context, filter LinkFilter) (int, error)

	// GetOutgoing returns every link whose source is ref
	GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error)

	// GetBacklinks returns every link whose target is ref
	GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error)

	// Search returns at most limit links whose metadata contains query
	Search(ctx context.Context, query string, limit int) ([]*entities.Link, error)

	// DeleteByEntity removes every link touching ref and returns how many were removed
	DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}

// SummaryResolver loads display summaries for entity references from the
// stores that own them. Missing entities are simply absent from the result.
type SummaryResolver interface {
	Resolve(ctx context.Context, refs []valueobjects.EntityRef) (map[valueobjects.EntityRef]*entities.EntitySummary, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching operations
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
	Delete(ctx context.Context, key string) error
}
