package events

import (
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
)

// Event type names
const (
	EventTypeLinkCreated   = "link.created"
	EventTypeLinkDeleted   = "link.deleted"
	EventTypeLinksPurged   = "links.purged"
	EventTypeEntityDeleted = "entity.deleted"
)

// LinkCreated is raised when a link is stored
type LinkCreated struct {
	BaseEvent
	LinkID     string                  `json:"link_id"`
	SourceType valueobjects.EntityType `json:"source_type"`
	SourceID   string                  `json:"source_id"`
	TargetType valueobjects.EntityType `json:"target_type"`
	TargetID   string                  `json:"target_id"`
	PairedWith string                  `json:"paired_with,omitempty"`
}

// NewLinkCreated creates a LinkCreated event
func NewLinkCreated(link *entities.Link, timestamp time.Time) LinkCreated {
	return LinkCreated{
		BaseEvent: BaseEvent{
			AggregateID: link.ID,
			EventType:   EventTypeLinkCreated,
			Timestamp:   timestamp,
			Version:     1,
		},
		LinkID:     link.ID,
		SourceType: link.SourceType,
		SourceID:   link.SourceID,
		TargetType: link.TargetType,
		TargetID:   link.TargetID,
	}
}

// NewPairedLinkCreated creates a LinkCreated event for one half of a bidirectional pair
func NewPairedLinkCreated(link, other *entities.Link, timestamp time.Time) LinkCreated {
	event := NewLinkCreated(link, timestamp)
	event.PairedWith = other.ID
	return event
}

// LinkDeleted is raised when a link is removed
type LinkDeleted struct {
	BaseEvent
	LinkID     string                  `json:"link_id"`
	SourceType valueobjects.EntityType `json:"source_type"`
	SourceID   string                  `json:"source_id"`
	TargetType valueobjects.EntityType `json:"target_type"`
	TargetID   string                  `json:"target_id"`
}

// NewLinkDeleted creates a LinkDeleted event
func NewLinkDeleted(link *entities.Link, timestamp time.Time) LinkDeleted {
	return LinkDeleted{
		BaseEvent: BaseEvent{
			AggregateID: link.ID,
			EventType:   EventTypeLinkDeleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		LinkID:     link.ID,
		SourceType: link.SourceType,
		SourceID:   link.SourceID,
		TargetType: link.TargetType,
		TargetID:   link.TargetID,
	}
}

// LinksPurged is raised after every link touching an entity was removed
type LinksPurged struct {
	BaseEvent
	EntityType valueobjects.EntityType `json:"entity_type"`
	EntityID   string                  `json:"entity_id"`
	Removed    int                     `json:"removed"`
}

// NewLinksPurged creates a LinksPurged event
func NewLinksPurged(ref valueobjects.EntityRef, removed int, timestamp time.Time) LinksPurged {
	return LinksPurged{
		BaseEvent: BaseEvent{
			AggregateID: ref.Key(),
			EventType:   EventTypeLinksPurged,
			Timestamp:   timestamp,
			Version:     1,
		},
		EntityType: ref.Type,
		EntityID:   ref.ID,
		Removed:    removed,
	}
}

// EntityDeletedDetail is the payload other services publish when a record is
// deleted from an entity store. It triggers orphan link cleanup.
type EntityDeletedDetail struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at,omitempty"`
}
