package entities

import (
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
)

// Link is a directed, typed edge between two entity references. Links are
// immutable once created.
type Link struct {
	ID         string                  `json:"id"`
	SourceType valueobjects.EntityType `json:"sourceType"`
	SourceID   string                  `json:"sourceId"`
	TargetType valueobjects.EntityType `json:"targetType"`
	TargetID   string                  `json:"targetId"`
	Metadata   *string                 `json:"metadata,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`

	// Endpoint summaries attached on read, never persisted.
	Source *EntitySummary `json:"source,omitempty"`
	Target *EntitySummary `json:"target,omitempty"`
}

// LinkInput carries the caller-supplied fields of a new link
type LinkInput struct {
	SourceType string  `json:"sourceType"`
	SourceID   string  `json:"sourceId"`
	TargetType string  `json:"targetType"`
	TargetID   string  `json:"targetId"`
	Metadata   *string `json:"metadata,omitempty"`
}

// NewLink validates input and builds a link with a fresh id and timestamps
func NewLink(input LinkInput, now time.Time) (*Link, error) {
	source, err := valueobjects.NewEntityRef(input.SourceType, input.SourceID)
	if err != nil {
		return nil, err
	}
	target, err := valueobjects.NewEntityRef(input.TargetType, input.TargetID)
	if err != nil {
		return nil, err
	}

	return &Link{
		ID:         valueobjects.NewLinkID().String(),
		SourceType: source.Type,
		SourceID:   source.ID,
		TargetType: target.Type,
		TargetID:   target.ID,
		Metadata:   copyString(input.Metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Reversed returns the input with source and target roles swapped
func (in LinkInput) Reversed() LinkInput {
	return LinkInput{
		SourceType: in.TargetType,
		SourceID:   in.TargetID,
		TargetType: in.SourceType,
		TargetID:   in.SourceID,
		Metadata:   copyString(in.Metadata),
	}
}

// Validate checks the input without building a link
func (in LinkInput) Validate() error {
	if _, err := valueobjects.NewEntityRef(in.SourceType, in.SourceID); err != nil {
		return err
	}
	_, err := valueobjects.NewEntityRef(in.TargetType, in.TargetID)
	return err
}

// SourceRef returns the origin endpoint
func (l *Link) SourceRef() valueobjects.EntityRef {
	return valueobjects.EntityRef{Type: l.SourceType, ID: l.SourceID}
}

// TargetRef returns the destination endpoint
func (l *Link) TargetRef() valueobjects.EntityRef {
	return valueobjects.EntityRef{Type: l.TargetType, ID: l.TargetID}
}

// MetadataValue returns the metadata or the empty string
func (l *Link) MetadataValue() string {
	if l.Metadata == nil {
		return ""
	}
	return *l.Metadata
}

// Clone returns a deep copy, leaving attached summaries shared
func (l *Link) Clone() *Link {
	c := *l
	c.Metadata = copyString(l.Metadata)
	return &c
}

// LinkPair is the result of a bidirectional creation
type LinkPair struct {
	Forward *Link `json:"forward"`
	Reverse *Link `json:"reverse"`
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
