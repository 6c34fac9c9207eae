package entities

import (
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
)

// EntitySummary is the lightweight label data an entity store returns for one
// record. Which fields are populated depends on the entity type.
type EntitySummary struct {
	Type       valueobjects.EntityType `json:"type"`
	ID         string                  `json:"id"`
	Title      string                  `json:"title,omitempty"`
	Name       string                  `json:"name,omitempty"`
	Text       string                  `json:"text,omitempty"`
	Page       int                     `json:"page,omitempty"`
	ParentName string                  `json:"parentName,omitempty"`
}

// Ref returns the reference this summary describes
func (s *EntitySummary) Ref() valueobjects.EntityRef {
	return valueobjects.EntityRef{Type: s.Type, ID: s.ID}
}
