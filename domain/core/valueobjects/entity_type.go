package valueobjects

import (
	"fmt"
	"strings"

	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
)

// EntityType identifies which record store a link endpoint belongs to
type EntityType string

const (
	EntityTypeNote              EntityType = "note"
	EntityTypeHighlight         EntityType = "highlight"
	EntityTypeDatabaseEntry     EntityType = "databaseEntry"
	EntityTypeProject           EntityType = "project"
	EntityTypeExperiment        EntityType = "experiment"
	EntityTypeProtocol          EntityType = "protocol"
	EntityTypeProtocolExecution EntityType = "protocolExecution"
	EntityTypeRecipe            EntityType = "recipe"
	EntityTypeRecipeExecution   EntityType = "recipeExecution"
	EntityTypeTable             EntityType = "table"
)

var allEntityTypes = []EntityType{
	EntityTypeNote,
	EntityTypeHighlight,
	EntityTypeDatabaseEntry,
	EntityTypeProject,
	EntityTypeExperiment,
	EntityTypeProtocol,
	EntityTypeProtocolExecution,
	EntityTypeRecipe,
	EntityTypeRecipeExecution,
	EntityTypeTable,
}

// AllEntityTypes returns every registered entity type in canonical order
func AllEntityTypes() []EntityType {
	out := make([]EntityType, len(allEntityTypes))
	copy(out, allEntityTypes)
	return out
}

// ParseEntityType converts a tag into an EntityType, rejecting unknown tags
func ParseEntityType(tag string) (EntityType, error) {
	t := EntityType(strings.TrimSpace(tag))
	if !t.IsValid() {
		return "", apperrors.NewValidationErrorf("unknown entity type %q", tag).
			WithCode("INVALID_ENTITY_TYPE").
			WithDetails(map[string]interface{}{"allowed": allEntityTypes})
	}
	return t, nil
}

// IsValid reports whether t is one of the registered tags
func (t EntityType) IsValid() bool {
	for _, known := range allEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t EntityType) String() string {
	return string(t)
}

// MaxEntityIDLength bounds the identifier of a link endpoint
const MaxEntityIDLength = 255

// EntityRef points at one record in one entity store
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// NewEntityRef validates and builds an EntityRef
func NewEntityRef(entityType, id string) (EntityRef, error) {
	t, err := ParseEntityType(entityType)
	if err != nil {
		return EntityRef{}, err
	}
	id, err = NormalizeEntityID(id)
	if err != nil {
		return EntityRef{}, err
	}
	return EntityRef{Type: t, ID: id}, nil
}

// NormalizeEntityID trims id and checks it is usable as an endpoint identifier
func NormalizeEntityID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.NewValidationError("entity id cannot be empty").WithCode("INVALID_ENTITY_ID")
	}
	if len(id) > MaxEntityIDLength {
		return "", apperrors.NewValidationErrorf("entity id exceeds %d characters", MaxEntityIDLength).
			WithCode("INVALID_ENTITY_ID")
	}
	return id, nil
}

// Key returns the composite "<type>:<id>" form used for graph node ids
func (r EntityRef) Key() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

func (r EntityRef) String() string {
	return r.Key()
}
