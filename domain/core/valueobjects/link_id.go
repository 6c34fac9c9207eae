package valueobjects

import (
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/google/uuid"
)

// LinkID is the system-generated identifier of a link
type LinkID struct {
	value string
}

// NewLinkID creates a new random LinkID
func NewLinkID() LinkID {
	return LinkID{value: uuid.New().String()}
}

// NewLinkIDFromString parses an existing identifier
func NewLinkIDFromString(id string) (LinkID, error) {
	if id == "" {
		return LinkID{}, apperrors.NewValidationError("link ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return LinkID{}, apperrors.NewValidationError("link ID must be a valid UUID")
	}
	return LinkID{value: id}, nil
}

// String returns the string representation of the LinkID
func (id LinkID) String() string {
	return id.value
}

// IsZero checks if the LinkID is the zero value
func (id LinkID) IsZero() bool {
	return id.value == ""
}
