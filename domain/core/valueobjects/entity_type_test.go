package valueobjects

import (
	"strings"
	"testing"

	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	for _, et := range AllEntityTypes() {
		parsed, err := ParseEntityType(string(et))
		require.NoError(t, err)
		assert.Equal(t, et, parsed)
	}

	_, err := ParseEntityType("pdf")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = ParseEntityType("Note")
	assert.True(t, apperrors.IsValidation(err), "tags are case sensitive")
}

func TestAllEntityTypes_ReturnsCopy(t *testing.T) {
	types := AllEntityTypes()
	types[0] = "mutated"

	assert.Equal(t, EntityTypeNote, AllEntityTypes()[0])
	assert.Len(t, AllEntityTypes(), 10)
}

func TestNewEntityRef(t *testing.T) {
	ref, err := NewEntityRef("note", "  A  ")
	require.NoError(t, err)
	assert.Equal(t, EntityRef{Type: EntityTypeNote, ID: "A"}, ref)
	assert.Equal(t, "note:A", ref.Key())

	_, err = NewEntityRef("note", "   ")
	assert.True(t, apperrors.IsValidation(err))

	_, err = NewEntityRef("note", strings.Repeat("x", MaxEntityIDLength+1))
	assert.True(t, apperrors.IsValidation(err))

	_, err = NewEntityRef("unknown", "A")
	assert.True(t, apperrors.IsValidation(err))
}

func TestLinkID(t *testing.T) {
	id := NewLinkID()
	assert.False(t, id.IsZero())

	parsed, err := NewLinkIDFromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = NewLinkIDFromString("")
	assert.True(t, apperrors.IsValidation(err))

	_, err = NewLinkIDFromString("not-a-uuid")
	assert.True(t, apperrors.IsValidation(err))
}
