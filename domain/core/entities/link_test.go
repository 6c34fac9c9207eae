package entities

import (
	"testing"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewLink(t *testing.T) {
	// Arrange
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	input := LinkInput{
		SourceType: "note",
		SourceID:   " A ",
		TargetType: "databaseEntry",
		TargetID:   "B",
		Metadata:   strPtr(`{"context":"see results"}`),
	}

	// Act
	link, err := NewLink(input, now)

	// Assert
	require.NoError(t, err)
	_, parseErr := uuid.Parse(link.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, valueobjects.EntityTypeNote, link.SourceType)
	assert.Equal(t, "A", link.SourceID)
	assert.Equal(t, valueobjects.EntityTypeDatabaseEntry, link.TargetType)
	assert.Equal(t, "B", link.TargetID)
	assert.Equal(t, `{"context":"see results"}`, link.MetadataValue())
	assert.Equal(t, now, link.CreatedAt)
	assert.Equal(t, now, link.UpdatedAt)

	*input.Metadata = "changed"
	assert.Equal(t, `{"context":"see results"}`, link.MetadataValue(), "metadata is copied")
}

func TestNewLink_RejectsUnknownTypes(t *testing.T) {
	_, err := NewLink(LinkInput{SourceType: "pdf", SourceID: "1", TargetType: "note", TargetID: "2"}, time.Now())
	assert.True(t, apperrors.IsValidation(err))

	_, err = NewLink(LinkInput{SourceType: "note", SourceID: "1", TargetType: "calendar", TargetID: "2"}, time.Now())
	assert.True(t, apperrors.IsValidation(err))

	_, err = NewLink(LinkInput{SourceType: "note", SourceID: "", TargetType: "note", TargetID: "2"}, time.Now())
	assert.True(t, apperrors.IsValidation(err))
}

func TestNewLink_AllowsSelfLinksAndMetadataFreeLinks(t *testing.T) {
	link, err := NewLink(LinkInput{SourceType: "note", SourceID: "A", TargetType: "note", TargetID: "A"}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, link.SourceRef(), link.TargetRef())
	assert.Nil(t, link.Metadata)
	assert.Equal(t, "", link.MetadataValue())
}

func TestLinkInput_Reversed(t *testing.T) {
	input := LinkInput{SourceType: "note", SourceID: "A", TargetType: "project", TargetID: "P", Metadata: strPtr("m")}

	reversed := input.Reversed()

	assert.Equal(t, "project", reversed.SourceType)
	assert.Equal(t, "P", reversed.SourceID)
	assert.Equal(t, "note", reversed.TargetType)
	assert.Equal(t, "A", reversed.TargetID)
	require.NotNil(t, reversed.Metadata)
	assert.Equal(t, "m", *reversed.Metadata)
	assert.NotSame(t, input.Metadata, reversed.Metadata)
}

func TestLink_Clone(t *testing.T) {
	link, err := NewLink(LinkInput{SourceType: "note", SourceID: "A", TargetType: "note", TargetID: "B", Metadata: strPtr("x")}, time.Now())
	require.NoError(t, err)

	clone := link.Clone()
	*clone.Metadata = "y"

	assert.Equal(t, "x", link.MetadataValue())
	assert.Equal(t, link.ID, clone.ID)
}
