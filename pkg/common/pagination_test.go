package common

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPaginationMeta_HasNextFollowsExactCount(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		pageSize  int
		total     int
		wantNext  bool
		wantPages int
	}{
		{"empty", 1, 10, 0, false, 0},
		{"exactly one full page", 1, 10, 10, false, 1},
		{"one past full page", 1, 10, 11, true, 2},
		{"last partial page", 2, 10, 15, false, 2},
		{"middle page", 2, 5, 15, true, 3},
		{"page past the end", 4, 5, 15, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := BuildPaginationMeta(tt.page, tt.pageSize, tt.total)

			assert.Equal(t, tt.wantNext, meta.HasNext)
			assert.Equal(t, tt.total > tt.page*tt.pageSize, meta.HasNext)
			assert.Equal(t, tt.wantPages, meta.TotalPages)
			assert.Equal(t, tt.page > 1, meta.HasPrev)
		})
	}
}

func TestBuildPaginationMeta_HugePage(t *testing.T) {
	meta := BuildPaginationMeta(math.MaxInt/10+2, 10, 3)

	assert.False(t, meta.HasNext)
	assert.True(t, meta.HasPrev)
	assert.Equal(t, 1, meta.TotalPages)
}

func TestExtractPaginationParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params := ExtractPaginationParams(httptest.NewRequest("GET", "/links", nil))

		assert.Equal(t, DefaultPage, params.Page)
		assert.Equal(t, DefaultPageSize, params.PageSize)
		assert.Equal(t, 0, params.CalculateOffset())
	})

	t.Run("explicit values", func(t *testing.T) {
		params := ExtractPaginationParams(httptest.NewRequest("GET", "/links?page=3&limit=25", nil))

		assert.Equal(t, 3, params.Page)
		assert.Equal(t, 25, params.PageSize)
		assert.Equal(t, 50, params.CalculateOffset())
	})

	t.Run("garbage becomes zero", func(t *testing.T) {
		params := ExtractPaginationParams(httptest.NewRequest("GET", "/links?page=abc&limit=x", nil))

		assert.Equal(t, 0, params.Page)
		assert.Equal(t, 0, params.PageSize)
	})
}
