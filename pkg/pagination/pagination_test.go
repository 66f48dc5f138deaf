package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)
	assert.False(t, p.Explicit)
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		page     int
		limit    int
		offset   int
		explicit bool
	}{
		{"defaults", "", 1, 20, 0, false},
		{"custom", "?page=3&limit=50", 3, 50, 100, true},
		{"negative page", "?page=-1", 1, 20, 0, true},
		{"garbage page", "?page=abc", 1, 20, 0, true},
		{"limit clamped", "?limit=500", 1, 100, 0, false},
		{"zero limit", "?limit=0", 1, 20, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil)
			p := FromRequest(req)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.offset, p.Offset)
			assert.Equal(t, tt.explicit, p.Explicit)
		})
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(25, New(1, 10))
	assert.Equal(t, 3, m.TotalPages)
	assert.True(t, m.HasNext)
	assert.False(t, m.HasPrev)

	m = NewMeta(30, New(3, 10))
	assert.Equal(t, 3, m.TotalPages)
	assert.False(t, m.HasNext)
	assert.True(t, m.HasPrev)

	m = NewMeta(0, DefaultParams())
	assert.Equal(t, 0, m.TotalPages)
	assert.False(t, m.HasNext)
}
