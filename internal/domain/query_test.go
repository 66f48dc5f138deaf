package domain

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

func mustParse(t *testing.T, raw string) ProductQuery {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	q, err := ParseProductQuery(values)
	require.NoError(t, err)
	return q
}

func TestParseProductQuery_Defaults(t *testing.T) {
	q := mustParse(t, "")

	assert.Equal(t, DefaultSort, q.Sort)
	assert.NotContains(t, q.Fields, "version")
	assert.Contains(t, q.Fields, "title")
	assert.Equal(t, 1, q.Page.Page)
	assert.Equal(t, 20, q.Page.Limit)
	assert.Zero(t, q.Page.Offset)
	assert.False(t, q.Page.Explicit)
	assert.Empty(t, q.Numeric)
	assert.Empty(t, q.Colors)
}

func TestParseProductQuery_Filters(t *testing.T) {
	q := mustParse(t, "price[gte]=100&price[lt]=500&stock=3&brand=b1&color=c1,c2")

	assert.ElementsMatch(t, []NumericFilter{
		{Field: "price", Op: OpGte, Value: 100},
		{Field: "price", Op: OpLt, Value: 500},
		{Field: "stock", Op: OpEq, Value: 3},
	}, q.Numeric)
	assert.Equal(t, map[string]string{"brand": "b1"}, q.Equals)
	assert.Equal(t, []string{"c1", "c2"}, q.Colors)
}

func TestParseProductQuery_SortFieldsPaging(t *testing.T) {
	q := mustParse(t, "sort=price,-created_at&fields=title,price,title&page=3&limit=500")

	assert.Equal(t, []SortField{{Field: "price"}, {Field: "created_at", Desc: true}}, q.Sort)
	assert.Equal(t, []string{"id", "title", "price"}, q.Fields)
	assert.Equal(t, 3, q.Page.Page)
	assert.Equal(t, 100, q.Page.Limit)
	assert.Equal(t, 200, q.Page.Offset)
	assert.True(t, q.Page.Explicit)
}

func TestParseProductQuery_Rejects(t *testing.T) {
	tests := []string{
		"owner=x",
		"price[ne]=1",
		"price[gte=1",
		"price=abc",
		"brand[gt]=x",
		"sort=password",
		"fields=title,secret",
		"page=0",
		"page=two",
		"limit=-1",
		"color=,",
		"$where=1",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			values, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, err = ParseProductQuery(values)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestProject(t *testing.T) {
	now := time.Now()
	p := &Product{ID: "p1", Title: "Shirt", Price: 1500, Version: 7, CreatedAt: now}

	out := Project(p, []string{"id", "title", "version", "tags"})
	assert.Equal(t, map[string]any{
		"id":      "p1",
		"title":   "Shirt",
		"version": 7,
		"tags":    []string{},
	}, out)

	full := Project(p, DefaultFields())
	assert.NotContains(t, full, "version")
	assert.Equal(t, int64(1500), full["price"])
}
