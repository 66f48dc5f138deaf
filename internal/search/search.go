// Package search defines the product full-text index used by the catalog
// search endpoint.
package search

import (
	"context"
	"time"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// Document is the indexed form of a product.
type Document struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	Price           int64     `json:"price"`
	Stock           int       `json:"stock"`
	CategoryID      string    `json:"category_id"`
	BrandID         string    `json:"brand_id"`
	Colors          []string  `json:"colors"`
	Tags            []string  `json:"tags"`
	Images          []string  `json:"images"`
	AggregateRating int       `json:"aggregate_rating"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DocumentFromProduct builds the index document for p.
func DocumentFromProduct(p *domain.Product) *Document {
	return &Document{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		Description:     p.Description,
		Price:           p.Price,
		Stock:           p.Stock,
		CategoryID:      p.CategoryID,
		BrandID:         p.BrandID,
		Colors:          orEmpty(p.Colors),
		Tags:            orEmpty(p.Tags),
		Images:          orEmpty(p.Images),
		AggregateRating: p.AggregateRating,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// Query is a free-text search request. An empty Text matches everything.
type Query struct {
	Text string
	Page pagination.Params
}

// Result is one page of matches with the total hit count.
type Result struct {
	Documents []Document
	Total     int
	TookMs    int64
}

// Engine indexes and searches product documents.
type Engine interface {
	Index(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q Query) (*Result, error)
	BulkIndex(ctx context.Context, docs []Document) error
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
