package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/event"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/search"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/slug"
)

// maxSlugAttempts bounds the numeric suffix search for a free slug.
const maxSlugAttempts = 100

// ProductService implements the catalog: products, ratings, colors,
// wishlists and search.
type ProductService struct {
	products  repository.ProductRepository
	colors    repository.ColorRepository
	wishlists repository.WishlistRepository
	producer  *event.Producer
	search    search.Engine
	// inlineIndex updates the search index after each write. It is set when
	// no consumer keeps the index in sync from product events.
	inlineIndex bool
	logger      *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	products repository.ProductRepository,
	colors repository.ColorRepository,
	wishlists repository.WishlistRepository,
	producer *event.Producer,
	engine search.Engine,
	inlineIndex bool,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products:    products,
		colors:      colors,
		wishlists:   wishlists,
		producer:    producer,
		search:      engine,
		inlineIndex: inlineIndex,
		logger:      logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Title       string
	Description string
	Price       int64
	Stock       int
	CategoryID  string
	BrandID     string
	Colors      []string
	Tags        []string
	Images      []string
}

// UpdateProductInput holds the parameters for a partial product update.
// Nil fields are left unchanged.
type UpdateProductInput struct {
	Title       *string
	Description *string
	Price       *int64
	Stock       *int
	CategoryID  *string
	BrandID     *string
	Colors      []string
	Tags        []string
	Images      []string
}

// CreateProduct creates a product with a slug derived from its title.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.InvalidInput("product title is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	productSlug, err := s.uniqueSlug(ctx, input.Title, "")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(input.Title),
		Slug:        productSlug,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		CategoryID:  input.CategoryID,
		BrandID:     input.BrandID,
		Colors:      orEmpty(input.Colors),
		Tags:        orEmpty(input.Tags),
		Images:      orEmpty(input.Images),
		Ratings:     []domain.Rating{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
	s.indexInline(ctx, product)

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)
	return product, nil
}

// GetProduct returns a product with its colors populated. A color lookup
// failure is logged and leaves ColorDetails empty.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	if len(product.Colors) > 0 {
		colors, err := s.colors.GetByIDs(ctx, product.Colors)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to load product colors",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		} else {
			product.ColorDetails = colors
		}
	}
	return product, nil
}

// UpdateProduct applies a partial update. Changing the title re-derives the slug.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.InvalidInput("product title must not be empty")
		}
		if title != product.Title {
			productSlug, err := s.uniqueSlug(ctx, title, product.ID)
			if err != nil {
				return nil, err
			}
			product.Title = title
			product.Slug = productSlug
		}
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = *input.Stock
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	if input.BrandID != nil {
		product.BrandID = *input.BrandID
	}
	if input.Colors != nil {
		product.Colors = input.Colors
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
	s.indexInline(ctx, product)

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))
	return product, nil
}

// DeleteProduct removes a product.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
	if s.inlineIndex && s.search != nil {
		if err := s.search.Delete(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to remove product from search index",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// ListProducts returns one page of products matching q and the total match
// count. An explicit page whose offset reaches the match count is an error,
// including page 1 of an empty result.
func (s *ProductService) ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int, error) {
	total, err := s.products.Count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	if q.Page.Explicit && q.Page.Offset >= total {
		return nil, 0, apperrors.PageOutOfRange(q.Page.Page)
	}
	if q.Page.Offset >= total {
		return []domain.Product{}, total, nil
	}

	products, err := s.products.List(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// SubmitRating records userID's star rating for a product, replacing any
// earlier rating by the same user, and returns the updated product.
func (s *ProductService) SubmitRating(ctx context.Context, productID, userID string, star int, comment string) (*domain.Product, error) {
	if !domain.ValidStar(star) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("star must be between %d and %d", domain.MinStar, domain.MaxStar))
	}

	product, err := s.products.ApplyRating(ctx, productID, userID, star, strings.TrimSpace(comment))
	if err != nil {
		return nil, fmt.Errorf("apply rating: %w", err)
	}

	if err := s.producer.PublishProductRated(ctx, product, userID, star); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.rated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
	s.indexInline(ctx, product)

	s.logger.InfoContext(ctx, "product rated",
		slog.String("product_id", product.ID),
		slog.Int("star", star),
		slog.Int("aggregate_rating", product.AggregateRating),
		slog.Int("ratings", len(product.Ratings)),
	)
	return product, nil
}

// ToggleWishlist adds the product to the user's wishlist, or removes it when
// already present. It reports whether the product is now in the wishlist.
func (s *ProductService) ToggleWishlist(ctx context.Context, userID, productID string) (bool, error) {
	exists, err := s.wishlists.Exists(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("check wishlist: %w", err)
	}

	if exists {
		if err := s.wishlists.Remove(ctx, userID, productID); err != nil {
			return false, fmt.Errorf("remove from wishlist: %w", err)
		}
		return false, nil
	}

	if err := s.wishlists.Add(ctx, userID, productID); err != nil {
		return false, fmt.Errorf("add to wishlist: %w", err)
	}
	return true, nil
}

// GetWishlist returns the products in the user's wishlist.
func (s *ProductService) GetWishlist(ctx context.Context, userID string) ([]domain.Product, error) {
	products, err := s.wishlists.ListProducts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return products, nil
}

// CreateColor adds a selectable color.
func (s *ProductService) CreateColor(ctx context.Context, title string) (*domain.Color, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.InvalidInput("color title is required")
	}

	color := &domain.Color{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.colors.Create(ctx, color); err != nil {
		return nil, fmt.Errorf("create color: %w", err)
	}
	return color, nil
}

func (s *ProductService) ListColors(ctx context.Context) ([]domain.Color, error) {
	colors, err := s.colors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	return colors, nil
}

// SearchProducts runs a full-text query against the search index.
func (s *ProductService) SearchProducts(ctx context.Context, text string, page pagination.Params) (*search.Result, error) {
	if s.search == nil {
		return nil, apperrors.Unavailable("search is not configured")
	}
	result, err := s.search.Search(ctx, search.Query{Text: strings.TrimSpace(text), Page: page})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return result, nil
}

// uniqueSlug derives a slug from title, adding a numeric suffix while the
// candidate is taken by a product other than excludeID.
func (s *ProductService) uniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := slug.Generate(title)
	if base == "" {
		return "", apperrors.InvalidInput("product title must contain letters or digits")
	}

	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := slug.WithSuffix(base, n)
		taken, err := s.products.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.AlreadyExists("product", "slug", base)
}

func (s *ProductService) indexInline(ctx context.Context, p *domain.Product) {
	if !s.inlineIndex || s.search == nil {
		return
	}
	if err := s.search.Index(ctx, search.DocumentFromProduct(p)); err != nil {
		s.logger.ErrorContext(ctx, "failed to index product",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isNotFound is shorthand used where a missing row changes the outcome.
func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
