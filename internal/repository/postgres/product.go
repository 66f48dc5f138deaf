package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

// ratingAttempts bounds ApplyRating retries on serialization failures and deadlocks.
const ratingAttempts = 3

// productColumns selects a product together with its ratings, oldest first.
const productColumns = `
	p.id, p.title, p.slug, p.description, p.price, p.stock, p.sold,
	p.category_id, p.brand_id, p.colors, p.tags, p.images,
	p.aggregate_rating, p.version, p.created_at, p.updated_at,
	COALESCE((
		SELECT JSONB_AGG(JSONB_BUILD_OBJECT(
			'user_id', r.user_id,
			'star', r.star,
			'comment', r.comment,
			'created_at', r.created_at,
			'updated_at', r.updated_at
		) ORDER BY r.created_at, r.user_id)
		FROM product_ratings r
		WHERE r.product_id = p.id
	), '[]'::jsonb) AS ratings`

// Query fields resolve to columns only through these maps.
var (
	filterColumns = map[string]string{
		"price":            "p.price",
		"stock":            "p.stock",
		"sold":             "p.sold",
		"aggregate_rating": "p.aggregate_rating",
		"category":         "p.category_id",
		"brand":            "p.brand_id",
		"slug":             "p.slug",
	}
	sortColumns = map[string]string{
		"created_at":       "p.created_at",
		"updated_at":       "p.updated_at",
		"price":            "p.price",
		"title":            "p.title",
		"sold":             "p.sold",
		"stock":            "p.stock",
		"aggregate_rating": "p.aggregate_rating",
	}
	sqlOperators = map[domain.CompareOp]string{
		domain.OpEq:  "=",
		domain.OpGt:  ">",
		domain.OpGte: ">=",
		domain.OpLt:  "<",
		domain.OpLte: "<=",
	}
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, title, slug, description, price, stock, sold, category_id, brand_id,
			colors, tags, images, aggregate_rating, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		p.Sold,
		p.CategoryID,
		p.BrandID,
		nonNilStrings(p.Colors),
		nonNilStrings(p.Tags),
		nonNilStrings(p.Images),
		p.AggregateRating,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	return collectProducts(rows)
}

func (r *ProductRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id::text <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product slug: %w", err)
	}
	return exists, nil
}

// Update writes the editable fields and bumps the version.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET title = $1, slug = $2, description = $3, price = $4, stock = $5,
			category_id = $6, brand_id = $7, colors = $8, tags = $9, images = $10,
			version = version + 1, updated_at = $11
		WHERE id = $12
		RETURNING version`

	err := r.pool.QueryRow(ctx, query,
		p.Title,
		p.Slug,
		p.Description,
		p.Price,
		p.Stock,
		p.CategoryID,
		p.BrandID,
		nonNilStrings(p.Colors),
		nonNilStrings(p.Tags),
		nonNilStrings(p.Images),
		p.UpdatedAt,
		p.ID,
	).Scan(&p.Version)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NotFound("product", p.ID)
		case database.IsUniqueViolation(err):
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context, q domain.ProductQuery) (total int, err error) {
	where, args := buildProductWhere(q)
	query := `SELECT COUNT(*) FROM products p ` + where

	ctx, end := database.TraceQuery(ctx, "CountProducts", query)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

func (r *ProductRepository) List(ctx context.Context, q domain.ProductQuery) (products []domain.Product, err error) {
	where, args := buildProductWhere(q)
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM products p %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where, buildProductOrder(q.Sort), n+1, n+2)
	args = append(args, q.Page.Limit, q.Page.Offset)

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// ApplyRating locks the product row, applies the rating upsert and aggregate
// recompute in memory, and writes both back before committing.
func (r *ProductRepository) ApplyRating(ctx context.Context, productID, userID string, star int, comment string) (result *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ApplyRating", "product rating transaction")
	defer func() { end(err) }()

	err = database.WithRetryTx(ctx, r.pool, ratingAttempts, func(tx pgx.Tx) error {
		query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 FOR UPDATE OF p`
		p, err := scanProduct(tx.QueryRow(ctx, query, productID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("product", productID)
			}
			return fmt.Errorf("lock product: %w", err)
		}

		now := time.Now().UTC()
		p.UpsertRating(userID, star, comment, now)
		p.RecomputeRating()
		rating, _ := p.RatingFor(userID)

		_, err = tx.Exec(ctx, `
			INSERT INTO product_ratings (product_id, user_id, star, comment, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (product_id, user_id)
			DO UPDATE SET star = EXCLUDED.star, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at`,
			productID, userID, rating.Star, rating.Comment, rating.CreatedAt, rating.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE products
			SET aggregate_rating = $1, version = version + 1, updated_at = $2
			WHERE id = $3`,
			p.AggregateRating, now, productID,
		)
		if err != nil {
			return fmt.Errorf("update aggregate rating: %w", err)
		}

		p.Version++
		p.UpdatedAt = now
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildProductWhere turns the validated filters of q into a WHERE clause.
// Values are always bound as parameters.
func buildProductWhere(q domain.ProductQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	for _, f := range q.Numeric {
		col, ok := filterColumns[f.Field]
		op, okOp := sqlOperators[f.Op]
		if !ok || !okOp {
			continue
		}
		add(col+" "+op+" $%d", f.Value)
	}

	keys := make([]string, 0, len(q.Equals))
	for k := range q.Equals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, ok := filterColumns[k]
		if !ok {
			continue
		}
		add(col+" = $%d", q.Equals[k])
	}

	if len(q.Colors) > 0 {
		add("p.colors && $%d", q.Colors)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildProductOrder renders the sort list. p.id is appended so that equal
// sort keys still page deterministically.
func buildProductOrder(fields []domain.SortField) string {
	if len(fields) == 0 {
		fields = domain.DefaultSort
	}
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := sortColumns[f.Field]
		if !ok {
			continue
		}
		if f.Desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	parts = append(parts, "p.id ASC")
	return strings.Join(parts, ", ")
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p           domain.Product
		ratingsJSON []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Sold,
		&p.CategoryID,
		&p.BrandID,
		&p.Colors,
		&p.Tags,
		&p.Images,
		&p.AggregateRating,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
		&ratingsJSON,
	)
	if err != nil {
		return nil, err
	}

	p.Ratings = []domain.Rating{}
	if len(ratingsJSON) > 0 && string(ratingsJSON) != "null" {
		if err := json.Unmarshal(ratingsJSON, &p.Ratings); err != nil {
			return nil, fmt.Errorf("unmarshal ratings: %w", err)
		}
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
