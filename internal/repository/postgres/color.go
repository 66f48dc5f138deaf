package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

// ColorRepository implements repository.ColorRepository using PostgreSQL.
type ColorRepository struct {
	pool database.DBTX
}

func NewColorRepository(pool database.DBTX) *ColorRepository {
	return &ColorRepository{pool: pool}
}

func (r *ColorRepository) Create(ctx context.Context, c *domain.Color) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO colors (id, title, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Title, c.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("color", "title", c.Title)
		}
		return fmt.Errorf("insert color: %w", err)
	}
	return nil
}

func (r *ColorRepository) List(ctx context.Context) ([]domain.Color, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, created_at FROM colors ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	return collectColors(rows)
}

func (r *ColorRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Color, error) {
	if len(ids) == 0 {
		return []domain.Color{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, created_at FROM colors WHERE id::text = ANY($1) ORDER BY title`, ids)
	if err != nil {
		return nil, fmt.Errorf("get colors: %w", err)
	}
	return collectColors(rows)
}

func collectColors(rows pgx.Rows) ([]domain.Color, error) {
	defer rows.Close()

	colors := make([]domain.Color, 0)
	for rows.Next() {
		var c domain.Color
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan color: %w", err)
		}
		colors = append(colors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate color rows: %w", err)
	}
	return colors, nil
}
