package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

func TestWishlistRepository_Add(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)

	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs("user-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs("user-1", "gone").
		WillReturnError(&pgconn.PgError{Code: database.CodeForeignKeyViolation})

	require.NoError(t, repo.Add(context.Background(), "user-1", "prod-1"))
	err := repo.Add(context.Background(), "user-1", "gone")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Exists(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := repo.Exists(context.Background(), "user-1", "prod-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWishlistRepository_ListProducts(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)
	p := sampleProduct()

	mock.ExpectQuery("FROM wishlists").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(p, "[]")...))

	products, err := repo.ListProducts(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, p.Slug, products[0].Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestColorRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewColorRepository(mock)
	c := &domain.Color{ID: "c1", Title: "red", CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO colors").
		WithArgs(c.ID, c.Title, c.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: database.CodeUniqueViolation})

	err := repo.Create(context.Background(), c)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
}

func TestColorRepository_GetByIDs(t *testing.T) {
	mock := newMock(t)
	repo := NewColorRepository(mock)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id::text = ANY($1)")).
		WithArgs([]string{"c1", "c2"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "created_at"}).
			AddRow("c2", "blue", now).
			AddRow("c1", "red", now))

	colors, err := repo.GetByIDs(context.Background(), []string{"c1", "c2"})
	require.NoError(t, err)
	require.Len(t, colors, 2)
	assert.Equal(t, "blue", colors[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}
