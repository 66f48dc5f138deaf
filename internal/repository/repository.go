package repository

import (
	"context"
	"time"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// ProductRepository defines product persistence, including the atomic rating write.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetByIDs returns the products that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	// SlugExists reports whether slug is used by a product other than excludeID.
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error

	// Count returns how many products match the filters of q.
	Count(ctx context.Context, q domain.ProductQuery) (int, error)
	// List returns one page of products matching q.
	List(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)

	// ApplyRating upserts userID's rating and recomputes the aggregate in a
	// single transaction that holds the product row lock.
	ApplyRating(ctx context.Context, productID, userID string, star int, comment string) (*domain.Product, error)
}

// ColorRepository defines color persistence.
type ColorRepository interface {
	Create(ctx context.Context, c *domain.Color) error
	List(ctx context.Context) ([]domain.Color, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Color, error)
}

// WishlistRepository defines wishlist persistence.
type WishlistRepository interface {
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
	Exists(ctx context.Context, userID, productID string) (bool, error)
	ListProducts(ctx context.Context, userID string) ([]domain.Product, error)
}

// CartRepository defines cart persistence. Carts are keyed by user id, so a
// user can never address another user's lines.
type CartRepository interface {
	// Get returns the user's cart, or an empty cart when none is stored.
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Update loads the cart, applies fn and writes it back if the cart did not
	// change in between. A concurrent write yields apperrors.ErrConflict.
	Update(ctx context.Context, userID string, fn func(c *domain.Cart) error) (*domain.Cart, error)
	// Delete removes the cart and returns how many lines it held.
	Delete(ctx context.Context, userID string) (int, error)
}

// OrderFilter narrows an admin order listing.
type OrderFilter struct {
	UserID *string
	Status *string
	Page   pagination.Params
}

// OrderRepository defines order persistence.
type OrderRepository interface {
	// Create inserts the order and takes stock for every line in one
	// transaction. Insufficient stock rolls back the whole order.
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
	// UpdateStatus moves the order from one status to another. It fails with
	// apperrors.ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id, from, to string) error
	MonthlyIncome(ctx context.Context, since time.Time) ([]domain.MonthlyIncome, error)
	Totals(ctx context.Context, since time.Time) (domain.OrderTotals, error)
}

// UserRepository defines user persistence.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetHash(ctx context.Context, hash string) (*domain.User, error)
	List(ctx context.Context, page pagination.Params) ([]domain.User, int, error)
	// Update writes the profile fields, address and blocked flag.
	Update(ctx context.Context, u *domain.User) error
	// UpdatePassword stores a new hash and clears any pending reset token.
	UpdatePassword(ctx context.Context, id, hash string) error
	SetPasswordReset(ctx context.Context, id, hash string, expires time.Time) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository defines refresh token persistence.
type RefreshTokenRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeByUserID(ctx context.Context, userID string) error
}

// EnquiryRepository defines enquiry persistence.
type EnquiryRepository interface {
	Create(ctx context.Context, e *domain.Enquiry) error
	GetByID(ctx context.Context, id string) (*domain.Enquiry, error)
	List(ctx context.Context, page pagination.Params) ([]domain.Enquiry, int, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.Enquiry, error)
	Delete(ctx context.Context, id string) error
}
