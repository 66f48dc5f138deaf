package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

// cartWriteAttempts is how many times a cart write is tried when another
// request changed the cart in between.
const cartWriteAttempts = 3

// CartService implements cart operations. Prices are snapshotted from the
// catalog when a line is added.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddToCartInput holds the parameters for adding a product to a cart.
type AddToCartInput struct {
	ProductID string
	Color     string
	Quantity  int
}

// AddToCart adds a line, or merges into the existing line for the same
// product and color. The merged quantity must not exceed stock.
func (s *CartService) AddToCart(ctx context.Context, userID string, input AddToCartInput) (*domain.Cart, error) {
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart: %w", err)
	}

	cart, err := s.update(ctx, userID, func(c *domain.Cart) error {
		if i := c.FindLine(product.ID, input.Color); i >= 0 {
			qty := c.Items[i].Quantity + input.Quantity
			if !product.InStock(qty) {
				return apperrors.InsufficientStock(product.ID, qty, product.Stock)
			}
			c.Items[i].Quantity = qty
			return nil
		}

		if len(c.Items) >= domain.MaxCartLines {
			return apperrors.InvalidInput(fmt.Sprintf("a cart holds at most %d lines", domain.MaxCartLines))
		}
		if !product.InStock(input.Quantity) {
			return apperrors.InsufficientStock(product.ID, input.Quantity, product.Stock)
		}
		c.Items = append(c.Items, domain.CartItem{
			ID:        uuid.New().String(),
			UserID:    userID,
			ProductID: product.ID,
			Title:     product.Title,
			Color:     input.Color,
			Quantity:  input.Quantity,
			Price:     product.Price,
			AddedAt:   s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", input.Quantity),
	)
	return cart, nil
}

// GetCart returns the user's cart. A user without a cart gets an empty one.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// RemoveCartItem removes one line from the user's cart.
func (s *CartService) RemoveCartItem(ctx context.Context, userID, itemID string) error {
	_, err := s.update(ctx, userID, func(c *domain.Cart) error {
		if !c.RemoveItem(itemID) {
			return apperrors.NotFound("cart item", itemID)
		}
		return nil
	})
	return err
}

// EmptyCart removes every line and returns how many there were. Emptying an
// empty cart returns 0.
func (s *CartService) EmptyCart(ctx context.Context, userID string) (int, error) {
	n, err := s.carts.Delete(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("empty cart: %w", err)
	}
	return n, nil
}

// UpdateCartItemQuantity sets the quantity of one line.
func (s *CartService) UpdateCartItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	i := current.FindItem(itemID)
	if i < 0 {
		return nil, apperrors.NotFound("cart item", itemID)
	}

	product, err := s.products.GetByID(ctx, current.Items[i].ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart item: %w", err)
	}
	if !product.InStock(quantity) {
		return nil, apperrors.InsufficientStock(product.ID, quantity, product.Stock)
	}

	var updated domain.CartItem
	_, err = s.update(ctx, userID, func(c *domain.Cart) error {
		j := c.FindItem(itemID)
		if j < 0 {
			return apperrors.NotFound("cart item", itemID)
		}
		c.Items[j].Quantity = quantity
		updated = c.Items[j]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// update runs fn against the stored cart, retrying when a concurrent write
// wins the race.
func (s *CartService) update(ctx context.Context, userID string, fn func(c *domain.Cart) error) (*domain.Cart, error) {
	var err error
	for attempt := 1; attempt <= cartWriteAttempts; attempt++ {
		var cart *domain.Cart
		cart, err = s.carts.Update(ctx, userID, fn)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "cart write conflict, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("update cart: %w", err)
}
