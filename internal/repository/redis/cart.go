package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. Each cart
// is one JSON document under cart:<user id>.
type CartRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewCartRepository creates a Redis-backed cart repository. A zero ttl keeps
// carts until they are deleted.
func NewCartRepository(client redis.UniversalClient, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func cartKey(userID string) string {
	return keyPrefix + userID
}

// Get returns the stored cart or an empty one.
func (r *CartRepository) Get(ctx context.Context, userID string) (cart *domain.Cart, err error) {
	ctx, end := database.TraceOp(ctx, "redis", "GetCart", "GET "+keyPrefix+"*")
	defer func() { end(err) }()

	return readCart(ctx, r.client, userID)
}

// Update applies fn under WATCH so that a write racing with ours makes the
// transaction fail instead of silently losing lines.
func (r *CartRepository) Update(ctx context.Context, userID string, fn func(c *domain.Cart) error) (result *domain.Cart, err error) {
	ctx, end := database.TraceOp(ctx, "redis", "UpdateCart", "WATCH/MULTI "+keyPrefix+"*")
	defer func() { end(err) }()

	key := cartKey(userID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cart, err := readCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}

		cart.Version++
		cart.UpdatedAt = r.now()
		data, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = cart
		return nil
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, apperrors.Conflict("cart was modified concurrently")
		}
		return nil, err
	}
	return result, nil
}

// Delete removes the cart atomically and reports how many lines it held.
func (r *CartRepository) Delete(ctx context.Context, userID string) (n int, err error) {
	ctx, end := database.TraceOp(ctx, "redis", "DeleteCart", "GETDEL "+keyPrefix+"*")
	defer func() { end(err) }()

	data, err := r.client.GetDel(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis getdel cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return 0, fmt.Errorf("unmarshal cart: %w", err)
	}
	return len(cart.Items), nil
}

func readCart(ctx context.Context, c redis.Cmdable, userID string) (*domain.Cart, error) {
	data, err := c.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}
