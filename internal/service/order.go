package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/event"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification/templates"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// statsMonths is the window covered by the order statistics.
const statsMonths = 12

// Notifier queues an email for background delivery.
type Notifier interface {
	Dispatch(ctx context.Context, msg *notification.Message)
}

// OrderService implements order placement and management.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	carts    repository.CartRepository
	producer *event.Producer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	carts repository.CartRepository,
	producer *event.Producer,
	notifier Notifier,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		carts:    carts,
		producer: producer,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrderItem is one requested line with the price the client saw.
type PlaceOrderItem struct {
	ProductID string
	Color     string
	Quantity  int
	Price     int64
}

// PlaceOrderInput holds the parameters for placing an order.
type PlaceOrderInput struct {
	ShippingInfo            domain.ShippingInfo
	Items                   []PlaceOrderItem
	TotalPrice              int64
	TotalPriceAfterDiscount int64
	PaymentInfo             domain.PaymentInfo
}

// PlaceOrder checks the submitted lines and totals against the live catalog,
// then stores the order and takes stock in one transaction. Emptying the
// cart, publishing order.placed and the confirmation email happen after
// commit and never fail the order.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, input *PlaceOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	products, err := s.loadProducts(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &domain.Order{
		ID:                      uuid.New().String(),
		UserID:                  userID,
		ShippingInfo:            input.ShippingInfo,
		Items:                   make([]domain.OrderItem, 0, len(input.Items)),
		TotalPrice:              input.TotalPrice,
		TotalPriceAfterDiscount: input.TotalPriceAfterDiscount,
		PaymentInfo:             input.PaymentInfo,
		Status:                  domain.OrderStatusPlaced,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, apperrors.InvalidInput("quantity must be at least 1")
		}
		product := products[item.ProductID]
		if item.Price != product.Price {
			return nil, apperrors.InvalidInput(fmt.Sprintf("price changed for product %s", product.ID))
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Title:     product.Title,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	if order.ItemsTotal() != input.TotalPrice {
		return nil, apperrors.InvalidInput(fmt.Sprintf("total_price must be %d", order.ItemsTotal()))
	}
	if input.TotalPriceAfterDiscount < 0 || input.TotalPriceAfterDiscount > input.TotalPrice {
		return nil, apperrors.InvalidInput("total_price_after_discount must be between 0 and total_price")
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int64("total", order.TotalPriceAfterDiscount),
		slog.Int("items", len(order.Items)),
	)

	s.afterPlace(ctx, order)
	return order, nil
}

// loadProducts fetches every product referenced by items, keyed by id.
func (s *OrderService) loadProducts(ctx context.Context, items []PlaceOrderItem) (map[string]domain.Product, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, apperrors.NotFound("product", id)
		}
	}
	return byID, nil
}

func (s *OrderService) afterPlace(ctx context.Context, order *domain.Order) {
	if n, err := s.carts.Delete(ctx, order.UserID); err != nil {
		s.logger.ErrorContext(ctx, "failed to empty cart after order",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	} else if n > 0 {
		s.logger.InfoContext(ctx, "cart emptied after order",
			slog.String("order_id", order.ID),
			slog.Int("lines", n),
		)
	}

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	msg, err := templates.OrderConfirmation(order)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render order confirmation",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.notifier.Dispatch(ctx, msg)
}

// ListMyOrders returns the caller's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, userID string, page pagination.Params) ([]domain.Order, int, error) {
	orders, total, err := s.orders.List(ctx, repository.OrderFilter{UserID: &userID, Page: page})
	if err != nil {
		return nil, 0, fmt.Errorf("list user orders: %w", err)
	}
	return orders, total, nil
}

// ListOrders returns every order, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, status string, page pagination.Params) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{Page: page}
	if status != "" {
		if !domain.IsValidOrderStatus(status) {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", status))
		}
		filter.Status = &status
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder returns an order visible to the caller. Orders of other users
// look missing to anyone but an admin.
func (s *OrderService) GetOrder(ctx context.Context, id, callerID, callerRole string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != callerID && callerRole != domain.RoleAdmin {
		return nil, apperrors.NotFound("order", id)
	}
	return order, nil
}

// UpdateOrderStatus moves an order along its lifecycle.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", status))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !order.CanTransitionTo(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot change order status from %s to %s", order.Status, status))
	}

	if err := s.orders.UpdateStatus(ctx, id, order.Status, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	oldStatus := order.Status
	order.Status = status
	order.UpdatedAt = s.now()

	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", order.ID),
		slog.String("from", oldStatus),
		slog.String("to", status),
	)
	return order, nil
}

// MonthlyIncome returns per-month income over the last twelve months,
// including the current one.
func (s *OrderService) MonthlyIncome(ctx context.Context) ([]domain.MonthlyIncome, error) {
	income, err := s.orders.MonthlyIncome(ctx, s.statsSince())
	if err != nil {
		return nil, fmt.Errorf("monthly income: %w", err)
	}
	return income, nil
}

// YearlyTotals returns the income and order count over the same window as
// MonthlyIncome.
func (s *OrderService) YearlyTotals(ctx context.Context) (domain.OrderTotals, error) {
	totals, err := s.orders.Totals(ctx, s.statsSince())
	if err != nil {
		return domain.OrderTotals{}, fmt.Errorf("yearly totals: %w", err)
	}
	return totals, nil
}

func (s *OrderService) statsSince() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month()-(statsMonths-1), 1, 0, 0, 0, 0, time.UTC)
}
