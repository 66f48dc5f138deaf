package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	pkgkafka "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/kafka"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/logger"
)

// Topics, one per aggregate.
var (
	TopicProducts = pkgkafka.Topic("products")
	TopicOrders   = pkgkafka.Topic("orders")
	TopicUsers    = pkgkafka.Topic("users")
)

// Event types.
const (
	ProductCreated     = "product.created"
	ProductUpdated     = "product.updated"
	ProductDeleted     = "product.deleted"
	ProductRated       = "product.rated"
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
	UserRegistered     = "user.registered"
)

const source = "storefront-api"

// ProductData is the payload of every product event except deletion.
type ProductData struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	Price           int64     `json:"price"`
	Stock           int       `json:"stock"`
	CategoryID      string    `json:"category_id,omitempty"`
	BrandID         string    `json:"brand_id,omitempty"`
	Colors          []string  `json:"colors"`
	Tags            []string  `json:"tags"`
	Images          []string  `json:"images"`
	AggregateRating int       `json:"aggregate_rating"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Product converts the payload back into a catalog product without ratings.
func (d ProductData) Product() *domain.Product {
	return &domain.Product{
		ID:              d.ID,
		Title:           d.Title,
		Slug:            d.Slug,
		Description:     d.Description,
		Price:           d.Price,
		Stock:           d.Stock,
		CategoryID:      d.CategoryID,
		BrandID:         d.BrandID,
		Colors:          d.Colors,
		Tags:            d.Tags,
		Images:          d.Images,
		AggregateRating: d.AggregateRating,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		Description:     p.Description,
		Price:           p.Price,
		Stock:           p.Stock,
		CategoryID:      p.CategoryID,
		BrandID:         p.BrandID,
		Colors:          p.Colors,
		Tags:            p.Tags,
		Images:          p.Images,
		AggregateRating: p.AggregateRating,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ProductRatedData extends ProductData with the rating that caused the event.
type ProductRatedData struct {
	ProductData
	UserID string `json:"user_id"`
	Star   int    `json:"star"`
}

type ProductDeletedData struct {
	ID string `json:"id"`
}

type OrderPlacedData struct {
	OrderID                 string             `json:"order_id"`
	UserID                  string             `json:"user_id"`
	Items                   []domain.OrderItem `json:"items"`
	TotalPrice              int64              `json:"total_price"`
	TotalPriceAfterDiscount int64              `json:"total_price_after_discount"`
}

type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type UserRegisteredData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Producer publishes storefront domain events.
type Producer struct {
	pub    pkgkafka.Publisher
	logger *slog.Logger
}

func NewProducer(pub pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProducts, ProductCreated, product.ID, "product", productData(product))
}

func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProducts, ProductUpdated, product.ID, "product", productData(product))
}

func (p *Producer) PublishProductDeleted(ctx context.Context, productID string) error {
	return p.publish(ctx, TopicProducts, ProductDeleted, productID, "product", ProductDeletedData{ID: productID})
}

func (p *Producer) PublishProductRated(ctx context.Context, product *domain.Product, userID string, star int) error {
	data := ProductRatedData{ProductData: productData(product), UserID: userID, Star: star}
	return p.publish(ctx, TopicProducts, ProductRated, product.ID, "product", data)
}

func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order) error {
	data := OrderPlacedData{
		OrderID:                 o.ID,
		UserID:                  o.UserID,
		Items:                   o.Items,
		TotalPrice:              o.TotalPrice,
		TotalPriceAfterDiscount: o.TotalPriceAfterDiscount,
	}
	return p.publish(ctx, TopicOrders, OrderPlaced, o.ID, "order", data)
}

func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *domain.Order, oldStatus string) error {
	data := OrderStatusChangedData{
		OrderID:   o.ID,
		UserID:    o.UserID,
		OldStatus: oldStatus,
		NewStatus: o.Status,
	}
	return p.publish(ctx, TopicOrders, OrderStatusChanged, o.ID, "order", data)
}

func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	data := UserRegisteredData{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	return p.publish(ctx, TopicUsers, UserRegistered, u.ID, "user", data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.pub.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
