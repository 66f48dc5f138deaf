package domain

import "time"

// Order statuses.
const (
	OrderStatusPlaced     = "placed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is an immutable snapshot of a purchase. Only Status changes after
// creation.
type Order struct {
	ID                      string       `json:"id"`
	UserID                  string       `json:"user_id"`
	ShippingInfo            ShippingInfo `json:"shipping_info"`
	Items                   []OrderItem  `json:"items"`
	TotalPrice              int64        `json:"total_price"`
	TotalPriceAfterDiscount int64        `json:"total_price_after_discount"`
	PaymentInfo             PaymentInfo  `json:"payment_info"`
	Status                  string       `json:"status"`
	CreatedAt               time.Time    `json:"created_at"`
	UpdatedAt               time.Time    `json:"updated_at"`
}

// OrderItem is a line captured at order time.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type ShippingInfo struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty" validate:"max=30"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	Country    string `json:"country" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Other      string `json:"other,omitempty" validate:"max=500"`
}

// PaymentInfo references a payment made with an external provider.
type PaymentInfo struct {
	Provider  string `json:"provider" validate:"required,max=50"`
	OrderRef  string `json:"order_ref" validate:"required,max=200"`
	PaymentID string `json:"payment_id" validate:"required,max=200"`
}

// LineTotal is price times quantity.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// ItemsTotal sums every line.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for i := range o.Items {
		total += o.Items[i].LineTotal()
	}
	return total
}

func ValidOrderStatuses() []string {
	return []string{
		OrderStatusPlaced,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from each status.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPlaced:     {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
	}
}

// CanTransitionTo reports whether the order may move to target.
func (o *Order) CanTransitionTo(target string) bool {
	for _, s := range AllowedTransitions()[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// MonthlyIncome aggregates orders placed in one calendar month.
type MonthlyIncome struct {
	Year   int   `json:"year"`
	Month  int   `json:"month"`
	Amount int64 `json:"amount"`
	Count  int   `json:"count"`
}

// OrderTotals aggregates orders over a period.
type OrderTotals struct {
	Amount int64 `json:"amount"`
	Count  int   `json:"count"`
}
