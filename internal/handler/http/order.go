package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/service"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/httputil"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/middleware"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/validator"
)

// OrderHandler handles HTTP requests for orders and order statistics.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// PlaceOrderRequest is the JSON request body for placing an order.
type PlaceOrderRequest struct {
	ShippingInfo            domain.ShippingInfo `json:"shipping_info" validate:"required"`
	Items                   []OrderItemRequest  `json:"items" validate:"required,min=1,max=50,dive"`
	TotalPrice              int64               `json:"total_price" validate:"gte=0"`
	TotalPriceAfterDiscount int64               `json:"total_price_after_discount" validate:"gte=0"`
	PaymentInfo             domain.PaymentInfo  `json:"payment_info" validate:"required"`
}

// OrderItemRequest is one submitted order line.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Color     string `json:"color" validate:"max=100"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Price     int64  `json:"price" validate:"gte=0"`
}

// UpdateStatusRequest is the JSON request body for changing an order status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=placed processing shipped delivered cancelled"`
}

// --- Handlers ---

// PlaceOrder handles POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	items := make([]service.PlaceOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.PlaceOrderItem{
			ProductID: item.ProductID,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.service.PlaceOrder(r.Context(), middleware.UserIDFromContext(r.Context()), &service.PlaceOrderInput{
		ShippingInfo:            req.ShippingInfo,
		Items:                   items,
		TotalPrice:              req.TotalPrice,
		TotalPriceAfterDiscount: req.TotalPriceAfterDiscount,
		PaymentInfo:             req.PaymentInfo,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}

// ListMyOrders handles GET /api/v1/orders/mine
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	orders, total, err := h.service.ListMyOrders(r.Context(), middleware.UserIDFromContext(r.Context()), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WritePage(w, orders, pagination.NewMeta(total, page))
}

// ListOrders handles GET /api/v1/orders?status=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	orders, total, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WritePage(w, orders, pagination.NewMeta(total, page))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx := r.Context()
	order, err := h.service.GetOrder(ctx, id, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/v1/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// MonthlyIncome handles GET /api/v1/orders/stats/monthly
func (h *OrderHandler) MonthlyIncome(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.MonthlyIncome(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if stats == nil {
		stats = []domain.MonthlyIncome{}
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// YearlyTotals handles GET /api/v1/orders/stats/yearly
func (h *OrderHandler) YearlyTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.YearlyTotals(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, totals)
}
