package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/service"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/httputil"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/middleware"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/validator"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// AddToCartRequest is the JSON request body for adding a cart line.
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Color     string `json:"color" validate:"max=100"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// cartResponse adds computed totals to the stored cart.
type cartResponse struct {
	*domain.Cart
	TotalPrice int64 `json:"total_price"`
	ItemCount  int   `json:"item_count"`
}

func newCartResponse(c *domain.Cart) cartResponse {
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return cartResponse{Cart: c, TotalPrice: c.TotalPrice(), ItemCount: c.ItemCount()}
}

// AddToCart handles POST /api/v1/cart
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.AddToCart(r.Context(), middleware.UserIDFromContext(r.Context()), service.AddToCartInput{
		ProductID: req.ProductID,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// EmptyCart handles DELETE /api/v1/cart/empty
func (h *CartHandler) EmptyCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.EmptyCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]int{"deleted_count": n})
}

// RemoveCartItem handles DELETE /api/v1/cart/{cartItemId}
func (h *CartHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, r, "cart item id", chi.URLParam(r, "cartItemId"))
	if !ok {
		return
	}

	if err := h.service.RemoveCartItem(r.Context(), middleware.UserIDFromContext(r.Context()), itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateQuantity handles PUT /api/v1/cart/{cartItemId}/{newQuantity}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, r, "cart item id", chi.URLParam(r, "cartItemId"))
	if !ok {
		return
	}
	raw := chi.URLParam(r, "newQuantity")
	quantity, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid quantity: "+raw)
		return
	}

	item, err := h.service.UpdateCartItemQuantity(r.Context(), middleware.UserIDFromContext(r.Context()), itemID, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, item)
}
