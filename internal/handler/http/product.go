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

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=300"`
	Description string   `json:"description" validate:"max=10000"`
	Price       int64    `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	CategoryID  string   `json:"category_id" validate:"omitempty,max=100"`
	BrandID     string   `json:"brand_id" validate:"omitempty,max=100"`
	Colors      []string `json:"colors" validate:"omitempty,dive,uuid"`
	Tags        []string `json:"tags" validate:"omitempty,max=50,dive,min=1,max=50"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,url"`
}

// UpdateProductRequest is the JSON request body for a partial product update.
type UpdateProductRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Price       *int64   `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	CategoryID  *string  `json:"category_id" validate:"omitempty,max=100"`
	BrandID     *string  `json:"brand_id" validate:"omitempty,max=100"`
	Colors      []string `json:"colors" validate:"omitempty,dive,uuid"`
	Tags        []string `json:"tags" validate:"omitempty,max=50,dive,min=1,max=50"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,url"`
}

// WishlistRequest is the JSON request body for toggling a wishlist entry.
type WishlistRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// RatingRequest is the JSON request body for rating a product.
type RatingRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Star      int    `json:"star" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// ColorRequest is the JSON request body for creating a color.
type ColorRequest struct {
	Title string `json:"title" validate:"required,min=1,max=100"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := domain.ParseProductQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, total, err := h.service.ListProducts(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	items := make([]map[string]any, 0, len(products))
	for i := range products {
		items = append(items, domain.Project(&products[i], q.Fields))
	}
	httputil.WritePage(w, items, pagination.NewMeta(total, q.Page))
}

// SearchProducts handles GET /api/v1/products/search?q=
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	result, err := h.service.SearchProducts(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WritePage(w, result.Documents, pagination.NewMeta(result.Total, page))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &service.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		BrandID:     req.BrandID,
		Colors:      req.Colors,
		Tags:        req.Tags,
		Images:      req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, &service.UpdateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		BrandID:     req.BrandID,
		Colors:      req.Colors,
		Tags:        req.Tags,
		Images:      req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleWishlist handles PUT /api/v1/products/wishlist
func (h *ProductHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req WishlistRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	inWishlist, err := h.service.ToggleWishlist(r.Context(), middleware.UserIDFromContext(r.Context()), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{
		"product_id":  req.ProductID,
		"in_wishlist": inWishlist,
	})
}

// SubmitRating handles PUT /api/v1/products/rating
func (h *ProductHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.SubmitRating(r.Context(), req.ProductID, middleware.UserIDFromContext(r.Context()), req.Star, req.Comment)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// CreateColor handles POST /api/v1/colors
func (h *ProductHandler) CreateColor(w http.ResponseWriter, r *http.Request) {
	var req ColorRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	color, err := h.service.CreateColor(r.Context(), req.Title)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, color)
}

// ListColors handles GET /api/v1/colors
func (h *ProductHandler) ListColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.service.ListColors(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if colors == nil {
		colors = []domain.Color{}
	}
	httputil.WriteData(w, http.StatusOK, colors)
}
