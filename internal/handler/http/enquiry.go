package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/service"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/httputil"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/validator"
)

// EnquiryHandler handles HTTP requests for contact-form enquiries.
type EnquiryHandler struct {
	service *service.EnquiryService
	logger  *slog.Logger
}

// NewEnquiryHandler creates a new enquiry HTTP handler.
func NewEnquiryHandler(svc *service.EnquiryService, logger *slog.Logger) *EnquiryHandler {
	return &EnquiryHandler{service: svc, logger: logger}
}

// CreateEnquiryRequest is the JSON request body for submitting an enquiry.
type CreateEnquiryRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Mobile  string `json:"mobile" validate:"max=30"`
	Comment string `json:"comment" validate:"required,max=5000"`
}

// EnquiryStatusRequest is the JSON request body for changing an enquiry status.
type EnquiryStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=submitted contacted in_progress resolved"`
}

// CreateEnquiry handles POST /api/v1/enquiries
func (h *EnquiryHandler) CreateEnquiry(w http.ResponseWriter, r *http.Request) {
	var req CreateEnquiryRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	enquiry, err := h.service.CreateEnquiry(r.Context(), service.CreateEnquiryInput{
		Name:    req.Name,
		Email:   req.Email,
		Mobile:  req.Mobile,
		Comment: req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, enquiry)
}

// ListEnquiries handles GET /api/v1/enquiries
func (h *EnquiryHandler) ListEnquiries(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	enquiries, total, err := h.service.ListEnquiries(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WritePage(w, enquiries, pagination.NewMeta(total, page))
}

// GetEnquiry handles GET /api/v1/enquiries/{id}
func (h *EnquiryHandler) GetEnquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "enquiry id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	enquiry, err := h.service.GetEnquiry(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, enquiry)
}

// UpdateStatus handles PUT /api/v1/enquiries/{id}
func (h *EnquiryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "enquiry id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req EnquiryStatusRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	enquiry, err := h.service.UpdateEnquiryStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, enquiry)
}

// DeleteEnquiry handles DELETE /api/v1/enquiries/{id}
func (h *EnquiryHandler) DeleteEnquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "enquiry id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteEnquiry(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
