package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// EnquiryService manages contact-form enquiries.
type EnquiryService struct {
	repo   repository.EnquiryRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewEnquiryService(repo repository.EnquiryRepository, logger *slog.Logger) *EnquiryService {
	return &EnquiryService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateEnquiryInput holds a submitted contact form.
type CreateEnquiryInput struct {
	Name    string
	Email   string
	Mobile  string
	Comment string
}

func (s *EnquiryService) CreateEnquiry(ctx context.Context, input CreateEnquiryInput) (*domain.Enquiry, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Comment) == "" {
		return nil, apperrors.InvalidInput("name and comment are required")
	}

	now := s.now()
	enquiry := &domain.Enquiry{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(input.Name),
		Email:     normalizeEmail(input.Email),
		Mobile:    strings.TrimSpace(input.Mobile),
		Comment:   strings.TrimSpace(input.Comment),
		Status:    domain.EnquirySubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, enquiry); err != nil {
		return nil, fmt.Errorf("create enquiry: %w", err)
	}

	s.logger.InfoContext(ctx, "enquiry submitted", slog.String("enquiry_id", enquiry.ID))
	return enquiry, nil
}

func (s *EnquiryService) GetEnquiry(ctx context.Context, id string) (*domain.Enquiry, error) {
	enquiry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get enquiry: %w", err)
	}
	return enquiry, nil
}

// ListEnquiries returns enquiries newest first.
func (s *EnquiryService) ListEnquiries(ctx context.Context, page pagination.Params) ([]domain.Enquiry, int, error) {
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list enquiries: %w", err)
	}
	return items, total, nil
}

func (s *EnquiryService) UpdateEnquiryStatus(ctx context.Context, id, status string) (*domain.Enquiry, error) {
	if !domain.IsValidEnquiryStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid enquiry status %q", status))
	}
	enquiry, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update enquiry status: %w", err)
	}
	return enquiry, nil
}

func (s *EnquiryService) DeleteEnquiry(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete enquiry: %w", err)
	}
	return nil
}
