package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
)

func TestCreateEnquiry(t *testing.T) {
	repo := new(mockEnquiryRepository)
	svc := NewEnquiryService(repo, newTestLogger())
	ctx := context.Background()
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Enquiry")).Return(nil)

	e, err := svc.CreateEnquiry(ctx, CreateEnquiryInput{
		Name:    "Ada",
		Email:   "Ada@Example.com",
		Comment: "Do you ship abroad?",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, domain.EnquirySubmitted, e.Status)
	assert.Equal(t, "ada@example.com", e.Email)
}

func TestCreateEnquiry_MissingComment(t *testing.T) {
	repo := new(mockEnquiryRepository)
	svc := NewEnquiryService(repo, newTestLogger())

	_, err := svc.CreateEnquiry(context.Background(), CreateEnquiryInput{Name: "Ada", Email: "a@b.c"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateEnquiryStatus(t *testing.T) {
	repo := new(mockEnquiryRepository)
	svc := NewEnquiryService(repo, newTestLogger())
	ctx := context.Background()

	_, err := svc.UpdateEnquiryStatus(ctx, "e1", "archived")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	repo.On("UpdateStatus", ctx, "e1", domain.EnquiryResolved).
		Return(&domain.Enquiry{ID: "e1", Status: domain.EnquiryResolved}, nil)
	e, err := svc.UpdateEnquiryStatus(ctx, "e1", domain.EnquiryResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.EnquiryResolved, e.Status)

	repo.On("UpdateStatus", ctx, "missing", domain.EnquiryContacted).
		Return(nil, apperrors.NotFound("enquiry", "missing"))
	_, err = svc.UpdateEnquiryStatus(ctx, "missing", domain.EnquiryContacted)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteEnquiry_NotFound(t *testing.T) {
	repo := new(mockEnquiryRepository)
	svc := NewEnquiryService(repo, newTestLogger())
	ctx := context.Background()
	repo.On("Delete", ctx, "missing").Return(apperrors.NotFound("enquiry", "missing"))

	assert.ErrorIs(t, svc.DeleteEnquiry(ctx, "missing"), apperrors.ErrNotFound)
}
