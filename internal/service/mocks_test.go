package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/event"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	pkgkafka "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/kafka"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// --- Mock Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductRepository) Count(ctx context.Context, q domain.ProductQuery) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ApplyRating(ctx context.Context, productID, userID string, star int, comment string) (*domain.Product, error) {
	args := m.Called(ctx, productID, userID, star, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

type mockColorRepository struct {
	mock.Mock
}

func (m *mockColorRepository) Create(ctx context.Context, c *domain.Color) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockColorRepository) List(ctx context.Context) ([]domain.Color, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Color), args.Error(1)
}

func (m *mockColorRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Color, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Color), args.Error(1)
}

type mockWishlistRepository struct {
	mock.Mock
}

func (m *mockWishlistRepository) Add(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *mockWishlistRepository) Remove(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *mockWishlistRepository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockWishlistRepository) ListProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Product), args.Error(1)
}

// mockCartRepository runs Update callbacks against an in-memory cart so
// services see the real read-modify-write behaviour. Errors queued in
// updateErrs are returned by the next Update calls before fn runs.
type mockCartRepository struct {
	mock.Mock
	mu         sync.Mutex
	cart       *domain.Cart
	updateErrs []error
	updates    int
}

func newMockCartRepository(items ...domain.CartItem) *mockCartRepository {
	return &mockCartRepository{cart: &domain.Cart{Items: items}}
}

func (m *mockCartRepository) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(userID), nil
}

func (m *mockCartRepository) Update(_ context.Context, userID string, fn func(c *domain.Cart) error) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++

	if len(m.updateErrs) > 0 {
		err := m.updateErrs[0]
		m.updateErrs = m.updateErrs[1:]
		return nil, err
	}

	c := m.snapshot(userID)
	if err := fn(c); err != nil {
		return nil, err
	}
	c.Version++
	m.cart = c
	return m.snapshot(userID), nil
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockCartRepository) snapshot(userID string) *domain.Cart {
	items := make([]domain.CartItem, len(m.cart.Items))
	copy(items, m.cart.Items)
	return &domain.Cart{UserID: userID, Items: items, Version: m.cart.Version}
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockOrderRepository) MonthlyIncome(ctx context.Context, since time.Time) ([]domain.MonthlyIncome, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]domain.MonthlyIncome), args.Error(1)
}

func (m *mockOrderRepository) Totals(ctx context.Context, since time.Time) (domain.OrderTotals, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(domain.OrderTotals), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByResetHash(ctx context.Context, hash string) (*domain.User, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, page pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) Update(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockUserRepository) SetPasswordReset(ctx context.Context, id, hash string, expires time.Time) error {
	return m.Called(ctx, id, hash, expires).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *mockRefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockEnquiryRepository struct {
	mock.Mock
}

func (m *mockEnquiryRepository) Create(ctx context.Context, e *domain.Enquiry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEnquiryRepository) GetByID(ctx context.Context, id string) (*domain.Enquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enquiry), args.Error(1)
}

func (m *mockEnquiryRepository) List(ctx context.Context, page pagination.Params) ([]domain.Enquiry, int, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.Enquiry), args.Int(1), args.Error(2)
}

func (m *mockEnquiryRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Enquiry, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enquiry), args.Error(1)
}

func (m *mockEnquiryRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Test Doubles ---

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, evt *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

// recordingNotifier keeps dispatched messages instead of sending them.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []*notification.Message
}

func (n *recordingNotifier) Dispatch(_ context.Context, msg *notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) sent() []*notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msgs
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() (*event.Producer, *recordingPublisher) {
	pub := &recordingPublisher{}
	return event.NewProducer(pub, newTestLogger()), pub
}

func strPtr(s string) *string {
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}
