package http

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// In-memory repositories backing the router tests. memProducts applies the
// catalog filters and sort the way the SQL repository does; the other stores
// keep insertion order.

type memProducts struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*domain.Product
}

func newMemProducts() *memProducts {
	return &memProducts{byID: make(map[string]*domain.Product)}
}

// cloneProduct copies p so callers never share slices with the store.
func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.Colors = slices.Clone(p.Colors)
	cp.Tags = slices.Clone(p.Tags)
	cp.Images = slices.Clone(p.Images)
	cp.Ratings = slices.Clone(p.Ratings)
	return &cp
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = cloneProduct(p)
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return cloneProduct(p), nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *cloneProduct(p))
		}
	}
	return out, nil
}

func (m *memProducts) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.byID {
		if p.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) Update(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}
	m.byID[p.ID] = cloneProduct(p)
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	delete(m.byID, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memProducts) Count(_ context.Context, q domain.ProductQuery) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(q)), nil
}

func (m *memProducts) List(_ context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.matching(q)
	var out []domain.Product
	for i := q.Page.Offset; i < len(matched) && len(out) < q.Page.Limit; i++ {
		out = append(out, matched[i])
	}
	return out, nil
}

// matching returns the filtered products in q's sort order. Callers hold mu.
func (m *memProducts) matching(q domain.ProductQuery) []domain.Product {
	var out []domain.Product
	for _, id := range m.order {
		if p := m.byID[id]; productMatches(p, q) {
			out = append(out, *cloneProduct(p))
		}
	}

	sortFields := q.Sort
	if len(sortFields) == 0 {
		sortFields = domain.DefaultSort
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, f := range sortFields {
			c := compareProducts(&out[i], &out[j], f.Field)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

func productMatches(p *domain.Product, q domain.ProductQuery) bool {
	for _, f := range q.Numeric {
		v := numericValue(p, f.Field)
		var ok bool
		switch f.Op {
		case domain.OpEq:
			ok = v == f.Value
		case domain.OpGt:
			ok = v > f.Value
		case domain.OpGte:
			ok = v >= f.Value
		case domain.OpLt:
			ok = v < f.Value
		case domain.OpLte:
			ok = v <= f.Value
		}
		if !ok {
			return false
		}
	}

	for field, want := range q.Equals {
		var got string
		switch field {
		case "category":
			got = p.CategoryID
		case "brand":
			got = p.BrandID
		case "slug":
			got = p.Slug
		}
		if got != want {
			return false
		}
	}

	if len(q.Colors) > 0 && !slices.ContainsFunc(q.Colors, func(c string) bool { return slices.Contains(p.Colors, c) }) {
		return false
	}
	return true
}

func numericValue(p *domain.Product, field string) int64 {
	switch field {
	case "price":
		return p.Price
	case "stock":
		return int64(p.Stock)
	case "sold":
		return int64(p.Sold)
	case "aggregate_rating":
		return int64(p.AggregateRating)
	}
	return 0
}

func compareProducts(a, b *domain.Product, field string) int {
	switch field {
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "title":
		return strings.Compare(a.Title, b.Title)
	}
	return cmp.Compare(numericValue(a, field), numericValue(b, field))
}

func (m *memProducts) ApplyRating(_ context.Context, productID, userID string, star int, comment string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[productID]
	if !ok {
		return nil, apperrors.NotFound("product", productID)
	}
	p.UpsertRating(userID, star, comment, time.Now().UTC())
	p.RecomputeRating()
	return cloneProduct(p), nil
}

type memColors struct {
	mu     sync.Mutex
	colors []domain.Color
}

func (m *memColors) Create(_ context.Context, c *domain.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.colors {
		if existing.Title == c.Title {
			return apperrors.AlreadyExists("color", "title", c.Title)
		}
	}
	m.colors = append(m.colors, *c)
	return nil
}

func (m *memColors) List(_ context.Context) ([]domain.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Color(nil), m.colors...), nil
}

func (m *memColors) GetByIDs(_ context.Context, ids []string) ([]domain.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Color
	for _, c := range m.colors {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type memWishlists struct {
	mu       sync.Mutex
	entries  map[string]map[string]bool
	products *memProducts
}

func (m *memWishlists) Add(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[userID] == nil {
		m.entries[userID] = make(map[string]bool)
	}
	m.entries[userID][productID] = true
	return nil
}

func (m *memWishlists) Remove(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries[userID], productID)
	return nil
}

func (m *memWishlists) Exists(_ context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[userID][productID], nil
}

func (m *memWishlists) ListProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.entries[userID]))
	for id := range m.entries[userID] {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return m.products.GetByIDs(ctx, ids)
}

type memOrders struct {
	mu       sync.Mutex
	orders   []domain.Order
	products *memProducts
}

func (m *memOrders) Create(_ context.Context, o *domain.Order) error {
	m.products.mu.Lock()
	defer m.products.mu.Unlock()
	for _, item := range o.Items {
		p := m.products.byID[item.ProductID]
		if p.Stock < item.Quantity {
			return apperrors.InsufficientStock(item.ProductID, item.Quantity, p.Stock)
		}
	}
	for _, item := range o.Items {
		p := m.products.byID[item.ProductID]
		p.Stock -= item.Quantity
		p.Sold += item.Quantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id {
			o := m.orders[i]
			return &o, nil
		}
	}
	return nil, apperrors.NotFound("order", id)
}

func (m *memOrders) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id {
			if m.orders[i].Status != from {
				return apperrors.Conflict("order " + id + " is no longer " + from)
			}
			m.orders[i].Status = to
			return nil
		}
	}
	return apperrors.NotFound("order", id)
}

func (m *memOrders) MonthlyIncome(_ context.Context, since time.Time) ([]domain.MonthlyIncome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MonthlyIncome
	for _, o := range m.orders {
		if o.CreatedAt.Before(since) {
			continue
		}
		y, mo := o.CreatedAt.Year(), int(o.CreatedAt.Month())
		found := false
		for i := range out {
			if out[i].Year == y && out[i].Month == mo {
				out[i].Amount += o.TotalPriceAfterDiscount
				out[i].Count++
				found = true
			}
		}
		if !found {
			out = append(out, domain.MonthlyIncome{Year: y, Month: mo, Amount: o.TotalPriceAfterDiscount, Count: 1})
		}
	}
	return out, nil
}

func (m *memOrders) Totals(_ context.Context, since time.Time) (domain.OrderTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t domain.OrderTotals
	for _, o := range m.orders {
		if !o.CreatedAt.Before(since) {
			t.Amount += o.TotalPriceAfterDiscount
			t.Count++
		}
	}
	return t, nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (m *memUsers) GetByResetHash(_ context.Context, hash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if hash != "" && u.PasswordResetHash == hash {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user", "reset token")
}

func (m *memUsers) List(_ context.Context, _ pagination.Params) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, len(out), nil
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return apperrors.NotFound("user", u.ID)
	}
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.PasswordHash = hash
	u.PasswordResetHash = ""
	u.PasswordResetExpires = nil
	return nil
}

func (m *memUsers) SetPasswordReset(_ context.Context, id, hash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.PasswordResetHash = hash
	u.PasswordResetExpires = &expires
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperrors.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func (m *memTokens) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = &domain.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *memTokens) GetByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok {
		return nil, apperrors.NotFound("refresh token", "")
	}
	cp := *t
	return &cp, nil
}

func (m *memTokens) Revoke(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now().UTC()
		t.RevokedAt = &now
	}
	return nil
}

func (m *memTokens) RevokeByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

type memEnquiries struct {
	mu        sync.Mutex
	enquiries []domain.Enquiry
}

func (m *memEnquiries) Create(_ context.Context, e *domain.Enquiry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enquiries = append(m.enquiries, *e)
	return nil
}

func (m *memEnquiries) GetByID(_ context.Context, id string) (*domain.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.enquiries {
		if m.enquiries[i].ID == id {
			e := m.enquiries[i]
			return &e, nil
		}
	}
	return nil, apperrors.NotFound("enquiry", id)
}

func (m *memEnquiries) List(_ context.Context, _ pagination.Params) ([]domain.Enquiry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Enquiry, 0, len(m.enquiries))
	for i := len(m.enquiries) - 1; i >= 0; i-- {
		out = append(out, m.enquiries[i])
	}
	return out, len(out), nil
}

func (m *memEnquiries) UpdateStatus(_ context.Context, id, status string) (*domain.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.enquiries {
		if m.enquiries[i].ID == id {
			m.enquiries[i].Status = status
			e := m.enquiries[i]
			return &e, nil
		}
	}
	return nil, apperrors.NotFound("enquiry", id)
}

func (m *memEnquiries) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.enquiries {
		if m.enquiries[i].ID == id {
			m.enquiries = append(m.enquiries[:i], m.enquiries[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("enquiry", id)
}
