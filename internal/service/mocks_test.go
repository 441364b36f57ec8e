package service

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func cloneCart(c *domain.Cart) *domain.Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]domain.LineItem(nil), c.Items...)
	return &cp
}

// mockRepository behaves like the Mongo store: one cart per owner key and
// version-checked replaces.
type mockRepository struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error

	// beforeReplace runs once, outside the lock, ahead of the first replace.
	beforeReplace func()
	replaceCalls  int
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockRepository) GetCart(_ context.Context, ownerKey string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[ownerKey]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (m *mockRepository) CreateCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.carts[cart.OwnerKey]; ok {
		return repository.ErrCartExists
	}
	cart.Version = 1
	m.carts[cart.OwnerKey] = cloneCart(cart)
	return nil
}

func (m *mockRepository) ReplaceCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	hook := m.beforeReplace
	m.beforeReplace = nil
	m.m.Unlock()
	if hook != nil {
		hook()
	}

	m.m.Lock()
	defer m.m.Unlock()
	m.replaceCalls++
	if m.err != nil {
		return m.err
	}
	stored, ok := m.carts[cart.OwnerKey]
	if !ok || stored.Version != cart.Version {
		return repository.ErrVersionConflict
	}
	cart.Version++
	m.carts[cart.OwnerKey] = cloneCart(cart)
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, ownerKey string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.carts[ownerKey]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, ownerKey)
	return nil
}

func (m *mockRepository) stored(ownerKey string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return cloneCart(m.carts[ownerKey])
}

type mockCache struct {
	m      sync.RWMutex
	carts  map[string]*domain.Cart
	err    error
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[string]*domain.Cart{}}
}

func (m *mockCache) Get(_ context.Context, ownerKey string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[ownerKey]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cloneCart(c), nil
}

func (m *mockCache) Set(_ context.Context, ownerKey string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.setErr != nil {
		return m.setErr
	}
	if cur, ok := m.carts[ownerKey]; ok && cur.Version >= cart.Version {
		return nil
	}
	m.carts[ownerKey] = cloneCart(cart)
	return nil
}

func (m *mockCache) Delete(_ context.Context, ownerKey string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, ownerKey)
	return m.err
}

func (m *mockCache) failSets(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.setErr = err
}

func (m *mockCache) getCart(ownerKey string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return cloneCart(m.carts[ownerKey])
}

type mockProducts struct {
	m        sync.RWMutex
	products map[string]*domain.Product
	err      error
}

func (m *mockProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

type mockInvalidator struct {
	m     sync.Mutex
	slugs []string
	err   error
}

func (m *mockInvalidator) ProductChanged(_ context.Context, slug, _ string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.slugs = append(m.slugs, slug)
	return m.err
}

func (m *mockInvalidator) calls() []string {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]string(nil), m.slugs...)
}

// mockReviewRepository keeps reviews in memory. productLock stands in for the
// row lock taken by LockProduct and is held until the transaction ends.
type mockReviewRepository struct {
	m        sync.Mutex
	products map[string]*domain.Product
	reviews  map[string]*domain.Review // keyed by product id + "/" + user id
	err      error

	productLock sync.Mutex
}

func newMockReviewRepository(products ...*domain.Product) *mockReviewRepository {
	r := &mockReviewRepository{
		products: map[string]*domain.Product{},
		reviews:  map[string]*domain.Review{},
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func reviewKey(productID, userID string) string { return productID + "/" + userID }

func (r *mockReviewRepository) ListReviews(_ context.Context, productID string) ([]*domain.Review, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := []*domain.Review{}
	for _, rv := range r.reviews {
		if rv.ProductID == productID {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *mockReviewRepository) GetUserReview(_ context.Context, productID, userID string) (*domain.Review, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	rv, ok := r.reviews[reviewKey(productID, userID)]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r *mockReviewRepository) product(id string) domain.Product {
	r.m.Lock()
	defer r.m.Unlock()
	return *r.products[id]
}

// WithinTx stages writes and applies them only when fn succeeds.
func (r *mockReviewRepository) WithinTx(ctx context.Context, fn func(tx repository.ReviewTx) error) error {
	if r.err != nil {
		return r.err
	}
	tx := &mockReviewTx{repo: r, staged: map[string]*domain.Review{}}
	defer tx.release()
	if err := fn(tx); err != nil {
		return err
	}
	r.m.Lock()
	defer r.m.Unlock()
	for k, rv := range tx.staged {
		r.reviews[k] = rv
	}
	if tx.summary != nil {
		p := r.products[tx.productID]
		p.Rating = tx.summary.Average
		p.NumReviews = tx.summary.Count
	}
	return nil
}

type mockReviewTx struct {
	repo      *mockReviewRepository
	locked    bool
	productID string
	staged    map[string]*domain.Review
	summary   *domain.RatingSummary
}

func (t *mockReviewTx) release() {
	if t.locked {
		t.repo.productLock.Unlock()
	}
}

func (t *mockReviewTx) LockProduct(_ context.Context, productID string) (*domain.Product, error) {
	t.repo.m.Lock()
	p, ok := t.repo.products[productID]
	t.repo.m.Unlock()
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	t.repo.productLock.Lock()
	t.locked = true
	t.productID = productID
	cp := *p
	return &cp, nil
}

func (t *mockReviewTx) FindReview(_ context.Context, productID, userID string) (*domain.Review, error) {
	k := reviewKey(productID, userID)
	if rv, ok := t.staged[k]; ok {
		cp := *rv
		return &cp, nil
	}
	t.repo.m.Lock()
	defer t.repo.m.Unlock()
	rv, ok := t.repo.reviews[k]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	cp := *rv
	return &cp, nil
}

func (t *mockReviewTx) InsertReview(_ context.Context, rv *domain.Review) error {
	k := reviewKey(rv.ProductID, rv.UserID)
	t.repo.m.Lock()
	_, exists := t.repo.reviews[k]
	t.repo.m.Unlock()
	if exists {
		return repository.ErrDuplicateReview
	}
	rv.ID = uuid.NewString()
	cp := *rv
	t.staged[k] = &cp
	return nil
}

func (t *mockReviewTx) UpdateReview(_ context.Context, rv *domain.Review) error {
	cp := *rv
	t.staged[reviewKey(rv.ProductID, rv.UserID)] = &cp
	return nil
}

func (t *mockReviewTx) RatingSummary(_ context.Context, productID string) (domain.RatingSummary, error) {
	merged := map[string]*domain.Review{}
	t.repo.m.Lock()
	for k, rv := range t.repo.reviews {
		if rv.ProductID == productID {
			merged[k] = rv
		}
	}
	t.repo.m.Unlock()
	for k, rv := range t.staged {
		merged[k] = rv
	}

	if len(merged) == 0 {
		return domain.RatingSummary{Average: decimal.Zero}, nil
	}
	sum := 0
	for _, rv := range merged {
		sum += rv.Rating
	}
	avg := decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(len(merged))), 2)
	return domain.RatingSummary{Average: avg, Count: len(merged)}, nil
}

func (t *mockReviewTx) UpdateProductRating(_ context.Context, _ string, s domain.RatingSummary) error {
	t.summary = &s
	return nil
}
