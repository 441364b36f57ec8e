package http

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type cartCall struct {
	owner     domain.Owner
	productID string
	req       service.AddItemRequest
}

type fakeCarts struct {
	m     sync.RWMutex
	calls []cartCall

	cart   *domain.Cart
	result *service.Result
	err    error
	panics bool
}

func (f *fakeCarts) record(c cartCall) {
	f.m.Lock()
	defer f.m.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeCarts) lastCall() cartCall {
	f.m.RLock()
	defer f.m.RUnlock()
	if len(f.calls) == 0 {
		return cartCall{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeCarts) GetCart(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	f.record(cartCall{owner: owner})
	if f.panics {
		panic("cart store exploded")
	}
	return f.cart, f.err
}

func (f *fakeCarts) AddItem(_ context.Context, owner domain.Owner, req service.AddItemRequest) (*service.Result, error) {
	f.record(cartCall{owner: owner, req: req})
	return f.result, f.err
}

func (f *fakeCarts) RemoveItem(_ context.Context, owner domain.Owner, productID string) (*service.Result, error) {
	f.record(cartCall{owner: owner, productID: productID})
	return f.result, f.err
}

func (f *fakeCarts) ClearCart(_ context.Context, owner domain.Owner) (*service.Result, error) {
	f.record(cartCall{owner: owner})
	return f.result, f.err
}

type fakeReviews struct {
	m         sync.RWMutex
	userID    string
	productID string
	input     service.ReviewInput

	reviews []*domain.Review
	mine    *domain.Review
	result  *service.Result
	err     error
}

func (f *fakeReviews) UpsertReview(_ context.Context, userID string, in service.ReviewInput) (*service.Result, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.userID, f.input = userID, in
	if userID == "" {
		return &service.Result{Message: "you must be logged in to write a review", Kind: domain.KindUnauthorized}, nil
	}
	return f.result, f.err
}

func (f *fakeReviews) ListReviews(_ context.Context, productID string) ([]*domain.Review, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.productID = productID
	return f.reviews, f.err
}

func (f *fakeReviews) GetUserReview(_ context.Context, userID, productID string) (*domain.Review, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.userID, f.productID = userID, productID
	if userID == "" {
		return nil, domain.Errorf(domain.ErrUnauthorized, "User is not authenticated")
	}
	return f.mine, f.err
}

type fakeProducts struct {
	m          sync.RWMutex
	bySlug     map[string]*domain.Product
	latest     []*domain.Product
	lastLimit  int
	search     *service.SearchResult
	lastSearch service.SearchRequest
	categories []domain.CategoryCount
	featured   []*domain.Product
	err        error
}

func (f *fakeProducts) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.bySlug[slug]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "Product not found")
	}
	return p, nil
}

func (f *fakeProducts) Latest(_ context.Context, limit int) ([]*domain.Product, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.lastLimit = limit
	return f.latest, f.err
}

func (f *fakeProducts) Search(_ context.Context, req service.SearchRequest) (*service.SearchResult, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.lastSearch = req
	if f.err != nil {
		return nil, f.err
	}
	if f.search == nil {
		return &service.SearchResult{Page: 1}, nil
	}
	return f.search, nil
}

func (f *fakeProducts) Categories(context.Context) ([]domain.CategoryCount, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	return f.categories, f.err
}

func (f *fakeProducts) Featured(context.Context) ([]*domain.Product, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	return f.featured, f.err
}
