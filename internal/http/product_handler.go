package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type ProductService interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Latest(ctx context.Context, limit int) ([]*domain.Product, error)
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error)
	Categories(ctx context.Context) ([]domain.CategoryCount, error)
	Featured(ctx context.Context) ([]*domain.Product, error)
}

type ProductHandler struct {
	products ProductService
	timeout  time.Duration
}

func NewProductHandler(products ProductService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
	}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

type CategoriesResponse struct {
	Categories []domain.CategoryCount `json:"categories"`
}

// Latest serves GET /products. limit is optional; 0 or absent means the
// service default.
func (h *ProductHandler) Latest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	products, err := h.products.Latest(ctx, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, r, http.StatusOK, ProductsResponse{Products: products})
}

func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.GetBySlug(ctx, chi.URLParam(r, "product"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

// queryInt reads an optional non-negative integer parameter. It writes a 400
// and returns false when the value is malformed.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// Search serves GET /products/search?q=&category=&price=min-max&rating=&sort=&page=&limit=.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, ok := queryInt(w, r, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	q := r.URL.Query()
	result, err := h.products.Search(ctx, service.SearchRequest{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Price:    q.Get("price"),
		Rating:   q.Get("rating"),
		Sort:     q.Get("sort"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if result.Products == nil {
		result.Products = []*domain.Product{}
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.products.Categories(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []domain.CategoryCount{}
	}
	respondJSON(w, r, http.StatusOK, CategoriesResponse{Categories: categories})
}

func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.Featured(ctx)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, r, http.StatusOK, ProductsResponse{Products: products})
}
