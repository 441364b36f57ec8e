package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/money"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	LatestProductsLimit   = 4
	FeaturedProductsLimit = 4
	// PageSize is the default number of products per search page.
	PageSize         = 12
	maxProductsLimit = 50
)

// SearchRequest holds the raw catalog query parameters. "all" or an empty
// string leaves a filter off.
type SearchRequest struct {
	Query    string
	Category string
	// Price is "min-max", e.g. "50-100".
	Price  string
	Rating string
	Sort   string
	Page   int
	Limit  int
}

type SearchResult struct {
	Products   []*domain.Product `json:"products"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Total      int               `json:"total"`
}

type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := s.repo.GetProductBySlug(ctx, slug)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return p, nil
}

// Latest returns the newest products. A non-positive limit means the default.
func (s *ProductService) Latest(ctx context.Context, limit int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = LatestProductsLimit
	}
	if limit > maxProductsLimit {
		limit = maxProductsLimit
	}
	products, err := s.repo.ListLatestProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list latest products: %w", err)
	}
	return products, nil
}

// Search returns one page of the filtered catalog. TotalPages counts the
// filtered products, not the whole catalog.
func (s *ProductService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		return nil, domain.Errorf(domain.ErrValidation, "page must be positive")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = PageSize
	}
	if limit > maxProductsLimit {
		limit = maxProductsLimit
	}

	q := repository.ProductSearch{
		Text:     strings.TrimSpace(filterValue(req.Query)),
		Category: filterValue(req.Category),
		Sort:     repository.ProductSort(req.Sort),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if price := filterValue(req.Price); price != "" {
		lo, hi, err := parsePriceRange(price)
		if err != nil {
			return nil, err
		}
		q.MinPrice, q.MaxPrice = &lo, &hi
	}
	if rating := filterValue(req.Rating); rating != "" {
		r, err := decimal.NewFromString(rating)
		if err != nil || r.IsNegative() {
			return nil, domain.Errorf(domain.ErrValidation, "rating must be a non-negative number")
		}
		q.MinRating = &r
	}

	products, total, err := s.repo.SearchProducts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return &SearchResult{
		Products:   products,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
		Total:      total,
	}, nil
}

func filterValue(v string) string {
	if v == "all" {
		return ""
	}
	return v
}

func parsePriceRange(v string) (money.Amount, money.Amount, error) {
	lo, hi, ok := strings.Cut(v, "-")
	if !ok {
		return money.Zero, money.Zero, domain.Errorf(domain.ErrValidation, "price must be min-max")
	}
	from, err := money.ParsePrice(strings.TrimSpace(lo))
	if err != nil {
		return money.Zero, money.Zero, domain.Errorf(domain.ErrValidation, "invalid price range %q", v)
	}
	to, err := money.ParsePrice(strings.TrimSpace(hi))
	if err != nil {
		return money.Zero, money.Zero, domain.Errorf(domain.ErrValidation, "invalid price range %q", v)
	}
	if from.Cmp(to) > 0 {
		return money.Zero, money.Zero, domain.Errorf(domain.ErrValidation, "price range %q is reversed", v)
	}
	return from, to, nil
}

// Categories lists every category with its product count.
func (s *ProductService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Featured returns the newest featured products.
func (s *ProductService) Featured(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.ListFeaturedProducts(ctx, FeaturedProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return products, nil
}
