package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/money"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartExists      = errors.New("cart already exists for owner")
	ErrVersionConflict = errors.New("cart was modified concurrently")

	ErrProductNotFound = errors.New("product not found")
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("review for this product and user already exists")
	ErrDuplicateSlug   = errors.New("product slug already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// CartRepository stores one cart per owner key. Writes are optimistic:
// ReplaceCart only succeeds when the stored version matches cart.Version.
type CartRepository interface {
	GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) error
	ReplaceCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, ownerKey string) error
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListLatestProducts(ctx context.Context, limit int) ([]*domain.Product, error)
	SearchProducts(ctx context.Context, q ProductSearch) ([]*domain.Product, int, error)
	ListCategories(ctx context.Context) ([]domain.CategoryCount, error)
	ListFeaturedProducts(ctx context.Context, limit int) ([]*domain.Product, error)
}

// ProductSort orders search results.
type ProductSort string

const (
	SortNewest  ProductSort = "newest"
	SortLowest  ProductSort = "lowest"
	SortHighest ProductSort = "highest"
	SortRating  ProductSort = "rating"
)

// ProductSearch filters a catalog page. Zero values disable a filter.
type ProductSearch struct {
	Text      string
	Category  string
	MinPrice  *money.Amount
	MaxPrice  *money.Amount
	MinRating *decimal.Decimal
	Sort      ProductSort
	Limit     int
	Offset    int
}

type ReviewRepository interface {
	ListReviews(ctx context.Context, productID string) ([]*domain.Review, error)
	GetUserReview(ctx context.Context, productID, userID string) (*domain.Review, error)
	WithinTx(ctx context.Context, fn func(tx ReviewTx) error) error
}

// ReviewTx is the set of statements that run inside one review transaction.
// LockProduct must be called first so concurrent writers for the same product
// serialize on the product row.
type ReviewTx interface {
	LockProduct(ctx context.Context, productID string) (*domain.Product, error)
	FindReview(ctx context.Context, productID, userID string) (*domain.Review, error)
	InsertReview(ctx context.Context, review *domain.Review) error
	UpdateReview(ctx context.Context, review *domain.Review) error
	RatingSummary(ctx context.Context, productID string) (domain.RatingSummary, error)
	UpdateProductRating(ctx context.Context, productID string, summary domain.RatingSummary) error
}
