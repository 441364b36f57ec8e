package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CartCache is keyed by the cart owner key. Set never replaces an entry that
// holds a newer cart version.
type CartCache interface {
	Get(ctx context.Context, ownerKey string) (*domain.Cart, error)
	Set(ctx context.Context, ownerKey string, cart *domain.Cart) error
	Delete(ctx context.Context, ownerKey string) error
}

var ErrCacheMiss = errors.New("cache miss")
