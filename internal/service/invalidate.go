package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Invalidator is told when a product's public page has changed, so the
// storefront can refresh it.
type Invalidator interface {
	ProductChanged(ctx context.Context, slug, reason string) error
}

const invalidateTimeout = 2 * time.Second

// notifyChanged never fails the caller's operation; errors are only logged.
func notifyChanged(log zerolog.Logger, n Invalidator, slug, reason string) {
	if n == nil || slug == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := n.ProductChanged(ctx, slug, reason); err != nil {
		log.Warn().Err(err).Str("slug", slug).Str("reason", reason).Msg("product invalidation failed")
	}
}
