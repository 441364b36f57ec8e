package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products ProductLookup
	notifier Invalidator
	policy   pricing.Policy
	log      zerolog.Logger
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	cache cache.CartCache,
	products ProductLookup,
	notifier Invalidator,
	policy pricing.Policy,
	log zerolog.Logger,
) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		products: products,
		notifier: notifier,
		policy:   policy,
		log:      log.With().Str("component", "cart_service").Logger(),
	}
}

// GetCart returns the owner's cart, or nil when there is none.
func (s *CartService) GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	key := owner.Key()
	if key == "" {
		return nil, nil
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, key)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("owner_key", key).Msg("cache get failed")
		}

		cart, err = s.repo.GetCart(ctx, key)
		if errors.Is(err, repository.ErrCartNotFound) {
			return (*domain.Cart)(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("get cart: %w", err)
		}

		go s.writeThrough(key, cart)

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem adds exactly one unit of req.ProductID to the owner's cart,
// creating the cart if needed.
func (s *CartService) AddItem(ctx context.Context, owner domain.Owner, req AddItemRequest) (*Result, error) {
	key := owner.Key()
	if key == "" {
		return failure(domain.Errorf(domain.ErrValidation, "session cart id not found")), nil
	}
	if err := req.Validate(); err != nil {
		return failure(err), nil
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return failure(domain.Errorf(domain.ErrNotFound, "Product not found")), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	cart, err := s.loadCart(ctx, key)
	if err != nil {
		return nil, err
	}

	var current []domain.LineItem
	if cart != nil {
		current = cart.Items
	}
	items, updated, err := domain.AddOne(current, product.LineItem(), product.Stock)
	if err != nil {
		return failure(err), nil
	}

	if cart == nil {
		cart = &domain.Cart{
			ID:            uuid.NewString(),
			OwnerKey:      key,
			UserID:        owner.UserID,
			SessionCartID: owner.SessionCartID,
			Items:         items,
		}
		s.policy.Apply(cart)
		err = s.repo.CreateCart(ctx, cart)
	} else {
		cart.Items = items
		s.policy.Apply(cart)
		err = s.repo.ReplaceCart(ctx, cart)
	}
	if err != nil {
		return saveFailure(err)
	}

	s.writeThrough(key, cart)
	notifyChanged(s.log, s.notifier, product.Slug, "cart")

	verb := "added to"
	if updated {
		verb = "updated in"
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("%s %s cart", product.Name, verb),
		Cart:    cart,
	}, nil
}

// RemoveItem takes one unit of productID out of the owner's cart.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.Owner, productID string) (*Result, error) {
	key := owner.Key()
	if key == "" {
		return failure(domain.Errorf(domain.ErrValidation, "session cart id not found")), nil
	}
	if productID == "" {
		return failure(domain.Errorf(domain.ErrValidation, "Product is required")), nil
	}

	cart, err := s.loadCart(ctx, key)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return failure(domain.Errorf(domain.ErrNotFound, "Cart not found")), nil
	}

	items, removed, err := domain.RemoveOne(cart.Items, productID)
	if err != nil {
		return failure(err), nil
	}

	cart.Items = items
	s.policy.Apply(cart)
	if err := s.repo.ReplaceCart(ctx, cart); err != nil {
		return saveFailure(err)
	}

	s.writeThrough(key, cart)
	notifyChanged(s.log, s.notifier, removed.Slug, "cart")

	return &Result{
		Success: true,
		Message: fmt.Sprintf("%s was removed from cart", removed.Name),
		Cart:    cart,
	}, nil
}

// ClearCart deletes the owner's cart and its cache entry.
func (s *CartService) ClearCart(ctx context.Context, owner domain.Owner) (*Result, error) {
	key := owner.Key()
	if key == "" {
		return failure(domain.Errorf(domain.ErrValidation, "session cart id not found")), nil
	}

	err := s.repo.DeleteCart(ctx, key)
	if errors.Is(err, repository.ErrCartNotFound) {
		return failure(domain.Errorf(domain.ErrNotFound, "Cart not found")), nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete cart: %w", err)
	}

	s.invalidateCache(key)
	return &Result{Success: true, Message: "Cart cleared"}, nil
}

// DiscardCart drops whatever cart ownerKey has. A missing cart is not an
// error; it is used when a session ends.
func (s *CartService) DiscardCart(ctx context.Context, ownerKey string) error {
	if ownerKey == "" {
		return nil
	}
	err := s.repo.DeleteCart(ctx, ownerKey)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return fmt.Errorf("delete cart: %w", err)
	}
	s.invalidateCache(ownerKey)
	return nil
}

// loadCart reads from the store, never the cache, so the version used for
// the conditional write is current.
func (s *CartService) loadCart(ctx context.Context, key string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, key)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func saveFailure(err error) (*Result, error) {
	if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrCartExists) {
		return failure(domain.Errorf(domain.ErrConflict, "Cart was changed by another request, please try again")), nil
	}
	return nil, fmt.Errorf("save cart: %w", err)
}

// writeThrough caches the saved cart. When that fails the entry is dropped so
// the next read goes to the store instead of serving an older version.
func (s *CartService) writeThrough(key string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, key, cart); err != nil {
		s.log.Warn().Err(err).Str("owner_key", key).Msg("cache set failed")
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Error().Err(err).Str("owner_key", key).Msg("cache invalidate after failed set failed")
		}
	}
}

func (s *CartService) invalidateCache(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("owner_key", key).Msg("cache invalidate failed")
	}
}
