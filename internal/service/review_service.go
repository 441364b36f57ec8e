package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/rs/zerolog"
)

type ReviewService struct {
	repo     repository.ReviewRepository
	notifier Invalidator
	log      zerolog.Logger
}

func NewReviewService(repo repository.ReviewRepository, notifier Invalidator, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		notifier: notifier,
		log:      log.With().Str("component", "review_service").Logger(),
	}
}

var errNotSignedIn = domain.Errorf(domain.ErrUnauthorized, "you must be logged in to write a review")

// UpsertReview creates or replaces userID's review of a product and refreshes
// the product's rating and review count in the same transaction.
func (s *ReviewService) UpsertReview(ctx context.Context, userID string, in ReviewInput) (*Result, error) {
	if userID == "" {
		return failure(errNotSignedIn), nil
	}
	if err := in.Validate(); err != nil {
		return failure(err), nil
	}

	var (
		product *domain.Product
		saved   *domain.Review
	)
	err := s.repo.WithinTx(ctx, func(tx repository.ReviewTx) error {
		p, err := tx.LockProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}

		rv, err := tx.FindReview(ctx, in.ProductID, userID)
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			rv = &domain.Review{
				ProductID:          in.ProductID,
				UserID:             userID,
				Title:              in.Title,
				Description:        in.Description,
				Rating:             in.Rating,
				IsVerifiedPurchase: true,
			}
			err = tx.InsertReview(ctx, rv)
		case err == nil:
			rv.Title = in.Title
			rv.Description = in.Description
			rv.Rating = in.Rating
			err = tx.UpdateReview(ctx, rv)
		}
		if err != nil {
			return err
		}

		summary, err := tx.RatingSummary(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if err := tx.UpdateProductRating(ctx, in.ProductID, summary); err != nil {
			return err
		}

		p.Rating = summary.Average
		p.NumReviews = summary.Count
		product, saved = p, rv
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return failure(domain.Errorf(domain.ErrNotFound, "Product not found")), nil
	case errors.Is(err, repository.ErrDuplicateReview):
		return failure(domain.Errorf(domain.ErrConflict, "Review was changed by another request, please try again")), nil
	case err != nil:
		return nil, fmt.Errorf("upsert review: %w", err)
	}

	s.log.Debug().
		Str("product_id", product.ID).
		Str("rating", product.Rating.StringFixed(2)).
		Int("num_reviews", product.NumReviews).
		Msg("product rating recomputed")
	notifyChanged(s.log, s.notifier, product.Slug, "review")

	return &Result{
		Success: true,
		Message: "Review updated successfully",
		Review:  saved,
	}, nil
}

// ListReviews returns a product's reviews, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]*domain.Review, error) {
	if productID == "" {
		return nil, domain.Errorf(domain.ErrValidation, "Product is required")
	}
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// GetUserReview returns the caller's review of a product, or nil if they have
// not written one.
func (s *ReviewService) GetUserReview(ctx context.Context, userID, productID string) (*domain.Review, error) {
	if userID == "" {
		return nil, domain.Errorf(domain.ErrUnauthorized, "User is not authenticated")
	}
	rv, err := s.repo.GetUserReview(ctx, productID, userID)
	if errors.Is(err, repository.ErrReviewNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user review: %w", err)
	}
	return rv, nil
}
