package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type ReviewService interface {
	UpsertReview(ctx context.Context, userID string, in service.ReviewInput) (*service.Result, error)
	ListReviews(ctx context.Context, productID string) ([]*domain.Review, error)
	GetUserReview(ctx context.Context, userID, productID string) (*domain.Review, error)
}

type ReviewHandler struct {
	reviews ReviewService
	timeout time.Duration
}

func NewReviewHandler(reviews ReviewService, timeout time.Duration) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		timeout: timeout,
	}
}

type ReviewsResponse struct {
	Reviews []*domain.Review `json:"reviews"`
}

type ReviewResponse struct {
	Review *domain.Review `json:"review"`
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reviews, err := h.reviews.ListReviews(ctx, chi.URLParam(r, "product"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}
	respondJSON(w, r, http.StatusOK, ReviewsResponse{Reviews: reviews})
}

// Mine returns the caller's review of the product; review is null when they
// have not written one.
func (h *ReviewHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := auth.FromContext(r.Context()).UserID
	rv, err := h.reviews.GetUserReview(ctx, userID, chi.URLParam(r, "product"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, ReviewResponse{Review: rv})
}

// Upsert creates or replaces the caller's review. The product comes from the
// path; a productId in the body is ignored.
func (h *ReviewHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in service.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ProductID = chi.URLParam(r, "product")

	res, err := h.reviews.UpsertReview(ctx, auth.FromContext(r.Context()).UserID, in)
	respondResult(w, r, res, err)
}
