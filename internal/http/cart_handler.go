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

type CartService interface {
	GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	AddItem(ctx context.Context, owner domain.Owner, req service.AddItemRequest) (*service.Result, error)
	RemoveItem(ctx context.Context, owner domain.Owner, productID string) (*service.Result, error)
	ClearCart(ctx context.Context, owner domain.Owner) (*service.Result, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type CartResponse struct {
	Cart *domain.Cart `json:"cart"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, auth.FromContext(r.Context()).Owner())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, CartResponse{Cart: cart})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.AddItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.carts.AddItem(ctx, auth.FromContext(r.Context()).Owner(), req)
	respondResult(w, r, res, err)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	res, err := h.carts.RemoveItem(ctx, auth.FromContext(r.Context()).Owner(), productID)
	respondResult(w, r, res, err)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.carts.ClearCart(ctx, auth.FromContext(r.Context()).Owner())
	respondResult(w, r, res, err)
}
