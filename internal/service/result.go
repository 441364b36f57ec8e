package service

import "github.com/fjod/go_cart/storefront/internal/domain"

// Result is the outcome of a mutation. A failure the caller can act on
// (validation, stock, missing item, lost update) is reported here with
// Success=false; the accompanying error return is reserved for infrastructure
// faults.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Kind    domain.Kind    `json:"-"`
	Cart    *domain.Cart   `json:"cart,omitempty"`
	Review  *domain.Review `json:"review,omitempty"`
}

func failure(err error) *Result {
	return &Result{
		Success: false,
		Message: err.Error(),
		Kind:    domain.KindOf(err),
	}
}
