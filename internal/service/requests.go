package service

import (
	"unicode/utf8"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/money"
)

const minReviewTextLength = 3

// AddItemRequest is what the storefront posts when a shopper adds a product.
// Only ProductID selects the product; the other fields are checked for shape
// but the line item is built from the catalog record.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image"`
	Price     string `json:"price"`
	Qty       int    `json:"qty"`
}

func (r AddItemRequest) Validate() error {
	switch {
	case r.ProductID == "":
		return domain.Errorf(domain.ErrValidation, "Product is required")
	case r.Name == "":
		return domain.Errorf(domain.ErrValidation, "Name is required")
	case r.Slug == "":
		return domain.Errorf(domain.ErrValidation, "Slug is required")
	case r.Image == "":
		return domain.Errorf(domain.ErrValidation, "Image is required")
	case r.Qty < 0:
		return domain.Errorf(domain.ErrValidation, "Quantity must be a non-negative number")
	}
	if _, err := money.ParsePrice(r.Price); err != nil {
		return domain.Errorf(domain.ErrValidation, "Price must have exactly two decimal places")
	}
	return nil
}

type ReviewInput struct {
	ProductID   string `json:"productId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
}

func (in ReviewInput) Validate() error {
	switch {
	case in.ProductID == "":
		return domain.Errorf(domain.ErrValidation, "Product is required")
	case utf8.RuneCountInString(in.Title) < minReviewTextLength:
		return domain.Errorf(domain.ErrValidation, "Title must be at least %d characters", minReviewTextLength)
	case utf8.RuneCountInString(in.Description) < minReviewTextLength:
		return domain.Errorf(domain.ErrValidation, "Description must be at least %d characters", minReviewTextLength)
	case in.Rating < domain.MinRating:
		return domain.Errorf(domain.ErrValidation, "Rating must be at least %d", domain.MinRating)
	case in.Rating > domain.MaxRating:
		return domain.Errorf(domain.ErrValidation, "Rating must be at most %d", domain.MaxRating)
	}
	return nil
}
