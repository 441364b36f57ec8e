package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is unique per (ProductID, UserID).
type Review struct {
	ID                 string    `json:"id"`
	ProductID          string    `json:"productId"`
	UserID             string    `json:"userId"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Rating             int       `json:"rating"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// RatingSummary is the aggregate stored back onto the product.
type RatingSummary struct {
	Average decimal.Decimal
	Count   int
}
