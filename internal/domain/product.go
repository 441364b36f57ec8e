package domain

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/money"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Description string          `json:"description"`
	Images      []string        `json:"images"`
	Stock       int             `json:"stock"`
	Price       money.Amount    `json:"price"`
	Rating      decimal.Decimal `json:"rating"`
	NumReviews  int             `json:"numReviews"`
	IsFeatured  bool            `json:"isFeatured"`
	Banner      *string         `json:"banner,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CategoryCount is one catalog category and how many products it holds.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// LineItem snapshots the product for a cart line at quantity 0.
func (p *Product) LineItem() LineItem {
	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Image:     image,
		Price:     p.Price,
	}
}
