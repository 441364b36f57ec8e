// Package pricing derives cart totals from line items.
package pricing

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/money"
	"github.com/shopspring/decimal"
)

// Policy holds the shipping and tax rules applied to every cart.
type Policy struct {
	// Shipping is free when the subtotal is strictly greater than this.
	FreeShippingThreshold money.Amount
	FlatShipping          money.Amount
	TaxRate               decimal.Decimal
	// WaiveShippingOnEmpty charges no shipping for a cart with a zero subtotal.
	WaiveShippingOnEmpty bool
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: money.MustParse("100.00"),
		FlatShipping:          money.MustParse("10.00"),
		TaxRate:               decimal.RequireFromString("0.15"),
	}
}

type Totals struct {
	ItemsPrice    money.Amount
	ShippingPrice money.Amount
	TaxPrice      money.Amount
	TotalPrice    money.Amount
}

// Calculate is pure: the same items always give the same totals.
func (p Policy) Calculate(items []domain.LineItem) Totals {
	subtotal := money.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Price.Mul(it.Qty))
	}

	shipping := p.FlatShipping
	switch {
	case subtotal.Cmp(p.FreeShippingThreshold) > 0:
		shipping = money.Zero
	case subtotal.IsZero() && p.WaiveShippingOnEmpty:
		shipping = money.Zero
	}

	tax := subtotal.MulRate(p.TaxRate)

	return Totals{
		ItemsPrice:    subtotal,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    subtotal.Add(shipping).Add(tax),
	}
}

// Apply recomputes the cart's derived totals from its items.
func (p Policy) Apply(cart *domain.Cart) {
	t := p.Calculate(cart.Items)
	cart.ItemsPrice = t.ItemsPrice
	cart.ShippingPrice = t.ShippingPrice
	cart.TaxPrice = t.TaxPrice
	cart.TotalPrice = t.TotalPrice
}
