package pricing

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/money"
	"github.com/stretchr/testify/assert"
)

func line(id, price string, qty int) domain.LineItem {
	return domain.LineItem{ProductID: id, Price: money.MustParse(price), Qty: qty}
}

func assertTotals(t *testing.T, got Totals, items, shipping, tax, total string) {
	t.Helper()
	assert.Equal(t, items, got.ItemsPrice.String(), "items price")
	assert.Equal(t, shipping, got.ShippingPrice.String(), "shipping price")
	assert.Equal(t, tax, got.TaxPrice.String(), "tax price")
	assert.Equal(t, total, got.TotalPrice.String(), "total price")
}

func TestCalculate_SingleItemBelowThreshold(t *testing.T) {
	got := DefaultPolicy().Calculate([]domain.LineItem{line("p", "19.99", 1)})
	assertTotals(t, got, "19.99", "10.00", "3.00", "32.99")
}

func TestCalculate_FreeShippingAboveThreshold(t *testing.T) {
	got := DefaultPolicy().Calculate([]domain.LineItem{line("a", "60.00", 1), line("b", "20.01", 2)})
	assertTotals(t, got, "100.02", "0.00", "15.00", "115.02")
}

func TestCalculate_ThresholdIsExclusive(t *testing.T) {
	got := DefaultPolicy().Calculate([]domain.LineItem{line("a", "100.00", 1)})
	assertTotals(t, got, "100.00", "10.00", "15.00", "125.00")

	got = DefaultPolicy().Calculate([]domain.LineItem{line("a", "100.01", 1)})
	assertTotals(t, got, "100.01", "0.00", "15.00", "115.01")
}

func TestCalculate_EmptyCartPaysFlatShipping(t *testing.T) {
	got := DefaultPolicy().Calculate(nil)
	assertTotals(t, got, "0.00", "10.00", "0.00", "10.00")
}

func TestCalculate_EmptyCartShippingCanBeWaived(t *testing.T) {
	p := DefaultPolicy()
	p.WaiveShippingOnEmpty = true

	assertTotals(t, p.Calculate(nil), "0.00", "0.00", "0.00", "0.00")
	// a non-empty cart still pays
	assertTotals(t, p.Calculate([]domain.LineItem{line("p", "19.99", 1)}), "19.99", "10.00", "3.00", "32.99")
}

func TestCalculate_TaxRoundsHalfUp(t *testing.T) {
	// 0.15 * 0.70 = 0.105
	got := DefaultPolicy().Calculate([]domain.LineItem{line("p", "0.70", 1)})
	assertTotals(t, got, "0.70", "10.00", "0.11", "10.81")
}

func TestCalculate_SplitLinesMatchCombinedLine(t *testing.T) {
	p := DefaultPolicy()
	for _, price := range []string{"0.01", "0.70", "19.99", "33.33", "101.00"} {
		for q1 := 0; q1 <= 4; q1++ {
			for q2 := 0; q2 <= 4; q2++ {
				split := p.Calculate([]domain.LineItem{line("p", price, q1), line("p", price, q2)})
				combined := p.Calculate([]domain.LineItem{line("p", price, q1+q2)})
				assert.True(t, split.ItemsPrice.Equal(combined.ItemsPrice), "price %s q1 %d q2 %d", price, q1, q2)
			}
		}
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	p := DefaultPolicy()
	prev := p.Calculate([]domain.LineItem{line("a", "12.34", 0), line("b", "45.60", 1)})
	for qty := 1; qty <= 12; qty++ {
		next := p.Calculate([]domain.LineItem{line("a", "12.34", qty), line("b", "45.60", 1)})
		assert.GreaterOrEqual(t, next.ItemsPrice.Cmp(prev.ItemsPrice), 0, "subtotal at qty %d", qty)
		assert.GreaterOrEqual(t, next.TotalPrice.Cmp(prev.TotalPrice), 0, "total at qty %d", qty)
		prev = next
	}
}

func TestApply_RewritesDerivedFields(t *testing.T) {
	cart := &domain.Cart{
		Items:      []domain.LineItem{line("p", "19.99", 2)},
		TotalPrice: money.MustParse("999.00"),
	}
	DefaultPolicy().Apply(cart)
	assert.Equal(t, "39.98", cart.ItemsPrice.String())
	assert.Equal(t, "10.00", cart.ShippingPrice.String())
	assert.Equal(t, "6.00", cart.TaxPrice.String())
	assert.Equal(t, "55.98", cart.TotalPrice.String())
}

// Crossing the free-shipping threshold with a cheap item removes the flat fee,
// so the total can go down even though the subtotal goes up.
func TestCalculate_TotalDropsWhenCrossingFreeShipping(t *testing.T) {
	p := DefaultPolicy()
	before := p.Calculate([]domain.LineItem{line("p", "5.00", 20)})
	after := p.Calculate([]domain.LineItem{line("p", "5.00", 21)})

	assertTotals(t, before, "100.00", "10.00", "15.00", "125.00")
	assertTotals(t, after, "105.00", "0.00", "15.75", "120.75")
	assert.Equal(t, 1, after.ItemsPrice.Cmp(before.ItemsPrice))
}
