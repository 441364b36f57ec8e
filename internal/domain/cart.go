package domain

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/money"
)

// LineItem is one product's quantity and price snapshot within a cart.
type LineItem struct {
	ProductID string       `bson:"product_id" json:"productId"`
	Name      string       `bson:"name" json:"name"`
	Slug      string       `bson:"slug" json:"slug"`
	Image     string       `bson:"image" json:"image"`
	Price     money.Amount `bson:"price" json:"price"`
	Qty       int          `bson:"qty" json:"qty"`
}

// Cart is looked up by OwnerKey. The four price fields are derived from Items
// and are rewritten on every mutation.
type Cart struct {
	ID            string       `bson:"_id" json:"id"`
	OwnerKey      string       `bson:"owner_key" json:"-"`
	UserID        string       `bson:"user_id,omitempty" json:"userId,omitempty"`
	SessionCartID string       `bson:"session_cart_id,omitempty" json:"sessionCartId,omitempty"`
	Items         []LineItem   `bson:"items" json:"items"`
	ItemsPrice    money.Amount `bson:"items_price" json:"itemsPrice"`
	ShippingPrice money.Amount `bson:"shipping_price" json:"shippingPrice"`
	TaxPrice      money.Amount `bson:"tax_price" json:"taxPrice"`
	TotalPrice    money.Amount `bson:"total_price" json:"totalPrice"`
	Version       int64        `bson:"version" json:"version"`
	CreatedAt     time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updated_at" json:"updatedAt"`
}

// FindItem returns the line for productID, if any.
func (c *Cart) FindItem(productID string) (LineItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

// ItemCount is the number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Qty
	}
	return n
}
