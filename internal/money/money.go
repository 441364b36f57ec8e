// Package money holds the fixed-point amount type used for every price and total.
//
// Amounts are kept at two decimal places. Rounding is half-up (half away from
// zero, which is the same thing for the non-negative values handled here), so
// 1.005 rounds to 1.01 and 1.004 to 1.00. No arithmetic goes through float64.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

const places = 2

var (
	ErrInvalidPrice = errors.New("price must have exactly two decimal places")

	priceFormat = regexp.MustCompile(`^\d+(\.\d{2})?$`)
)

// Round2 rounds d to two decimal places, half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(places)
}

// Amount is a non-float money value held at exactly two decimal places.
type Amount struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Amount{d: decimal.Zero}

// New rounds d into an Amount.
func New(d decimal.Decimal) Amount {
	return Amount{d: Round2(d)}
}

// FromCents builds an Amount from an integer number of cents.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -places)}
}

// MustParse is ParsePrice for constants and tests.
func MustParse(s string) Amount {
	a, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParsePrice accepts a whole number or a number with exactly two fractional digits.
func ParsePrice(s string) (Amount, error) {
	if !priceFormat.MatchString(s) {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return New(d), nil
}

func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) Add(b Amount) Amount { return New(a.d.Add(b.d)) }

// Mul multiplies by a quantity. The result is exact, no rounding is needed.
func (a Amount) Mul(qty int) Amount {
	return New(a.d.Mul(decimal.NewFromInt(int64(qty))))
}

// MulRate multiplies by a rate such as a tax rate and rounds the product.
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return New(a.d.Mul(rate))
}

func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

func (a Amount) IsZero() bool { return a.d.IsZero() }

func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// String always renders two fractional digits, e.g. "10.00".
func (a Amount) String() string { return a.d.StringFixed(places) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	*a = New(d)
	return nil
}

// MarshalBSONValue stores the amount as a string so no precision is lost in Mongo.
func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bsontype.String, bsoncore.AppendString(nil, a.String()), nil
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	s, ok := raw.StringValueOK()
	if !ok {
		return fmt.Errorf("decode amount: unexpected bson type %s", t)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	*a = New(d)
	return nil
}

// Scan reads NUMERIC columns.
func (a *Amount) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("scan amount: %w", err)
	}
	*a = New(d)
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}
