// Package commission holds the pluggable cost models charged on every fill
package commission

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var errNegativeRate = errors.New("commission rate cannot be negative")

var hundred = decimal.NewFromInt(100)

// Model returns the commission charged for a fill of qty at price. The
// result is never negative
type Model interface {
	Commission(symbol string, qty int64, price decimal.Decimal) decimal.Decimal
}

// None charges nothing
type None struct{}

// Commission returns zero
func (None) Commission(string, int64, decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// PerUnit charges a flat amount per contract with an optional minimum per
// fill, the usual futures broker schedule
type PerUnit struct {
	Rate    decimal.Decimal
	Minimum decimal.Decimal
}

// NewPerUnit validates and returns a per contract schedule
func NewPerUnit(rate, minimum decimal.Decimal) (*PerUnit, error) {
	if rate.IsNegative() || minimum.IsNegative() {
		return nil, fmt.Errorf("%w %v %v", errNegativeRate, rate, minimum)
	}
	return &PerUnit{Rate: rate, Minimum: minimum}, nil
}

// Commission implements Model
func (p *PerUnit) Commission(_ string, qty int64, _ decimal.Decimal) decimal.Decimal {
	if qty < 0 {
		qty = -qty
	}
	c := p.Rate.Mul(decimal.NewFromInt(qty))
	if c.LessThan(p.Minimum) {
		return p.Minimum
	}
	return c
}

// Percentage charges a percentage of traded notional
type Percentage struct {
	Rate decimal.Decimal
}

// NewPercentage validates and returns a notional based schedule
func NewPercentage(rate decimal.Decimal) (*Percentage, error) {
	if rate.IsNegative() {
		return nil, fmt.Errorf("%w %v", errNegativeRate, rate)
	}
	return &Percentage{Rate: rate}, nil
}

// Commission implements Model
func (p *Percentage) Commission(_ string, qty int64, price decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(qty).Abs().Mul(price).Mul(p.Rate.Div(hundred))
}
