// Package fillprobability decides how likely a resting limit order is to be
// filled when the market touches its price without trading through it
package fillprobability

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultProbability is the chance a touched limit order fills on a tick
const DefaultProbability = 0.1

var (
	errOutOfRange       = errors.New("probability must be between 0 and 1")
	errNonPositiveScale = errors.New("decay scale must be positive")
)

// Policy maps the distance between a resting limit price and the far touch
// to a fill probability in [0, 1]. Implementations must be pure
type Policy interface {
	Probability(distance decimal.Decimal) float64
}

// Func adapts a plain function to Policy
type Func func(distance decimal.Decimal) float64

// Probability implements Policy
func (f Func) Probability(distance decimal.Decimal) float64 {
	return f(distance)
}

// Constant fills touched orders with the same probability regardless of
// distance
type Constant float64

// NewConstant validates p
func NewConstant(p float64) (Constant, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("%w: %v", errOutOfRange, p)
	}
	return Constant(p), nil
}

// Probability implements Policy
func (c Constant) Probability(decimal.Decimal) float64 {
	return float64(c)
}

// Never is the deterministic rule: touched orders only fill once the market
// trades through them
func Never() Policy {
	return Constant(0)
}

// Decaying starts at Base and halves for every HalfLife of distance between
// the limit price and the far touch
type Decaying struct {
	Base     float64
	HalfLife decimal.Decimal
}

// NewDecaying validates and returns a decaying policy
func NewDecaying(p float64, halfLife decimal.Decimal) (*Decaying, error) {
	if _, err := NewConstant(p); err != nil {
		return nil, err
	}
	if !halfLife.IsPositive() {
		return nil, fmt.Errorf("%w: %v", errNonPositiveScale, halfLife)
	}
	return &Decaying{Base: p, HalfLife: halfLife}, nil
}

// Probability implements Policy
func (d *Decaying) Probability(distance decimal.Decimal) float64 {
	if !distance.IsPositive() {
		return d.Base
	}
	halves := distance.Div(d.HalfLife).InexactFloat64()
	return d.Base * math.Pow(0.5, halves)
}
