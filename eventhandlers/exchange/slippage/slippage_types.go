package slippage

import (
	"errors"
	"math/rand"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
)

var (
	errNegativeRate = errors.New("slippage rate cannot be negative")
	errInvalidRange = errors.New("minimum slippage rate is above maximum")
)

// Model adjusts a quoted price for market impact. It returns the price paid
// and the absolute adjustment applied
type Model interface {
	Apply(price decimal.Decimal, side common.Side) (adjusted, slippage decimal.Decimal)
}

// None applies no slippage
type None struct{}

// BasisPoints moves the price against the taker by a fixed number of basis
// points
type BasisPoints struct {
	BPS decimal.Decimal
}

// Random moves the price against the taker by a rate drawn uniformly between
// Min and Max basis points from the run's seeded source
type Random struct {
	Min  decimal.Decimal
	Max  decimal.Decimal
	rand *rand.Rand
}
