package slippage

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
)

var tenThousand = decimal.NewFromInt(10000)

// Apply returns the price unchanged
func (None) Apply(price decimal.Decimal, _ common.Side) (adjusted, slippage decimal.Decimal) {
	return price, decimal.Zero
}

// NewBasisPoints returns a fixed slippage model
func NewBasisPoints(bps decimal.Decimal) (*BasisPoints, error) {
	if bps.IsNegative() {
		return nil, fmt.Errorf("%w %v", errNegativeRate, bps)
	}
	return &BasisPoints{BPS: bps}, nil
}

// Apply makes buys pay more and sells receive less
func (b *BasisPoints) Apply(price decimal.Decimal, side common.Side) (adjusted, slippage decimal.Decimal) {
	return shift(price, b.BPS, side)
}

// NewRandom returns a model drawing its rate from r between minBPS and maxBPS
func NewRandom(minBPS, maxBPS decimal.Decimal, r *rand.Rand) (*Random, error) {
	if r == nil {
		return nil, fmt.Errorf("%w random source", common.ErrNilPointer)
	}
	if minBPS.IsNegative() || maxBPS.IsNegative() {
		return nil, errNegativeRate
	}
	if minBPS.GreaterThan(maxBPS) {
		return nil, fmt.Errorf("%w %v > %v", errInvalidRange, minBPS, maxBPS)
	}
	return &Random{Min: minBPS, Max: maxBPS, rand: r}, nil
}

// Apply draws a rate and moves the price against the taker
func (r *Random) Apply(price decimal.Decimal, side common.Side) (adjusted, slippage decimal.Decimal) {
	return shift(price, EstimateSlippageRate(r.Min, r.Max, r.rand), side)
}

// EstimateSlippageRate returns a rate uniformly distributed in [minRate, maxRate)
func EstimateSlippageRate(minRate, maxRate decimal.Decimal, r *rand.Rand) decimal.Decimal {
	if maxRate.LessThanOrEqual(minRate) {
		return minRate
	}
	return minRate.Add(maxRate.Sub(minRate).Mul(decimal.NewFromFloat(r.Float64())))
}

func shift(price, bps decimal.Decimal, side common.Side) (adjusted, slippage decimal.Decimal) {
	slippage = price.Mul(bps).Div(tenThousand)
	if side == common.Sell {
		return price.Sub(slippage), slippage
	}
	return price.Add(slippage), slippage
}
