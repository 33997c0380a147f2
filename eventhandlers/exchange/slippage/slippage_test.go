package slippage

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/common"
)

func TestNone(t *testing.T) {
	t.Parallel()
	p, s := None{}.Apply(decimal.NewFromInt(100), common.Buy)
	assert.True(t, p.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.IsZero())
}

func TestBasisPoints(t *testing.T) {
	t.Parallel()
	_, err := NewBasisPoints(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, errNegativeRate)

	b, err := NewBasisPoints(decimal.NewFromInt(10))
	require.NoError(t, err, "NewBasisPoints must not error")
	p, s := b.Apply(decimal.NewFromInt(100), common.Buy)
	assert.True(t, p.Equal(decimal.NewFromFloat(100.1)), "buys should pay up")
	assert.True(t, s.Equal(decimal.NewFromFloat(0.1)))
	p, _ = b.Apply(decimal.NewFromInt(100), common.Sell)
	assert.True(t, p.Equal(decimal.NewFromFloat(99.9)), "sells should receive less")
}

func TestRandomSlippage(t *testing.T) {
	t.Parallel()
	_, err := NewRandom(decimal.Zero, decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, common.ErrNilPointer)
	r := rand.New(rand.NewSource(42)) //nolint:gosec // test
	_, err = NewRandom(decimal.NewFromInt(5), decimal.NewFromInt(1), r)
	assert.ErrorIs(t, err, errInvalidRange)
	_, err = NewRandom(decimal.NewFromInt(-5), decimal.NewFromInt(1), r)
	assert.ErrorIs(t, err, errNegativeRate)

	m, err := NewRandom(decimal.NewFromInt(80), decimal.NewFromInt(100), r)
	require.NoError(t, err, "NewRandom must not error")
	for i := 0; i < 100; i++ {
		p, s := m.Apply(decimal.NewFromInt(10000), common.Buy)
		assert.True(t, s.GreaterThanOrEqual(decimal.NewFromInt(80)), "slippage should be at least the minimum rate")
		assert.True(t, s.LessThan(decimal.NewFromInt(100)), "slippage should be below the maximum rate")
		assert.True(t, p.Equal(decimal.NewFromInt(10000).Add(s)))
	}
	assert.True(t, EstimateSlippageRate(decimal.NewFromInt(3), decimal.NewFromInt(3), r).Equal(decimal.NewFromInt(3)))
}
