package fillprobability

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant(t *testing.T) {
	t.Parallel()
	for _, p := range []float64{-0.1, 1.1, math.NaN()} {
		_, err := NewConstant(p)
		assert.ErrorIs(t, err, errOutOfRange)
	}
	c, err := NewConstant(DefaultProbability)
	require.NoError(t, err, "NewConstant must not error")
	assert.Equal(t, 0.1, c.Probability(decimal.NewFromInt(5)))
	assert.Zero(t, Never().Probability(decimal.Zero))
}

func TestFunc(t *testing.T) {
	t.Parallel()
	var p Policy = Func(func(d decimal.Decimal) float64 {
		if d.LessThan(decimal.NewFromInt(1)) {
			return 1
		}
		return 0
	})
	assert.Equal(t, 1.0, p.Probability(decimal.NewFromFloat(0.5)))
	assert.Zero(t, p.Probability(decimal.NewFromInt(2)))
}

func TestDecaying(t *testing.T) {
	t.Parallel()
	_, err := NewDecaying(2, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, errOutOfRange)
	_, err = NewDecaying(0.5, decimal.Zero)
	assert.ErrorIs(t, err, errNonPositiveScale)

	d, err := NewDecaying(0.4, decimal.NewFromFloat(0.25))
	require.NoError(t, err, "NewDecaying must not error")
	assert.Equal(t, 0.4, d.Probability(decimal.Zero))
	assert.InDelta(t, 0.2, d.Probability(decimal.NewFromFloat(0.25)), 1e-12)
	assert.InDelta(t, 0.1, d.Probability(decimal.NewFromFloat(0.5)), 1e-12)
}
