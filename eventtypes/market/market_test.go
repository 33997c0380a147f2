package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/common"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tt := time.Date(2021, 3, 4, 14, 30, 0, 0, time.UTC)
	quotes := map[string]Quote{
		"ESH1": {Symbol: "ESH1", Time: tt, Bid: decimal.NewFromInt(99), Ask: decimal.NewFromInt(100)},
		"CLH1": {Symbol: "CLH1", Time: tt, Bid: decimal.NewFromInt(50), Ask: decimal.NewFromInt(51)},
	}
	m := New(tt, quotes)
	assert.Equal(t, common.MarketEvent, m.Kind())
	assert.Equal(t, tt, m.GetTime())
	assert.Equal(t, []string{"CLH1", "ESH1"}, m.Symbols())

	delete(quotes, "ESH1")
	_, ok := m.Quote("ESH1")
	assert.True(t, ok, "event should hold its own copy of quotes")
	_, ok = m.Quote("NQH1")
	assert.False(t, ok)
}

func TestQuoteValidate(t *testing.T) {
	t.Parallel()
	q := Quote{Symbol: "ESH1", Bid: decimal.NewFromInt(99), Ask: decimal.NewFromInt(100), BidSize: 2, AskSize: 3}
	require.NoError(t, q.Validate())
	assert.True(t, decimal.NewFromFloat(99.5).Equal(q.Mid()))
	assert.True(t, decimal.NewFromInt(1).Equal(q.Spread()))
	assert.Equal(t, int64(3), q.SizeFor(common.Buy))
	assert.Equal(t, int64(2), q.SizeFor(common.Sell))

	bad := q
	bad.Symbol = ""
	assert.ErrorIs(t, bad.Validate(), errEmptySymbol)

	bad = q
	bad.Bid = decimal.NewFromInt(101)
	assert.ErrorIs(t, bad.Validate(), ErrCrossedQuote)

	bad = q
	bad.Ask = decimal.Zero
	assert.ErrorIs(t, bad.Validate(), ErrNonPositivePrice)

	bad = q
	bad.AskSize = -1
	assert.ErrorIs(t, bad.Validate(), ErrNegativeSize)
}
