package portfolio

import (
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio/position"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"pgregory.net/rapid"
)

var (
	_  Handler = &Portfolio{}
	tt         = time.Date(2021, 1, 4, 14, 30, 0, 0, time.UTC)
)

type helperT interface {
	require.TestingT
	Helper()
}

func newFill(t helperT, sym string, qty int64, price, commission float64) *fill.Fill {
	t.Helper()
	f, err := fill.New(&fill.Params{
		OrderID:    uuid.Must(uuid.NewV4()),
		Symbol:     sym,
		Quantity:   qty,
		Price:      decimal.NewFromFloat(price),
		Commission: decimal.NewFromFloat(commission),
		FillTime:   tt,
	})
	require.NoError(t, err, "fill.New must not error")
	return f
}

func newPortfolio(t *testing.T, cash int64) *Portfolio {
	t.Helper()
	p, err := New(decimal.NewFromInt(cash))
	require.NoError(t, err, "New must not error")
	return p
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, errNegativeInitialCash)
	p := newPortfolio(t, 1000)
	assert.True(t, p.Cash().Equal(decimal.NewFromInt(1000)))
	assert.True(t, p.InitialCash().Equal(decimal.NewFromInt(1000)))
	assert.True(t, p.Value().Equal(decimal.NewFromInt(1000)))
}

func TestApplyMarketBuy(t *testing.T) {
	t.Parallel()
	p := newPortfolio(t, 100000)
	assert.ErrorIs(t, p.Apply(nil), common.ErrNilEvent)

	require.NoError(t, p.Apply(newFill(t, "ES", 10, 100, 0)))
	assert.True(t, p.Cash().Equal(decimal.NewFromInt(99000)), "cash reduced by fill cost")
	pos := p.Position("ES")
	assert.Equal(t, int64(10), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(100)))
	assert.True(t, p.Value().Equal(decimal.NewFromInt(100000)), "marked at the fill price until quoted")
}

func TestApplyPartialCloseAndFlip(t *testing.T) {
	t.Parallel()
	p := newPortfolio(t, 10000)
	require.NoError(t, p.Apply(newFill(t, "ES", 10, 100, 1)))
	require.NoError(t, p.Apply(newFill(t, "ES", -4, 110, 1)))
	pos := p.Position("ES")
	assert.Equal(t, int64(6), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(100)))
	assert.True(t, pos.RealisedPNL.Equal(decimal.NewFromInt(40)))

	q := newPortfolio(t, 10000)
	require.NoError(t, q.Apply(newFill(t, "ES", 10, 100, 0)))
	require.NoError(t, q.Apply(newFill(t, "ES", -15, 90, 0)))
	pos = q.Position("ES")
	assert.True(t, pos.RealisedPNL.Equal(decimal.NewFromInt(-100)))
	assert.Equal(t, int64(-5), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(90)))
	assert.True(t, q.Cash().Equal(decimal.NewFromInt(10350)))

	assert.True(t, p.Cash().Equal(decimal.NewFromInt(10000-1000-1+440-1)), "commission is debited on every fill")
	assert.True(t, p.Snapshot().Commission.Equal(decimal.NewFromInt(2)))
}

func TestPositionCreatedOnFirstReference(t *testing.T) {
	t.Parallel()
	p := newPortfolio(t, 0)
	pos := p.Position("NQ")
	assert.Equal(t, "NQ", pos.Symbol)
	assert.Zero(t, pos.Quantity)
	require.Len(t, p.Snapshot().Positions, 1, "referenced positions are kept even when flat")

	f := newFill(t, "NQ", 1, 10, 0)
	f.Quantity = 0
	assert.ErrorIs(t, p.Apply(f), position.ErrZeroQuantity)
	assert.True(t, p.Cash().IsZero(), "a rejected fill must not move cash")
}

func TestUpdateAndSnapshot(t *testing.T) {
	t.Parallel()
	p := newPortfolio(t, 10000)
	require.NoError(t, p.Apply(newFill(t, "ES", 10, 100, 0)))
	require.NoError(t, p.Apply(newFill(t, "CL", -5, 50, 0)))
	p.Update(nil)
	p.Update(market.New(tt.Add(time.Second), map[string]market.Quote{
		"ES": {Symbol: "ES", Bid: decimal.NewFromInt(104), Ask: decimal.NewFromInt(106)},
		"CL": {Symbol: "CL", Bid: decimal.NewFromInt(49), Ask: decimal.NewFromInt(51)},
	}))
	mark, ok := p.Mark("ES")
	require.True(t, ok)
	assert.True(t, mark.Equal(decimal.NewFromInt(105)))

	s := p.Snapshot()
	assert.Equal(t, tt.Add(time.Second), s.Time)
	assert.True(t, s.Unrealised.Equal(decimal.NewFromInt(50)))
	assert.True(t, s.Value.Equal(decimal.NewFromInt(10050)))
	require.Len(t, s.Positions, 2)
	assert.Equal(t, "CL", s.Positions[0].Symbol)

	p.Reset()
	assert.True(t, p.Cash().Equal(decimal.NewFromInt(10000)))
	assert.Empty(t, p.Snapshot().Positions)
}

func TestValueContinuousAtFillPrice(t *testing.T) {
	t.Parallel()
	p := newPortfolio(t, 5000)
	p.Update(market.New(tt, map[string]market.Quote{
		"ES": {Symbol: "ES", Bid: decimal.NewFromInt(100), Ask: decimal.NewFromInt(100)},
	}))
	before := p.Value()
	for _, qty := range []int64{3, -7, 10, -6} {
		require.NoError(t, p.Apply(newFill(t, "ES", qty, 100, 0)))
		assert.True(t, before.Equal(p.Value()), "fills at the mark must not move value")
	}
}

func TestConcurrentReads(t *testing.T) {
	t.Parallel()
	p := newPortfolio(t, 5000)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = p.Snapshot()
			_ = p.Value()
		}
	}()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Apply(newFill(t, "ES", 1, 10, 0)))
	}
	wg.Wait()
	assert.Equal(t, int64(100), p.Position("ES").Quantity)
}

func TestConservationProperty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		initial := rapid.Int64Range(0, 1_000_000).Draw(rt, "cash")
		p, err := New(decimal.NewFromInt(initial))
		if err != nil {
			rt.Fatal(err)
		}
		symbols := []string{"ES", "NQ", "CL"}
		net := make(map[string]int64)
		spent := decimal.Zero
		n := rapid.IntRange(0, 40).Draw(rt, "fills")
		for i := 0; i < n; i++ {
			sym := rapid.SampledFrom(symbols).Draw(rt, "symbol")
			qty := rapid.Int64Range(-50, 50).Filter(func(v int64) bool { return v != 0 }).Draw(rt, "qty")
			price := rapid.Float64Range(0.25, 5000).Draw(rt, "price")
			commission := rapid.Float64Range(0, 5).Draw(rt, "commission")
			f := newFill(rt, sym, qty, price, commission)
			if err := p.Apply(f); err != nil {
				rt.Fatalf("Apply: %v", err)
			}
			net[sym] += qty
			spent = spent.Add(f.Cost).Add(f.Commission)
		}
		if !p.Cash().Add(spent).Equal(decimal.NewFromInt(initial)) {
			rt.Fatalf("cash %v + spent %v != initial %d", p.Cash(), spent, initial)
		}
		for sym, q := range net {
			if got := p.Position(sym).Quantity; got != q {
				rt.Fatalf("%s quantity %d != %d", sym, got, q)
			}
		}
	})
}
