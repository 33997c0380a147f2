package meanrevert

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

type placed struct {
	id  uuid.UUID
	req order.Request
}

type fakeContext struct {
	orders    []placed
	cancelled []uuid.UUID
	p         *portfolio.Portfolio
}

func (f *fakeContext) Order(r order.Request) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	f.orders = append(f.orders, placed{id: id, req: r})
	return id, nil
}

func (f *fakeContext) Cancel(id uuid.UUID) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeContext) Portfolio() base.Portfolio { return f.p }

func (f *fakeContext) Now() time.Time { return time.Time{} }

func (f *fakeContext) Logger() *log.Logger { return log.Nop() }

type harness struct {
	t   *testing.T
	s   *Strategy
	ctx *fakeContext
	tt  time.Time
}

func newHarness(t *testing.T, settings map[string]any) *harness {
	t.Helper()
	s := &Strategy{}
	s.SetDefaults()
	require.NoError(t, s.SetCustomSettings(settings))
	p, err := portfolio.New(decimal.NewFromInt(100000))
	require.NoError(t, err)
	return &harness{
		t:   t,
		s:   s,
		ctx: &fakeContext{p: p},
		tt:  time.Date(2021, 2, 1, 14, 0, 0, 0, time.UTC),
	}
}

func (h *harness) tick(bid, ask float64) {
	h.t.Helper()
	q := market.Quote{Symbol: "ES", Time: h.tt, Bid: decimal.NewFromFloat(bid), Ask: decimal.NewFromFloat(ask)}
	require.NoError(h.t, h.s.OnMarket(market.New(h.tt, map[string]market.Quote{"ES": q}), h.ctx))
	h.tt = h.tt.Add(time.Second)
}

func (h *harness) fill(p placed, price float64) {
	h.t.Helper()
	f, err := fill.New(&fill.Params{
		OrderID:  p.id,
		Symbol:   p.req.Symbol,
		Quantity: p.req.Quantity,
		Price:    decimal.NewFromFloat(price),
		FillTime: h.tt,
	})
	require.NoError(h.t, err)
	require.NoError(h.t, h.ctx.p.Apply(f))
	require.NoError(h.t, h.s.OnFill(f, h.ctx))
}

func TestEntryAndReversionExit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]any{halfLifeKey: float64(10), thresholdKey: 1.0})
	h.tick(100, 100.5)
	assert.Empty(t, h.ctx.orders, "first tick only seeds the average")

	h.tick(97, 97.5)
	require.Len(t, h.ctx.orders, 1)
	entry := h.ctx.orders[0]
	assert.Equal(t, order.Limit, entry.req.Type)
	assert.Equal(t, int64(1), entry.req.Quantity)
	assert.True(t, entry.req.LimitPrice.Equal(decimal.NewFromFloat(97)), "buys rest at the bid")

	h.tick(97, 97.5)
	assert.Len(t, h.ctx.orders, 1, "no second entry while one is pending")

	h.fill(entry, 97)
	h.tick(98, 98.5)
	assert.Len(t, h.ctx.orders, 1, "still below the average")

	h.tick(105, 105.5)
	require.Len(t, h.ctx.orders, 2)
	exit := h.ctx.orders[1]
	assert.Equal(t, order.Market, exit.req.Type)
	assert.Equal(t, int64(-1), exit.req.Quantity)

	h.tick(105, 105.5)
	assert.Len(t, h.ctx.orders, 2, "exit is not repeated before it fills")

	h.fill(exit, 105)
	assert.Equal(t, int64(0), h.ctx.p.Position("ES").Quantity)
	assert.False(t, h.s.states["ES"].exiting)
}

func TestShortEntryAtAsk(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]any{halfLifeKey: float64(10), thresholdKey: 1.0})
	h.tick(100, 100.5)
	h.tick(103, 103.5)
	require.Len(t, h.ctx.orders, 1)
	assert.Equal(t, int64(-1), h.ctx.orders[0].req.Quantity)
	assert.True(t, h.ctx.orders[0].req.LimitPrice.Equal(decimal.NewFromFloat(103.5)))
}

func TestStaleEntryCancelled(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]any{halfLifeKey: float64(1000), thresholdKey: 1.0, staleTicksKey: float64(3)})
	h.tick(100, 100.5)
	h.tick(97, 97.5)
	require.Len(t, h.ctx.orders, 1)
	for range 3 {
		h.tick(97, 97.5)
	}
	require.Len(t, h.ctx.cancelled, 1)
	assert.Equal(t, h.ctx.orders[0].id, h.ctx.cancelled[0])
	h.tick(97, 97.5)
	assert.Len(t, h.ctx.orders, 2, "a fresh entry replaces the stale one")
}

func TestMaxHoldExit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]any{halfLifeKey: float64(1000), thresholdKey: 1.0, maxHoldKey: float64(2)})
	h.tick(100, 100.5)
	h.tick(97, 97.5)
	require.Len(t, h.ctx.orders, 1)
	h.fill(h.ctx.orders[0], 97)
	h.tick(97, 97.5)
	assert.Len(t, h.ctx.orders, 1)
	h.tick(97, 97.5)
	require.Len(t, h.ctx.orders, 2, "position closed at the holding limit")
	assert.Equal(t, order.Market, h.ctx.orders[1].req.Type)
}

func TestOnNewDayForgetsPending(t *testing.T) {
	t.Parallel()
	h := newHarness(t, map[string]any{halfLifeKey: float64(1000), thresholdKey: 1.0})
	h.tick(100, 100.5)
	h.tick(97, 97.5)
	require.Len(t, h.ctx.orders, 1)
	nd := newday.New(h.tt, h.tt, h.tt.AddDate(0, 0, -1))
	require.NoError(t, h.s.OnNewDay(nd, h.ctx))
	assert.True(t, h.s.states["ES"].pending.IsNil())
	h.tick(97, 97.5)
	assert.Len(t, h.ctx.orders, 2)
	assert.Empty(t, h.ctx.cancelled, "orders removed at rollover are not cancelled again")
}

func TestSetCustomSettings(t *testing.T) {
	t.Parallel()
	s := &Strategy{}
	s.SetDefaults()
	assert.Equal(t, Name, s.Name())
	assert.NotEmpty(t, s.Description())
	require.NoError(t, s.SetCustomSettings(map[string]any{halfLifeKey: 60, thresholdKey: 0.25, base.QuantityKey: 5}))
	assert.Equal(t, float64(60), s.halfLife)
	assert.True(t, s.threshold.Equal(decimal.NewFromFloat(0.25)))
	assert.Equal(t, int64(5), s.Quantity())
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{thresholdKey: "wide"}), base.ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{thresholdKey: -1.0}), base.ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{staleTicksKey: 0.5}), base.ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{"lookback": 2}), base.ErrInvalidCustomSettings)
}
