package buyandhold

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

type fakeContext struct {
	orders []order.Request
	p      *portfolio.Portfolio
}

func (f *fakeContext) Order(r order.Request) (uuid.UUID, error) {
	f.orders = append(f.orders, r)
	return uuid.NewV4()
}
func (f *fakeContext) Cancel(uuid.UUID) error { return nil }
func (f *fakeContext) Portfolio() base.Portfolio { return f.p }
func (f *fakeContext) Now() time.Time { return time.Time{} }
func (f *fakeContext) Logger() *log.Logger { return log.Nop() }

func TestOnMarket(t *testing.T) {
	t.Parallel()
	s := &Strategy{}
	s.SetDefaults()
	require.NoError(t, s.SetCustomSettings(map[string]any{base.QuantityKey: float64(3)}))
	p, err := portfolio.New(decimal.NewFromInt(1000))
	require.NoError(t, err)
	ctx := &fakeContext{p: p}

	tt := time.Now()
	q := func(sym string) market.Quote {
		return market.Quote{Symbol: sym, Time: tt, Bid: decimal.NewFromInt(1), Ask: decimal.NewFromInt(2)}
	}
	require.NoError(t, s.OnMarket(market.New(tt, map[string]market.Quote{"ES": q("ES")}), ctx))
	require.NoError(t, s.OnMarket(market.New(tt, map[string]market.Quote{"ES": q("ES"), "NQ": q("NQ")}), ctx))
	require.Len(t, ctx.orders, 2, "each symbol is bought once")
	assert.Equal(t, "ES", ctx.orders[0].Symbol)
	assert.Equal(t, int64(3), ctx.orders[0].Quantity)
	assert.Equal(t, order.Market, ctx.orders[1].Type)
	assert.NoError(t, s.OnFinished(ctx))
}

func TestSetCustomSettings(t *testing.T) {
	t.Parallel()
	s := &Strategy{}
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{"leverage": 2.0}), base.ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetCustomSettings(map[string]any{base.QuantityKey: -2.0}), base.ErrInvalidCustomSettings)
	assert.Equal(t, Name, s.Name())
	assert.NotEmpty(t, s.Description())
}
