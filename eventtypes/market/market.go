package market

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventtypes/event"
)

var two = decimal.NewFromInt(2)

// New creates a market event. The quote map is copied so later changes by
// the caller cannot leak into the event
func New(t time.Time, quotes map[string]Quote) *Market {
	cpy := make(map[string]Quote, len(quotes))
	for k, v := range quotes {
		cpy[k] = v
	}
	return &Market{
		Base:   event.Base{Time: t},
		Quotes: cpy,
	}
}

// Kind returns MarketEvent
func (m *Market) Kind() common.EventKind {
	return common.MarketEvent
}

// Quote returns the quote for a symbol if the event carries one
func (m *Market) Quote(symbol string) (Quote, bool) {
	q, ok := m.Quotes[symbol]
	return q, ok
}

// Symbols returns the symbols present in sorted order so handlers iterate
// deterministically
func (m *Market) Symbols() []string {
	resp := make([]string, 0, len(m.Quotes))
	for k := range m.Quotes {
		resp = append(resp, k)
	}
	sort.Strings(resp)
	return resp
}

// Mid returns the midpoint of the bid and ask
func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(two)
}

// Spread returns ask minus bid
func (q Quote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// Validate checks that the quote describes a usable book
func (q Quote) Validate() error {
	if q.Symbol == "" {
		return errEmptySymbol
	}
	if !q.Bid.IsPositive() || !q.Ask.IsPositive() {
		return fmt.Errorf("%s %v %w bid %v ask %v", q.Symbol, q.Time, ErrNonPositivePrice, q.Bid, q.Ask)
	}
	if q.Bid.GreaterThan(q.Ask) {
		return fmt.Errorf("%s %v %w bid %v ask %v", q.Symbol, q.Time, ErrCrossedQuote, q.Bid, q.Ask)
	}
	if q.BidSize < 0 || q.AskSize < 0 {
		return fmt.Errorf("%s %v %w", q.Symbol, q.Time, ErrNegativeSize)
	}
	return nil
}

// SizeFor returns the size available to a taker on the given side. A buyer
// lifts the ask, a seller hits the bid
func (q Quote) SizeFor(side common.Side) int64 {
	if side == common.Buy {
		return q.AskSize
	}
	return q.BidSize
}
