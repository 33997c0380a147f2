package fill

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventtypes/event"
)

// New builds a fill event. Cost is quantity multiplied by price and keeps the
// sign of the quantity, so buys cost cash and sells return it
func New(p *Params) (*Fill, error) {
	if p == nil {
		return nil, common.ErrNilArguments
	}
	if p.Quantity == 0 {
		return nil, fmt.Errorf("order %s %w", p.OrderID, ErrZeroQuantity)
	}
	if !p.Price.IsPositive() {
		return nil, fmt.Errorf("order %s %w %v", p.OrderID, errNonPositivePrice, p.Price)
	}
	if p.QuoteTime.After(p.FillTime) {
		return nil, fmt.Errorf("order %s %w quote %v fill %v", p.OrderID, ErrLookahead, p.QuoteTime, p.FillTime)
	}
	return &Fill{
		Base:       event.Base{Time: p.FillTime, Reason: p.Reason},
		OrderID:    p.OrderID,
		Symbol:     p.Symbol,
		Quantity:   p.Quantity,
		Price:      p.Price,
		Cost:       decimal.NewFromInt(p.Quantity).Mul(p.Price),
		Commission: p.Commission,
		Slippage:   p.Slippage,
		QuoteTime:  p.QuoteTime,
		Venue:      p.Venue,
	}, nil
}

// Kind returns FillEvent
func (f *Fill) Kind() common.EventKind {
	return common.FillEvent
}

// Side returns the direction of the fill
func (f *Fill) Side() common.Side {
	return common.SideOf(f.Quantity)
}

// CashDelta is the change in cash the fill causes, including commission
func (f *Fill) CashDelta() decimal.Decimal {
	return f.Cost.Add(f.Commission).Neg()
}
