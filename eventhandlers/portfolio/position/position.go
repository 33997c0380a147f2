package position

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
)

// New returns a flat position for symbol
func New(symbol string) *Position {
	return &Position{Symbol: symbol}
}

// HasOpenLot reports whether AvgCost describes a live lot
func (p *Position) HasOpenLot() bool {
	return p.Quantity != 0
}

// Apply updates the position for a fill. There are five cases, chosen by the
// sign of the current quantity against the fill:
// flat opens a lot at the fill price, same sign averages into the lot,
// a smaller opposite fill realises PnL on the closed part and keeps AvgCost,
// an equal opposite fill flattens, and a larger opposite fill closes the lot
// and opens a new one at the fill price for the excess
func (p *Position) Apply(f *fill.Fill) error {
	if f == nil {
		return common.ErrNilEvent
	}
	if f.Symbol != p.Symbol {
		return fmt.Errorf("%w: %q applied to %q", ErrSymbolMismatch, f.Symbol, p.Symbol)
	}
	if f.Quantity == 0 {
		return fmt.Errorf("order %s %w", f.OrderID, ErrZeroQuantity)
	}
	qty := f.Quantity
	price := f.Price
	switch {
	case p.Quantity == 0:
		p.Quantity = qty
		p.AvgCost = price
	case (p.Quantity > 0) == (qty > 0):
		current := decimal.NewFromInt(p.Quantity)
		incoming := decimal.NewFromInt(qty)
		p.AvgCost = current.Mul(p.AvgCost).Add(incoming.Mul(price)).Div(current.Add(incoming))
		p.Quantity += qty
	case abs(qty) < abs(p.Quantity):
		p.realise(price, abs(qty))
		p.Quantity += qty
	case abs(qty) == abs(p.Quantity):
		p.realise(price, abs(qty))
		p.Quantity = 0
		p.AvgCost = decimal.Zero
	default:
		p.realise(price, abs(p.Quantity))
		p.Quantity += qty
		p.AvgCost = price
	}
	p.Commission = p.Commission.Add(f.Commission)
	p.Fills++
	p.Timestamp = f.GetTime()
	return nil
}

// realise books PnL on closed units of the open lot. A long gains when the
// price is above cost, a short when it is below
func (p *Position) realise(price decimal.Decimal, closed int64) {
	pnl := price.Sub(p.AvgCost).Mul(decimal.NewFromInt(closed))
	if p.Quantity < 0 {
		pnl = pnl.Neg()
	}
	p.RealisedPNL = p.RealisedPNL.Add(pnl)
}

// Unrealised returns the open PnL of the position marked at price
func (p *Position) Unrealised(price decimal.Decimal) decimal.Decimal {
	if p.Quantity == 0 {
		return decimal.Zero
	}
	return price.Sub(p.AvgCost).Mul(decimal.NewFromInt(p.Quantity))
}

// MarketValue returns the signed value of the holding at price
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Quantity))
}

func abs(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}
