package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio/position"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
)

// New returns a portfolio holding only cash
func New(initialCash decimal.Decimal) (*Portfolio, error) {
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("%w %v", errNegativeInitialCash, initialCash)
	}
	return &Portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]*position.Position),
		marks:       make(map[string]decimal.Decimal),
	}, nil
}

// Reset returns the portfolio to its initial cash with no positions
func (p *Portfolio) Reset() {
	p.m.Lock()
	defer p.m.Unlock()
	p.cash = p.initialCash
	p.totalCommission = decimal.Zero
	p.positions = make(map[string]*position.Position)
	p.marks = make(map[string]decimal.Decimal)
	p.lastUpdate = time.Time{}
}

// Apply debits the fill cost and commission from cash and updates the
// position of the fill's symbol
func (p *Portfolio) Apply(f *fill.Fill) error {
	if f == nil {
		return common.ErrNilEvent
	}
	p.m.Lock()
	defer p.m.Unlock()
	pos := p.position(f.Symbol)
	if err := pos.Apply(f); err != nil {
		return fmt.Errorf("%s order %s: %w", f.Symbol, f.OrderID, err)
	}
	p.cash = p.cash.Sub(f.Cost).Sub(f.Commission)
	p.totalCommission = p.totalCommission.Add(f.Commission)
	if _, ok := p.marks[f.Symbol]; !ok {
		p.marks[f.Symbol] = f.Price
	}
	if f.GetTime().After(p.lastUpdate) {
		p.lastUpdate = f.GetTime()
	}
	return nil
}

// Update marks every quoted symbol at its mid price
func (p *Portfolio) Update(m *market.Market) {
	if m == nil {
		return
	}
	p.m.Lock()
	defer p.m.Unlock()
	for sym, q := range m.Quotes {
		p.marks[sym] = q.Mid()
	}
	p.lastUpdate = m.GetTime()
}

// position must be called with the lock held
func (p *Portfolio) position(symbol string) *position.Position {
	pos, ok := p.positions[symbol]
	if !ok {
		pos = position.New(symbol)
		p.positions[symbol] = pos
	}
	return pos
}

// Cash returns the cash balance
func (p *Portfolio) Cash() decimal.Decimal {
	p.m.RLock()
	defer p.m.RUnlock()
	return p.cash
}

// InitialCash returns the cash the portfolio started with
func (p *Portfolio) InitialCash() decimal.Decimal {
	return p.initialCash
}

// Position returns a copy of the position for symbol, creating a flat one on
// first reference
func (p *Portfolio) Position(symbol string) position.Position {
	p.m.Lock()
	defer p.m.Unlock()
	return *p.position(symbol)
}

// Mark returns the latest known price of symbol
func (p *Portfolio) Mark(symbol string) (decimal.Decimal, bool) {
	p.m.RLock()
	defer p.m.RUnlock()
	price, ok := p.marks[symbol]
	return price, ok
}

// Value returns cash plus the marked value of every position
func (p *Portfolio) Value() decimal.Decimal {
	p.m.RLock()
	defer p.m.RUnlock()
	return p.value()
}

func (p *Portfolio) value() decimal.Decimal {
	v := p.cash
	for sym, pos := range p.positions {
		v = v.Add(pos.MarketValue(p.marks[sym]))
	}
	return v
}

// Snapshot copies the current state
func (p *Portfolio) Snapshot() Snapshot {
	p.m.RLock()
	defer p.m.RUnlock()
	s := Snapshot{
		Time:        p.lastUpdate,
		InitialCash: p.initialCash,
		Cash:        p.cash,
		Value:       p.value(),
		Commission:  p.totalCommission,
		Positions:   make([]position.Position, 0, len(p.positions)),
	}
	for sym, pos := range p.positions {
		s.Realised = s.Realised.Add(pos.RealisedPNL)
		s.Unrealised = s.Unrealised.Add(pos.Unrealised(p.marks[sym]))
		s.Positions = append(s.Positions, *pos)
	}
	sort.Slice(s.Positions, func(i, j int) bool {
		return s.Positions[i].Symbol < s.Positions[j].Symbol
	})
	return s
}
