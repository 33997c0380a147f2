package portfolio

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio/position"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
)

var errNegativeInitialCash = errors.New("initial cash cannot be negative")

// Handler is the accounting surface used by the event loop and strategies
type Handler interface {
	Apply(*fill.Fill) error
	Update(*market.Market)
	Cash() decimal.Decimal
	Position(symbol string) position.Position
	Value() decimal.Decimal
	Snapshot() Snapshot
	Reset()
}

// Portfolio aggregates cash and per-symbol positions. Cash only moves
// through fills. Reads are safe from other goroutines so a run can be
// monitored while it executes
type Portfolio struct {
	m               sync.RWMutex
	initialCash     decimal.Decimal
	cash            decimal.Decimal
	totalCommission decimal.Decimal
	positions       map[string]*position.Position
	marks           map[string]decimal.Decimal
	lastUpdate      time.Time
}

// Snapshot is a point in time copy of the portfolio
type Snapshot struct {
	Time        time.Time           `json:"time"`
	InitialCash decimal.Decimal     `json:"initialCash"`
	Cash        decimal.Decimal     `json:"cash"`
	Value       decimal.Decimal     `json:"value"`
	Realised    decimal.Decimal     `json:"realised"`
	Unrealised  decimal.Decimal     `json:"unrealised"`
	Commission  decimal.Decimal     `json:"commission"`
	Positions   []position.Position `json:"positions"`
}
