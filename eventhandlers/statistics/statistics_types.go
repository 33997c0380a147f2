package statistics

import (
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/log"
)

// TradingDaysPerYear is used to annualise daily ratios
const TradingDaysPerYear = 252

var (
	// ErrAlreadyProcessed occurs when an event has already been processed
	ErrAlreadyProcessed = errors.New("this event has been processed already")
	// ErrNoEquity occurs when results are requested before any market event
	ErrNoEquity    = errors.New("no equity recorded, nothing to calculate")
	errNoPortfolio = errors.New("no portfolio to value")
)

// Handler interface details what a statistic is expected to do
type Handler interface {
	SetStrategyName(string)
	OnMarket(*market.Market) error
	OnFill(*fill.Fill) error
	OnNewDay(*newday.NewDay) error
	CalculateAllResults() (*Summary, error)
	Summary() Summary
	PrintResult(*log.Logger)
	Serialise() (string, error)
	Reset()
}

// Valuer is the part of the portfolio statistics read from
type Valuer interface {
	Value() decimal.Decimal
	Snapshot() portfolio.Snapshot
}

// Statistic records the equity curve, daily closes and fills of a run.
// Summary may be called from other goroutines while the run executes
type Statistic struct {
	m            sync.RWMutex
	runID        uuid.UUID
	strategyName string
	riskFreeRate float64
	portfolio    Valuer
	equity       []ValueAtTime
	dailyCloses  []ValueAtTime
	fills        []FillRecord
	buyFills     int64
	sellFills    int64
	marketEvents int64
	lastOffset   int64
	final        *Summary
}

// ValueAtTime is a portfolio valuation
type ValueAtTime struct {
	Time  time.Time       `json:"time"`
	Value decimal.Decimal `json:"value"`
}

// FillRecord is a flattened fill for the results log
type FillRecord struct {
	Time       time.Time       `json:"time"`
	OrderID    uuid.UUID       `json:"orderID"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Slippage   decimal.Decimal `json:"slippage"`
	Reason     string          `json:"reason,omitempty"`
}

// Summary holds the headline results of a run
type Summary struct {
	RunID         uuid.UUID       `json:"runID"`
	StrategyName  string          `json:"strategyName"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       time.Time       `json:"endTime"`
	InitialCash   decimal.Decimal `json:"initialCash"`
	FinalValue    decimal.Decimal `json:"finalValue"`
	Cash          decimal.Decimal `json:"cash"`
	TotalReturn   float64         `json:"totalReturnPercent"`
	RealisedPNL   decimal.Decimal `json:"realisedPNL"`
	UnrealisedPNL decimal.Decimal `json:"unrealisedPNL"`
	Commission    decimal.Decimal `json:"commission"`
	TotalFills    int64           `json:"totalFills"`
	BuyFills      int64           `json:"buyFills"`
	SellFills     int64           `json:"sellFills"`
	MarketEvents  int64           `json:"marketEvents"`
	TradingDays   int             `json:"tradingDays"`
	MaxDrawdown   Drawdown        `json:"maxDrawdown"`
	SharpeRatio   float64         `json:"sharpeRatio"`
	SortinoRatio  float64         `json:"sortinoRatio"`
	DailyReturns  []float64       `json:"dailyReturns,omitempty"`
	Finished      bool            `json:"finished"`
}

// Drawdown is the largest peak to trough fall of the equity curve
type Drawdown struct {
	Percent float64     `json:"percent"`
	Highest ValueAtTime `json:"highest"`
	Lowest  ValueAtTime `json:"lowest"`
}
