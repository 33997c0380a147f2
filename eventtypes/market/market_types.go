package market

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/eventtypes/event"
)

var (
	// ErrCrossedQuote is returned when a quote's bid is above its ask
	ErrCrossedQuote = errors.New("bid above ask")
	// ErrNonPositivePrice is returned when a quote has a zero or negative side
	ErrNonPositivePrice = errors.New("non-positive quote price")
	// ErrNegativeSize is returned when a quote advertises negative size
	ErrNegativeSize = errors.New("negative quote size")
	errEmptySymbol  = errors.New("quote symbol is empty")
)

// Quote is the level one state of a single instrument at a point in time
type Quote struct {
	Symbol  string          `json:"symbol"`
	Time    time.Time       `json:"time"`
	Bid     decimal.Decimal `json:"bid"`
	Ask     decimal.Decimal `json:"ask"`
	BidSize int64           `json:"bidSize"`
	AskSize int64           `json:"askSize"`
	Last    decimal.Decimal `json:"last"`
}

// Market is raised by the data source whenever simulated time moves forward.
// It carries the as-of quote of every symbol that has one at that time
type Market struct {
	event.Base
	Quotes map[string]Quote `json:"quotes"`
}
