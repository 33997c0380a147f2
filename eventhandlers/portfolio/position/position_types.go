package position

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSymbolMismatch is returned when a fill for another instrument is applied
	ErrSymbolMismatch = errors.New("fill symbol does not match position")
	// ErrZeroQuantity is returned for fills without size
	ErrZeroQuantity = errors.New("fill quantity cannot be zero")
)

// Position tracks the signed net holding of one symbol and the cost basis of
// its open lot. AvgCost is zero whenever the position is flat
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avgCost"`
	RealisedPNL decimal.Decimal `json:"realisedPNL"`
	Commission  decimal.Decimal `json:"commission"`
	Fills       int64           `json:"fills"`
	Timestamp   time.Time       `json:"timestamp"`
}
