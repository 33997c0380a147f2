package series

import (
	"errors"

	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
)

var (
	// ErrOutOfOrder is returned when a quote older than the newest stored
	// quote is appended
	ErrOutOfOrder = errors.New("quote is older than the last stored quote")
	// ErrSymbolMismatch is returned when a quote is appended to another
	// symbol's series
	ErrSymbolMismatch = errors.New("quote symbol does not match series")
)

// Series is an append-only, time ordered list of quotes for one symbol
type Series struct {
	symbol string
	quotes []market.Quote
}
