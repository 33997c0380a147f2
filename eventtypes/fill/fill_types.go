package fill

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/eventtypes/event"
)

var (
	// ErrZeroQuantity is returned when a fill has no size
	ErrZeroQuantity = errors.New("fill quantity cannot be zero")
	// ErrLookahead is returned when the quote used to price a fill is newer
	// than the fill itself
	ErrLookahead        = errors.New("fill priced from a future quote")
	errNonPositivePrice = errors.New("fill price must be positive")
)

// Fill is an event that details the execution of (part of) an order
type Fill struct {
	event.Base
	OrderID    uuid.UUID       `json:"orderID"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	Commission decimal.Decimal `json:"commission"`
	Slippage   decimal.Decimal `json:"slippage"`
	QuoteTime  time.Time       `json:"quoteTime"`
	Venue      string          `json:"venue"`
}

// Params are the inputs used to build a fill
type Params struct {
	OrderID    uuid.UUID
	Symbol     string
	Quantity   int64
	Price      decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal
	FillTime   time.Time
	QuoteTime  time.Time
	Venue      string
	Reason     string
}
