package order

import (
	"errors"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/eventtypes/event"
)

// Type is how an order should be executed
type Type string

// Supported order types
const (
	Market Type = "MARKET"
	Limit  Type = "LIMIT"
)

var (
	// ErrZeroQuantity is returned when an order is submitted without a size
	ErrZeroQuantity = errors.New("order quantity cannot be zero")
	// ErrEmptySymbol is returned when an order does not name an instrument
	ErrEmptySymbol = errors.New("order symbol cannot be empty")
	// ErrInvalidLimitPrice is returned when a limit order has a non-positive
	// price or a market order carries one
	ErrInvalidLimitPrice = errors.New("invalid limit price")
	// ErrInvalidOrderType is returned for anything other than Market or Limit
	ErrInvalidOrderType = errors.New("invalid order type")
	// ErrNilOrderID is returned when an order has no id
	ErrNilOrderID = errors.New("order id cannot be nil")
)

// Order contains all details for an order event. Quantity is signed,
// positive buys and negative sells
type Order struct {
	event.Base
	ID         uuid.UUID       `json:"id"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Type       Type            `json:"type"`
	LimitPrice decimal.Decimal `json:"limitPrice"`
}

// Request is what a strategy asks for before the order is assigned an id
// and a submission time
type Request struct {
	Symbol     string
	Quantity   int64
	Type       Type
	LimitPrice decimal.Decimal
}
