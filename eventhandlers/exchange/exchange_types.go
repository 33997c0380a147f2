package exchange

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/commission"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/fillprobability"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/slippage"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
)

// DefaultVenue names fills produced by the simulator
const DefaultVenue = "SIMULATED"

// DefaultOrderDelay is the latency between submission and an order reaching
// the simulated exchange
const DefaultOrderDelay = 10 * time.Millisecond

var (
	// ErrNoDataForSymbol is returned when an order names a symbol with no
	// quotes loaded for the current day
	ErrNoDataForSymbol = errors.New("no data loaded for symbol")
	// ErrNoQuote is returned when no quote can price a market order
	ErrNoQuote = errors.New("no quote available")
	// ErrDuplicateOrderID is returned when an order id has been seen before
	ErrDuplicateOrderID = errors.New("duplicate order id")
	// ErrOrderNotFound is returned when cancelling an order that is not resting
	ErrOrderNotFound = errors.New("order not found")
	// ErrOverfill is returned when a fill would exceed an order's remaining quantity
	ErrOverfill = errors.New("fill exceeds remaining order quantity")
	// ErrFillBeforeSubmit is returned when a fill would predate its order
	ErrFillBeforeSubmit = errors.New("fill time before order submission")

	errNegativeDelay = errors.New("order delay cannot be negative")
)

// ExecutionHandler is what the event loop needs from an exchange
type ExecutionHandler interface {
	OnOrder(*order.Order) ([]*fill.Fill, error)
	OnMarket(*market.Market) ([]*fill.Fill, error)
	OnNewDay(*newday.NewDay)
	Cancel(uuid.UUID) error
	Resting() []Resting
}

// Settings configure execution behaviour. Nil models fall back to no cost,
// no slippage and the default touch probability
type Settings struct {
	Venue      string
	OrderDelay time.Duration
	FillPolicy fillprobability.Policy
	Commission commission.Model
	Slippage   slippage.Model
	// RespectQuoteSize caps each fill at the size shown on the quote. Any
	// remainder keeps resting. Quotes without size are treated as unlimited
	RespectQuoteSize bool
	// PassiveFillAtLimit prices touched limit orders at their own limit
	// instead of the near touch
	PassiveFillAtLimit bool
}

// Exchange simulates order execution against the quotes of the current day
type Exchange struct {
	env      *common.Env
	settings Settings
	quotes   data.QuoteReader
	book     *Book
	seen     map[uuid.UUID]struct{}
}

// Resting is a read-only view of an order waiting in the book
type Resting struct {
	Order      *order.Order
	Filled     int64
	EligibleAt time.Time
}

// Book holds resting orders in submission order
type Book struct {
	orders []*restingOrder
	byID   map[uuid.UUID]*restingOrder
}

type restingOrder struct {
	order      *order.Order
	filled     int64
	eligibleAt time.Time
}
