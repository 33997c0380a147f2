package common

import (
	"errors"
	"math/rand"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/clock"
	"github.com/thrasher-corp/tickbacktester/log"
)

// EventKind identifies which handler an event is dispatched to
type EventKind uint8

// Event kinds understood by the event loop
const (
	UnknownEvent EventKind = iota
	MarketEvent
	OrderEvent
	FillEvent
	NewDayEvent
)

// DateFormat is the layout used for trading days in config, file names and logs
const DateFormat = "2006-01-02"

var (
	// ErrNilArguments is a common error response to highlight that nils were passed in
	// when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilEvent is a common error for whenever a nil event occurs when it shouldn't have
	ErrNilEvent = errors.New("nil event received")
	// ErrNilPointer is returned when a required pointer receiver or field is nil
	ErrNilPointer = errors.New("nil pointer")
	// ErrInvalidDataType occurs when an invalid data type is defined in the config
	ErrInvalidDataType = errors.New("invalid datatype received")
	// ErrUnhandledEvent is returned when an event kind has no registered handler
	ErrUnhandledEvent = errors.New("unhandled event kind")
)

// Event is the common surface of every event flowing through the queue.
// Events are not mutated once constructed
type Event interface {
	Kind() EventKind
	GetTime() time.Time
	GetOffset() int64
}

// EventSink accepts events for later dispatch
type EventSink interface {
	AppendEvent(Event)
}

// Env carries the per-run collaborators that used to be process globals.
// One Env is created per run and handed to every constructor that needs it
type Env struct {
	RunID  uuid.UUID
	Seed   int64
	Logger *log.Logger
	Clock  *clock.Simulated
	Rand   *rand.Rand
}

// Side is the direction of an order or fill, derived from the sign of its quantity
type Side string

// Order sides
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)
