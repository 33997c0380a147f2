package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data/series"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
)

var (
	// ErrNoDataForDay is returned by a DayLoader when a calendar day has no
	// quotes. It is recovered by rolling to the next day
	ErrNoDataForDay = errors.New("no data for day")
	// ErrInvalidDateRange is returned when the end date precedes the start date
	ErrInvalidDateRange = errors.New("end date is before start date")
	// ErrNoSymbols is returned when a source is set up without instruments
	ErrNoSymbols = errors.New("no symbols configured")
	// ErrInvalidSession is returned when the intraday window is malformed
	ErrInvalidSession = errors.New("invalid session window")
)

// QuoteReader gives read access to the quotes of the current day. Lookups
// never cross into another trading day
type QuoteReader interface {
	HasSymbol(symbol string) bool
	QuoteAsOf(symbol string, t time.Time) (market.Quote, bool)
	QuoteAtOrAfter(symbol string, t time.Time) (market.Quote, bool)
}

// Handler is what the event loop needs from any market data provider
type Handler interface {
	QuoteReader
	Advance(ctx context.Context) error
	ContinueSimulation() bool
	CurrentDay() time.Time
}

// DayLoader retrieves one calendar day of quotes for the requested symbols
type DayLoader interface {
	LoadDay(ctx context.Context, day time.Time, symbols []string) (*DayData, error)
}

// DayData is one trading day of quotes keyed by symbol
type DayData struct {
	Date   time.Time
	Series map[string]*series.Series
}

// Settings configures a historical Source. SessionStart and SessionEnd are
// offsets from midnight UTC forming a half-open window [start, end);
// timestamps outside it raise no market event. A zero SessionEnd leaves the
// window open until the end of the day
type Settings struct {
	Symbols      []string
	StartDate    time.Time
	EndDate      time.Time
	SessionStart time.Duration
	SessionEnd   time.Duration
}

// Source replays historical days through the event queue one timestamp at a
// time. It owns the day rollover state machine
type Source struct {
	env      *common.Env
	loader   DayLoader
	sink     common.EventSink
	settings Settings

	started            bool
	continueSimulation bool
	day                time.Time
	lastDataDay        time.Time
	current            *DayData
	timeline           []time.Time
	idx                int
}

// MemoryLoader serves days from memory. It is safe for concurrent use
type MemoryLoader struct {
	m    sync.RWMutex
	days map[string][]market.Quote
}
