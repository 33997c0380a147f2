package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/eventholder"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/statistics"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies"
)

var (
	// ErrRunStopped is returned by Run when Stop was called before the data
	// source finished
	ErrRunStopped = errors.New("run stopped")

	errNilConfig           = errors.New("unable to setup backtester with nil config")
	errRunNotFound         = errors.New("run not found")
	errRunAlreadyMonitored = errors.New("run already monitored")
	errAlreadyRan          = errors.New("run already ran")
	errRunHasNotRan        = errors.New("run hasn't ran yet")
	errRunIsRunning        = errors.New("run is already running")
	errCannotClear         = errors.New("cannot clear run")
)

// Components are the collaborators wired into a run. The data handler must
// append to Queue and the exchange must read quotes from the data handler
type Components struct {
	Queue     eventholder.EventHolder
	Data      data.Handler
	Exchange  exchange.ExecutionHandler
	Portfolio portfolio.Handler
	Strategy  strategies.Handler
	Statistic statistics.Handler
}

// streamer is implemented by data handlers that run a producer goroutine
// which must be started before the first Advance
type streamer interface {
	Start(context.Context) error
}

// BackTest is the main holder of all backtesting functionality
type BackTest struct {
	m              sync.Mutex
	env            *common.Env
	MetaData       RunMetaData
	EventQueue     eventholder.EventHolder
	Data           data.Handler
	Exchange       exchange.ExecutionHandler
	Portfolio      portfolio.Handler
	Strategy       strategies.Handler
	Statistic      statistics.Handler
	orderNamespace uuid.UUID
	orderSeq       atomic.Uint64
	stopped        atomic.Bool
	cancel         context.CancelFunc
	closers        []func() error
}

// RunMetaData contains details about a run such as when it was loaded
type RunMetaData struct {
	ID          uuid.UUID `json:"id"`
	Strategy    string    `json:"strategy"`
	Live        bool      `json:"live"`
	DateLoaded  time.Time `json:"dateLoaded"`
	DateStarted time.Time `json:"dateStarted"`
	DateEnded   time.Time `json:"dateEnded"`
	Stopped     bool      `json:"stopped"`
	Error       string    `json:"error,omitempty"`
}

// RunSummary holds a run's metadata and its results so far
type RunSummary struct {
	MetaData   RunMetaData        `json:"metaData"`
	Statistics statistics.Summary `json:"statistics"`
}

// RunManager contains all strategy runs
type RunManager struct {
	m    sync.Mutex
	runs []*BackTest
}
