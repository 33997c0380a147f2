package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"golang.org/x/time/rate"
)

// Defaults applied when settings leave a value unset
const (
	DefaultBufferSize        = 1024
	DefaultPollTimeout       = 250 * time.Millisecond
	DefaultReconnectInterval = 5 * time.Second
)

var (
	// ErrReconnectsExhausted is returned by Advance once the feed has given
	// up reconnecting
	ErrReconnectsExhausted = errors.New("websocket reconnect attempts exhausted")
	errNoURL               = errors.New("websocket url is empty")
	errAlreadyStarted      = errors.New("feed already started")
	errNotStarted          = errors.New("feed not started")
	errStopped             = errors.New("feed stopped")
	errMissingField        = errors.New("quote message missing field")
)

// Settings configures a websocket Feed
type Settings struct {
	URL string
	// Subscribe is written verbatim after every successful dial
	Subscribe         string
	Symbols           []string
	BufferSize        int
	PollTimeout       time.Duration
	ReconnectInterval time.Duration
	// MaxReconnects of zero retries forever
	MaxReconnects int
	Dialer        *websocket.Dialer
}

// Feed turns a websocket stream of quotes into market events. A producer
// goroutine reads the socket into a bounded channel; Advance consumes it on
// the event loop goroutine so quote state is never shared
type Feed struct {
	env      *common.Env
	sink     common.EventSink
	settings Settings
	symbols  map[string]struct{}
	limiter  *rate.Limiter

	quotes  chan market.Quote
	errs    chan error
	m       sync.Mutex
	started bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	continueSimulation bool
	day                time.Time
	lastDataDay        time.Time
	lastTime           time.Time
	current            *data.DayData
}
