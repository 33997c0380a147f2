package live

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data"
	quotecsv "github.com/thrasher-corp/tickbacktester/data/quote/csv"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/log"
	"golang.org/x/time/rate"
)

// NewFeed validates settings and returns a feed that has not dialled yet
func NewFeed(env *common.Env, sink common.EventSink, s Settings) (*Feed, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, fmt.Errorf("%w event sink", common.ErrNilPointer)
	}
	if s.URL == "" {
		return nil, errNoURL
	}
	if len(s.Symbols) == 0 {
		return nil, data.ErrNoSymbols
	}
	if s.BufferSize <= 0 {
		s.BufferSize = DefaultBufferSize
	}
	if s.PollTimeout <= 0 {
		s.PollTimeout = DefaultPollTimeout
	}
	if s.ReconnectInterval <= 0 {
		s.ReconnectInterval = DefaultReconnectInterval
	}
	if s.Dialer == nil {
		s.Dialer = websocket.DefaultDialer
	}
	symbols := make(map[string]struct{}, len(s.Symbols))
	for i := range s.Symbols {
		symbols[s.Symbols[i]] = struct{}{}
	}
	return &Feed{
		env:      env,
		sink:     sink,
		settings: s,
		symbols:  symbols,
		// the first dial is immediate, later ones wait out the interval
		limiter:            rate.NewLimiter(rate.Every(s.ReconnectInterval), 1),
		quotes:             make(chan market.Quote, s.BufferSize),
		errs:               make(chan error, 1),
		continueSimulation: true,
	}, nil
}

// Start launches the producer goroutine. It returns once the goroutine is
// running; dial failures surface through Advance
func (f *Feed) Start(ctx context.Context) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.started {
		return errAlreadyStarted
	}
	if f.stopped.Load() {
		return errStopped
	}
	f.started = true
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.run(ctx)
	return nil
}

// Stop ends the stream and waits for the producer to exit. The next Advance
// reports that simulation is over. Stopping a feed that never started is
// allowed
func (f *Feed) Stop() error {
	f.m.Lock()
	defer f.m.Unlock()
	f.stopped.Store(true)
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	return nil
}

func (f *Feed) run(ctx context.Context) {
	defer f.wg.Done()
	attempts := 0
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return
		}
		conn, _, err := f.settings.Dialer.DialContext(ctx, f.settings.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempts++
			f.env.Logger.Warnf(log.Live, "dial %s attempt %d failed: %v", f.settings.URL, attempts, err)
			if f.settings.MaxReconnects > 0 && attempts > f.settings.MaxReconnects {
				f.errs <- fmt.Errorf("%w after %d attempts: %v", ErrReconnectsExhausted, attempts, err)
				return
			}
			continue
		}
		attempts = 0
		f.env.Logger.Infof(log.Live, "connected to %s", f.settings.URL)
		err = f.consume(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		f.env.Logger.Warnf(log.Live, "connection to %s lost, reconnecting: %v", f.settings.URL, err)
	}
}

// consume reads one connection until it fails or ctx is cancelled
func (f *Feed) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()
	if f.settings.Subscribe != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f.settings.Subscribe)); err != nil {
			return err
		}
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		quotes, err := f.parse(msg)
		if err != nil {
			f.env.Logger.Warnf(log.Live, "dropping message %s: %v", msg, err)
			continue
		}
		for i := range quotes {
			select {
			case f.quotes <- quotes[i]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// parse accepts a single quote object or an array of them. Objects without a
// symbol are control frames and ignored, as are unsubscribed symbols
func (f *Feed) parse(msg []byte) ([]market.Quote, error) {
	_, dataType, _, err := jsonparser.Get(msg)
	if err != nil {
		return nil, err
	}
	if dataType != jsonparser.Array {
		q, ok, err := f.parseQuote(msg)
		if err != nil || !ok {
			return nil, err
		}
		return []market.Quote{q}, nil
	}
	var resp []market.Quote
	var errs error
	_, err = jsonparser.ArrayEach(msg, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		q, ok, err := f.parseQuote(value)
		if err != nil {
			errs = common.AppendError(errs, err)
			return
		}
		if ok {
			resp = append(resp, q)
		}
	})
	if err != nil {
		return nil, err
	}
	return resp, errs
}

func (f *Feed) parseQuote(msg []byte) (market.Quote, bool, error) {
	symbol, err := jsonparser.GetString(msg, "symbol")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return market.Quote{}, false, nil
	}
	if err != nil {
		return market.Quote{}, false, err
	}
	if _, ok := f.symbols[symbol]; !ok {
		return market.Quote{}, false, nil
	}
	q := market.Quote{Symbol: symbol}
	v, dataType, _, err := jsonparser.Get(msg, "time")
	if err != nil {
		return market.Quote{}, false, fmt.Errorf("%w time: %v", errMissingField, err)
	}
	if dataType == jsonparser.Number {
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return market.Quote{}, false, err
		}
		q.Time = time.Unix(0, n).UTC()
	} else if q.Time, err = quotecsv.ParseTime(string(v)); err != nil {
		return market.Quote{}, false, err
	}
	if q.Bid, err = getDecimal(msg, "bid", true); err != nil {
		return market.Quote{}, false, err
	}
	if q.Ask, err = getDecimal(msg, "ask", true); err != nil {
		return market.Quote{}, false, err
	}
	if q.Last, err = getDecimal(msg, "last", false); err != nil {
		return market.Quote{}, false, err
	}
	if q.BidSize, err = getInt(msg, "bid_size"); err != nil {
		return market.Quote{}, false, err
	}
	if q.AskSize, err = getInt(msg, "ask_size"); err != nil {
		return market.Quote{}, false, err
	}
	if err := q.Validate(); err != nil {
		return market.Quote{}, false, err
	}
	return q, true, nil
}

// getDecimal reads a price sent either as a JSON number or a string
func getDecimal(msg []byte, key string, required bool) (decimal.Decimal, error) {
	v, dataType, _, err := jsonparser.Get(msg, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
		if required {
			return decimal.Zero, fmt.Errorf("%w %s", errMissingField, key)
		}
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(string(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(msg []byte, key string) (int64, error) {
	v, err := jsonparser.GetInt(msg, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Advance waits up to the poll timeout for one quote and turns it into a
// market event. A quote on a later calendar day raises a new day event first.
// Quotes older than the last one seen are dropped
func (f *Feed) Advance(ctx context.Context) error {
	if !f.continueSimulation {
		return nil
	}
	if f.stopped.Load() {
		f.continueSimulation = false
		return nil
	}
	f.m.Lock()
	started := f.started
	f.m.Unlock()
	if !started {
		return errNotStarted
	}
	timer := time.NewTimer(f.settings.PollTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-f.errs:
		f.continueSimulation = false
		return err
	case <-timer.C:
		return nil
	case q := <-f.quotes:
		return f.ingest(q)
	}
}

func (f *Feed) ingest(q market.Quote) error {
	if q.Time.Before(f.lastTime) {
		f.env.Logger.Warnf(log.Live, "dropping %s quote at %v, older than %v", q.Symbol, q.Time, f.lastTime)
		return nil
	}
	day := data.TruncateDay(q.Time)
	if f.current == nil || !day.Equal(f.day) {
		if f.current != nil {
			f.lastDataDay = f.day
		}
		f.day = day
		f.current = data.NewDayData(day)
		if !f.lastDataDay.IsZero() {
			f.sink.AppendEvent(newday.New(q.Time, day, f.lastDataDay))
		}
		f.env.Logger.Infof(log.Live, "streaming %v", day.Format(common.DateFormat))
	}
	if err := f.current.Add(q); err != nil {
		return err
	}
	if err := f.env.Clock.Advance(q.Time); err != nil {
		return err
	}
	f.lastTime = q.Time
	quotes := make(map[string]market.Quote, len(f.current.Series))
	for sym, ser := range f.current.Series {
		if latest, ok := ser.AsOf(q.Time); ok {
			quotes[sym] = latest
		}
	}
	f.sink.AppendEvent(market.New(q.Time, quotes))
	return nil
}

// ContinueSimulation is false once the feed is stopped or has failed
func (f *Feed) ContinueSimulation() bool {
	return f.continueSimulation
}

// CurrentDay returns the calendar day of the latest quote
func (f *Feed) CurrentDay() time.Time {
	return f.day
}

// HasSymbol reports whether the current day has quotes for symbol
func (f *Feed) HasSymbol(symbol string) bool {
	if f.current == nil {
		return false
	}
	return f.current.Series[symbol].Len() > 0
}

// QuoteAsOf returns the latest quote of the current day at or before t
func (f *Feed) QuoteAsOf(symbol string, t time.Time) (market.Quote, bool) {
	if !f.HasSymbol(symbol) {
		return market.Quote{}, false
	}
	return f.current.Series[symbol].AsOf(t)
}

// QuoteAtOrAfter returns the first quote of the current day at or after t.
// Quotes that have not arrived yet are unknown
func (f *Feed) QuoteAtOrAfter(symbol string, t time.Time) (market.Quote, bool) {
	if !f.HasSymbol(symbol) {
		return market.Quote{}, false
	}
	return f.current.Series[symbol].AtOrAfter(t)
}
