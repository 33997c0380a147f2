package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/statistics"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

// New wires a run from its components. Order ids are derived from the run
// seed so repeated runs with the same seed produce the same ids
func New(env *common.Env, c *Components) (*BackTest, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w components", common.ErrNilPointer)
	}
	switch {
	case c.Queue == nil:
		return nil, fmt.Errorf("%w event queue", common.ErrNilPointer)
	case c.Data == nil:
		return nil, fmt.Errorf("%w data handler", common.ErrNilPointer)
	case c.Exchange == nil:
		return nil, fmt.Errorf("%w exchange", common.ErrNilPointer)
	case c.Portfolio == nil:
		return nil, fmt.Errorf("%w portfolio", common.ErrNilPointer)
	case c.Strategy == nil:
		return nil, fmt.Errorf("%w strategy", common.ErrNilPointer)
	case c.Statistic == nil:
		return nil, fmt.Errorf("%w statistic", common.ErrNilPointer)
	}
	c.Statistic.SetStrategyName(c.Strategy.Name())
	return &BackTest{
		env:            env,
		EventQueue:     c.Queue,
		Data:           c.Data,
		Exchange:       c.Exchange,
		Portfolio:      c.Portfolio,
		Strategy:       c.Strategy,
		Statistic:      c.Statistic,
		orderNamespace: uuid.NewV5(uuid.NamespaceOID, c.Strategy.Name()+"/"+strconv.FormatInt(env.Seed, 10)),
		MetaData: RunMetaData{
			ID:         env.RunID,
			Strategy:   c.Strategy.Name(),
			DateLoaded: time.Now(),
		},
	}, nil
}

// AddCloser registers a function run by Close, used for database
// connections and live feeds owned by the run
func (bt *BackTest) AddCloser(f func() error) {
	bt.m.Lock()
	bt.closers = append(bt.closers, f)
	bt.m.Unlock()
}

// Close releases everything registered with AddCloser
func (bt *BackTest) Close() error {
	if bt == nil {
		return fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	bt.m.Lock()
	closers := bt.closers
	bt.closers = nil
	bt.m.Unlock()
	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = common.AppendError(errs, closers[i]())
	}
	return errs
}

// Run executes the event loop until the data source is exhausted, the run
// is stopped or an error aborts it. A run can only be executed once
func (bt *BackTest) Run(ctx context.Context) error {
	if bt == nil {
		return fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	ctx, err := bt.begin(ctx)
	if err != nil {
		return err
	}
	return bt.execute(ctx)
}

// execute drives a run that begin has already marked as started
func (bt *BackTest) execute(ctx context.Context) error {
	var err error
	if s, ok := bt.Data.(streamer); ok {
		err = s.Start(ctx)
	}
	if err == nil {
		err = bt.loop(ctx)
	}
	bt.end(err)
	if err != nil && !errors.Is(err, ErrRunStopped) {
		bt.env.Logger.Errorf(log.Backtester, "run %v aborted: %v", bt.MetaData.ID, err)
	}
	return err
}

func (bt *BackTest) begin(ctx context.Context) (context.Context, error) {
	bt.m.Lock()
	defer bt.m.Unlock()
	switch {
	case !bt.MetaData.DateEnded.IsZero():
		return nil, fmt.Errorf("%w %v", errAlreadyRan, bt.MetaData.ID)
	case !bt.MetaData.DateStarted.IsZero():
		return nil, fmt.Errorf("%w %v", errRunIsRunning, bt.MetaData.ID)
	}
	bt.MetaData.DateStarted = time.Now()
	ctx, bt.cancel = context.WithCancel(ctx)
	return ctx, nil
}

func (bt *BackTest) end(err error) {
	bt.m.Lock()
	defer bt.m.Unlock()
	bt.MetaData.DateEnded = time.Now()
	bt.MetaData.Stopped = errors.Is(err, ErrRunStopped)
	if err != nil {
		bt.MetaData.Error = err.Error()
	}
	bt.cancel()
}

func (bt *BackTest) loop(ctx context.Context) error {
	for {
		if err := bt.checkStop(ctx); err != nil {
			return err
		}
		if !bt.Data.ContinueSimulation() {
			if err := bt.drain(); err != nil {
				return err
			}
			return bt.finish()
		}
		if err := bt.Data.Advance(ctx); err != nil {
			if stopErr := bt.checkStop(ctx); stopErr != nil {
				return stopErr
			}
			return fmt.Errorf("advancing data on %v: %w", bt.Data.CurrentDay().Format(common.DateFormat), err)
		}
		if err := bt.drain(); err != nil {
			return err
		}
	}
}

func (bt *BackTest) checkStop(ctx context.Context) error {
	if bt.stopped.Load() {
		return ErrRunStopped
	}
	return ctx.Err()
}

// drain dispatches every queued event, including those queued while
// handling earlier ones
func (bt *BackTest) drain() error {
	for ev := bt.EventQueue.NextEvent(); ev != nil; ev = bt.EventQueue.NextEvent() {
		if err := bt.dispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

func (bt *BackTest) dispatch(ev common.Event) error {
	switch e := ev.(type) {
	case *market.Market:
		return bt.processMarketEvent(e)
	case *order.Order:
		return bt.processOrderEvent(e)
	case *fill.Fill:
		return bt.processFillEvent(e)
	case *newday.NewDay:
		return bt.processNewDayEvent(e)
	default:
		return fmt.Errorf("%w %T received at %v", common.ErrUnhandledEvent, ev, ev.GetTime())
	}
}

func (bt *BackTest) processMarketEvent(m *market.Market) error {
	bt.Portfolio.Update(m)
	if err := bt.Statistic.OnMarket(m); err != nil {
		return fmt.Errorf("statistics at %v: %w", m.GetTime(), err)
	}
	if err := bt.Strategy.OnMarket(m, bt.strategyContext()); err != nil {
		return fmt.Errorf("strategy %s at %v: %w", bt.Strategy.Name(), m.GetTime(), err)
	}
	fills, err := bt.Exchange.OnMarket(m)
	if err != nil {
		return fmt.Errorf("exchange at %v: %w", m.GetTime(), err)
	}
	bt.queueFills(fills)
	return nil
}

func (bt *BackTest) processOrderEvent(o *order.Order) error {
	fills, err := bt.Exchange.OnOrder(o)
	if err != nil {
		return fmt.Errorf("%s order %v: %w", o.Symbol, o.ID, err)
	}
	bt.queueFills(fills)
	return nil
}

func (bt *BackTest) processFillEvent(f *fill.Fill) error {
	if err := bt.Portfolio.Apply(f); err != nil {
		return fmt.Errorf("portfolio: %w", err)
	}
	if err := bt.Statistic.OnFill(f); err != nil {
		return fmt.Errorf("statistics %s order %v: %w", f.Symbol, f.OrderID, err)
	}
	if err := bt.Strategy.OnFill(f, bt.strategyContext()); err != nil {
		return fmt.Errorf("strategy %s %s order %v: %w", bt.Strategy.Name(), f.Symbol, f.OrderID, err)
	}
	return nil
}

func (bt *BackTest) processNewDayEvent(n *newday.NewDay) error {
	bt.Exchange.OnNewDay(n)
	if err := bt.Statistic.OnNewDay(n); err != nil {
		return fmt.Errorf("statistics %v: %w", n.Date.Format(common.DateFormat), err)
	}
	if h, ok := bt.Strategy.(strategies.NewDayHandler); ok {
		if err := h.OnNewDay(n, bt.strategyContext()); err != nil {
			return fmt.Errorf("strategy %s %v: %w", bt.Strategy.Name(), n.Date.Format(common.DateFormat), err)
		}
	}
	return nil
}

func (bt *BackTest) queueFills(fills []*fill.Fill) {
	for _, f := range fills {
		if f == nil {
			continue
		}
		bt.env.Logger.Debugf(log.Execution, "%s filled %d at %v order %v", f.Symbol, f.Quantity, f.Price, f.OrderID)
		bt.EventQueue.AppendEvent(f)
	}
}

func (bt *BackTest) finish() error {
	if err := bt.Strategy.OnFinished(bt.strategyContext()); err != nil {
		return fmt.Errorf("strategy %s finishing: %w", bt.Strategy.Name(), err)
	}
	if n := bt.EventQueue.Len(); n > 0 {
		bt.env.Logger.Warnf(log.Backtester, "%d events queued after the data finished were discarded", n)
		bt.EventQueue.Reset()
	}
	if _, err := bt.Statistic.CalculateAllResults(); err != nil {
		if !errors.Is(err, statistics.ErrNoEquity) {
			return err
		}
		bt.env.Logger.Warnf(log.Statistics, "run %v had no market data", bt.MetaData.ID)
		return nil
	}
	bt.Statistic.PrintResult(bt.env.Logger)
	return nil
}

// Stop requests the run to end. The loop checks the request before every
// step, so the current drain completes first
func (bt *BackTest) Stop() error {
	if bt == nil {
		return fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	bt.m.Lock()
	defer bt.m.Unlock()
	if !bt.MetaData.DateEnded.IsZero() {
		return fmt.Errorf("%w %v", errAlreadyRan, bt.MetaData.ID)
	}
	bt.stopped.Store(true)
	if bt.cancel != nil {
		bt.cancel()
	}
	return nil
}

// IsRunning returns whether the run has started and not yet ended
func (bt *BackTest) IsRunning() bool {
	if bt == nil {
		return false
	}
	bt.m.Lock()
	defer bt.m.Unlock()
	return !bt.MetaData.DateStarted.IsZero() && bt.MetaData.DateEnded.IsZero()
}

// HasRan returns whether the run has ended
func (bt *BackTest) HasRan() bool {
	if bt == nil {
		return false
	}
	bt.m.Lock()
	defer bt.m.Unlock()
	return !bt.MetaData.DateEnded.IsZero()
}

// MatchesID returns whether the run has the given id
func (bt *BackTest) MatchesID(id uuid.UUID) bool {
	return bt != nil && !id.IsNil() && bt.MetaData.ID == id
}

// Equal checks whether two runs share an id
func (bt *BackTest) Equal(other *BackTest) bool {
	return bt != nil && other != nil && bt.MetaData.ID == other.MetaData.ID
}

// GenerateSummary returns the run's metadata and current results
func (bt *BackTest) GenerateSummary() (*RunSummary, error) {
	if bt == nil {
		return nil, fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	bt.m.Lock()
	md := bt.MetaData
	bt.m.Unlock()
	return &RunSummary{
		MetaData:   md,
		Statistics: bt.Statistic.Summary(),
	}, nil
}

// ExecuteStrategy runs the backtest on its own goroutine unless
// waitForOutput is set. The run is marked as started before it returns.
// Errors from a background run are logged and recorded in the run metadata
func (bt *BackTest) ExecuteStrategy(ctx context.Context, waitForOutput bool) error {
	if bt == nil {
		return fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	ctx, err := bt.begin(ctx)
	if err != nil {
		return err
	}
	if waitForOutput {
		return bt.execute(ctx)
	}
	go bt.execute(ctx) //nolint:errcheck // logged and recorded by execute
	return nil
}
