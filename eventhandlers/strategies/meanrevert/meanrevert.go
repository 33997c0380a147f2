// Package meanrevert quotes passively against deviations of the mid price
// from its exponentially weighted average and exits when the price reverts
package meanrevert

import (
	"fmt"
	"math"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

const (
	// Name is the strategy name
	Name          = "meanrevert"
	halfLifeKey   = "half-life"
	thresholdKey  = "threshold"
	staleTicksKey = "stale-ticks"
	maxHoldKey    = "max-hold-ticks"
	description   = `Tracks an exponentially weighted average of each symbol's mid price. When the mid strays past the threshold a limit order is rested at the touch on the side that profits from reversion. Unfilled entries are cancelled after a number of ticks and positions are closed with a market order once the mid crosses back over its average or the holding limit is reached`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	halfLife   float64
	threshold  decimal.Decimal
	staleTicks int
	maxHold    int
	states     map[string]*state
}

type state struct {
	ewma    float64
	seeded  bool
	pending uuid.UUID
	age     int
	held    int
	exiting bool
	lastDev decimal.Decimal
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

func (s *Strategy) alpha() float64 {
	return 1 - math.Pow(0.5, 1/s.halfLife)
}

func (s *Strategy) stateFor(symbol string) *state {
	if s.states == nil {
		s.states = make(map[string]*state)
	}
	st, ok := s.states[symbol]
	if !ok {
		st = &state{}
		s.states[symbol] = st
	}
	return st
}

// OnMarket updates each quoted symbol's average and manages its entry and
// exit orders
func (s *Strategy) OnMarket(m *market.Market, ctx base.Context) error {
	a := s.alpha()
	for _, sym := range m.Symbols() {
		q, _ := m.Quote(sym)
		st := s.stateFor(sym)
		mid := q.Mid().InexactFloat64()
		if !st.seeded {
			st.ewma, st.seeded = mid, true
			continue
		}
		st.ewma += a * (mid - st.ewma)
		dev := q.Mid().Sub(decimal.NewFromFloat(st.ewma))
		st.lastDev = dev
		if err := s.manage(sym, st, q, dev, ctx); err != nil {
			return fmt.Errorf("%s: %w", sym, err)
		}
	}
	return nil
}

func (s *Strategy) manage(sym string, st *state, q market.Quote, dev decimal.Decimal, ctx base.Context) error {
	pos := ctx.Portfolio().Position(sym).Quantity
	if pos != 0 {
		st.held++
		if st.exiting {
			return nil
		}
		reverted := (pos > 0 && !dev.IsNegative()) || (pos < 0 && !dev.IsPositive())
		if !reverted && st.held < s.maxHold {
			return nil
		}
		s.cancelPending(st, ctx)
		if _, err := ctx.Order(order.Request{Symbol: sym, Quantity: -pos, Type: order.Market}); err != nil {
			return err
		}
		st.exiting = true
		ctx.Logger().Debugf(log.Strategy, "%s exiting %d after %d ticks, deviation %v", sym, pos, st.held, dev.Round(4))
		return nil
	}
	st.held = 0
	st.exiting = false

	if !st.pending.IsNil() {
		st.age++
		if st.age >= s.staleTicks {
			s.cancelPending(st, ctx)
		}
		return nil
	}

	req := order.Request{Symbol: sym, Type: order.Limit}
	switch {
	case dev.LessThanOrEqual(s.threshold.Neg()):
		req.Quantity, req.LimitPrice = s.Quantity(), q.Bid
	case dev.GreaterThanOrEqual(s.threshold):
		req.Quantity, req.LimitPrice = -s.Quantity(), q.Ask
	default:
		return nil
	}
	id, err := ctx.Order(req)
	if err != nil {
		return err
	}
	st.pending, st.age = id, 0
	return nil
}

func (s *Strategy) cancelPending(st *state, ctx base.Context) {
	if st.pending.IsNil() {
		return
	}
	if err := ctx.Cancel(st.pending); err != nil {
		ctx.Logger().Debugf(log.Strategy, "cancel %v: %v", st.pending, err)
	}
	st.pending, st.age = uuid.Nil, 0
}

// OnFill forgets the pending entry once it trades and clears the exit flag
// once the position is flat
func (s *Strategy) OnFill(f *fill.Fill, ctx base.Context) error {
	if f == nil {
		return nil
	}
	st := s.stateFor(f.Symbol)
	if st.pending == f.OrderID {
		st.pending, st.age = uuid.Nil, 0
	}
	if ctx.Portfolio().Position(f.Symbol).Quantity == 0 {
		st.exiting = false
		st.held = 0
	}
	return nil
}

// OnNewDay forgets every resting order since the exchange removed them at
// rollover. Averages carry across days
func (s *Strategy) OnNewDay(_ *newday.NewDay, _ base.Context) error {
	for _, st := range s.states {
		st.pending, st.age = uuid.Nil, 0
		st.exiting = false
	}
	return nil
}

// OnFinished logs the closing state of each symbol
func (s *Strategy) OnFinished(ctx base.Context) error {
	for sym, st := range s.states {
		ctx.Logger().Infof(log.Strategy, "%s finished with average %.4f, last deviation %v, position %d", sym, st.ewma, st.lastDev.Round(4), ctx.Portfolio().Position(sym).Quantity)
	}
	return nil
}

// SetCustomSettings allows a user to tune the average and order management
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case halfLifeKey:
			f, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			s.halfLife = f
		case thresholdKey:
			f, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			s.threshold = decimal.NewFromFloat(f)
		case staleTicksKey:
			f, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			s.staleTicks = int(f)
		case maxHoldKey:
			f, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			s.maxHold = int(f)
		case base.QuantityKey:
			if err := s.SetQuantity(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.staleTicks < 1 || s.maxHold < 1 {
		return fmt.Errorf("%w %s and %s must be at least one tick", base.ErrInvalidCustomSettings, staleTicksKey, maxHoldKey)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.halfLife = 120
	s.threshold = decimal.NewFromFloat(0.5)
	s.staleTicks = 50
	s.maxHold = 600
	s.states = make(map[string]*state)
	_ = s.SetQuantity(base.DefaultQuantity)
}
