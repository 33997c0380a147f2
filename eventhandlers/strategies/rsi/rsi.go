package rsi

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

const (
	// Name is the strategy name
	Name         = "rsi"
	rsiPeriodKey = "rsi-period"
	rsiLowKey    = "rsi-low"
	rsiHighKey   = "rsi-high"
	description  = `The relative strength index is a technical indicator used in the analysis of financial markets. It is intended to chart the current and historical strength or weakness of a stock or market based on the closing prices of a recent trading period. Here it is computed over quote mid prices`
	// historyMultiplier bounds the mid price window kept per symbol
	historyMultiplier = 10
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	rsiPeriod decimal.Decimal
	rsiLow    decimal.Decimal
	rsiHigh   decimal.Decimal
	mids      map[string][]float64
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
// be it definition of terms or to highlight its purpose
func (s *Strategy) Description() string {
	return description
}

// OnMarket buys when RSI is at or below the low level while flat and sells
// the whole position when it is at or above the high level
func (s *Strategy) OnMarket(m *market.Market, ctx base.Context) error {
	if s.mids == nil {
		s.mids = make(map[string][]float64)
	}
	period := int(s.rsiPeriod.IntPart())
	for _, sym := range m.Symbols() {
		q, _ := m.Quote(sym)
		hist := append(s.mids[sym], q.Mid().InexactFloat64())
		if limit := period * historyMultiplier; len(hist) > limit {
			hist = hist[len(hist)-limit:]
		}
		s.mids[sym] = hist
		if len(hist) <= period {
			continue
		}
		values := indicators.RSI(hist, period)
		if len(values) == 0 {
			continue
		}
		latest := values[len(values)-1]
		if math.IsNaN(latest) || math.IsInf(latest, 0) {
			continue
		}
		value := decimal.NewFromFloat(latest)
		pos := ctx.Portfolio().Position(sym)
		var qty int64
		switch {
		case value.LessThanOrEqual(s.rsiLow) && pos.Quantity == 0:
			qty = s.Quantity()
		case value.GreaterThanOrEqual(s.rsiHigh) && pos.Quantity > 0:
			qty = -pos.Quantity
		default:
			continue
		}
		if _, err := ctx.Order(order.Request{Symbol: sym, Quantity: qty, Type: order.Market}); err != nil {
			return fmt.Errorf("%s: %w", sym, err)
		}
		ctx.Logger().Debugf(log.Strategy, "%s RSI at %v, ordering %d", sym, value.Round(2), qty)
	}
	return nil
}

// SetCustomSettings allows a user to modify the RSI limits in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case rsiHighKey:
			rsiHigh, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			s.rsiHigh = decimal.NewFromFloat(rsiHigh)
		case rsiLowKey:
			rsiLow, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			s.rsiLow = decimal.NewFromFloat(rsiLow)
		case rsiPeriodKey:
			rsiPeriod, err := base.ParseFloat(k, v)
			if err != nil {
				return err
			}
			if rsiPeriod < 2 {
				return fmt.Errorf("%w provided rsi-period value is too short: %v", base.ErrInvalidCustomSettings, v)
			}
			s.rsiPeriod = decimal.NewFromFloat(rsiPeriod).Floor()
		case base.QuantityKey:
			if err := s.SetQuantity(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.rsiLow.GreaterThanOrEqual(s.rsiHigh) && !s.rsiHigh.IsZero() {
		return fmt.Errorf("%w rsi-low %v must be below rsi-high %v", base.ErrInvalidCustomSettings, s.rsiLow, s.rsiHigh)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.rsiHigh = decimal.NewFromInt(70)
	s.rsiLow = decimal.NewFromInt(30)
	s.rsiPeriod = decimal.NewFromInt(14)
	s.mids = make(map[string][]float64)
	_ = s.SetQuantity(base.DefaultQuantity)
}
