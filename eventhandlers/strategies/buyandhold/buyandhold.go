// Package buyandhold buys every symbol once on its first quote and holds
// until the end of the run
package buyandhold

import (
	"fmt"

	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

const (
	// Name is the strategy name
	Name        = "buyandhold"
	description = `Buys a fixed quantity of each symbol with a market order on its first quote, then holds. Useful as a benchmark for other strategies`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	bought map[string]bool
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnMarket buys each symbol the first time it is quoted
func (s *Strategy) OnMarket(m *market.Market, ctx base.Context) error {
	if s.bought == nil {
		s.bought = make(map[string]bool)
	}
	for _, sym := range m.Symbols() {
		if s.bought[sym] {
			continue
		}
		if _, err := ctx.Order(order.Request{Symbol: sym, Quantity: s.Quantity(), Type: order.Market}); err != nil {
			return fmt.Errorf("%s: %w", sym, err)
		}
		s.bought[sym] = true
	}
	return nil
}

// OnFinished logs the final portfolio value
func (s *Strategy) OnFinished(ctx base.Context) error {
	ctx.Logger().Infof(log.Strategy, "%s finished holding %d symbols, portfolio value %v", Name, len(s.bought), ctx.Portfolio().Value())
	return nil
}

// SetCustomSettings accepts only the order quantity
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		if k != base.QuantityKey {
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
		if err := s.SetQuantity(v); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults resets state and sets the quantity to one
func (s *Strategy) SetDefaults() {
	s.bought = make(map[string]bool)
	_ = s.SetQuantity(base.DefaultQuantity)
}
