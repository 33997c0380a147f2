package strategies

import (
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
)

// Handler defines all functions required to run strategies against data events
type Handler interface {
	Name() string
	Description() string
	// OnMarket is called for every market event before the exchange evaluates
	// resting orders against it
	OnMarket(*market.Market, base.Context) error
	// OnFill is called after the portfolio has applied the fill
	OnFill(*fill.Fill, base.Context) error
	// OnFinished is called exactly once when the data source is exhausted
	OnFinished(base.Context) error
	SetCustomSettings(map[string]any) error
	SetDefaults()
}

// NewDayHandler is implemented by strategies that track resting orders and
// need to know they were cleared at rollover
type NewDayHandler interface {
	OnNewDay(*newday.NewDay, base.Context) error
}
