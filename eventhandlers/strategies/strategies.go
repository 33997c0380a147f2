package strategies

import (
	"fmt"
	"strings"

	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/buyandhold"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/meanrevert"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/rsi"
)

// LoadStrategyByName returns a fresh strategy with defaults applied. Each
// call returns a new instance so concurrent runs never share state
func LoadStrategyByName(name string) (Handler, error) {
	for _, s := range GetStrategies() {
		if !strings.EqualFold(name, s.Name()) {
			continue
		}
		s.SetDefaults()
		return s, nil
	}
	return nil, fmt.Errorf("strategy '%v' %w", name, base.ErrStrategyNotFound)
}

// GetStrategies returns a new instance of every bundled strategy
func GetStrategies() []Handler {
	return []Handler{
		new(buyandhold.Strategy),
		new(rsi.Strategy),
		new(meanrevert.Strategy),
	}
}
