package base

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio/position"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

var (
	// ErrCustomSettingsUnsupported used when custom settings are found in the config when they shouldn't be
	ErrCustomSettingsUnsupported = errors.New("custom settings not supported")
	// ErrStrategyNotFound used when strategy specified in config does not exist
	ErrStrategyNotFound = errors.New("not found. Please ensure the strategy name is spelled properly in your config")
	// ErrInvalidCustomSettings used when bad custom settings are found in the config
	ErrInvalidCustomSettings = errors.New("invalid custom settings in config")
)

// Context is the strategy's view of the running simulation. Order and Cancel
// feed the event queue; the portfolio already reflects every fill dispatched
// so far
type Context interface {
	Order(order.Request) (uuid.UUID, error)
	Cancel(uuid.UUID) error
	Portfolio() Portfolio
	Now() time.Time
	Logger() *log.Logger
}

// Portfolio is the read-only accounting a strategy may consult. Buying power
// is not enforced by the simulator, strategies size their own orders
type Portfolio interface {
	Cash() decimal.Decimal
	Value() decimal.Decimal
	Position(symbol string) position.Position
}

// Strategy is base implementation of the Handler interface
type Strategy struct {
	quantity int64
}
