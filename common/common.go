package common

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/clock"
	"github.com/thrasher-corp/tickbacktester/log"
)

// String implements fmt.Stringer
func (k EventKind) String() string {
	switch k {
	case MarketEvent:
		return "MARKET"
	case OrderEvent:
		return "ORDER"
	case FillEvent:
		return "FILL"
	case NewDayEvent:
		return "NEWDAY"
	default:
		return "UNKNOWN"
	}
}

// NewEnv builds the run scoped environment. A nil logger is replaced with a
// no-op logger and the random source is seeded so runs are reproducible
func NewEnv(logger *log.Logger, seed int64) (*Env, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Env{
		RunID:  id,
		Seed:   seed,
		Logger: logger,
		Clock:  clock.NewSimulated(),
		Rand:   rand.New(rand.NewSource(seed)), //nolint:gosec // simulation randomness, reproducibility matters more than entropy
	}, nil
}

// Validate ensures every collaborator is populated
func (e *Env) Validate() error {
	if e == nil {
		return fmt.Errorf("%w Env", ErrNilPointer)
	}
	if e.Logger == nil {
		return fmt.Errorf("%w Env logger", ErrNilPointer)
	}
	if e.Clock == nil {
		return fmt.Errorf("%w Env clock", ErrNilPointer)
	}
	if e.Rand == nil {
		return fmt.Errorf("%w Env random source", ErrNilPointer)
	}
	return nil
}

// AppendError appends an error to a list of existing errors
// Either argument may be nil
func AppendError(original, incoming error) error {
	if incoming == nil {
		return original
	}
	if original == nil {
		return incoming
	}
	return errors.Join(original, incoming)
}

// SideOf returns the side of a signed quantity. Zero has no side
func SideOf(qty int64) Side {
	switch {
	case qty > 0:
		return Buy
	case qty < 0:
		return Sell
	default:
		return ""
	}
}
