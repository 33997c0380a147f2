package base

import (
	"fmt"

	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
)

// QuantityKey is the custom setting every bundled strategy uses for order size
const QuantityKey = "quantity"

// DefaultQuantity is the order size when none is configured
const DefaultQuantity = 1

// OnFill does nothing by default
func (s *Strategy) OnFill(*fill.Fill, Context) error {
	return nil
}

// OnFinished does nothing by default
func (s *Strategy) OnFinished(Context) error {
	return nil
}

// Quantity returns the configured order size
func (s *Strategy) Quantity() int64 {
	if s.quantity <= 0 {
		return DefaultQuantity
	}
	return s.quantity
}

// SetQuantity parses an order size from a custom settings value. Numbers
// decoded from JSON or YAML arrive as float64 or int
func (s *Strategy) SetQuantity(v any) error {
	var q int64
	switch n := v.(type) {
	case float64:
		q = int64(n)
		if float64(q) != n {
			return fmt.Errorf("%w %s must be a whole number: %v", ErrInvalidCustomSettings, QuantityKey, v)
		}
	case int:
		q = int64(n)
	case int64:
		q = n
	default:
		return fmt.Errorf("%w %s could not be parsed: %v", ErrInvalidCustomSettings, QuantityKey, v)
	}
	if q <= 0 {
		return fmt.Errorf("%w %s must be positive: %v", ErrInvalidCustomSettings, QuantityKey, v)
	}
	s.quantity = q
	return nil
}

// ParseFloat reads a positive number from a custom settings value
func ParseFloat(key string, v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("%w provided %s value could not be parsed: %v", ErrInvalidCustomSettings, key, v)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w provided %s value must be positive: %v", ErrInvalidCustomSettings, key, v)
	}
	return f, nil
}
