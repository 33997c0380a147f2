package order

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventtypes/event"
)

// New validates a request and turns it into an order event submitted at t
func New(id uuid.UUID, req Request, t time.Time) (*Order, error) {
	o := &Order{
		Base:       event.Base{Time: t},
		ID:         id,
		Symbol:     req.Symbol,
		Quantity:   req.Quantity,
		Type:       req.Type,
		LimitPrice: req.LimitPrice,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the order can be accepted by an exchange
func (o *Order) Validate() error {
	if o == nil {
		return common.ErrNilEvent
	}
	if o.ID.IsNil() {
		return ErrNilOrderID
	}
	if o.Symbol == "" {
		return ErrEmptySymbol
	}
	if o.Quantity == 0 {
		return fmt.Errorf("%s %w", o.Symbol, ErrZeroQuantity)
	}
	switch o.Type {
	case Market:
		if !o.LimitPrice.IsZero() {
			return fmt.Errorf("%s market order %w %v", o.Symbol, ErrInvalidLimitPrice, o.LimitPrice)
		}
	case Limit:
		if !o.LimitPrice.IsPositive() {
			return fmt.Errorf("%s limit order %w %v", o.Symbol, ErrInvalidLimitPrice, o.LimitPrice)
		}
	default:
		return fmt.Errorf("%s %w %q", o.Symbol, ErrInvalidOrderType, o.Type)
	}
	return nil
}

// Kind returns OrderEvent
func (o *Order) Kind() common.EventKind {
	return common.OrderEvent
}

// SubmitTime returns when the strategy submitted the order
func (o *Order) SubmitTime() time.Time {
	return o.Time
}

// Side returns the direction of the order
func (o *Order) Side() common.Side {
	return common.SideOf(o.Quantity)
}

// AbsQuantity returns the unsigned size of the order
func (o *Order) AbsQuantity() int64 {
	if o.Quantity < 0 {
		return -o.Quantity
	}
	return o.Quantity
}

// String is used in diagnostics
func (o *Order) String() string {
	if o.Type == Limit {
		return fmt.Sprintf("%s %s %s %d @ %s [%s]", o.Type, o.Side(), o.Symbol, o.AbsQuantity(), o.LimitPrice, o.ID)
	}
	return fmt.Sprintf("%s %s %s %d [%s]", o.Type, o.Side(), o.Symbol, o.AbsQuantity(), o.ID)
}
