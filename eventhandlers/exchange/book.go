package exchange

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
)

// NewBook returns an empty resting order book
func NewBook() *Book {
	return &Book{byID: make(map[uuid.UUID]*restingOrder)}
}

// Len returns the number of resting orders
func (b *Book) Len() int {
	return len(b.orders)
}

func (b *Book) add(r *restingOrder) error {
	if _, ok := b.byID[r.order.ID]; ok {
		return fmt.Errorf("%w %s", ErrDuplicateOrderID, r.order.ID)
	}
	b.orders = append(b.orders, r)
	b.byID[r.order.ID] = r
	return nil
}

func (b *Book) remove(id uuid.UUID) bool {
	if _, ok := b.byID[id]; !ok {
		return false
	}
	delete(b.byID, id)
	for i := range b.orders {
		if b.orders[i].order.ID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every resting order and returns how many were removed
func (b *Book) Clear() int {
	n := len(b.orders)
	b.orders = nil
	b.byID = make(map[uuid.UUID]*restingOrder)
	return n
}

// snapshot is iterated while fills remove entries from the book
func (b *Book) snapshot() []*restingOrder {
	resp := make([]*restingOrder, len(b.orders))
	copy(resp, b.orders)
	return resp
}

// View returns the resting orders in submission order
func (b *Book) View() []Resting {
	resp := make([]Resting, len(b.orders))
	for i := range b.orders {
		resp[i] = Resting{
			Order:      b.orders[i].order,
			Filled:     b.orders[i].filled,
			EligibleAt: b.orders[i].eligibleAt,
		}
	}
	return resp
}

func (r *restingOrder) remaining() int64 {
	return r.order.AbsQuantity() - r.filled
}

// record adds qty (unsigned) to the filled amount. It never lets an order
// be filled beyond its original size
func (r *restingOrder) record(qty int64) error {
	if qty <= 0 || qty > r.remaining() {
		return fmt.Errorf("%w: order %s remaining %d fill %d", ErrOverfill, r.order.ID, r.remaining(), qty)
	}
	r.filled += qty
	return nil
}

func (r *restingOrder) isLimit() bool {
	return r.order.Type == order.Limit
}
