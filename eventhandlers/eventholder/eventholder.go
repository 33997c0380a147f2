package eventholder

import (
	"github.com/thrasher-corp/tickbacktester/common"
)

// Reset clears all queued events and the offset counter
func (h *Holder) Reset() {
	h.m.Lock()
	defer h.m.Unlock()
	h.queue = nil
	h.offset = 0
}

// AppendEvent adds an event to the back of the queue and stamps its offset
func (h *Holder) AppendEvent(e common.Event) {
	if e == nil {
		return
	}
	h.m.Lock()
	defer h.m.Unlock()
	h.offset++
	if o, ok := e.(offsetter); ok {
		o.SetOffset(h.offset)
	}
	h.queue = append(h.queue, e)
}

// NextEvent removes and returns the oldest event, or nil when empty
func (h *Holder) NextEvent() common.Event {
	h.m.Lock()
	defer h.m.Unlock()
	if len(h.queue) == 0 {
		return nil
	}
	e := h.queue[0]
	h.queue[0] = nil
	h.queue = h.queue[1:]
	return e
}

// Len returns the number of queued events
func (h *Holder) Len() int {
	h.m.Lock()
	defer h.m.Unlock()
	return len(h.queue)
}
