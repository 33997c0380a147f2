package event

import (
	"time"
)

// GetOffset returns the queue sequence number of the event
func (b *Base) GetOffset() int64 {
	return b.Offset
}

// SetOffset is called once by the event holder when the event is queued
func (b *Base) SetOffset(o int64) {
	b.Offset = o
}

// GetTime returns the simulated time of the event
func (b *Base) GetTime() time.Time {
	return b.Time
}

// GetReason returns why an event was raised
func (b *Base) GetReason() string {
	return b.Reason
}
