package eventholder

import (
	"sync"

	"github.com/thrasher-corp/tickbacktester/common"
)

// Holder contains the event queue for backtester processing. Appends may
// come from any goroutine; NextEvent is only called by the event loop
type Holder struct {
	m      sync.Mutex
	queue  []common.Event
	offset int64
}

// EventHolder interface details what is expected of an event holder to perform
type EventHolder interface {
	common.EventSink
	Reset()
	NextEvent() common.Event
	Len() int
}

type offsetter interface {
	SetOffset(int64)
}
