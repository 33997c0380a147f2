// Package newday holds the event raised when the data source rolls onto a new
// trading day
package newday

import (
	"time"

	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventtypes/event"
)

// NewDay signals the end of PreviousDate and the start of Date
type NewDay struct {
	event.Base
	Date         time.Time `json:"date"`
	PreviousDate time.Time `json:"previousDate"`
}

// New creates a NewDay event raised at t, which is the time of the first
// quote of the new day
func New(t, date, previous time.Time) *NewDay {
	return &NewDay{
		Base:         event.Base{Time: t},
		Date:         date,
		PreviousDate: previous,
	}
}

// Kind returns NewDayEvent
func (n *NewDay) Kind() common.EventKind {
	return common.NewDayEvent
}
