package event

import (
	"time"
)

// Base is the fundamental event fields shared by every event kind
type Base struct {
	Offset int64     `json:"-"`
	Time   time.Time `json:"time"`
	Reason string    `json:"reason,omitempty"`
}
