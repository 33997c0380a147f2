package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
)

// New returns an empty series for symbol with room for capacity quotes
func New(symbol string, capacity int) *Series {
	if capacity < 0 {
		capacity = 0
	}
	return &Series{symbol: symbol, quotes: make([]market.Quote, 0, capacity)}
}

// Symbol returns the instrument the series holds
func (s *Series) Symbol() string {
	return s.symbol
}

// Append validates and stores a quote. Quotes sharing a timestamp are kept in
// arrival order
func (s *Series) Append(q market.Quote) error {
	if q.Symbol != s.symbol {
		return fmt.Errorf("%w: %q into %q", ErrSymbolMismatch, q.Symbol, s.symbol)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	if n := len(s.quotes); n > 0 && q.Time.Before(s.quotes[n-1].Time) {
		return fmt.Errorf("%s %w: %v before %v", s.symbol, ErrOutOfOrder, q.Time, s.quotes[n-1].Time)
	}
	s.quotes = append(s.quotes, q)
	return nil
}

// Len returns the number of quotes stored
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.quotes)
}

// At returns the quote at index i
func (s *Series) At(i int) market.Quote {
	return s.quotes[i]
}

// Times returns every quote timestamp in order
func (s *Series) Times() []time.Time {
	resp := make([]time.Time, len(s.quotes))
	for i := range s.quotes {
		resp[i] = s.quotes[i].Time
	}
	return resp
}

// AsOf returns the most recent quote at or before t
func (s *Series) AsOf(t time.Time) (market.Quote, bool) {
	if s.Len() == 0 {
		return market.Quote{}, false
	}
	idx := sort.Search(len(s.quotes), func(i int) bool {
		return s.quotes[i].Time.After(t)
	})
	if idx == 0 {
		return market.Quote{}, false
	}
	return s.quotes[idx-1], true
}

// AtOrAfter returns the first quote at or after t
func (s *Series) AtOrAfter(t time.Time) (market.Quote, bool) {
	if s.Len() == 0 {
		return market.Quote{}, false
	}
	idx := sort.Search(len(s.quotes), func(i int) bool {
		return !s.quotes[i].Time.Before(t)
	})
	if idx == len(s.quotes) {
		return market.Quote{}, false
	}
	return s.quotes[idx], true
}

// Last returns the newest quote
func (s *Series) Last() (market.Quote, bool) {
	if s.Len() == 0 {
		return market.Quote{}, false
	}
	return s.quotes[len(s.quotes)-1], true
}
