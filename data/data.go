package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data/series"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/log"
)

// NewSource sets up a historical data source. Dates are truncated to whole
// days in UTC
func NewSource(env *common.Env, loader DayLoader, sink common.EventSink, s Settings) (*Source, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, fmt.Errorf("%w day loader", common.ErrNilPointer)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w event sink", common.ErrNilPointer)
	}
	if len(s.Symbols) == 0 {
		return nil, ErrNoSymbols
	}
	s.StartDate = TruncateDay(s.StartDate)
	s.EndDate = TruncateDay(s.EndDate)
	if s.EndDate.Before(s.StartDate) {
		return nil, fmt.Errorf("%w %v %v", ErrInvalidDateRange, s.StartDate.Format(common.DateFormat), s.EndDate.Format(common.DateFormat))
	}
	if err := s.validateSession(); err != nil {
		return nil, err
	}
	return &Source{
		env:                env,
		loader:             loader,
		sink:               sink,
		settings:           s,
		continueSimulation: true,
	}, nil
}

// TruncateDay returns midnight UTC of the day t falls on
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Settings) validateSession() error {
	if s.SessionStart < 0 || s.SessionStart >= 24*time.Hour {
		return fmt.Errorf("%w start %v", ErrInvalidSession, s.SessionStart)
	}
	if s.SessionEnd < 0 || s.SessionEnd > 24*time.Hour {
		return fmt.Errorf("%w end %v", ErrInvalidSession, s.SessionEnd)
	}
	if s.SessionEnd > 0 && s.SessionEnd <= s.SessionStart {
		return fmt.Errorf("%w end %v not after start %v", ErrInvalidSession, s.SessionEnd, s.SessionStart)
	}
	return nil
}

// inSession reports whether t falls inside the intraday window of day
func (s *Settings) inSession(day, t time.Time) bool {
	if t.Before(day.Add(s.SessionStart)) {
		return false
	}
	return s.SessionEnd == 0 || t.Before(day.Add(s.SessionEnd))
}

// ContinueSimulation is false once every day up to the end date is consumed
func (s *Source) ContinueSimulation() bool {
	return s.continueSimulation
}

// CurrentDay returns the calendar day currently loaded or being searched
func (s *Source) CurrentDay() time.Time {
	return s.day
}

// Advance appends at most one market event to the sink. When the current day
// is exhausted it rolls forward through the calendar until a day with data is
// found or the end date is passed
func (s *Source) Advance(ctx context.Context) error {
	for s.continueSimulation {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.current != nil && s.idx < len(s.timeline) {
			t := s.timeline[s.idx]
			s.idx++
			return s.emit(t)
		}
		if err := s.rollDay(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) emit(t time.Time) error {
	if err := s.env.Clock.Advance(t); err != nil {
		return fmt.Errorf("%s: %w", s.day.Format(common.DateFormat), err)
	}
	quotes := make(map[string]market.Quote, len(s.current.Series))
	for sym, ser := range s.current.Series {
		if q, ok := ser.AsOf(t); ok {
			quotes[sym] = q
		}
	}
	s.sink.AppendEvent(market.New(t, quotes))
	return nil
}

func (s *Source) rollDay(ctx context.Context) error {
	next := s.settings.StartDate
	if s.started {
		next = s.day.AddDate(0, 0, 1)
	}
	s.started = true
	s.current = nil
	s.timeline = nil
	s.idx = 0
	if next.After(s.settings.EndDate) {
		s.continueSimulation = false
		s.env.Logger.Infof(log.Data, "end date %v reached, no more data", s.settings.EndDate.Format(common.DateFormat))
		return nil
	}
	s.day = next
	d, err := s.loader.LoadDay(ctx, next, s.settings.Symbols)
	if errors.Is(err, ErrNoDataForDay) || (err == nil && d.Empty()) {
		s.env.Logger.Debugf(log.Data, "no data for %v, rolling to next day", next.Format(common.DateFormat))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %v: %w", next.Format(common.DateFormat), err)
	}
	timeline := d.Timeline()
	if s.settings.SessionStart > 0 || s.settings.SessionEnd > 0 {
		filtered := timeline[:0]
		for i := range timeline {
			if s.settings.inSession(next, timeline[i]) {
				filtered = append(filtered, timeline[i])
			}
		}
		timeline = filtered
	}
	if len(timeline) == 0 {
		s.env.Logger.Debugf(log.Data, "no quotes inside session for %v, rolling to next day", next.Format(common.DateFormat))
		return nil
	}
	if !s.lastDataDay.IsZero() {
		s.sink.AppendEvent(newday.New(timeline[0], next, s.lastDataDay))
	}
	s.lastDataDay = next
	s.current = d
	s.timeline = timeline
	s.env.Logger.Infof(log.Data, "loaded %v with %d timestamps across %d symbols", next.Format(common.DateFormat), len(timeline), len(d.Series))
	return nil
}

// HasSymbol reports whether the current day has quotes for symbol
func (s *Source) HasSymbol(symbol string) bool {
	if s.current == nil {
		return false
	}
	return s.current.Series[symbol].Len() > 0
}

// QuoteAsOf returns the latest quote of the current day at or before t
func (s *Source) QuoteAsOf(symbol string, t time.Time) (market.Quote, bool) {
	if !s.HasSymbol(symbol) {
		return market.Quote{}, false
	}
	return s.current.Series[symbol].AsOf(t)
}

// QuoteAtOrAfter returns the first quote of the current day at or after t
func (s *Source) QuoteAtOrAfter(symbol string, t time.Time) (market.Quote, bool) {
	if !s.HasSymbol(symbol) {
		return market.Quote{}, false
	}
	return s.current.Series[symbol].AtOrAfter(t)
}

// NewDayData returns an empty day ready for quotes
func NewDayData(date time.Time) *DayData {
	return &DayData{
		Date:   TruncateDay(date),
		Series: make(map[string]*series.Series),
	}
}

// Add appends a quote to the series of its symbol
func (d *DayData) Add(q market.Quote) error {
	ser, ok := d.Series[q.Symbol]
	if !ok {
		ser = series.New(q.Symbol, 0)
		d.Series[q.Symbol] = ser
	}
	return ser.Append(q)
}

// Empty reports whether the day holds no quotes
func (d *DayData) Empty() bool {
	if d == nil {
		return true
	}
	for _, s := range d.Series {
		if s.Len() > 0 {
			return false
		}
	}
	return true
}

// Timeline returns every distinct quote timestamp of the day in order
func (d *DayData) Timeline() []time.Time {
	var all []time.Time
	for _, s := range d.Series {
		all = append(all, s.Times()...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Before(all[j])
	})
	resp := all[:0]
	for i := range all {
		if len(resp) > 0 && resp[len(resp)-1].Equal(all[i]) {
			continue
		}
		resp = append(resp, all[i])
	}
	return resp
}

// NewMemoryLoader returns a loader holding no days
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{days: make(map[string][]market.Quote)}
}

// Add stores quotes under the day of their timestamp
func (m *MemoryLoader) Add(quotes ...market.Quote) {
	m.m.Lock()
	defer m.m.Unlock()
	for i := range quotes {
		k := TruncateDay(quotes[i].Time).Format(common.DateFormat)
		m.days[k] = append(m.days[k], quotes[i])
	}
}

// LoadDay implements DayLoader
func (m *MemoryLoader) LoadDay(_ context.Context, day time.Time, symbols []string) (*DayData, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	quotes := m.days[TruncateDay(day).Format(common.DateFormat)]
	if len(quotes) == 0 {
		return nil, ErrNoDataForDay
	}
	want := make(map[string]struct{}, len(symbols))
	for i := range symbols {
		want[symbols[i]] = struct{}{}
	}
	d := NewDayData(day)
	for i := range quotes {
		if _, ok := want[quotes[i].Symbol]; !ok {
			continue
		}
		if err := d.Add(quotes[i]); err != nil {
			return nil, err
		}
	}
	return d, nil
}
