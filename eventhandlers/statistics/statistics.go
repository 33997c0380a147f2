package statistics

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/common"
	gctmath "github.com/thrasher-corp/tickbacktester/common/math"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/log"
)

// New returns a statistic reading valuations from the portfolio. The
// risk-free rate is annual and converted to a daily rate for the ratios
func New(runID uuid.UUID, p Valuer, riskFreeRate float64) (*Statistic, error) {
	if p == nil {
		return nil, fmt.Errorf("%w %w", common.ErrNilPointer, errNoPortfolio)
	}
	return &Statistic{
		runID:        runID,
		portfolio:    p,
		riskFreeRate: riskFreeRate,
	}, nil
}

// Reset returns the struct to defaults
func (s *Statistic) Reset() {
	s.m.Lock()
	defer s.m.Unlock()
	s.equity = nil
	s.dailyCloses = nil
	s.fills = nil
	s.buyFills = 0
	s.sellFills = 0
	s.marketEvents = 0
	s.lastOffset = 0
	s.final = nil
}

// SetStrategyName sets the name for statistical identification
func (s *Statistic) SetStrategyName(name string) {
	s.m.Lock()
	s.strategyName = name
	s.m.Unlock()
}

func (s *Statistic) checkOffset(e common.Event) error {
	o := e.GetOffset()
	if o == 0 {
		return nil
	}
	if o <= s.lastOffset {
		return fmt.Errorf("%w offset %d", ErrAlreadyProcessed, o)
	}
	s.lastOffset = o
	return nil
}

// OnMarket records the portfolio value after it was marked to the event
func (s *Statistic) OnMarket(m *market.Market) error {
	if m == nil {
		return common.ErrNilEvent
	}
	s.m.Lock()
	defer s.m.Unlock()
	if err := s.checkOffset(m); err != nil {
		return err
	}
	s.marketEvents++
	s.equity = append(s.equity, ValueAtTime{Time: m.GetTime(), Value: s.portfolio.Value()})
	return nil
}

// OnFill adds the fill to the results log
func (s *Statistic) OnFill(f *fill.Fill) error {
	if f == nil {
		return common.ErrNilEvent
	}
	s.m.Lock()
	defer s.m.Unlock()
	if err := s.checkOffset(f); err != nil {
		return err
	}
	if f.Side() == common.Buy {
		s.buyFills++
	} else {
		s.sellFills++
	}
	s.fills = append(s.fills, FillRecord{
		Time:       f.GetTime(),
		OrderID:    f.OrderID,
		Symbol:     f.Symbol,
		Quantity:   f.Quantity,
		Price:      f.Price,
		Commission: f.Commission,
		Slippage:   f.Slippage,
		Reason:     f.GetReason(),
	})
	return nil
}

// OnNewDay closes the previous trading day at the last recorded valuation
func (s *Statistic) OnNewDay(n *newday.NewDay) error {
	if n == nil {
		return common.ErrNilEvent
	}
	s.m.Lock()
	defer s.m.Unlock()
	if err := s.checkOffset(n); err != nil {
		return err
	}
	s.closeDay()
	return nil
}

func (s *Statistic) closeDay() {
	if len(s.equity) == 0 {
		return
	}
	last := s.equity[len(s.equity)-1]
	if len(s.dailyCloses) > 0 && !last.Time.After(s.dailyCloses[len(s.dailyCloses)-1].Time) {
		return
	}
	s.dailyCloses = append(s.dailyCloses, last)
}

// CalculateAllResults closes the final day and freezes the summary
func (s *Statistic) CalculateAllResults() (*Summary, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if len(s.equity) == 0 {
		return nil, ErrNoEquity
	}
	s.closeDay()
	sum := s.summarise()
	sum.Finished = true
	s.final = &sum
	return &sum, nil
}

// Summary returns the final results once calculated, otherwise the results
// so far
func (s *Statistic) Summary() Summary {
	s.m.RLock()
	defer s.m.RUnlock()
	if s.final != nil {
		return *s.final
	}
	return s.summarise()
}

func (s *Statistic) summarise() Summary {
	snap := s.portfolio.Snapshot()
	sum := Summary{
		RunID:         s.runID,
		StrategyName:  s.strategyName,
		InitialCash:   snap.InitialCash,
		FinalValue:    snap.Value,
		Cash:          snap.Cash,
		RealisedPNL:   snap.Realised,
		UnrealisedPNL: snap.Unrealised,
		Commission:    snap.Commission,
		TotalFills:    int64(len(s.fills)),
		BuyFills:      s.buyFills,
		SellFills:     s.sellFills,
		MarketEvents:  s.marketEvents,
		TradingDays:   len(s.dailyCloses),
	}
	initial := snap.InitialCash.InexactFloat64()
	sum.TotalReturn = gctmath.CalculatePercentageGainOrLoss(snap.Value.InexactFloat64(), initial)
	if len(s.equity) == 0 {
		return sum
	}
	sum.StartTime = s.equity[0].Time
	sum.EndTime = s.equity[len(s.equity)-1].Time

	curve := make([]float64, len(s.equity))
	for i := range s.equity {
		curve[i] = s.equity[i].Value.InexactFloat64()
	}
	dd, peak, trough := gctmath.MaxDrawdown(curve)
	sum.MaxDrawdown = Drawdown{
		Percent: dd * 100,
		Highest: s.equity[peak],
		Lowest:  s.equity[trough],
	}

	closes := make([]float64, 0, len(s.dailyCloses)+1)
	closes = append(closes, initial)
	for i := range s.dailyCloses {
		closes = append(closes, s.dailyCloses[i].Value.InexactFloat64())
	}
	sum.DailyReturns = gctmath.Returns(closes)
	dailyRFR := s.riskFreeRate / TradingDaysPerYear
	avg := gctmath.ArithmeticAverage(sum.DailyReturns)
	sum.SharpeRatio = gctmath.Annualise(gctmath.CalculateSharpeRatio(sum.DailyReturns, dailyRFR, avg), TradingDaysPerYear)
	sum.SortinoRatio = gctmath.Annualise(gctmath.CalculateSortinoRatio(sum.DailyReturns, dailyRFR, avg), TradingDaysPerYear)
	return sum
}

// Fills returns a copy of the fill log
func (s *Statistic) Fills() []FillRecord {
	s.m.RLock()
	defer s.m.RUnlock()
	resp := make([]FillRecord, len(s.fills))
	copy(resp, s.fills)
	return resp
}

// PrintResult outputs the summary through the run's logger
func (s *Statistic) PrintResult(l *log.Logger) {
	if l == nil {
		return
	}
	sum := s.Summary()
	l.Infof(log.Statistics, "------------------Strategy-----------------------------------")
	l.Infof(log.Statistics, "Run: %v", sum.RunID)
	l.Infof(log.Statistics, "Strategy Name: %v", sum.StrategyName)
	l.Infof(log.Statistics, "Period: %v to %v over %d trading days", sum.StartTime, sum.EndTime, sum.TradingDays)
	l.Infof(log.Statistics, "------------------Total Results------------------------------")
	l.Infof(log.Statistics, "Initial cash: %v", sum.InitialCash)
	l.Infof(log.Statistics, "Final value: %v (%.4f%%)", sum.FinalValue.Round(4), sum.TotalReturn)
	l.Infof(log.Statistics, "Realised PNL: %v", sum.RealisedPNL.Round(4))
	l.Infof(log.Statistics, "Unrealised PNL: %v", sum.UnrealisedPNL.Round(4))
	l.Infof(log.Statistics, "Commission: %v", sum.Commission.Round(4))
	l.Infof(log.Statistics, "------------------Fills--------------------------------------")
	l.Infof(log.Statistics, "Total buy fills: %v", sum.BuyFills)
	l.Infof(log.Statistics, "Total sell fills: %v", sum.SellFills)
	l.Infof(log.Statistics, "Total fills: %v", sum.TotalFills)
	l.Infof(log.Statistics, "------------------Ratios-------------------------------------")
	l.Infof(log.Statistics, "Sharpe ratio: %.4f", sum.SharpeRatio)
	l.Infof(log.Statistics, "Sortino ratio: %.4f", sum.SortinoRatio)
	if sum.MaxDrawdown.Percent > 0 {
		l.Infof(log.Statistics, "------------------Biggest Drawdown---------------------------")
		l.Infof(log.Statistics, "Highest value: %v at %v", sum.MaxDrawdown.Highest.Value.Round(4), sum.MaxDrawdown.Highest.Time)
		l.Infof(log.Statistics, "Lowest value: %v at %v", sum.MaxDrawdown.Lowest.Value.Round(4), sum.MaxDrawdown.Lowest.Time)
		l.Infof(log.Statistics, "Calculated drawdown: %.2f%%", sum.MaxDrawdown.Percent)
	}
}

// Serialise outputs the summary and fill log as indented JSON
func (s *Statistic) Serialise() (string, error) {
	resp, err := json.MarshalIndent(struct {
		Summary Summary      `json:"summary"`
		Fills   []FillRecord `json:"fills"`
	}{
		Summary: s.Summary(),
		Fills:   s.Fills(),
	}, "", " ")
	if err != nil {
		return "", err
	}
	return string(resp), nil
}
