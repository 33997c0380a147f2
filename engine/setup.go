package engine

import (
	"fmt"

	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/config"
	"github.com/thrasher-corp/tickbacktester/data"
	quotecsv "github.com/thrasher-corp/tickbacktester/data/quote/csv"
	quotedb "github.com/thrasher-corp/tickbacktester/data/quote/database"
	"github.com/thrasher-corp/tickbacktester/data/quote/live"
	"github.com/thrasher-corp/tickbacktester/database"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/eventholder"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/commission"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/fillprobability"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/slippage"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/portfolio"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/statistics"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies"
	"github.com/thrasher-corp/tickbacktester/log"
)

// NewFromConfig takes a config and wires every component of a run. Anything
// the run opens, such as a database connection or a websocket feed, is
// released by the run's Close
func NewFromConfig(cfg *config.Config, logger *log.Logger) (bt *BackTest, err error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if logger == nil {
		logger = log.Nop()
	}
	logger.Infof(log.Setup, "loading config...")
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	env, err := common.NewEnv(logger, cfg.Seed)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			err = common.AppendError(err, closers[i]())
		}
	}()

	queue := &eventholder.Holder{}
	dataHandler, closer, err := setupDataHandler(env, cfg, queue)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	exchangeSettings, err := setupExchangeSettings(env, &cfg.ExecutionSettings)
	if err != nil {
		return nil, err
	}
	exch, err := exchange.Setup(env, dataHandler, exchangeSettings)
	if err != nil {
		return nil, err
	}

	p, err := portfolio.New(cfg.PortfolioSettings.InitialCash)
	if err != nil {
		return nil, err
	}
	stats, err := statistics.New(env.RunID, p, cfg.PortfolioSettings.RiskFreeRate)
	if err != nil {
		return nil, err
	}

	strat, err := strategies.LoadStrategyByName(cfg.StrategySettings.Name)
	if err != nil {
		return nil, err
	}
	if len(cfg.StrategySettings.CustomSettings) > 0 {
		if err = strat.SetCustomSettings(cfg.StrategySettings.CustomSettings); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", strat.Name(), err)
		}
	}

	bt, err = New(env, &Components{
		Queue:     queue,
		Data:      dataHandler,
		Exchange:  exch,
		Portfolio: p,
		Strategy:  strat,
		Statistic: stats,
	})
	if err != nil {
		return nil, err
	}
	bt.MetaData.Live = cfg.IsLive()
	for i := range closers {
		bt.AddCloser(closers[i])
	}
	closers = nil
	logger.Infof(log.Setup, "run %v ready with strategy %s on %s data", bt.MetaData.ID, strat.Name(), cfg.DataSettings.Source)
	return bt, nil
}

// setupDataHandler returns the data handler for the configured source and a
// closer for anything it holds open
func setupDataHandler(env *common.Env, cfg *config.Config, queue *eventholder.Holder) (data.Handler, func() error, error) {
	d := &cfg.DataSettings
	if d.Source == config.LiveSource {
		feed, err := live.NewFeed(env, queue, live.Settings{
			URL:               d.LiveData.URL,
			Subscribe:         d.LiveData.Subscribe,
			Symbols:           d.Symbols,
			BufferSize:        d.LiveData.BufferSize,
			PollTimeout:       d.LiveData.PollTimeout,
			ReconnectInterval: d.LiveData.ReconnectInterval,
			MaxReconnects:     d.LiveData.MaxReconnects,
		})
		if err != nil {
			return nil, nil, err
		}
		return feed, feed.Stop, nil
	}

	var (
		loader data.DayLoader
		closer func() error
	)
	switch d.Source {
	case config.CSVSource:
		l, err := quotecsv.NewLoader(d.CSVData.Directory)
		if err != nil {
			return nil, nil, err
		}
		loader = l
	case config.DatabaseSource:
		db, err := database.Connect(d.DatabaseData, env.Logger)
		if err != nil {
			return nil, nil, err
		}
		l, err := quotedb.NewLoader(db)
		if err != nil {
			return nil, nil, common.AppendError(err, db.CloseConnection())
		}
		loader = l
		closer = db.CloseConnection
	default:
		return nil, nil, fmt.Errorf("%w %q", common.ErrInvalidDataType, d.Source)
	}
	src, err := data.NewSource(env, loader, queue, data.Settings{
		Symbols:      d.Symbols,
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		SessionStart: d.SessionStart,
		SessionEnd:   d.SessionEnd,
	})
	if err != nil {
		if closer != nil {
			err = common.AppendError(err, closer())
		}
		return nil, nil, err
	}
	return src, closer, nil
}

func setupExchangeSettings(env *common.Env, e *config.ExecutionSettings) (exchange.Settings, error) {
	s := exchange.Settings{
		Venue:              e.Venue,
		OrderDelay:         e.OrderDelay,
		RespectQuoteSize:   e.RespectQuoteSize,
		PassiveFillAtLimit: e.PassiveFillAtLimit,
	}
	var err error
	switch e.FillProbability.Policy {
	case config.NeverPolicy:
		s.FillPolicy = fillprobability.Never()
	case config.DecayingPolicy:
		s.FillPolicy, err = fillprobability.NewDecaying(e.FillProbability.Probability, e.FillProbability.HalfLife)
	default:
		s.FillPolicy, err = fillprobability.NewConstant(e.FillProbability.Probability)
	}
	if err != nil {
		return s, fmt.Errorf("fill probability: %w", err)
	}
	switch e.Commission.Model {
	case config.PerUnitModel:
		s.Commission, err = commission.NewPerUnit(e.Commission.Rate, e.Commission.Minimum)
	case config.PercentageModel:
		s.Commission, err = commission.NewPercentage(e.Commission.Rate)
	default:
		s.Commission = commission.None{}
	}
	if err != nil {
		return s, fmt.Errorf("commission: %w", err)
	}
	switch e.Slippage.Model {
	case config.BasisPointModel:
		s.Slippage, err = slippage.NewBasisPoints(e.Slippage.BasisPoints)
	case config.RandomModel:
		s.Slippage, err = slippage.NewRandom(e.Slippage.BasisPoints, e.Slippage.MaxBasisPoints, env.Rand)
	default:
		s.Slippage = slippage.None{}
	}
	if err != nil {
		return s, fmt.Errorf("slippage: %w", err)
	}
	return s, nil
}
