package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/config"
	"github.com/thrasher-corp/tickbacktester/data"
	quotecsv "github.com/thrasher-corp/tickbacktester/data/quote/csv"
	quotedb "github.com/thrasher-corp/tickbacktester/data/quote/database"
	"github.com/thrasher-corp/tickbacktester/database"
	"github.com/thrasher-corp/tickbacktester/engine"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/log"
	"github.com/urfave/cli/v2"
)

const monitorShutdownTimeout = 5 * time.Second

var errNoDatabaseConfig = errors.New("config has no database-data section")

var runCommand = &cli.Command{
	Name:   "run",
	Usage:  "executes the configured strategy against historical or live quotes",
	Action: runBacktest,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "write the run summary and fill log as json to this file",
		},
		&cli.BoolFlag{
			Name:  "hold",
			Usage: "keep the monitor serving after the run completes until interrupted",
		},
	},
}

var strategiesCommand = &cli.Command{
	Name:  "strategies",
	Usage: "lists the bundled strategies",
	Action: func(*cli.Context) error {
		for _, s := range strategies.GetStrategies() {
			fmt.Printf("%-12s %s\n", s.Name(), s.Description())
		}
		return nil
	},
}

var migrateCommand = &cli.Command{
	Name:      "migrate",
	Usage:     "runs a database migration command such as up, down, status or reset",
	ArgsUsage: "<command> [args]",
	Action:    migrate,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Value: database.MigrationDir,
			Usage: "directory holding the goose migrations",
		},
	},
}

var dateRangeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "dir",
		Usage:    "csv directory laid out as <dir>/<SYMBOL>/<YYYY-MM-DD>.csv",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "symbols",
		Usage: "comma separated symbols, defaults to the config symbols",
	},
	&cli.TimestampFlag{
		Name:   "start",
		Layout: common.DateFormat,
		Usage:  "first day, defaults to the config start date",
	},
	&cli.TimestampFlag{
		Name:   "end",
		Layout: common.DateFormat,
		Usage:  "last day, defaults to the config end date",
	},
}

var importCommand = &cli.Command{
	Name:   "import",
	Usage:  "copies csv quote files into the configured database",
	Action: importQuotes,
	Flags:  dateRangeFlags,
}

var exportCommand = &cli.Command{
	Name:   "export",
	Usage:  "writes quotes from the configured database out as csv files",
	Action: exportQuotes,
	Flags:  dateRangeFlags,
}

// loadConfig reads the env file and config and builds the logger the config
// asks for
func loadConfig() (*config.Config, *log.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.ReadConfigFromFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.LogSettings.Level = "debug"
	}
	logger, err := log.New(cfg.LogSettings)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runBacktest(c *cli.Context) (err error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	cfg.PrintSetting(logger)

	bt, err := engine.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	manager := engine.SetupRunManager()
	if err = manager.AddRun(bt); err != nil {
		return common.AppendError(err, bt.Close())
	}
	defer func() {
		if clearErr := manager.ClearRun(bt.MetaData.ID); clearErr != nil {
			logger.Warnf(log.Backtester, "clearing run: %v", clearErr)
		}
	}()

	if cfg.MonitorSettings.Enabled {
		var monitor *engine.Monitor
		monitor, err = engine.NewMonitor(manager, logger, cfg.MonitorSettings.AllowedOrigins)
		if err != nil {
			return err
		}
		var addr string
		addr, err = monitor.Start(cfg.MonitorSettings.ListenAddress)
		if err != nil {
			return err
		}
		logger.Infof(log.Monitor, "monitor listening on http://%s", addr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), monitorShutdownTimeout)
			defer cancel()
			err = common.AppendError(err, monitor.Shutdown(ctx))
		}()
	}

	runErr := bt.ExecuteStrategy(c.Context, true)
	if errors.Is(runErr, engine.ErrRunStopped) || errors.Is(runErr, context.Canceled) {
		logger.Warnf(log.Backtester, "run %v stopped before completion", bt.MetaData.ID)
		runErr = nil
	}
	if runErr != nil {
		return runErr
	}

	if out := c.String("output"); out != "" {
		if err = writeOutput(bt, out); err != nil {
			return err
		}
		logger.Infof(log.Backtester, "results written to %s", out)
	}
	if c.Bool("hold") && cfg.MonitorSettings.Enabled {
		logger.Infof(log.Monitor, "run complete, holding monitor open until interrupted")
		<-c.Context.Done()
	}
	return nil
}

func writeOutput(bt *engine.BackTest, path string) error {
	out, err := bt.Statistic.Serialise()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o600)
}

func openDatabase(cfg *config.Config, logger *log.Logger) (*database.Instance, error) {
	if cfg.DataSettings.DatabaseData == nil {
		return nil, errNoDatabaseConfig
	}
	return database.Connect(cfg.DataSettings.DatabaseData, logger)
}

func migrate(c *cli.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	command := "up"
	var args []string
	if c.Args().Present() {
		command = c.Args().First()
		args = c.Args().Tail()
	}
	return common.AppendError(db.Migrate(command, c.String("dir"), args...), db.CloseConnection())
}

type dateRange struct {
	dir     string
	symbols []string
	start   time.Time
	end     time.Time
}

// parseDateRange reads the shared import and export flags, falling back to
// the config for anything unset
func parseDateRange(c *cli.Context, cfg *config.Config) dateRange {
	r := dateRange{
		dir:     c.String("dir"),
		symbols: cfg.DataSettings.Symbols,
		start:   cfg.DataSettings.StartDate,
		end:     cfg.DataSettings.EndDate,
	}
	if v := c.String("symbols"); v != "" {
		r.symbols = strings.Split(v, ",")
	}
	if t := c.Timestamp("start"); t != nil {
		r.start = *t
	}
	if t := c.Timestamp("end"); t != nil {
		r.end = *t
	}
	r.start = data.TruncateDay(r.start)
	r.end = data.TruncateDay(r.end)
	return r
}

func (r *dateRange) validate() error {
	if r.start.IsZero() || r.end.IsZero() {
		return fmt.Errorf("%w: set --start and --end or the config dates", data.ErrInvalidDateRange)
	}
	if r.end.Before(r.start) {
		return fmt.Errorf("%w %v %v", data.ErrInvalidDateRange, r.start.Format(common.DateFormat), r.end.Format(common.DateFormat))
	}
	return nil
}

func importQuotes(c *cli.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	r := parseDateRange(c, cfg)
	if err = r.validate(); err != nil {
		return err
	}
	if len(r.symbols) == 0 {
		return data.ErrNoSymbols
	}
	files, err := quotecsv.NewLoader(r.dir)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.CloseConnection(); closeErr != nil {
			logger.Errorf(log.Database, "closing database: %v", closeErr)
		}
	}()
	store, err := quotedb.NewLoader(db)
	if err != nil {
		return err
	}
	var total int64
	for day := r.start; !day.After(r.end); day = day.AddDate(0, 0, 1) {
		for _, sym := range r.symbols {
			if err := c.Context.Err(); err != nil {
				return err
			}
			path := files.Path(sym, day)
			quotes, err := quotecsv.LoadFile(path, sym)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			if len(quotes) == 0 {
				continue
			}
			n, err := store.Insert(c.Context, quotes, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			total += n
			logger.Infof(log.Database, "%s %v imported %d of %d quotes", sym, day.Format(common.DateFormat), n, len(quotes))
		}
	}
	logger.Infof(log.Database, "import complete, %d quotes written", total)
	return nil
}

func exportQuotes(c *cli.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	r := parseDateRange(c, cfg)
	if err = r.validate(); err != nil {
		return err
	}
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.CloseConnection(); closeErr != nil {
			logger.Errorf(log.Database, "closing database: %v", closeErr)
		}
	}()
	store, err := quotedb.NewLoader(db)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	files, err := quotecsv.NewLoader(r.dir)
	if err != nil {
		return err
	}
	for day := r.start; !day.After(r.end); day = day.AddDate(0, 0, 1) {
		symbols := r.symbols
		if len(symbols) == 0 {
			if symbols, err = store.Symbols(c.Context, day); err != nil {
				return err
			}
		}
		if len(symbols) == 0 {
			continue
		}
		d, err := store.LoadDay(c.Context, day, symbols)
		if errors.Is(err, data.ErrNoDataForDay) {
			continue
		}
		if err != nil {
			return err
		}
		for sym, ser := range d.Series {
			quotes := make([]market.Quote, ser.Len())
			for i := range quotes {
				quotes[i] = ser.At(i)
			}
			if err := writeQuoteFile(files.Path(sym, day), quotes); err != nil {
				return err
			}
			logger.Infof(log.Data, "%s %v exported %d quotes", sym, day.Format(common.DateFormat), len(quotes))
		}
	}
	return nil
}

func writeQuoteFile(path string, quotes []market.Quote) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = common.AppendError(err, f.Close())
	}()
	return quotecsv.Write(f, quotes)
}
