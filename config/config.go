package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/fillprobability"
	"github.com/thrasher-corp/tickbacktester/log"
)

// Defaults applied before the config file and environment are read
const (
	DefaultInitialCash     = 100000
	DefaultBufferSize      = 1024
	DefaultPollTimeout     = 250 * time.Millisecond
	DefaultReconnectPeriod = 5 * time.Second
)

// LoadEnvFile loads KEY=VALUE pairs from the given dotenv files into the
// process environment so TICKBT_ overrides can live beside a config.
// Missing files are skipped
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading env file %s: %w", p, err)
		}
	}
	return nil
}

// ReadConfigFromFile reads a JSON or YAML config. The format is taken from
// the file extension
func ReadConfigFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return decode(v)
}

// LoadConfig parses a config held in memory. format is "json" or "yaml"
func LoadConfig(data []byte, format string) (*Config, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	lc := log.DefaultConfig()
	v.SetDefault("seed", 1)
	v.SetDefault("data-settings.source", CSVSource)
	v.SetDefault("portfolio-settings.initial-cash", DefaultInitialCash)
	v.SetDefault("portfolio-settings.risk-free-rate", 0)
	v.SetDefault("execution-settings.venue", exchange.DefaultVenue)
	v.SetDefault("execution-settings.order-delay", exchange.DefaultOrderDelay)
	v.SetDefault("execution-settings.fill-probability.policy", ConstantPolicy)
	v.SetDefault("execution-settings.fill-probability.probability", fillprobability.DefaultProbability)
	v.SetDefault("execution-settings.commission.model", NoModel)
	v.SetDefault("execution-settings.slippage.model", NoModel)
	v.SetDefault("log-settings.level", lc.Level)
	v.SetDefault("log-settings.format", lc.Format)
	v.SetDefault("log-settings.outputPaths", lc.OutputPaths)
	v.SetDefault("monitor-settings.listen-address", "localhost:9052")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToDateHook,
		toDecimalHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, err
	}
	if c.DataSettings.LiveData != nil {
		c.DataSettings.LiveData.setDefaults()
	}
	return &c, nil
}

func (l *LiveData) setDefaults() {
	if l.BufferSize <= 0 {
		l.BufferSize = DefaultBufferSize
	}
	if l.PollTimeout <= 0 {
		l.PollTimeout = DefaultPollTimeout
	}
	if l.ReconnectInterval <= 0 {
		l.ReconnectInterval = DefaultReconnectPeriod
	}
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// stringToDateHook accepts plain dates as well as RFC3339 timestamps
func stringToDateHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(common.DateFormat, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func toDecimalHook(from, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		return decimal.NewFromString(data.(string))
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(reflect.ValueOf(data).Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(reflect.ValueOf(data).Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromInt(int64(reflect.ValueOf(data).Uint())), nil //nolint:gosec // config values are small
	}
	return data, nil
}

// IsLive returns whether the config streams quotes instead of replaying them
func (c *Config) IsLive() bool {
	return c.DataSettings.Source == LiveSource
}

// Validate checks all config settings
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w config", common.ErrNilPointer)
	}
	var errs error
	errs = common.AppendError(errs, c.validateStrategySettings())
	errs = common.AppendError(errs, c.validateDataSettings())
	errs = common.AppendError(errs, c.validatePortfolioSettings())
	errs = common.AppendError(errs, c.validateExecutionSettings())
	errs = common.AppendError(errs, c.validateMonitorSettings())
	return errs
}

func (c *Config) validateStrategySettings() error {
	if strings.TrimSpace(c.StrategySettings.Name) == "" {
		return errNoStrategy
	}
	return nil
}

func (c *Config) validateDataSettings() error {
	d := &c.DataSettings
	if len(d.Symbols) == 0 {
		return errNoSymbols
	}
	seen := make(map[string]struct{}, len(d.Symbols))
	for i := range d.Symbols {
		d.Symbols[i] = strings.TrimSpace(d.Symbols[i])
		if d.Symbols[i] == "" {
			return fmt.Errorf("%w at index %d", errEmptySymbol, i)
		}
		if _, ok := seen[d.Symbols[i]]; ok {
			return fmt.Errorf("%w %s", errDuplicateSymbol, d.Symbols[i])
		}
		seen[d.Symbols[i]] = struct{}{}
	}
	switch d.Source {
	case CSVSource:
		if d.CSVData == nil || d.CSVData.Directory == "" {
			return fmt.Errorf("%w %s directory", errMissingSourceData, d.Source)
		}
	case DatabaseSource:
		if d.DatabaseData == nil {
			return fmt.Errorf("%w %s", errMissingSourceData, d.Source)
		}
		if err := d.DatabaseData.Validate(); err != nil {
			return err
		}
	case LiveSource:
		if d.LiveData == nil || d.LiveData.URL == "" {
			return fmt.Errorf("%w %s url", errMissingSourceData, d.Source)
		}
		return nil
	default:
		return fmt.Errorf("%w %q", errUnknownSource, d.Source)
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return errNoDates
	}
	if d.EndDate.Before(d.StartDate) {
		return fmt.Errorf("%w %v %v", errEndBeforeStart, d.StartDate.Format(common.DateFormat), d.EndDate.Format(common.DateFormat))
	}
	return nil
}

func (c *Config) validatePortfolioSettings() error {
	if c.PortfolioSettings.InitialCash.IsNegative() {
		return fmt.Errorf("%w %v", errNegativeCash, c.PortfolioSettings.InitialCash)
	}
	return nil
}

func (c *Config) validateExecutionSettings() error {
	e := &c.ExecutionSettings
	if e.OrderDelay < 0 {
		return fmt.Errorf("%w %v", errNegativeDelay, e.OrderDelay)
	}
	switch e.FillProbability.Policy {
	case ConstantPolicy, DecayingPolicy:
		if p := e.FillProbability.Probability; p < 0 || p > 1 {
			return fmt.Errorf("%w %v", errInvalidProbability, p)
		}
	case NeverPolicy:
	default:
		return fmt.Errorf("%w %q", errUnknownPolicy, e.FillProbability.Policy)
	}
	switch e.Commission.Model {
	case NoModel, PerUnitModel, PercentageModel:
	default:
		return fmt.Errorf("commission %w %q", errUnknownModel, e.Commission.Model)
	}
	if e.Commission.Rate.IsNegative() || e.Commission.Minimum.IsNegative() {
		return fmt.Errorf("commission %w", errNegativeRate)
	}
	switch e.Slippage.Model {
	case NoModel, BasisPointModel, RandomModel:
	default:
		return fmt.Errorf("slippage %w %q", errUnknownModel, e.Slippage.Model)
	}
	if e.Slippage.BasisPoints.IsNegative() || e.Slippage.MaxBasisPoints.IsNegative() {
		return fmt.Errorf("slippage %w", errNegativeRate)
	}
	return nil
}

func (c *Config) validateMonitorSettings() error {
	if c.MonitorSettings.Enabled && c.MonitorSettings.ListenAddress == "" {
		return errNoListenAddress
	}
	return nil
}

// PrintSetting logs the loaded settings
func (c *Config) PrintSetting(l *log.Logger) {
	l.Infof(log.Setup, "-------------------------------------------------------------")
	l.Infof(log.Setup, "------------------Backtester Settings------------------------")
	l.Infof(log.Setup, "Strategy: %s", c.StrategySettings.Name)
	if c.Nickname != "" {
		l.Infof(log.Setup, "Nickname: %s", c.Nickname)
	}
	if c.Goal != "" {
		l.Infof(log.Setup, "Goal: %s", c.Goal)
	}
	for k, v := range c.StrategySettings.CustomSettings {
		l.Infof(log.Setup, "%s: %v", k, v)
	}
	l.Infof(log.Setup, "Symbols: %s", strings.Join(c.DataSettings.Symbols, ","))
	l.Infof(log.Setup, "Data source: %s", c.DataSettings.Source)
	if !c.IsLive() {
		l.Infof(log.Setup, "Dates: %v to %v", c.DataSettings.StartDate.Format(common.DateFormat), c.DataSettings.EndDate.Format(common.DateFormat))
	}
	l.Infof(log.Setup, "Initial cash: %v", c.PortfolioSettings.InitialCash)
	l.Infof(log.Setup, "Order delay: %v", c.ExecutionSettings.OrderDelay)
	l.Infof(log.Setup, "Fill probability: %s %v", c.ExecutionSettings.FillProbability.Policy, c.ExecutionSettings.FillProbability.Probability)
	l.Infof(log.Setup, "Commission: %s %v", c.ExecutionSettings.Commission.Model, c.ExecutionSettings.Commission.Rate)
	l.Infof(log.Setup, "Slippage: %s %v", c.ExecutionSettings.Slippage.Model, c.ExecutionSettings.Slippage.BasisPoints)
	l.Infof(log.Setup, "Seed: %d", c.Seed)
}
