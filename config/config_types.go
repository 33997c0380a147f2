package config

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/database"
	"github.com/thrasher-corp/tickbacktester/log"
)

// EnvPrefix is prepended to environment variables overriding config keys,
// for example TICKBT_SEED or TICKBT_EXECUTION_SETTINGS_ORDER_DELAY
const EnvPrefix = "TICKBT"

// Data sources
const (
	CSVSource      = "csv"
	DatabaseSource = "database"
	LiveSource     = "live"
)

// Fill probability policies
const (
	ConstantPolicy = "constant"
	NeverPolicy    = "never"
	DecayingPolicy = "decaying"
)

// Commission and slippage model names
const (
	NoModel         = "none"
	PerUnitModel    = "per-unit"
	PercentageModel = "percentage"
	BasisPointModel = "basis-points"
	RandomModel     = "random"
)

var (
	errNoStrategy         = errors.New("no strategy set")
	errNoSymbols          = errors.New("no symbols set")
	errEmptySymbol        = errors.New("empty symbol")
	errDuplicateSymbol    = errors.New("duplicate symbol")
	errUnknownSource      = errors.New("unknown data source")
	errMissingSourceData  = errors.New("data source settings missing")
	errNoDates            = errors.New("start and end dates must be set")
	errEndBeforeStart     = errors.New("end date is before start date")
	errNegativeCash       = errors.New("initial cash cannot be negative")
	errNegativeDelay      = errors.New("order delay cannot be negative")
	errInvalidProbability = errors.New("fill probability must be between 0 and 1")
	errUnknownPolicy      = errors.New("unknown fill probability policy")
	errUnknownModel       = errors.New("unknown model")
	errNegativeRate       = errors.New("rates cannot be negative")
	errNoListenAddress    = errors.New("monitor enabled without a listen address")
)

// Config defines a run of the backtester
type Config struct {
	Nickname          string            `mapstructure:"nickname" json:"nickname"`
	Goal              string            `mapstructure:"goal" json:"goal"`
	Seed              int64             `mapstructure:"seed" json:"seed"`
	StrategySettings  StrategySettings  `mapstructure:"strategy-settings" json:"strategy-settings"`
	DataSettings      DataSettings      `mapstructure:"data-settings" json:"data-settings"`
	PortfolioSettings PortfolioSettings `mapstructure:"portfolio-settings" json:"portfolio-settings"`
	ExecutionSettings ExecutionSettings `mapstructure:"execution-settings" json:"execution-settings"`
	LogSettings       log.Config        `mapstructure:"log-settings" json:"log-settings"`
	MonitorSettings   MonitorSettings   `mapstructure:"monitor-settings" json:"monitor-settings"`
}

// StrategySettings names the strategy and its custom settings
type StrategySettings struct {
	Name           string         `mapstructure:"name" json:"name"`
	CustomSettings map[string]any `mapstructure:"custom-settings" json:"custom-settings,omitempty"`
}

// DataSettings picks the quote source
type DataSettings struct {
	Source    string    `mapstructure:"source" json:"source"`
	Symbols   []string  `mapstructure:"symbols" json:"symbols"`
	StartDate time.Time `mapstructure:"start-date" json:"start-date"`
	EndDate   time.Time `mapstructure:"end-date" json:"end-date"`
	// SessionStart and SessionEnd bound each day's quotes by time of day.
	// Zero values keep the whole day
	SessionStart time.Duration    `mapstructure:"session-start" json:"session-start"`
	SessionEnd   time.Duration    `mapstructure:"session-end" json:"session-end"`
	CSVData      *CSVData         `mapstructure:"csv-data" json:"csv-data,omitempty"`
	DatabaseData *database.Config `mapstructure:"database-data" json:"database-data,omitempty"`
	LiveData     *LiveData        `mapstructure:"live-data" json:"live-data,omitempty"`
}

// CSVData locates per symbol, per day quote files
type CSVData struct {
	Directory string `mapstructure:"directory" json:"directory"`
}

// LiveData configures the websocket quote feed
type LiveData struct {
	URL               string        `mapstructure:"url" json:"url"`
	Subscribe         string        `mapstructure:"subscribe" json:"subscribe,omitempty"`
	BufferSize        int           `mapstructure:"buffer-size" json:"buffer-size"`
	PollTimeout       time.Duration `mapstructure:"poll-timeout" json:"poll-timeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnect-interval" json:"reconnect-interval"`
	MaxReconnects     int           `mapstructure:"max-reconnects" json:"max-reconnects"`
}

// PortfolioSettings holds the starting balance
type PortfolioSettings struct {
	InitialCash  decimal.Decimal `mapstructure:"initial-cash" json:"initial-cash"`
	RiskFreeRate float64         `mapstructure:"risk-free-rate" json:"risk-free-rate"`
}

// ExecutionSettings configure the simulated exchange
type ExecutionSettings struct {
	Venue              string          `mapstructure:"venue" json:"venue"`
	OrderDelay         time.Duration   `mapstructure:"order-delay" json:"order-delay"`
	FillProbability    FillProbability `mapstructure:"fill-probability" json:"fill-probability"`
	Commission         Commission      `mapstructure:"commission" json:"commission"`
	Slippage           Slippage        `mapstructure:"slippage" json:"slippage"`
	RespectQuoteSize   bool            `mapstructure:"respect-quote-size" json:"respect-quote-size"`
	PassiveFillAtLimit bool            `mapstructure:"passive-fill-at-limit" json:"passive-fill-at-limit"`
}

// FillProbability selects how touched limit orders fill
type FillProbability struct {
	Policy      string          `mapstructure:"policy" json:"policy"`
	Probability float64         `mapstructure:"probability" json:"probability"`
	HalfLife    decimal.Decimal `mapstructure:"half-life" json:"half-life"`
}

// Commission selects the commission model
type Commission struct {
	Model   string          `mapstructure:"model" json:"model"`
	Rate    decimal.Decimal `mapstructure:"rate" json:"rate"`
	Minimum decimal.Decimal `mapstructure:"minimum" json:"minimum"`
}

// Slippage selects the slippage model. Rates are in basis points
type Slippage struct {
	Model          string          `mapstructure:"model" json:"model"`
	BasisPoints    decimal.Decimal `mapstructure:"basis-points" json:"basis-points"`
	MaxBasisPoints decimal.Decimal `mapstructure:"max-basis-points" json:"max-basis-points"`
}

// MonitorSettings configure the run monitor HTTP API
type MonitorSettings struct {
	Enabled        bool     `mapstructure:"enabled" json:"enabled"`
	ListenAddress  string   `mapstructure:"listen-address" json:"listen-address"`
	AllowedOrigins []string `mapstructure:"allowed-origins" json:"allowed-origins"`
}
