package log

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Sub logger names. Each component logs under its own name so output can be
// filtered per concern
const (
	Backtester = "BACKTESTER"
	Setup      = "SETUP"
	Data       = "DATA"
	Execution  = "EXECUTION"
	Portfolio  = "PORTFOLIO"
	Strategy   = "STRATEGY"
	Statistics = "STATISTICS"
	Live       = "LIVE"
	Database   = "DATABASE"
	Monitor    = "MONITOR"
)

// Output encodings
const (
	ConsoleFormat = "console"
	JSONFormat    = "json"
)

var (
	errUnknownFormat = errors.New("unknown log format")
	errInvalidLevel  = errors.New("invalid log level")
)

// Config holds logger settings for a run
type Config struct {
	Level       string   `mapstructure:"level" json:"level"`
	Format      string   `mapstructure:"format" json:"format"`
	OutputPaths []string `mapstructure:"outputPaths" json:"outputPaths"`
}

// Logger is a run scoped logger. It is passed explicitly to every component
// instead of living in package state, so concurrent runs never share output
// settings
type Logger struct {
	base *zap.Logger
	subs sync.Map // name -> *zap.SugaredLogger
}
