package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultConfig logs info and above to stdout in console format
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      ConsoleFormat,
		OutputPaths: []string{"stdout"},
	}
}

// New builds a logger from config
func New(cfg Config) (*Logger, error) {
	var lvl zapcore.Level
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("%w %q", errInvalidLevel, cfg.Level)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.Sampling = nil
	switch cfg.Format {
	case "", ConsoleFormat:
		zc.Encoding = ConsoleFormat
	case JSONFormat:
		zc.Encoding = JSONFormat
	default:
		return nil, fmt.Errorf("%w %q", errUnknownFormat, cfg.Format)
	}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	z, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return NewFromZap(z), nil
}

// NewFromZap wraps an existing zap logger
func NewFromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{base: z}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return NewFromZap(zap.NewNop())
}

func (l *Logger) sub(name string) *zap.SugaredLogger {
	if s, ok := l.subs.Load(name); ok {
		return s.(*zap.SugaredLogger) //nolint:forcetypeassert // only *zap.SugaredLogger is stored
	}
	s, _ := l.subs.LoadOrStore(name, l.base.Named(name).Sugar())
	return s.(*zap.SugaredLogger) //nolint:forcetypeassert // only *zap.SugaredLogger is stored
}

// Debugf logs at debug level under the named sub logger
func (l *Logger) Debugf(sub, format string, args ...any) {
	l.sub(sub).Debugf(format, args...)
}

// Infof logs at info level under the named sub logger
func (l *Logger) Infof(sub, format string, args ...any) {
	l.sub(sub).Infof(format, args...)
}

// Warnf logs at warn level under the named sub logger
func (l *Logger) Warnf(sub, format string, args ...any) {
	l.sub(sub).Warnf(format, args...)
}

// Errorf logs at error level under the named sub logger
func (l *Logger) Errorf(sub, format string, args ...any) {
	l.sub(sub).Errorf(format, args...)
}

// Sync flushes buffered output
func (l *Logger) Sync() error {
	return l.base.Sync()
}
