package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Level: "loud"})
	assert.ErrorIs(t, err, errInvalidLevel)

	_, err = New(Config{Format: "xml"})
	assert.ErrorIs(t, err, errUnknownFormat)

	l, err := New(Config{Level: "debug", Format: JSONFormat, OutputPaths: []string{"stderr"}})
	require.NoError(t, err, "New must not error")
	require.NotNil(t, l)
}

func TestSubLoggers(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap(zap.New(core))
	l.Infof(Execution, "filled %d", 5)
	l.Warnf(Data, "no data for %s", "2020-01-01")
	l.Debugf(Execution, "debug")
	l.Errorf(Backtester, "boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, Execution, entries[0].LoggerName)
	assert.Equal(t, "filled 5", entries[0].Message)
	assert.Equal(t, Data, entries[1].LoggerName)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, Backtester, entries[3].LoggerName)
}

func TestNop(t *testing.T) {
	t.Parallel()
	l := Nop()
	l.Infof(Backtester, "discarded")
	assert.NotPanics(t, func() { _ = l.Sync() })
	assert.NotPanics(t, func() { NewFromZap(nil).Infof(Setup, "nil zap") })
}
