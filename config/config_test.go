package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/database"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/fillprobability"
	"github.com/thrasher-corp/tickbacktester/log"
)

const minimalYAML = `
strategy-settings:
  name: buyandhold
data-settings:
  symbols: [ES]
  start-date: "2021-03-01"
  end-date: "2021-03-02"
  csv-data:
    directory: quotes
`

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()
	c, err := LoadConfig([]byte(minimalYAML), "yaml")
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, int64(1), c.Seed)
	assert.Equal(t, CSVSource, c.DataSettings.Source)
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), c.DataSettings.StartDate)
	assert.True(t, c.PortfolioSettings.InitialCash.Equal(decimal.NewFromInt(DefaultInitialCash)))
	assert.Equal(t, exchange.DefaultVenue, c.ExecutionSettings.Venue)
	assert.Equal(t, exchange.DefaultOrderDelay, c.ExecutionSettings.OrderDelay)
	assert.Equal(t, ConstantPolicy, c.ExecutionSettings.FillProbability.Policy)
	assert.InDelta(t, fillprobability.DefaultProbability, c.ExecutionSettings.FillProbability.Probability, 1e-9)
	assert.Equal(t, NoModel, c.ExecutionSettings.Commission.Model)
	assert.Equal(t, NoModel, c.ExecutionSettings.Slippage.Model)
	assert.Equal(t, log.DefaultConfig().Level, c.LogSettings.Level)
	assert.False(t, c.IsLive())

	_, err = LoadConfig([]byte("{not json"), "json")
	assert.Error(t, err)
}

func TestReadConfigFromFile(t *testing.T) {
	t.Parallel()
	_, err := ReadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err := ReadConfigFromFile(filepath.Join("examples", "buyandhold-csv.yaml"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"ES", "NQ"}, c.DataSettings.Symbols)
	assert.Equal(t, 13*time.Hour+30*time.Minute, c.DataSettings.SessionStart)
	assert.Equal(t, 20*time.Hour, c.DataSettings.SessionEnd)
	assert.True(t, c.ExecutionSettings.Commission.Rate.Equal(decimal.RequireFromString("1.25")))
	assert.True(t, c.PortfolioSettings.InitialCash.Equal(decimal.NewFromInt(250000)))

	c, err = ReadConfigFromFile(filepath.Join("examples", "meanrevert-database.yaml"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	require.NotNil(t, c.DataSettings.DatabaseData)
	assert.Equal(t, database.DBSQLite3, c.DataSettings.DatabaseData.Driver)
	assert.Equal(t, "quotes.db", c.DataSettings.DatabaseData.Database)
	assert.Equal(t, DecayingPolicy, c.ExecutionSettings.FillProbability.Policy)
	assert.True(t, c.ExecutionSettings.FillProbability.HalfLife.Equal(decimal.RequireFromString("0.25")))
	assert.True(t, c.MonitorSettings.Enabled)
	assert.Len(t, c.StrategySettings.CustomSettings, 5)

	c, err = ReadConfigFromFile(filepath.Join("examples", "rsi-live.json"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.True(t, c.IsLive())
	require.NotNil(t, c.DataSettings.LiveData)
	assert.Equal(t, 50*time.Millisecond, c.ExecutionSettings.OrderDelay)
	assert.Equal(t, DefaultBufferSize, c.DataSettings.LiveData.BufferSize, "live defaults are applied after decoding")
	assert.Equal(t, DefaultPollTimeout, c.DataSettings.LiveData.PollTimeout)
	assert.Equal(t, DefaultReconnectPeriod, c.DataSettings.LiveData.ReconnectInterval)
	assert.Equal(t, 10, c.DataSettings.LiveData.MaxReconnects)
	assert.Contains(t, c.DataSettings.LiveData.Subscribe, "subscribe")
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TICKBT_SEED=99\n"), 0o600))
	t.Setenv("TICKBT_SEED", "")
	require.NoError(t, os.Unsetenv("TICKBT_SEED"))
	require.NoError(t, LoadEnvFile(filepath.Join(dir, "absent.env"), envFile), "missing env files are skipped")
	t.Setenv("TICKBT_EXECUTION_SETTINGS_ORDER_DELAY", "75ms")

	c, err := LoadConfig([]byte(minimalYAML), "yaml")
	require.NoError(t, err)
	assert.Equal(t, int64(99), c.Seed)
	assert.Equal(t, 75*time.Millisecond, c.ExecutionSettings.OrderDelay)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	var nilConfig *Config
	assert.ErrorIs(t, nilConfig.Validate(), common.ErrNilPointer)

	for _, tc := range []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{"no strategy", func(c *Config) { c.StrategySettings.Name = " " }, errNoStrategy},
		{"no symbols", func(c *Config) { c.DataSettings.Symbols = nil }, errNoSymbols},
		{"empty symbol", func(c *Config) { c.DataSettings.Symbols = []string{"ES", " "} }, errEmptySymbol},
		{"duplicate symbol", func(c *Config) { c.DataSettings.Symbols = []string{"ES", " ES"} }, errDuplicateSymbol},
		{"unknown source", func(c *Config) { c.DataSettings.Source = "ftp" }, errUnknownSource},
		{"no csv directory", func(c *Config) { c.DataSettings.CSVData = nil }, errMissingSourceData},
		{"no database", func(c *Config) { c.DataSettings.Source = DatabaseSource }, errMissingSourceData},
		{"bad driver", func(c *Config) {
			c.DataSettings.Source = DatabaseSource
			c.DataSettings.DatabaseData = &database.Config{Driver: "oracle"}
		}, database.ErrUnsupportedDriver},
		{"no live url", func(c *Config) {
			c.DataSettings.Source = LiveSource
			c.DataSettings.LiveData = &LiveData{}
		}, errMissingSourceData},
		{"no dates", func(c *Config) { c.DataSettings.EndDate = time.Time{} }, errNoDates},
		{"end before start", func(c *Config) { c.DataSettings.EndDate = c.DataSettings.StartDate.AddDate(0, 0, -1) }, errEndBeforeStart},
		{"negative cash", func(c *Config) { c.PortfolioSettings.InitialCash = decimal.NewFromInt(-1) }, errNegativeCash},
		{"negative delay", func(c *Config) { c.ExecutionSettings.OrderDelay = -time.Millisecond }, errNegativeDelay},
		{"bad probability", func(c *Config) { c.ExecutionSettings.FillProbability.Probability = 1.5 }, errInvalidProbability},
		{"unknown policy", func(c *Config) { c.ExecutionSettings.FillProbability.Policy = "sometimes" }, errUnknownPolicy},
		{"unknown commission", func(c *Config) { c.ExecutionSettings.Commission.Model = "flat" }, errUnknownModel},
		{"negative commission", func(c *Config) {
			c.ExecutionSettings.Commission = Commission{Model: PerUnitModel, Rate: decimal.NewFromInt(-1)}
		}, errNegativeRate},
		{"unknown slippage", func(c *Config) { c.ExecutionSettings.Slippage.Model = "gaussian" }, errUnknownModel},
		{"negative slippage", func(c *Config) {
			c.ExecutionSettings.Slippage = Slippage{Model: BasisPointModel, BasisPoints: decimal.NewFromInt(-1)}
		}, errNegativeRate},
		{"monitor without address", func(c *Config) {
			c.MonitorSettings = MonitorSettings{Enabled: true}
		}, errNoListenAddress},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := LoadConfig([]byte(minimalYAML), "yaml")
			require.NoError(t, err)
			tc.modify(c)
			assert.ErrorIs(t, c.Validate(), tc.err)
		})
	}

	c, err := LoadConfig([]byte(minimalYAML), "yaml")
	require.NoError(t, err)
	c.DataSettings.Symbols = []string{" ES "}
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"ES"}, c.DataSettings.Symbols, "symbols are trimmed")
}

func TestPrintSetting(t *testing.T) {
	t.Parallel()
	c, err := ReadConfigFromFile(filepath.Join("examples", "meanrevert-database.yaml"))
	require.NoError(t, err)
	assert.NotPanics(t, func() { c.PrintSetting(log.Nop()) })
}
