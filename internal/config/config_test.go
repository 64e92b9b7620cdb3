package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/signal-trader/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, "log_level: info\n")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "USDT", cfg.Exchange.QuoteCurrency)
	assert.Equal(t, 10, cfg.Exchange.RateLimitPerMinute)
	assert.Equal(t, 3, cfg.Exchange.MaxRetries)
	assert.Equal(t, 10.0, cfg.Trading.TradeAmount)
	assert.Equal(t, 15.0, cfg.Trading.MinBalance)
	assert.Equal(t, 10.0, cfg.Trading.TakeProfitPct)
	assert.Equal(t, 5.0, cfg.Trading.StopLossPct)
	assert.Equal(t, 14, cfg.Signals.RSIPeriod)
	assert.Equal(t, 30, cfg.Analysis.IntervalSeconds)
	assert.Equal(t, 5, cfg.Analysis.BatchSize)
	assert.Equal(t, 60, cfg.Analysis.CooldownMinutes)
	assert.False(t, cfg.Trading.EnableAutoTrading.Bool())
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
log_level: info
trading:
  enable_auto_trading: "on"
  trade_amount: 25
analysis:
  batch_size: 3
`)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CRYPTO_API_KEY", "key_from_env")
	t.Setenv("CRYPTO_API_SECRET", "secret_from_env")
	t.Setenv("DATABASE_URL", "postgres://localhost/bot")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "LOG_LEVEL env should win over the file")
	assert.Equal(t, "key_from_env", cfg.Exchange.APIKey)
	assert.Equal(t, "secret_from_env", cfg.Exchange.APISecret)
	assert.Equal(t, "postgres://localhost/bot", cfg.DatabaseURL)
	assert.True(t, cfg.Trading.EnableAutoTrading.Bool(), `"on" should parse as true`)
	assert.Equal(t, 25.0, cfg.Trading.TradeAmount)
	assert.Equal(t, 3, cfg.Analysis.BatchSize)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := writeConfigFile(t, `
trading:
  trade_amount: -5
`)
	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

// memStore is a map-backed SettingsStore for registry tests.
type memStore struct {
	values map[string]string
}

func newMemStore() *memStore { return &memStore{values: make(map[string]string)} }

func (m *memStore) GetSetting(_ context.Context, category, key string) (string, bool, error) {
	v, ok := m.values[category+"."+key]
	return v, ok, nil
}

func (m *memStore) SetSetting(_ context.Context, category, key, value string) error {
	m.values[category+"."+key] = value
	return nil
}

func TestRegistry_GetFallsBackToDefault(t *testing.T) {
	reg := config.NewRegistry(config.Default(), newMemStore())

	v, err := reg.Get(context.Background(), "trading", "trade_amount")
	require.NoError(t, err)
	assert.Equal(t, "10", v)

	_, err = reg.Get(context.Background(), "trading", "no_such_key")
	assert.Error(t, err, "unknown keys must be rejected")
}

func TestRegistry_SetValidates(t *testing.T) {
	reg := config.NewRegistry(config.Default(), newMemStore())
	ctx := context.Background()

	_, err := reg.Set(ctx, "trading", "trade_amount", "abc")
	assert.Error(t, err)
	_, err = reg.Set(ctx, "signals", "rsi_oversold", "95")
	assert.Error(t, err, "oversold threshold above 50 must be rejected")
	_, err = reg.Set(ctx, "nope", "nope", "1")
	assert.Error(t, err)

	restart, err := reg.Set(ctx, "trading", "trade_amount", "42.5")
	require.NoError(t, err)
	assert.False(t, restart)

	restart, err = reg.Set(ctx, "system", "log_level", "debug")
	require.NoError(t, err)
	assert.True(t, restart, "log level change requires a restart")
}

func TestRegistry_SnapshotPrefersStoredOverride(t *testing.T) {
	store := newMemStore()
	reg := config.NewRegistry(config.Default(), store)
	ctx := context.Background()

	_, err := reg.Set(ctx, "trading", "trade_amount", "50")
	require.NoError(t, err)
	_, err = reg.Set(ctx, "trading", "enable_auto_trading", "true")
	require.NoError(t, err)

	s := reg.Snapshot(ctx)
	assert.Equal(t, 50.0, s.TradeAmount)
	assert.True(t, s.AutoTrading)
	assert.Equal(t, 15.0, s.MinBalance, "untouched settings keep their defaults")
	assert.Equal(t, 14, s.RSIPeriod)
}

func TestRegistry_SnapshotIgnoresCorruptStoredValue(t *testing.T) {
	store := newMemStore()
	store.values["trading.trade_amount"] = "not-a-number"
	reg := config.NewRegistry(config.Default(), store)

	s := reg.Snapshot(context.Background())
	assert.Equal(t, 10.0, s.TradeAmount, "corrupt stored value falls back to the default")
}

func TestRegistry_BundleRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := config.NewRegistry(config.Default(), newMemStore())

	_, err := src.Set(ctx, "trading", "trade_amount", "33")
	require.NoError(t, err)
	_, err = src.Set(ctx, "analysis", "cooldown_minutes", "15")
	require.NoError(t, err)

	data, err := src.ExportBundle(ctx)
	require.NoError(t, err)

	dst := config.NewRegistry(config.Default(), newMemStore())
	applied, restart, err := dst.ImportBundle(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, len(dst.Definitions()), applied)
	assert.False(t, restart, "round-tripped defaults include no restart-required change")

	before := src.Snapshot(ctx)
	after := dst.Snapshot(ctx)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("snapshot mismatch after round-trip (-before +after):\n%s", diff)
	}
}

func TestRegistry_ImportRejectsUnknownAndInvalid(t *testing.T) {
	ctx := context.Background()
	reg := config.NewRegistry(config.Default(), newMemStore())

	_, _, err := reg.ImportBundle(ctx, []byte("version: 1\nsettings:\n  trading:\n    bogus: \"1\"\n"))
	assert.Error(t, err)

	_, _, err = reg.ImportBundle(ctx, []byte("version: 1\nsettings:\n  trading:\n    trade_amount: \"nope\"\n"))
	assert.Error(t, err)

	_, _, err = reg.ImportBundle(ctx, []byte("version: 99\nsettings: {}\n"))
	assert.Error(t, err)

	s := reg.Snapshot(ctx)
	assert.Equal(t, 10.0, s.TradeAmount, "failed imports must not apply partial state")
}
