package config

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SettingsStore persists runtime setting overrides. Implemented by the
// datastore repositories.
type SettingsStore interface {
	GetSetting(ctx context.Context, category, key string) (string, bool, error)
	SetSetting(ctx context.Context, category, key, value string) error
}

// Definition describes one registered runtime setting. The registry is a
// closed table: only defined {category, key} pairs can be read or written.
type Definition struct {
	Category        string
	Key             string
	Default         string
	Description     string
	RestartRequired bool
	Validate        func(string) error
}

// Registry exposes validated runtime settings layered over the static
// config: a stored override wins, otherwise the config default applies.
type Registry struct {
	store SettingsStore
	defs  []Definition
	index map[string]int
}

func defKey(category, key string) string { return category + "." + key }

func validateFloatRange(min, max float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		if v < min || v > max {
			return fmt.Errorf("value %v out of range [%v, %v]", v, min, max)
		}
		return nil
	}
}

func validateIntRange(min, max int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not an integer: %q", s)
		}
		if v < min || v > max {
			return fmt.Errorf("value %d out of range [%d, %d]", v, min, max)
		}
		return nil
	}
}

func validateBool(s string) error {
	if _, err := strconv.ParseBool(s); err != nil {
		return fmt.Errorf("not a boolean: %q", s)
	}
	return nil
}

func validateLogLevel(s string) error {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "error", "fatal":
		return nil
	}
	return fmt.Errorf("unknown log level %q", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewRegistry builds the closed settings table with defaults taken from
// the static config.
func NewRegistry(cfg *Config, store SettingsStore) *Registry {
	defs := []Definition{
		{
			Category: "trading", Key: "enable_auto_trading",
			Default:     strconv.FormatBool(cfg.Trading.EnableAutoTrading.Bool()),
			Description: "execute entries automatically on emitted signals",
			Validate:    validateBool,
		},
		{
			Category: "trading", Key: "trade_amount",
			Default:     formatFloat(cfg.Trading.TradeAmount),
			Description: "quote currency notional per entry order",
			Validate:    validateFloatRange(1, 100000),
		},
		{
			Category: "trading", Key: "min_balance",
			Default:     formatFloat(cfg.Trading.MinBalance),
			Description: "minimum quote balance required before entering",
			Validate:    validateFloatRange(0, 1000000),
		},
		{
			Category: "trading", Key: "take_profit_pct",
			Default:     formatFloat(cfg.Trading.TakeProfitPct),
			Description: "take-profit distance from entry, percent",
			Validate:    validateFloatRange(0.1, 100),
		},
		{
			Category: "trading", Key: "stop_loss_pct",
			Default:     formatFloat(cfg.Trading.StopLossPct),
			Description: "stop-loss distance from entry, percent",
			Validate:    validateFloatRange(0.1, 100),
		},
		{
			Category: "signals", Key: "rsi_period",
			Default:     strconv.Itoa(cfg.Signals.RSIPeriod),
			Description: "RSI lookback period",
			Validate:    validateIntRange(2, 100),
		},
		{
			Category: "signals", Key: "rsi_oversold",
			Default:     formatFloat(cfg.Signals.RSIOversold),
			Description: "RSI oversold threshold",
			Validate:    validateFloatRange(1, 50),
		},
		{
			Category: "signals", Key: "rsi_overbought",
			Default:     formatFloat(cfg.Signals.RSIOverbought),
			Description: "RSI overbought threshold",
			Validate:    validateFloatRange(50, 99),
		},
		{
			Category: "signals", Key: "ma_period",
			Default:     strconv.Itoa(cfg.Signals.MAPeriod),
			Description: "simple moving average period",
			Validate:    validateIntRange(2, 500),
		},
		{
			Category: "signals", Key: "ema_period",
			Default:     strconv.Itoa(cfg.Signals.EMAPeriod),
			Description: "exponential moving average period",
			Validate:    validateIntRange(2, 500),
		},
		{
			Category: "signals", Key: "atr_period",
			Default:     strconv.Itoa(cfg.Signals.ATRPeriod),
			Description: "average true range period",
			Validate:    validateIntRange(2, 100),
		},
		{
			Category: "analysis", Key: "interval_seconds",
			Default:     strconv.Itoa(cfg.Analysis.IntervalSeconds),
			Description: "pause between analysis cycles",
			Validate:    validateIntRange(5, 3600),
		},
		{
			Category: "analysis", Key: "batch_size",
			Default:     strconv.Itoa(cfg.Analysis.BatchSize),
			Description: "instruments analyzed concurrently per batch",
			Validate:    validateIntRange(1, 50),
		},
		{
			Category: "analysis", Key: "cooldown_minutes",
			Default:     strconv.Itoa(cfg.Analysis.CooldownMinutes),
			Description: "minimum gap between repeated same-direction signals",
			Validate:    validateIntRange(0, 1440),
		},
		{
			Category: "system", Key: "log_level",
			Default:         cfg.LogLevel,
			Description:     "minimum log level",
			RestartRequired: true,
			Validate:        validateLogLevel,
		},
		{
			Category: "system", Key: "rate_limit_per_minute",
			Default:         strconv.Itoa(cfg.Exchange.RateLimitPerMinute),
			Description:     "exchange request budget per minute",
			RestartRequired: true,
			Validate:        validateIntRange(1, 600),
		},
	}

	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[defKey(d.Category, d.Key)] = i
	}
	return &Registry{store: store, defs: defs, index: index}
}

// Definitions returns the registered settings in a stable order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Get returns the effective value for a registered setting. A stored
// override wins over the default. Unknown keys are an error.
func (r *Registry) Get(ctx context.Context, category, key string) (string, error) {
	i, ok := r.index[defKey(category, key)]
	if !ok {
		return "", fmt.Errorf("unknown setting %s.%s", category, key)
	}
	def := r.defs[i]
	if r.store != nil {
		v, found, err := r.store.GetSetting(ctx, category, key)
		if err != nil {
			return "", fmt.Errorf("read setting %s.%s: %w", category, key, err)
		}
		if found {
			if def.Validate != nil {
				if err := def.Validate(v); err != nil {
					// A bad stored value must not poison decisions.
					return def.Default, nil
				}
			}
			return v, nil
		}
	}
	return def.Default, nil
}

// Set validates and persists a setting override. It reports whether the
// change only takes effect after a restart.
func (r *Registry) Set(ctx context.Context, category, key, value string) (restartRequired bool, err error) {
	i, ok := r.index[defKey(category, key)]
	if !ok {
		return false, fmt.Errorf("unknown setting %s.%s", category, key)
	}
	def := r.defs[i]
	if def.Validate != nil {
		if err := def.Validate(value); err != nil {
			return false, fmt.Errorf("invalid value for %s.%s: %w", category, key, err)
		}
	}
	if r.store == nil {
		return false, fmt.Errorf("no settings store configured")
	}
	current, _ := r.Get(ctx, category, key)
	if err := r.store.SetSetting(ctx, category, key, value); err != nil {
		return false, fmt.Errorf("persist setting %s.%s: %w", category, key, err)
	}
	// Writing the value that is already in effect never forces a restart.
	return def.RestartRequired && current != value, nil
}

// TradingSettings is the effective decision-time snapshot. Components read
// a fresh snapshot per decision rather than caching it.
type TradingSettings struct {
	AutoTrading   bool
	TradeAmount   float64
	MinBalance    float64
	TakeProfitPct float64
	StopLossPct   float64

	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	MAPeriod      int
	EMAPeriod     int
	ATRPeriod     int

	IntervalSeconds int
	BatchSize       int
	CooldownMinutes int
}

// Interval returns the analysis cycle pause.
func (s TradingSettings) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Cooldown returns the same-direction signal cooldown.
func (s TradingSettings) Cooldown() time.Duration {
	return time.Duration(s.CooldownMinutes) * time.Minute
}

func (r *Registry) floatValue(ctx context.Context, category, key string) float64 {
	v, err := r.Get(ctx, category, key)
	if err != nil {
		v = r.defs[r.index[defKey(category, key)]].Default
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func (r *Registry) intValue(ctx context.Context, category, key string) int {
	v, err := r.Get(ctx, category, key)
	if err != nil {
		v = r.defs[r.index[defKey(category, key)]].Default
	}
	i, _ := strconv.Atoi(v)
	return i
}

func (r *Registry) boolValue(ctx context.Context, category, key string) bool {
	v, err := r.Get(ctx, category, key)
	if err != nil {
		v = r.defs[r.index[defKey(category, key)]].Default
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// Snapshot resolves the effective trading settings. Store failures fall
// back to defaults so a database outage degrades instead of halting.
func (r *Registry) Snapshot(ctx context.Context) TradingSettings {
	return TradingSettings{
		AutoTrading:     r.boolValue(ctx, "trading", "enable_auto_trading"),
		TradeAmount:     r.floatValue(ctx, "trading", "trade_amount"),
		MinBalance:      r.floatValue(ctx, "trading", "min_balance"),
		TakeProfitPct:   r.floatValue(ctx, "trading", "take_profit_pct"),
		StopLossPct:     r.floatValue(ctx, "trading", "stop_loss_pct"),
		RSIPeriod:       r.intValue(ctx, "signals", "rsi_period"),
		RSIOversold:     r.floatValue(ctx, "signals", "rsi_oversold"),
		RSIOverbought:   r.floatValue(ctx, "signals", "rsi_overbought"),
		MAPeriod:        r.intValue(ctx, "signals", "ma_period"),
		EMAPeriod:       r.intValue(ctx, "signals", "ema_period"),
		ATRPeriod:       r.intValue(ctx, "signals", "atr_period"),
		IntervalSeconds: r.intValue(ctx, "analysis", "interval_seconds"),
		BatchSize:       r.intValue(ctx, "analysis", "batch_size"),
		CooldownMinutes: r.intValue(ctx, "analysis", "cooldown_minutes"),
	}
}

// Bundle is the export/import format for settings.
type Bundle struct {
	Version    int                          `yaml:"version"`
	ExportedAt time.Time                    `yaml:"exported_at"`
	Settings   map[string]map[string]string `yaml:"settings"`
}

const bundleVersion = 1

// ExportBundle serializes the effective value of every registered setting.
func (r *Registry) ExportBundle(ctx context.Context) ([]byte, error) {
	b := Bundle{
		Version:    bundleVersion,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Settings:   make(map[string]map[string]string),
	}
	for _, def := range r.defs {
		v, err := r.Get(ctx, def.Category, def.Key)
		if err != nil {
			return nil, err
		}
		if b.Settings[def.Category] == nil {
			b.Settings[def.Category] = make(map[string]string)
		}
		b.Settings[def.Category][def.Key] = v
	}
	return yaml.Marshal(&b)
}

// ImportBundle validates and applies a previously exported bundle. All
// values are validated before any write, so a bad bundle applies nothing.
func (r *Registry) ImportBundle(ctx context.Context, data []byte) (applied int, restartRequired bool, err error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return 0, false, fmt.Errorf("parse bundle: %w", err)
	}
	if b.Version != bundleVersion {
		return 0, false, fmt.Errorf("unsupported bundle version %d", b.Version)
	}

	type entry struct{ category, key, value string }
	var entries []entry
	for category, kv := range b.Settings {
		for key, value := range kv {
			i, ok := r.index[defKey(category, key)]
			if !ok {
				return 0, false, fmt.Errorf("unknown setting %s.%s in bundle", category, key)
			}
			def := r.defs[i]
			if def.Validate != nil {
				if err := def.Validate(value); err != nil {
					return 0, false, fmt.Errorf("invalid value for %s.%s: %w", category, key, err)
				}
			}
			entries = append(entries, entry{category, key, value})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].category != entries[j].category {
			return entries[i].category < entries[j].category
		}
		return entries[i].key < entries[j].key
	})

	for _, e := range entries {
		restart, err := r.Set(ctx, e.category, e.key, e.value)
		if err != nil {
			return applied, restartRequired, err
		}
		restartRequired = restartRequired || restart
		applied++
	}
	return applied, restartRequired, nil
}
