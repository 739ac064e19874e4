package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Dicklesworthstone/teledash/internal/errs"
	"github.com/Dicklesworthstone/teledash/internal/reconcile"
)

// EnvPrefix namespaces environment overrides: TELEDASH_POLL_INTERVAL,
// TELEDASH_POLICY_STALE_AFTER, ...
const EnvPrefix = "TELEDASH"

// Source kinds.
const (
	SourceHTTP  = "http"
	SourceLocal = "local"
)

// Bounds the metrics service accepts for the history limit parameter.
const (
	MinHistoryLimit = 10
	MaxHistoryLimit = 20000
)

// Config carries runtime options for teledash.
type Config struct {
	Source         string        `mapstructure:"source" yaml:"source"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Range          time.Duration `mapstructure:"range" yaml:"range"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit" yaml:"history_limit"`
	Timezone       string        `mapstructure:"timezone" yaml:"timezone"`
	Listen         string        `mapstructure:"listen" yaml:"listen"`
	EnableGPU      bool          `mapstructure:"gpu" yaml:"gpu"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat      string        `mapstructure:"log_format" yaml:"log_format"`
	LogFile        string        `mapstructure:"log_file" yaml:"log_file"`
	Policy         Policy        `mapstructure:"policy" yaml:"policy"`
}

// Policy holds the reconciliation and liveness thresholds.
type Policy struct {
	StaleAfter       time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
	BufferCapacity   int           `mapstructure:"buffer_capacity" yaml:"buffer_capacity"`
	ReloadMin        time.Duration `mapstructure:"reload_min" yaml:"reload_min"`
	ReloadMax        time.Duration `mapstructure:"reload_max" yaml:"reload_max"`
	NearRawMinBucket int           `mapstructure:"near_raw_min_bucket" yaml:"near_raw_min_bucket"`
	NearRawFactor    float64       `mapstructure:"near_raw_factor" yaml:"near_raw_factor"`
	SparklinePoints  int           `mapstructure:"sparkline_points" yaml:"sparkline_points"`
}

func Default() Config {
	rp := reconcile.DefaultPolicy()
	return Config{
		Source:         SourceHTTP,
		BaseURL:        "http://127.0.0.1:8890/api/v1",
		Range:          time.Hour,
		PollInterval:   2 * time.Second,
		RequestTimeout: 5 * time.Second,
		HistoryLimit:   0,
		Timezone:       "Local",
		Listen:         "127.0.0.1:8899",
		EnableGPU:      true,
		LogLevel:       "info",
		LogFormat:      "text",
		Policy: Policy{
			StaleAfter:       8 * time.Second,
			BufferCapacity:   5000,
			ReloadMin:        rp.ReloadMin,
			ReloadMax:        rp.ReloadMax,
			NearRawMinBucket: rp.NearRawMinBucket,
			NearRawFactor:    rp.NearRawFactor,
			SparklinePoints:  60,
		},
	}
}

// durationKeys accept bare numbers as seconds ("5" == "5s").
var durationKeys = []string{
	"range", "poll_interval", "request_timeout",
	"policy.stale_after", "policy.reload_min", "policy.reload_max",
}

// SetDefaults registers every key of Default() on v so that environment
// variables and Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("source", d.Source)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("range", d.Range)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("history_limit", d.HistoryLimit)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("gpu", d.EnableGPU)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("policy.stale_after", d.Policy.StaleAfter)
	v.SetDefault("policy.buffer_capacity", d.Policy.BufferCapacity)
	v.SetDefault("policy.reload_min", d.Policy.ReloadMin)
	v.SetDefault("policy.reload_max", d.Policy.ReloadMax)
	v.SetDefault("policy.near_raw_min_bucket", d.Policy.NearRawMinBucket)
	v.SetDefault("policy.near_raw_factor", d.Policy.NearRawFactor)
	v.SetDefault("policy.sparkline_points", d.Policy.SparklinePoints)
}

// Load resolves the configuration from v: explicit file (if set) or the
// first file found in SearchPaths, then TELEDASH_* environment variables,
// then any flags already bound to v.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = findConfigFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errs.Wrap(err, errs.Config, file, "failed to read config file")
		}
	}

	for _, key := range durationKeys {
		if raw := v.GetString(key); raw != "" {
			if _, err := strconv.ParseFloat(raw, 64); err == nil {
				v.Set(key, raw+"s")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, errs.Config, "", "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SearchPaths lists the implicit config file locations, most specific first.
func SearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "teledash", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "teledash", "config.yaml"))
	}
	return paths
}

func findConfigFile() string {
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects settings the dashboard cannot run with.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return errs.New(errs.Config, "", fmt.Sprintf(format, args...))
	}
	switch c.Source {
	case SourceHTTP:
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return bad("base_url %q must be an absolute http(s) URL", c.BaseURL)
		}
	case SourceLocal:
	default:
		return bad("unknown source %q (want %s or %s)", c.Source, SourceHTTP, SourceLocal)
	}
	if c.PollInterval <= 0 {
		return bad("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return bad("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Range < 10*time.Second {
		return bad("range must be at least 10s, got %s", c.Range)
	}
	if c.HistoryLimit != 0 && (c.HistoryLimit < MinHistoryLimit || c.HistoryLimit > MaxHistoryLimit) {
		return bad("history_limit must be 0 or within %d..%d, got %d", MinHistoryLimit, MaxHistoryLimit, c.HistoryLimit)
	}
	if _, err := c.Location(); err != nil {
		return bad("unknown timezone %q", c.Timezone)
	}
	p := c.Policy
	if p.BufferCapacity <= 0 || p.SparklinePoints <= 0 {
		return bad("policy.buffer_capacity and policy.sparkline_points must be positive")
	}
	if p.ReloadMin <= 0 || p.ReloadMax < p.ReloadMin {
		return bad("policy.reload_min (%s) must be positive and <= policy.reload_max (%s)", p.ReloadMin, p.ReloadMax)
	}
	if p.NearRawMinBucket < 1 || p.NearRawFactor <= 0 {
		return bad("policy.near_raw_min_bucket and policy.near_raw_factor must be positive")
	}
	if p.StaleAfter <= 0 {
		return bad("policy.stale_after must be positive")
	}
	return nil
}

// ReconcilePolicy converts the policy section for the session.
func (c Config) ReconcilePolicy() reconcile.Policy {
	return reconcile.Policy{
		NearRawMinBucket: c.Policy.NearRawMinBucket,
		NearRawFactor:    c.Policy.NearRawFactor,
		ReloadMin:        c.Policy.ReloadMin,
		ReloadMax:        c.Policy.ReloadMax,
	}
}

// SessionOptions builds the session options from the configuration.
func (c Config) SessionOptions() reconcile.Options {
	return reconcile.Options{
		Policy:       c.ReconcilePolicy(),
		Capacity:     c.Policy.BufferCapacity,
		StaleAfter:   c.Policy.StaleAfter,
		RangeSeconds: c.RangeSeconds(),
	}
}

// RangeSeconds is the initial display window in whole seconds.
func (c Config) RangeSeconds() int {
	return int(c.Range / time.Second)
}

// Location resolves Timezone; "" and "Local" mean the host's zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
