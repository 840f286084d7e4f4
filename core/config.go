package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a terminal session.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// A YAML profile file can be loaded below the environment layer with
// WithProfile, so a shared terminal profile can still be overridden per
// machine.
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithBaseURL("https://tienda.example.com"),
//	    core.WithCurrency("CLP"),
//	)
type Config struct {
	// BaseURL is the root of the POS backend (the /pos endpoints hang off it).
	BaseURL string `yaml:"base_url"`

	// TerminalName identifies this terminal in logs and telemetry.
	TerminalName string `yaml:"terminal_name"`

	// Currency is the ISO code used for price formatting.
	Currency string `yaml:"currency"`

	// RequestTimeout bounds every catalog/order HTTP call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// LoadingFallback hides loading indicators after this long regardless of
	// request completion, so a hung request never leaves a spinner up.
	LoadingFallback time.Duration `yaml:"loading_fallback"`

	// Search tuning.
	SearchDebounce  time.Duration `yaml:"search_debounce"`
	SearchCacheTTL  time.Duration `yaml:"search_cache_ttl"`
	SearchCacheSize int           `yaml:"search_cache_size"`
	SearchLimit     int           `yaml:"search_limit"`

	// ReconcileInterval is how often the background reconciler re-fetches
	// authoritative stock.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`

	// Scanner tuning.
	ScannerMaxKeyDelay time.Duration `yaml:"scanner_max_key_delay"`
	ScannerMinLength   int           `yaml:"scanner_min_length"`

	// StockThreshold is the default low-stock warning level. The persisted
	// preference, when present, wins over this.
	StockThreshold int `yaml:"stock_threshold"`

	// DiscountPresets are the fixed percentages offered as buttons.
	DiscountPresets []int `yaml:"discount_presets"`

	// RedisURL enables the Redis-backed preference store when set.
	RedisURL string `yaml:"redis_url"`

	// DevMode relaxes validation and switches telemetry to the stdout
	// exporter.
	DevMode bool `yaml:"dev_mode"`

	profileErr error
}

// Option is a functional option for Config
type Option func(*Config)

// NewConfig creates a configuration with defaults, environment variables
// and options applied in that order. A .env file in the working directory
// is honored the way the rest of the tooling expects.
func NewConfig(opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	cfg.applyEnvironment()

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		BaseURL:            "http://localhost:8000",
		TerminalName:       "pos-terminal",
		Currency:           "CLP",
		RequestTimeout:     15 * time.Second,
		LoadingFallback:    8 * time.Second,
		SearchDebounce:     200 * time.Millisecond,
		SearchCacheTTL:     30 * time.Second,
		SearchCacheSize:    100,
		SearchLimit:        20,
		ReconcileInterval:  60 * time.Second,
		ScannerMaxKeyDelay: 50 * time.Millisecond,
		ScannerMinLength:   6,
		StockThreshold:     5,
		DiscountPresets:    []int{5, 10, 15, 20},
	}
}

func (c *Config) applyEnvironment() {
	if v := os.Getenv("POSKIT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("POSKIT_TERMINAL_NAME"); v != "" {
		c.TerminalName = v
	}
	if v := os.Getenv("POSKIT_CURRENCY"); v != "" {
		c.Currency = v
	}
	if v := os.Getenv("POSKIT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("POSKIT_RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ReconcileInterval = d
		}
	}
	if v := os.Getenv("POSKIT_STOCK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			c.StockThreshold = n
		}
	}
	if v := os.Getenv("POSKIT_REDIS_URL"); v != "" {
		c.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("POSKIT_DEV_MODE"); v != "" {
		c.DevMode = v == "true" || v == "1"
	}
}

// profileFile mirrors Config for YAML decoding. Durations are strings so
// profiles can say "15s" instead of nanosecond counts.
type profileFile struct {
	BaseURL            string `yaml:"base_url"`
	TerminalName       string `yaml:"terminal_name"`
	Currency           string `yaml:"currency"`
	RequestTimeout     string `yaml:"request_timeout"`
	LoadingFallback    string `yaml:"loading_fallback"`
	SearchDebounce     string `yaml:"search_debounce"`
	SearchCacheTTL     string `yaml:"search_cache_ttl"`
	SearchCacheSize    int    `yaml:"search_cache_size"`
	SearchLimit        int    `yaml:"search_limit"`
	ReconcileInterval  string `yaml:"reconcile_interval"`
	ScannerMaxKeyDelay string `yaml:"scanner_max_key_delay"`
	ScannerMinLength   int    `yaml:"scanner_min_length"`
	StockThreshold     int    `yaml:"stock_threshold"`
	DiscountPresets    []int  `yaml:"discount_presets"`
	RedisURL           string `yaml:"redis_url"`
	DevMode            bool   `yaml:"dev_mode"`
}

// LoadProfile merges a YAML profile file into the configuration. Zero
// values in the file leave the current value untouched.
func (c *Config) LoadProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile %s: %w", path, err)
	}
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse profile %s: %w", path, err)
	}
	merged := Config{
		BaseURL:          file.BaseURL,
		TerminalName:     file.TerminalName,
		Currency:         file.Currency,
		SearchCacheSize:  file.SearchCacheSize,
		SearchLimit:      file.SearchLimit,
		ScannerMinLength: file.ScannerMinLength,
		StockThreshold:   file.StockThreshold,
		DiscountPresets:  file.DiscountPresets,
		RedisURL:         file.RedisURL,
		DevMode:          file.DevMode,
	}
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{file.RequestTimeout, &merged.RequestTimeout},
		{file.LoadingFallback, &merged.LoadingFallback},
		{file.SearchDebounce, &merged.SearchDebounce},
		{file.SearchCacheTTL, &merged.SearchCacheTTL},
		{file.ReconcileInterval, &merged.ReconcileInterval},
		{file.ScannerMaxKeyDelay, &merged.ScannerMaxKeyDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse profile %s: %w", path, err)
		}
		*d.dst = parsed
	}
	c.merge(&merged)
	return nil
}

func (c *Config) merge(o *Config) {
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.TerminalName != "" {
		c.TerminalName = o.TerminalName
	}
	if o.Currency != "" {
		c.Currency = o.Currency
	}
	if o.RequestTimeout != 0 {
		c.RequestTimeout = o.RequestTimeout
	}
	if o.LoadingFallback != 0 {
		c.LoadingFallback = o.LoadingFallback
	}
	if o.SearchDebounce != 0 {
		c.SearchDebounce = o.SearchDebounce
	}
	if o.SearchCacheTTL != 0 {
		c.SearchCacheTTL = o.SearchCacheTTL
	}
	if o.SearchCacheSize != 0 {
		c.SearchCacheSize = o.SearchCacheSize
	}
	if o.SearchLimit != 0 {
		c.SearchLimit = o.SearchLimit
	}
	if o.ReconcileInterval != 0 {
		c.ReconcileInterval = o.ReconcileInterval
	}
	if o.ScannerMaxKeyDelay != 0 {
		c.ScannerMaxKeyDelay = o.ScannerMaxKeyDelay
	}
	if o.ScannerMinLength != 0 {
		c.ScannerMinLength = o.ScannerMinLength
	}
	if o.StockThreshold != 0 {
		c.StockThreshold = o.StockThreshold
	}
	if len(o.DiscountPresets) != 0 {
		c.DiscountPresets = o.DiscountPresets
	}
	if o.RedisURL != "" {
		c.RedisURL = o.RedisURL
	}
	if o.DevMode {
		c.DevMode = true
	}
}

// Validate checks the configuration for values that would break the
// controller's invariants.
func (c *Config) Validate() error {
	if c.profileErr != nil {
		return &POSError{Op: "config.Validate", Kind: "config", Err: c.profileErr}
	}
	if c.BaseURL == "" {
		return &POSError{Op: "config.Validate", Kind: "config", Err: fmt.Errorf("base URL is required")}
	}
	if c.StockThreshold < 1 {
		return &POSError{Op: "config.Validate", Kind: "config", Err: ErrInvalidThreshold}
	}
	for _, p := range c.DiscountPresets {
		if p < 1 || p > 99 {
			return &POSError{Op: "config.Validate", Kind: "config", ID: strconv.Itoa(p), Err: ErrInvalidPercentage}
		}
	}
	if c.ScannerMinLength < 1 {
		return &POSError{Op: "config.Validate", Kind: "config", Err: fmt.Errorf("scanner min length must be positive")}
	}
	return nil
}

// Functional options

// WithBaseURL sets the POS backend root URL
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTerminalName sets the terminal identity used in logs and telemetry
func WithTerminalName(name string) Option {
	return func(c *Config) { c.TerminalName = name }
}

// WithCurrency sets the currency code used for formatting
func WithCurrency(code string) Option {
	return func(c *Config) { c.Currency = code }
}

// WithRedisURL enables the Redis-backed preference store
func WithRedisURL(url string) Option {
	return func(c *Config) { c.RedisURL = url }
}

// WithReconcileInterval overrides the background stock re-fetch cadence
func WithReconcileInterval(d time.Duration) Option {
	return func(c *Config) { c.ReconcileInterval = d }
}

// WithDiscountPresets overrides the preset discount buttons
func WithDiscountPresets(presets []int) Option {
	return func(c *Config) { c.DiscountPresets = presets }
}

// WithDevMode toggles development behavior
func WithDevMode(enabled bool) Option {
	return func(c *Config) { c.DevMode = enabled }
}

// WithProfile loads a YAML profile file between the environment layer and
// the remaining options. Load errors surface from NewConfig's validation.
func WithProfile(path string) Option {
	return func(c *Config) {
		if err := c.LoadProfile(path); err != nil {
			c.profileErr = err
		}
	}
}
