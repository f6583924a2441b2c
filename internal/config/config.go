package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level payops.yaml configuration.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Payout    PayoutConfig    `yaml:"payout"`
	Sanctions SanctionsConfig `yaml:"sanctions"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	StepUp    StepUpConfig    `yaml:"step_up"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LedgerConfig identifies the remote ledger API.
type LedgerConfig struct {
	APIURL      string `yaml:"api_url"`
	APIKey      string `yaml:"api_key"`
	AccountSlug string `yaml:"account_slug"`
	PayeeSlug   string `yaml:"payee_slug"`
	// DedupKey selects the field used for duplicate matching: "name" or "email".
	DedupKey string `yaml:"dedup_key"`
}

// TokenizerConfig controls the card tokenization endpoint and its
// retry-on-throttle behavior.
type TokenizerConfig struct {
	URL string `yaml:"url"`
	// BackoffSchedule lists the wait before each retry after a 429. The
	// number of entries bounds the number of retries.
	BackoffSchedule []time.Duration `yaml:"backoff_schedule"`
	// OnFailure is "skip" (row-local skip) or "abort" (fail the run).
	OnFailure string `yaml:"on_failure"`
}

// PayoutConfig holds per-payout defaults.
type PayoutConfig struct {
	Currency string `yaml:"currency"`
	// DefaultAmountMinorUnits is used when the input row carries no amount.
	DefaultAmountMinorUnits int64 `yaml:"default_amount_minor_units"`
	// SplitParts divides each payout into N equal remote transactions.
	SplitParts int `yaml:"split_parts"`
	// SplitThresholdMinorUnits enables splitting only above this amount.
	// Zero means SplitParts always applies.
	SplitThresholdMinorUnits int64  `yaml:"split_threshold_minor_units"`
	Country                  string `yaml:"country"`
}

// SanctionsConfig defines disallowed postal-code prefixes.
type SanctionsConfig struct {
	// Prefixes are numeric postal-code prefixes (e.g. "95") that flag a
	// request as sanctioned.
	Prefixes []string `yaml:"prefixes"`
	// Policy is "skip" (hard skip) or "warn" (log and continue).
	Policy string `yaml:"policy"`
}

// RateLimitConfig sets the minimum spacing before each ledger operation.
type RateLimitConfig struct {
	Create     time.Duration `yaml:"create"`
	Approve    time.Duration `yaml:"approve"`
	Pay        time.Duration `yaml:"pay"`
	SplitExtra time.Duration `yaml:"split_extra"`
}

// StepUpConfig controls the two-factor step-up flow.
type StepUpConfig struct {
	// Method is "totp" or "yubikey_otp".
	Method string `yaml:"method"`
	// ReuseCode caches the first prompted code for the whole run instead of
	// re-prompting on every protected call.
	ReuseCode bool `yaml:"reuse_code"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads a payops.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the defaults observed across the payout
// batches this tool replaces.
func Default() *Config {
	cfg := &Config{
		Ledger: LedgerConfig{
			APIURL:      "https://api.opencollective.com",
			AccountSlug: "1kproject",
			PayeeSlug:   "ukrainian-families-1k",
		},
		Payout: PayoutConfig{
			DefaultAmountMinorUnits: 100000,
			SplitParts:              1,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Ledger.DedupKey == "" {
		c.Ledger.DedupKey = "name"
	}
	if len(c.Tokenizer.BackoffSchedule) == 0 {
		c.Tokenizer.BackoffSchedule = []time.Duration{2 * time.Second, 5 * time.Second}
	}
	if c.Tokenizer.OnFailure == "" {
		c.Tokenizer.OnFailure = "skip"
	}
	if c.Payout.Currency == "" {
		c.Payout.Currency = "USD"
	}
	if c.Payout.Country == "" {
		c.Payout.Country = "UA"
	}
	if c.Payout.SplitParts < 1 {
		c.Payout.SplitParts = 1
	}
	if len(c.Sanctions.Prefixes) == 0 {
		// Postal codes of the occupied territories.
		c.Sanctions.Prefixes = []string{"95", "96", "97", "98"}
	}
	if c.Sanctions.Policy == "" {
		c.Sanctions.Policy = "skip"
	}
	if c.RateLimit.Create == 0 {
		c.RateLimit.Create = 600 * time.Millisecond
	}
	if c.RateLimit.Approve == 0 {
		c.RateLimit.Approve = time.Second
	}
	if c.RateLimit.Pay == 0 {
		c.RateLimit.Pay = 10 * time.Second
	}
	if c.RateLimit.SplitExtra == 0 {
		c.RateLimit.SplitExtra = 600 * time.Millisecond
	}
	if c.StepUp.Method == "" {
		c.StepUp.Method = "totp"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}
