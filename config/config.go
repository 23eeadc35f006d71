package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Escrow    EscrowConfig    `yaml:"escrow"`
	Razorpay  RazorpayConfig  `yaml:"razorpay"`
	PayPal    PayPalConfig    `yaml:"paypal"`
	Redis     RedisConfig     `yaml:"redis"`
	Payout    PayoutConfig    `yaml:"payout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	Env          string        `yaml:"env"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // mysql, postgres or sqlite
	DSN             string        `yaml:"dsn"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type JWTConfig struct {
	AccessSecret string        `yaml:"access_secret"`
	AccessExpiry time.Duration `yaml:"access_expiry"`
	Issuer       string        `yaml:"issuer"`
}

// EscrowConfig holds the money rules. Amounts are minor currency units.
type EscrowConfig struct {
	PlatformSharePercent  int64            `yaml:"platform_share_percent"`
	HostSharePercent      int64            `yaml:"host_share_percent"`
	SatisfactionThreshold int              `yaml:"satisfaction_threshold"`
	PenaltyMode           string           `yaml:"penalty_mode"` // step or percent
	PenaltyStepPoints     int              `yaml:"penalty_step_points"`
	PenaltyPerStep        int64            `yaml:"penalty_per_step"`
	PenaltyMultiplier     int64            `yaml:"penalty_multiplier"`
	HoldHours             int              `yaml:"hold_hours"`
	SettlementBatchSize   int              `yaml:"settlement_batch_size"`
	SettlementConcurrency int              `yaml:"settlement_concurrency"`
	DefaultCurrency       string           `yaml:"default_currency"`
	SessionPrices         map[string]int64 `yaml:"session_prices"`
	MinWithdrawal         map[string]int64 `yaml:"min_withdrawal"`
}

func (e EscrowConfig) HoldDuration() time.Duration {
	return time.Duration(e.HoldHours) * time.Hour
}

type RazorpayConfig struct {
	BaseURL       string `yaml:"base_url"`
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	// AccountNumber is the RazorpayX business account payouts are drawn from.
	AccountNumber string `yaml:"account_number"`
	PayoutMode    string `yaml:"payout_mode"`
}

type PayPalConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	WebhookID    string `yaml:"webhook_id"`
	// CertCommonName is the subject the webhook signing certificate must carry.
	CertCommonName string        `yaml:"cert_common_name"`
	CertCacheTTL   time.Duration `yaml:"cert_cache_ttl"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type PayoutConfig struct {
	LockTTL     time.Duration `yaml:"lock_ttl"`
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
	Note        string        `yaml:"note"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the built-in configuration used for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8099",
			Env:          "development",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "escrow:escrow@tcp(localhost:3306)/escrow?charset=utf8mb4&parseTime=True&loc=UTC",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: "change-me-in-production",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "sessionescrow",
		},
		Escrow: EscrowConfig{
			PlatformSharePercent:  50,
			HostSharePercent:      50,
			SatisfactionThreshold: 90,
			PenaltyMode:           "step",
			PenaltyStepPoints:     10,
			PenaltyPerStep:        300,
			PenaltyMultiplier:     1,
			HoldHours:             24,
			SettlementBatchSize:   100,
			SettlementConcurrency: 4,
			DefaultCurrency:       "INR",
			SessionPrices:         map[string]int64{"INR": 9900, "USD": 199},
			MinWithdrawal:         map[string]int64{"INR": 50000, "USD": 1000},
		},
		Razorpay: RazorpayConfig{
			BaseURL:    "https://api.razorpay.com",
			PayoutMode: "IMPS",
		},
		PayPal: PayPalConfig{
			BaseURL:        "https://api-m.sandbox.paypal.com",
			CertCommonName: "messageverificationcerts.paypal.com",
			CertCacheTTL:   time.Hour,
		},
		Payout: PayoutConfig{
			LockTTL:     time.Minute,
			MaxAttempts: 5,
			Window:      time.Hour,
			Note:        "Session earnings payout",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// Load builds the config from defaults, an optional YAML file and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	e := c.Escrow
	if e.PlatformSharePercent < 0 || e.HostSharePercent < 0 || e.PlatformSharePercent+e.HostSharePercent != 100 {
		return errors.New("config: escrow share percentages must be non-negative and sum to 100")
	}
	if e.SatisfactionThreshold < 0 || e.SatisfactionThreshold > 100 {
		return errors.New("config: escrow.satisfaction_threshold must be within 0..100")
	}
	if e.SettlementBatchSize <= 0 {
		return errors.New("config: escrow.settlement_batch_size must be positive")
	}
	if e.HoldHours < 0 {
		return errors.New("config: escrow.hold_hours must not be negative")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"ESCROW_PORT":             &cfg.Server.Port,
		"ESCROW_ENV":              &cfg.Server.Env,
		"ESCROW_LOG_LEVEL":        &cfg.Log.Level,
		"ESCROW_DB_DRIVER":        &cfg.Database.Driver,
		"ESCROW_DB_DSN":           &cfg.Database.DSN,
		"ESCROW_JWT_SECRET":       &cfg.JWT.AccessSecret,
		"ESCROW_DEFAULT_CURRENCY": &cfg.Escrow.DefaultCurrency,
		"ESCROW_REDIS_URL":        &cfg.Redis.URL,
		"RAZORPAY_BASE_URL":       &cfg.Razorpay.BaseURL,
		"RAZORPAY_KEY_ID":         &cfg.Razorpay.KeyID,
		"RAZORPAY_KEY_SECRET":     &cfg.Razorpay.KeySecret,
		"RAZORPAY_WEBHOOK_SECRET": &cfg.Razorpay.WebhookSecret,
		"RAZORPAYX_ACCOUNT":       &cfg.Razorpay.AccountNumber,
		"PAYPAL_BASE_URL":         &cfg.PayPal.BaseURL,
		"PAYPAL_CLIENT_ID":        &cfg.PayPal.ClientID,
		"PAYPAL_CLIENT_SECRET":    &cfg.PayPal.ClientSecret,
		"PAYPAL_WEBHOOK_ID":       &cfg.PayPal.WebhookID,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"ESCROW_HOLD_HOURS":             &cfg.Escrow.HoldHours,
		"ESCROW_SETTLEMENT_BATCH_SIZE":  &cfg.Escrow.SettlementBatchSize,
		"ESCROW_SETTLEMENT_CONCURRENCY": &cfg.Escrow.SettlementConcurrency,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}
