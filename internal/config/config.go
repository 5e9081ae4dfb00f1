package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TimeOfDay is a wall-clock time in the operating timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("time of day must be HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", value)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

type Config struct {
	Symbol   string
	Timezone string

	TriggerTime      string
	ToleranceMinutes int
	SummaryTime      string

	EMAPeriod          int
	AllocationFraction float64
	LookbackDays       int

	CheckInterval     time.Duration
	ErrorCooldown     time.Duration
	ConnectTimeout    time.Duration
	OrderWait         time.Duration
	OrderPollInterval time.Duration

	QuoteFallbackToClose bool
	JournalPath          string

	Feed      string
	BaseURL   string
	APIKey    string
	APISecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailTo      string
	WebhookURL   string

	LogLevel  string
	LogPretty bool

	// derived by validate()
	TriggerAt TimeOfDay
	SummaryAt TimeOfDay
	Location  *time.Location
}

func Load() (Config, error) {
	var cfg Config

	// Env vars win over the .env file; the file fills in what is unset.
	_ = godotenv.Load()

	flag.StringVar(&cfg.Symbol, "symbol", "TQQQ", "instrument symbol")
	flag.StringVar(&cfg.Timezone, "timezone", "Asia/Shanghai", "IANA timezone for trigger arithmetic")
	flag.StringVar(&cfg.TriggerTime, "trigger-time", "21:20", "daily trigger time of day (HH:MM)")
	flag.IntVar(&cfg.ToleranceMinutes, "tolerance-minutes", 5, "trigger tolerance window in minutes")
	flag.StringVar(&cfg.SummaryTime, "summary-time", "22:00", "daily summary time of day (HH:MM)")
	flag.IntVar(&cfg.EMAPeriod, "ema-period", 20, "EMA period in sessions")
	flag.Float64Var(&cfg.AllocationFraction, "allocation", 0.1, "fraction of equity per trade, in (0,1]")
	flag.IntVar(&cfg.LookbackDays, "lookback-days", 30, "calendar days of history to fetch")
	flag.DurationVar(&cfg.CheckInterval, "check-interval", time.Minute, "max sleep between wake-ups")
	flag.DurationVar(&cfg.ErrorCooldown, "error-cooldown", time.Minute, "pause after an internal error")
	flag.DurationVar(&cfg.ConnectTimeout, "connect-timeout", 20*time.Second, "broker request timeout")
	flag.DurationVar(&cfg.OrderWait, "order-wait", 60*time.Second, "max wait for a terminal order state")
	flag.DurationVar(&cfg.OrderPollInterval, "order-poll-interval", time.Second, "order status poll interval")
	flag.BoolVar(&cfg.QuoteFallbackToClose, "quote-fallback", true, "fall back to the latest close when no live quote")
	flag.StringVar(&cfg.JournalPath, "journal-path", "outcomes.ndjson", "path to the outcome journal")
	flag.StringVar(&cfg.Feed, "feed", "iex", "market data feed: iex or sip")
	flag.StringVar(&cfg.BaseURL, "base-url", "https://paper-api.alpaca.markets", "trading API base URL")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&cfg.LogPretty, "log-pretty", false, "human-readable log output")
	flag.Parse()

	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = envInt("SMTP_PORT", 587)
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	cfg.EmailTo = os.Getenv("EMAIL_TO")
	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.TriggerAt, err = ParseTimeOfDay(c.TriggerTime); err != nil {
		return fmt.Errorf("trigger-time: %w", err)
	}
	if c.SummaryAt, err = ParseTimeOfDay(c.SummaryTime); err != nil {
		return fmt.Errorf("summary-time: %w", err)
	}
	if c.ToleranceMinutes < 0 {
		return fmt.Errorf("tolerance-minutes must be >= 0")
	}
	if c.EMAPeriod < 1 {
		return fmt.Errorf("ema-period must be >= 1")
	}
	if c.AllocationFraction <= 0 || c.AllocationFraction > 1 {
		return fmt.Errorf("allocation must be in (0,1], got %v", c.AllocationFraction)
	}
	if c.LookbackDays < c.EMAPeriod+1 {
		return fmt.Errorf("lookback-days must be >= ema-period+1")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check-interval must be > 0")
	}
	if c.ErrorCooldown < 0 {
		return fmt.Errorf("error-cooldown must be >= 0")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect-timeout must be > 0")
	}
	if c.OrderWait <= 0 || c.OrderPollInterval <= 0 {
		return fmt.Errorf("order-wait and order-poll-interval must be > 0")
	}
	if c.SMTPHost != "" && (c.EmailFrom == "" || c.EmailTo == "") {
		return fmt.Errorf("EMAIL_FROM and EMAIL_TO are required when SMTP_HOST is set")
	}
	return nil
}

// EmailEnabled reports whether the SMTP channel is fully configured.
func (c Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

func (c Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
