package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the tennis booking bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot      BotConfig      `mapstructure:"bot" validate:"required"`
	Club     ClubConfig     `mapstructure:"club" validate:"required"`
	Booking  BookingConfig  `mapstructure:"booking" validate:"required"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// BotConfig configures the Telegram front end.
type BotConfig struct {
	Token         string          `mapstructure:"token" validate:"required"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	AuthorizedIDs []int64         `mapstructure:"authorized_ids" validate:"min=1"`
	// OwnerID is the chat that receives failure page dumps and screenshots.
	// Zero falls back to the first authorized ID.
	OwnerID int64 `mapstructure:"owner_id"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds how often a single user can invoke commands.
// A zero limit disables rate limiting.
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// ClubConfig describes the booking site and the shared account used for it.
// Credentials are process-wide: the club account is a singleton, not per-user.
type ClubConfig struct {
	BaseURL  string `mapstructure:"base_url" validate:"required,url"`
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Card     string `mapstructure:"card"`
}

// BookingConfig controls the nightly booking run.
type BookingConfig struct {
	PreferencesFile string `mapstructure:"preferences_file" validate:"required"`
	SubscribersFile string `mapstructure:"subscribers_file"`
	AdvanceDays     int    `mapstructure:"advance_days" validate:"min=0,max=14"`
	Cron            string `mapstructure:"cron" validate:"required"`
	DryRun          bool   `mapstructure:"dry_run"`
}

// BrowserConfig tunes the headless browser session.
type BrowserConfig struct {
	Headless    bool          `mapstructure:"headless"`
	ExecPath    string        `mapstructure:"exec_path"`
	SlowMo      time.Duration `mapstructure:"slow_mo"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

// RedisConfig defines connection parameters for Redis.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DatabaseConfig defines the optional Postgres attempt-history store.
type DatabaseConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// ServerConfig configures the metrics/health HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggerConfig configures structured logging output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig enables error reporting to Sentry.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// DSN returns a PostgreSQL connection string based on config values.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
