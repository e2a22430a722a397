// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the environment-specific YAML file and
// environment variables, validates it, and returns the resulting Config.
// Secrets (club credentials, bot token, card details) are expected to come
// from the environment, never from the YAML file.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// missing env files are fine; real env vars still apply
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindSecrets(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("bot.token", "TENNIS_BOT_TOKEN")
	_ = v.BindEnv("club.username", "TENNIS_USERNAME")
	_ = v.BindEnv("club.password", "TENNIS_PASSWORD")
	_ = v.BindEnv("club.card", "TENNIS_CARD")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.rate_limit.limit", 20)
	v.SetDefault("bot.rate_limit.window", time.Minute)
	v.SetDefault("booking.advance_days", 7)
	v.SetDefault("booking.cron", "10 0 * * *")
	v.SetDefault("booking.preferences_file", "booking_preferences.yaml")
	v.SetDefault("booking.subscribers_file", "subscribed_users.json")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.step_timeout", 15*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
}
