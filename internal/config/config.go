package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Provider ProviderConfig `koanf:"provider"`
	Email    EmailConfig    `koanf:"email"`
	Admin    AdminConfig    `koanf:"admin"`
	Quote    QuoteConfig    `koanf:"quote"`
	Worker   WorkerConfig   `koanf:"worker"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
	// HealthCheckPeriod is how often idle pool connections are probed.
	// Zero falls back to 30s.
	HealthCheckPeriod time.Duration `koanf:"health_check_period"`
}

// ProviderConfig selects and configures the mobile-money provider binding.
// Kind is one of "directdebit", "requesttopay" or "checkout"; exactly one
// binding is wired per deployment.
type ProviderConfig struct {
	Kind            string        `koanf:"kind" validate:"required,oneof=directdebit requesttopay checkout"`
	BaseURL         string        `koanf:"base_url" validate:"required"`
	ClientID        string        `koanf:"client_id"`
	ClientSecret    string        `koanf:"client_secret"`
	MerchantID      string        `koanf:"merchant_id"`
	SubscriptionKey string        `koanf:"subscription_key"`
	TargetEnv       string        `koanf:"target_env"`
	CallbackURL     string        `koanf:"callback_url" validate:"required"`
	Timeout         time.Duration `koanf:"timeout" validate:"required"`
}

type EmailConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	From       string `koanf:"from"`
	AdminEmail string `koanf:"admin_email"`
}

type AdminConfig struct {
	Key string `koanf:"key" validate:"required"`
}

// QuoteConfig holds the figures frozen into a card request at submit time.
type QuoteConfig struct {
	ExchangeRate  float64       `koanf:"exchange_rate" validate:"required"`
	FeePercent    float64       `koanf:"fee_percent"`
	LocalCurrency string        `koanf:"local_currency" validate:"required"`
	CardValidity  time.Duration `koanf:"card_validity" validate:"required"`
	EmailDomain   string        `koanf:"email_domain" validate:"required"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required"`
	BatchSize     int           `koanf:"batch_size" validate:"required"`
	// StaleAfter declines unpaid pending requests older than this age.
	// Zero disables the reclaimer.
	StaleAfter time.Duration `koanf:"stale_after"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("CARDSVC_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "CARDSVC_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
