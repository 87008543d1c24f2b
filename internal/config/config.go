package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName           = "PayWave"
	defaultAppEnv            = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultFlutterwaveURL    = "https://api.flutterwave.com/v3"
	defaultFlutterwaveTTL    = 15 * time.Second
	defaultNotificationTopic = "notifications.email"
	defaultWebhookWorkers    = 4
	defaultWebhookQueue      = 256
	defaultSweepInterval     = time.Minute
	defaultSMTPPort          = 587
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	DBAutomigrate  bool
	RedisURL       string
	KafkaBrokers   string
	JWTSecret      string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	Flutterwave struct {
		BaseURL    string
		SecretKey  string
		SecretHash string
		Timeout    time.Duration
	}

	Notifications struct {
		Topic string
	}

	Webhook struct {
		Workers int
		Queue   int
	}

	SweepInterval time.Duration

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is honoured when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:      getEnv("APP_NAME", defaultAppName),
		AppEnv:       getEnv("APP_ENV", defaultAppEnv),
		Port:         getEnv("PORT", defaultPort),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}
	cfg.Flutterwave.BaseURL = getEnv("FLW_BASE_URL", defaultFlutterwaveURL)
	cfg.Flutterwave.SecretKey = os.Getenv("FLW_SECRET_KEY")
	cfg.Flutterwave.SecretHash = os.Getenv("FLW_SECRET_HASH")
	cfg.Notifications.Topic = getEnv("NOTIFICATION_TOPIC", defaultNotificationTopic)
	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = getEnv("SMTP_FROM", "PayWave <no-reply@paywave.ng>")

	var err error
	if cfg.DBAutomigrate, err = getBool("DB_AUTOMIGRATE", true); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = getDuration("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.Flutterwave.Timeout, err = getDuration("FLW_TIMEOUT", defaultFlutterwaveTTL); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return Config{}, err
	}
	if cfg.Webhook.Workers, err = getInt("WEBHOOK_WORKERS", defaultWebhookWorkers); err != nil {
		return Config{}, err
	}
	if cfg.Webhook.Queue, err = getInt("WEBHOOK_QUEUE", defaultWebhookQueue); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", defaultSMTPPort); err != nil {
		return Config{}, err
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET must be set")
		}
		if cfg.Flutterwave.SecretHash == "" {
			return Config{}, fmt.Errorf("FLW_SECRET_HASH must be set")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-secret"
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether in-memory fallbacks are allowed.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration accepts KEY_SECONDS as an integer or KEY as a Go duration string.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
