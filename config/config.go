package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type DatabaseConfig struct {
	URL          string `json:"-"`
	Host         string `json:"host"`
	Port         string `json:"port"`
	User         string `json:"user"`
	Password     string `json:"-"`
	Name         string `json:"name"`
	SSLMode      string `json:"ssl_mode"`
	MaxIdleConns int    `json:"max_idle_conns"`
	MaxOpenConns int    `json:"max_open_conns"`
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type RetryConfig struct {
	Attempts     int           `json:"attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
}

type RateLimitConfig struct {
	Enabled        bool          `json:"enabled"`
	MaxRequests    int           `json:"max_requests"`
	Window         time.Duration `json:"window"`
	AuthMax        int           `json:"auth_max"`
	AuthExpiration time.Duration `json:"auth_expiration"`
}

type Config struct {
	Environment       string          `json:"environment"`
	Port              string          `json:"port"`
	LogLevel          string          `json:"log_level"`
	JWTSecret         string          `json:"-"`
	TokenTTL          time.Duration   `json:"token_ttl"`
	CORSOrigins       string          `json:"cors_origins"`
	SentryDSN         string          `json:"-"`
	SettingsCacheTTL  time.Duration   `json:"settings_cache_ttl"`
	ReconcileSchedule string          `json:"reconcile_schedule"`
	Database          DatabaseConfig  `json:"database"`
	Redis             RedisConfig     `json:"redis"`
	Retry             RetryConfig     `json:"retry"`
	RateLimit         RateLimitConfig `json:"rate_limit"`
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env file not found, using system environment variables")
	}

	cfg := Config{
		Environment:       getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "3000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		TokenTTL:          getEnvAsDuration("TOKEN_TTL", 7*24*time.Hour),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SettingsCacheTTL:  getEnvAsDuration("SETTINGS_CACHE_TTL", 12*time.Hour),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 15m"),
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "gfgchapter"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "gfgchapter:"),
		},
		Retry: RetryConfig{
			Attempts:     getEnvAsInt("RETRY_ATTEMPTS", 3),
			InitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", 100*time.Millisecond),
			MaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			MaxRequests:    getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
			Window:         getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			AuthMax:        getEnvAsInt("AUTH_RATE_LIMIT_MAX", 5),
			AuthExpiration: getEnvAsDuration("AUTH_RATE_LIMIT_WINDOW", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set. Generate one with: openssl rand -base64 64")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// LogFields is the subset of the config that is safe to log at startup.
func (c Config) LogFields() logrus.Fields {
	return logrus.Fields{
		"environment":     c.Environment,
		"port":            c.Port,
		"database":        maskPassword(c.Database.DSN()),
		"redis_enabled":   c.Redis.Enabled,
		"sentry_enabled":  c.SentryDSN != "",
		"retry_attempts":  c.Retry.Attempts,
		"reconcile":       c.ReconcileSchedule,
		"rate_limit":      c.RateLimit.Enabled,
		"settings_ttl":    c.SettingsCacheTTL.String(),
		"allowed_origins": c.CORSOrigins,
	}
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(getEnv(key, ""))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := getEnv(key, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func maskPassword(dsn string) string {
	if i := strings.Index(dsn, "://"); i != -1 {
		if at := strings.Index(dsn, "@"); at > i {
			creds := dsn[i+3 : at]
			if colon := strings.Index(creds, ":"); colon != -1 {
				return dsn[:i+3] + creds[:colon] + ":*****" + dsn[at:]
			}
		}
		return dsn
	}

	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}
	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}
