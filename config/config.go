package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every configuration value of the application.
type Config struct {
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int
	InternalAPIKey string
	RequestTimeout time.Duration
	AllowedOrigins []string

	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration
	DBPingAttempts    int

	// AuthRatePerMinute caps login and password reset calls per client address. Zero disables it.
	AuthRatePerMinute int
	AuthRateBurst     int

	FeedBaseURL       string
	FeedAPIKey        string
	FeedRatePerSecond float64
	FeedTimeout       time.Duration
	FeedCacheTTL      time.Duration
	FeedSyncInterval  time.Duration

	RedisURL string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// R2Enabled reports whether object storage was configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

// SMTPEnabled reports whether outgoing email was configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Load reads the configuration from environment variables.
// A .env file is loaded first when present (useful for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecretKey:      os.Getenv("JWT_SECRET_KEY"),
		InternalAPIKey:    os.Getenv("INTERNAL_API_KEY"),
		FeedBaseURL:       getEnvOrDefault("FEED_BASE_URL", "https://api.api-futebol.com.br/v1"),
		FeedAPIKey:        os.Getenv("FEED_API_KEY"),
		RedisURL:          os.Getenv("REDIS_URL"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnvOrDefault("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.FeedTimeout, err = durationEnv("FEED_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FeedCacheTTL, err = durationEnv("FEED_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FeedSyncInterval, err = durationEnv("FEED_SYNC_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	if cfg.DBConnMaxLifetime, err = durationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 10, 1); err != nil {
		return nil, err
	}
	if cfg.DBPingAttempts, err = intEnv("DB_PING_ATTEMPTS", 5, 1); err != nil {
		return nil, err
	}
	if cfg.AuthRatePerMinute, err = intEnv("AUTH_RATE_PER_MINUTE", 10, 0); err != nil {
		return nil, err
	}
	if cfg.AuthRateBurst, err = intEnv("AUTH_RATE_BURST", 5, 1); err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(getEnvOrDefault("FEED_RATE_PER_SECOND", "2"), 64)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("FEED_RATE_PER_SECOND must be a positive number, got %q", os.Getenv("FEED_RATE_PER_SECOND"))
	}
	cfg.FeedRatePerSecond = rate

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{"*"}
	}

	r2 := []string{cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName, cfg.R2PublicBaseURL}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return nil, fmt.Errorf("R2 storage is partially configured: set all R2_* variables or none")
	}

	if cfg.SMTPHost != "" {
		smtpPort, err := strconv.Atoi(getEnvOrDefault("SMTP_PORT", "587"))
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT environment variable: %w", err)
		}
		cfg.SMTPPort = smtpPort
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func intEnv(key string, def, min int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if n < min {
		return 0, fmt.Errorf("%s must be at least %d, got %d", key, min, n)
	}
	return n, nil
}
