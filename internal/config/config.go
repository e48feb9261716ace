package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	// Database
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	MigrationsDir string

	// Live events. Empty RedisURL disables publishing.
	RedisURL          string
	LiveEventsChannel string

	// Mail
	AppName         string
	MailFromAddress string
	MailFromName    string
	SendGridAPIKey  string
	SendGridHost    string
	EscalationEmail string

	// Push and SMS gateways
	PushGatewayURL string
	PushServerKey  string
	SMSGatewayURL  string
	SMSAPIKey      string
	SMSSignature   string

	// Channel switches. In-app is always on.
	EmailEnabled bool
	PushEnabled  bool
	SMSEnabled   bool

	TransportTimeout time.Duration
	OnlineWindow     time.Duration
	TemplateCacheTTL time.Duration

	// Worker pool shared by every job
	Workers int

	// Rate limiting: maximum gateway calls per second per channel
	RateLimit int

	// Retry policy: index 0 = delay after the first failed attempt
	MaxAttempts  int
	RetryBackoff []time.Duration

	// Background worker poll intervals
	RetryInterval    time.Duration
	RecoveryInterval time.Duration
	RecoveryAge      time.Duration
	// A job processing for longer than this is assumed abandoned.
	StaleProcessingAge time.Duration
}

// Load reads the environment, after applying the file named by ENV_FILE
// (default .env) when it exists. Variables already set win over the file.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	appName := getEnv("APP_NAME", "LMS")

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   dbURL,
		DBMaxConns:    int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:    int32(getInt("DB_MIN_CONNS", 5)),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		RedisURL:          os.Getenv("REDIS_URL"),
		LiveEventsChannel: getEnv("LIVE_EVENTS_CHANNEL", "notifications"),

		AppName:         appName,
		MailFromAddress: getEnv("MAIL_FROM_ADDRESS", "no-reply@example.com"),
		MailFromName:    getEnv("MAIL_FROM_NAME", appName),
		SendGridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		SendGridHost:    os.Getenv("SENDGRID_HOST"),
		EscalationEmail: os.Getenv("ESCALATION_EMAIL"),

		PushGatewayURL: getEnv("PUSH_GATEWAY_URL", "https://fcm.googleapis.com/fcm/send"),
		PushServerKey:  os.Getenv("PUSH_SERVER_KEY"),
		SMSGatewayURL:  os.Getenv("SMS_GATEWAY_URL"),
		SMSAPIKey:      os.Getenv("SMS_API_KEY"),
		SMSSignature:   getEnv("SMS_SIGNATURE", "- "+appName),

		EmailEnabled: getBool("NOTIFY_EMAIL_ENABLED", true),
		PushEnabled:  getBool("NOTIFY_PUSH_ENABLED", false),
		SMSEnabled:   getBool("NOTIFY_SMS_ENABLED", false),

		TransportTimeout: getDuration("TRANSPORT_TIMEOUT", 5*time.Second),
		OnlineWindow:     getDuration("ONLINE_WINDOW", 5*time.Minute),
		TemplateCacheTTL: getDuration("TEMPLATE_CACHE_TTL", time.Minute),

		Workers:   getInt("WORKERS", 10),
		RateLimit: getInt("RATE_LIMIT_PER_CHANNEL", 100),

		MaxAttempts: getInt("MAX_ATTEMPTS", 3),
		RetryBackoff: []time.Duration{
			getDuration("RETRY_BACKOFF_1", time.Second),
			getDuration("RETRY_BACKOFF_2", 5*time.Second),
			getDuration("RETRY_BACKOFF_3", 10*time.Second),
		},

		RetryInterval:      getDuration("RETRY_INTERVAL", time.Second),
		RecoveryInterval:   getDuration("RECOVERY_INTERVAL", 30*time.Second),
		RecoveryAge:        getDuration("RECOVERY_AGE", time.Minute),
		StaleProcessingAge: getDuration("STALE_PROCESSING_AGE", 5*time.Minute),
	}

	// A channel without a configured gateway cannot be enabled.
	if cfg.PushServerKey == "" {
		cfg.PushEnabled = false
	}
	if cfg.SMSGatewayURL == "" {
		cfg.SMSEnabled = false
	}

	return cfg, nil
}

// Channels returns the per-channel enable flags.
func (c *Config) Channels() domain.ChannelFlags {
	return domain.ChannelFlags{
		Email: c.EmailEnabled,
		Push:  c.PushEnabled,
		SMS:   c.SMSEnabled,
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
