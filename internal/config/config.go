package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Mailbox provider selection values.
const (
	MailboxProviderIMAP  = "imap"
	MailboxProviderGmail = "gmail"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Mailbox  MailboxConfig
	SMTP     SMTPConfig
	Ingest   IngestConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// MailboxConfig selects and parameterizes the inbound mail transport. Provider
// is chosen once at startup; credential validation happens when a session is
// dialed so a misconfigured mailbox fails the ingestion run, not the process.
type MailboxConfig struct {
	Provider string
	IMAPHost string
	IMAPPort string
	Address  string
	Password string

	GmailTokenFile    string
	GmailClientID     string
	GmailClientSecret string
}

// SMTPConfig holds outbound mail transport values.
type SMTPConfig struct {
	Host     string
	Port     int
	Address  string
	Password string
}

// IngestConfig controls the background ingestion job.
type IngestConfig struct {
	Enabled           bool
	IntervalMinutes   int
	RunTimeoutSeconds int
	LeaderLockKey     string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	smtpPort := getEnvAsInt("EMAIL_PORT_SMTP", 587)

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Mailbox: MailboxConfig{
			Provider:          getEnv("MAILBOX_PROVIDER", MailboxProviderIMAP),
			IMAPHost:          getEnv("EMAIL_HOST_IMAP", "imap.gmail.com"),
			IMAPPort:          getEnv("EMAIL_PORT_IMAP", "993"),
			Address:           os.Getenv("EMAIL_ADDRESS"),
			Password:          os.Getenv("EMAIL_PASSWORD"),
			GmailTokenFile:    getEnv("GMAIL_TOKEN_FILE", "tokens/token.json"),
			GmailClientID:     os.Getenv("GMAIL_CLIENT_ID"),
			GmailClientSecret: os.Getenv("GMAIL_CLIENT_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("EMAIL_HOST_SMTP"),
			Port:     smtpPort,
			Address:  os.Getenv("EMAIL_ADDRESS"),
			Password: os.Getenv("EMAIL_PASSWORD"),
		},
		Ingest: IngestConfig{
			Enabled:           getEnvAsBool("INGEST_ENABLED", true),
			IntervalMinutes:   getEnvAsInt("INGEST_INTERVAL_MINUTES", 10),
			RunTimeoutSeconds: getEnvAsInt("INGEST_RUN_TIMEOUT_SECONDS", 120),
			LeaderLockKey:     getEnv("INGEST_LEADER_LOCK_KEY", "helpdesk:ingest:leader"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Interval returns the ingestion period.
func (i IngestConfig) Interval() time.Duration {
	minutes := i.IntervalMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return time.Duration(minutes) * time.Minute
}

// RunTimeout bounds a single ingestion run so a hung mailbox connection cannot
// stall subsequent ticks.
func (i IngestConfig) RunTimeout() time.Duration {
	if i.RunTimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(i.RunTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
