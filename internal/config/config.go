package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Telegram   TelegramConfig
	Investment InvestmentConfig
	Admin      AdminConfig
	Redis      RedisConfig
	App        AppConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// TelegramConfig holds bot transport settings
type TelegramConfig struct {
	Token       string
	PollTimeout time.Duration
	// Lanes is the number of users whose updates are handled in parallel
	Lanes int
}

// InvestmentConfig holds the values shown verbatim to investors
type InvestmentConfig struct {
	MinAmount     decimal.Decimal
	PaymentWallet string
}

// AdminConfig holds the administrator allow-list
type AdminConfig struct {
	IDs []int64
}

// RedisConfig holds redis settings. An empty Addr keeps sessions and
// notification dispatch in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret      string
	LogLevel       string
	LogDev         bool
	SessionIdleTTL time.Duration
	NotifyWorkers  int
	NotifyQueue    int
}

const defaultPaymentWallet = "0x2c9bed5e9e63d9aa2d2c1fc4d4e4e3d3fa2a7c31"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	minAmount, err := decimal.NewFromString(getEnv("MIN_INVESTMENT", "500"))
	if err != nil || !minAmount.IsPositive() {
		return nil, fmt.Errorf("MIN_INVESTMENT must be a positive number")
	}

	pollTimeout, err := time.ParseDuration(getEnv("TELEGRAM_POLL_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_POLL_TIMEOUT: %w", err)
	}

	idleTTL, err := time.ParseDuration(getEnv("SESSION_IDLE_TTL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TTL: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "investment_bot"),
			SQLitePath: getEnv("SQLITE_PATH", "investment_bot.db"),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "")),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			PollTimeout: pollTimeout,
			Lanes:       getEnvInt("TELEGRAM_UPDATE_LANES", 8),
		},
		Investment: InvestmentConfig{
			MinAmount:     minAmount,
			PaymentWallet: getEnv("COMPANY_WALLET", defaultPaymentWallet),
		},
		Admin: AdminConfig{
			IDs: ParseAdminIDs(getEnv("ADMIN_IDS", "")),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		App: AppConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogDev:         getEnv("LOG_DEV", "") == "1",
			SessionIdleTTL: idleTTL,
			NotifyWorkers:  getEnvInt("NOTIFY_WORKERS", 4),
			NotifyQueue:    getEnvInt("NOTIFY_QUEUE", 256),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Telegram.Token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.Database.Driver)
	}

	return config, nil
}

// GetDSN returns the connection string for the configured driver
func (c *Config) GetDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// ParseAdminIDs parses a comma separated list of telegram user ids.
// Entries that are not integers are skipped.
func ParseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Warning: ignoring invalid admin id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}
