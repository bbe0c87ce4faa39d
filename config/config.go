package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	BaseURL        string `validate:"required,url"`
	SearchLocation string `validate:"required"`
	Headless       bool
	GotoTimeoutMs  int `validate:"gt=0"`
	MaxIdleRounds  int `validate:"gt=0"`

	DBDriver         string `validate:"oneof=postgres sqlite"`
	DBURL            string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string
	TableName        string `validate:"required"`

	MaxConcurrency int `validate:"gt=0"`
	RateLimitMs    int `validate:"gte=0"`
	MaxRetries     int `validate:"gt=0"`

	DataDir     string `validate:"required"`
	AuditFormat string `validate:"oneof=json yaml"`
	LogLevel    string `validate:"oneof=debug info warn warning error"`
	LogFile     string
	ChromeBin   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		BaseURL:        strings.TrimRight(getEnv("BASE_URL", "https://www.olx.co.id"), "/"),
		SearchLocation: getEnv("SEARCH_LOCATION", "Indonesia"),
		Headless:       getEnvBool("HEADLESS", true),
		GotoTimeoutMs:  getEnvInt("GOTO_TIMEOUT_MS", 60000),
		MaxIdleRounds:  getEnvInt("MAX_IDLE_ROUNDS", 3),

		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBURL:            getEnv("DB_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5435"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("POSTGRES_DB", "scrape-olx"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/scrape_olx.db"),
		TableName:        getEnv("TABLE_NAME", "scrape_data"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		DataDir:     getEnv("DATA_DIR", "data"),
		AuditFormat: strings.ToLower(getEnv("AUDIT_FORMAT", "json")),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:     getEnv("LOG_FILE", ""),
		ChromeBin:   getEnv("CHROME_BIN", ""),
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DSN returns the connection string for the configured driver. An explicit
// DB_URL always wins.
func (c *Config) DSN() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.postgresURL(c.PostgresPassword)
}

// SafeDSN returns DSN with any password masked, for logging.
func (c *Config) SafeDSN() string {
	if c.DBURL != "" {
		u, err := url.Parse(c.DBURL)
		if err != nil || u.User == nil {
			return c.DBURL
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
		return u.String()
	}
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.postgresURL("***")
}

func (c *Config) postgresURL(password string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, password),
		Host:     c.PostgresHost + ":" + c.PostgresPort,
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=" + c.PostgresSSLMode,
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
