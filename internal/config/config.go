package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
	Mail     MailConfig
	Queue    QueueConfig
}

type ServerConfig struct {
	Port        int
	StoreDriver string // postgres | memory
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// BootstrapSecret enables POST /auth/bootstrap-admin when set.
	BootstrapSecret string
}

// GatewayConfig configures the payment gateway client.
type GatewayConfig struct {
	BaseURL     string
	SecretKey   string
	Currency    string
	CallbackURL string
	ReturnURL   string
	Timeout     time.Duration
	// InitiateLockTTL bounds how long a booking stays locked during initiation.
	InitiateLockTTL time.Duration
}

type MailConfig struct {
	Provider     string // smtp | plunk | log
	From         string
	ReplyTo      string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	PlunkAPIKey  string
	PlunkAPIURL  string
}

type QueueConfig struct {
	Concurrency int
	MaxRetry    int
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:        getEnvAsInt("PORT", 8080),
			StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "staybook"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     redisAddr(),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			TokenTTL:        getEnvAsDuration("JWT_TTL", 72*time.Hour),
			BootstrapSecret: getEnv("ADMIN_BOOTSTRAP_SECRET", ""),
		},
		Gateway: GatewayConfig{
			BaseURL:         getEnv("CHAPA_BASE_URL", "https://api.chapa.co/v1"),
			SecretKey:       getEnv("CHAPA_SECRET_KEY", ""),
			Currency:        getEnv("PAYMENT_CURRENCY", "ETB"),
			CallbackURL:     getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8080/payments/callback"),
			ReturnURL:       getEnv("PAYMENT_RETURN_URL", "http://localhost:3000/payments/complete"),
			Timeout:         getEnvAsDuration("GATEWAY_TIMEOUT", 15*time.Second),
			InitiateLockTTL: getEnvAsDuration("PAYMENT_INITIATE_LOCK_TTL", 30*time.Second),
		},
		Mail: MailConfig{
			Provider:     getEnv("MAIL_PROVIDER", "smtp"),
			From:         getEnv("MAIL_FROM", "noreply@alxtravelapp.com"),
			ReplyTo:      getEnv("MAIL_REPLY_TO", ""),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "465"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			PlunkAPIKey:  getEnv("PLUNK_API_KEY", ""),
			PlunkAPIURL:  getEnv("PLUNK_API_URL", "https://api.useplunk.com/v1/send"),
		},
		Queue: QueueConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 5),
			MaxRetry:    getEnvAsInt("NOTIFY_MAX_RETRY", 5),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = "dev-secret"
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set outside development")
	}
	switch c.Server.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Server.StoreDriver)
	}
	switch c.Mail.Provider {
	case "smtp", "plunk", "log":
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}
	if c.Gateway.Timeout <= 0 {
		return errors.New("GATEWAY_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DSN returns the Postgres connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// redisAddr prefers REDIS_ADDR, then REDIS_HOST/REDIS_PORT, then the compose service name.
func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		return host + ":" + getEnv("REDIS_PORT", "6379")
	}
	if getEnvAsBool("RUN_LOCAL", false) {
		return "127.0.0.1:6379"
	}
	return "redis:6379"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
