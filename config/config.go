package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/crowdstack/backend/pkg/database"
	"github.com/crowdstack/backend/pkg/email"
	"github.com/crowdstack/backend/pkg/redis"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Pass     PassConfig
	AWS      AWSConfig
	Email    EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	CookieSecure       bool
	PublicBaseURL      string // used in emailed pass links
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int

	// MaxConnLifetimeMin recycles connections; 0 keeps the pgx default.
	MaxConnLifetimeMin int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds session token signing settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
	CookieName  string
}

// PassConfig holds QR pass signing settings.
type PassConfig struct {
	Secret string

	// GraceDays keeps passes valid this long after the event ends.
	GraceDays int
}

// AWSConfig holds AWS credentials and the media bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Endpoint             string
	MediaBucket          string
	PresignExpireMinutes int
}

// EmailConfig holds outbound mail settings for the worker.
type EmailConfig struct {
	Provider    string // ses, smtp or log
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string

	// InlineWorker runs the email worker inside the API process.
	InlineWorker bool
	Concurrency  int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}


// Mail returns the sender configuration; SES reuses the AWS credentials.
func (c *Config) Mail() email.Config {
	return email.Config{
		Provider:        c.Email.Provider,
		FromAddress:     c.Email.FromAddress,
		FromName:        c.Email.FromName,
		SMTPHost:        c.Email.SMTPHost,
		SMTPPort:        c.Email.SMTPPort,
		SMTPUser:        c.Email.SMTPUser,
		SMTPPass:        c.Email.SMTPPass,
		Region:          c.AWS.Region,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
	}
}

// Pool maps database settings onto the pgx pool config.
func (c *Config) Pool() database.PoolConfig {
	return database.PoolConfig{
		DSN:             c.Database.DSN(),
		MaxConns:        int32(c.Database.MaxConns),
		MinConns:        int32(c.Database.MinConns),
		MaxConnLifetime: time.Duration(c.Database.MaxConnLifetimeMin) * time.Minute,
	}
}

// RedisOptions maps redis settings onto the client options.
func (c *Config) RedisOptions() redis.Options {
	return redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		PoolSize: c.Redis.PoolSize,
	}
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			CookieSecure:       getEnvBool("COOKIE_SECURE", false),
			PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "crowdstack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 0),
			MinConns: getEnvInt("DB_MIN_CONNS", 0),

			MaxConnLifetimeMin: getEnvInt("DB_MAX_CONN_LIFETIME_MIN", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24*7),
			CookieName:  getEnv("SESSION_COOKIE_NAME", "crowdstack_session"),
		},
		Pass: PassConfig{
			Secret:    getEnv("PASS_SECRET", ""),
			GraceDays: getEnvInt("PASS_GRACE_DAYS", 2),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			MediaBucket:          getEnv("AWS_S3_MEDIA_BUCKET", "crowdstack-media"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Email: EmailConfig{
			Provider:     strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@crowdstack.app"),
			FromName:     getEnv("EMAIL_FROM_NAME", "CrowdStack"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
			InlineWorker: getEnvBool("EMAIL_WORKER_INLINE", false),
			Concurrency:  getEnvInt("EMAIL_WORKER_CONCURRENCY", 2),
		},
	}
	if cfg.Pass.Secret == "" {
		cfg.Pass.Secret = cfg.JWT.Secret + ":pass"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWT.ExpireHours <= 0 {
		return fmt.Errorf("JWT_EXPIRE_HOURS must be positive, got %d", c.JWT.ExpireHours)
	}
	switch c.Email.Provider {
	case "ses", "smtp", "log":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be ses, smtp or log, got %q", c.Email.Provider)
	}
	if c.Email.Provider == "smtp" && c.Email.SMTPHost == "" {
		return errors.New("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
	}
	if c.Email.Concurrency < 1 {
		return fmt.Errorf("EMAIL_WORKER_CONCURRENCY must be at least 1, got %d", c.Email.Concurrency)
	}
	if c.Pass.GraceDays <= 0 {
		return fmt.Errorf("PASS_GRACE_DAYS must be positive, got %d", c.Pass.GraceDays)
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
