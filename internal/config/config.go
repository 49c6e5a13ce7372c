package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	APIVersion      string        `env:"API_VERSION" envDefault:"v1"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	Auth               AuthConfig
	Redis              RedisConfig
	Minio              MinioConfig
	Jobs               JobsConfig
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

type AuthConfig struct {
	Mode                    string `env:"AUTH_MODE" envDefault:"jwt"`
	JWTSecret               string `env:"JWT_SECRET"`
	JWKSURL                 string `env:"JWKS_URL"`
	Issuer                  string `env:"JWT_ISSUER"`
	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"documents"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type JobsConfig struct {
	ExpiryScanInterval time.Duration `env:"EXPIRY_SCAN_INTERVAL" envDefault:"24h"`
	ShareSweepInterval time.Duration `env:"SHARE_SWEEP_INTERVAL" envDefault:"1h"`
}

// Load reads a .env file when one exists, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Auth.Mode = strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))
	return &cfg, nil
}

// ValidateServe checks the settings the HTTP server cannot start without.
func (c *Config) ValidateServe() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
			errs = append(errs, errors.New("JWT_SECRET or JWKS_URL is required when AUTH_MODE=jwt"))
		}
	case AuthModeFirebase:
		if c.Auth.FirebaseProjectID == "" && c.Auth.FirebaseCredentialsFile == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_FILE is required when AUTH_MODE=firebase"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q (use jwt or firebase)", c.Auth.Mode))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	return errors.Join(errs...)
}
