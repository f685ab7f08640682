// Package config reads application configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port      string
	Env       string // "development" or "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	DatabasePath string

	// Auth
	JWTSecret             string
	JWTTTL                time.Duration
	PlatformAdminEmail    string
	PlatformAdminPassword string

	// Payments
	GatewayTimeout time.Duration
	Razorpay       Razorpay
	Stripe         Stripe

	// Notifications
	SMTP SMTP

	// Background jobs
	SweepInterval time.Duration
	ReminderDays  int
}

// Razorpay is enabled when both keys are set.
type Razorpay struct {
	KeyID       string
	KeySecret   string
	BaseURL     string
	CallbackURL string
}

func (r Razorpay) Enabled() bool { return r.KeyID != "" && r.KeySecret != "" }

// Stripe is enabled when the secret key is set.
type Stripe struct {
	SecretKey  string
	BaseURL    string
	SuccessURL string
	CancelURL  string
}

func (s Stripe) Enabled() bool { return s.SecretKey != "" }

// SMTP is enabled when a host is set. Without it no reminders are sent.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTP) Enabled() bool { return s.Host != "" }

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultDatabasePath   = "tillpoint.db"
	DefaultJWTTTL         = 24 * time.Hour
	DefaultGatewayTimeout = 10 * time.Second
	DefaultSweepInterval  = time.Hour
	DefaultReminderDays   = 7
	DefaultSMTPPort       = 587
)

// Load reads configuration from environment variables, after loading a
// .env file if one is present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", DefaultPort),
		Env:                   getEnv("ENV", DefaultEnv),
		LogLevel:              getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:             getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabasePath:          getEnv("DATABASE_PATH", DefaultDatabasePath),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTTTL:                getEnvDuration("JWT_TTL", DefaultJWTTTL),
		PlatformAdminEmail:    os.Getenv("PLATFORM_ADMIN_EMAIL"),
		PlatformAdminPassword: os.Getenv("PLATFORM_ADMIN_PASSWORD"),
		GatewayTimeout:        getEnvDuration("GATEWAY_TIMEOUT", DefaultGatewayTimeout),
		Razorpay: Razorpay{
			KeyID:       os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:   os.Getenv("RAZORPAY_KEY_SECRET"),
			BaseURL:     os.Getenv("RAZORPAY_BASE_URL"),
			CallbackURL: os.Getenv("RAZORPAY_CALLBACK_URL"),
		},
		Stripe: Stripe{
			SecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
			BaseURL:    os.Getenv("STRIPE_BASE_URL"),
			SuccessURL: os.Getenv("STRIPE_SUCCESS_URL"),
			CancelURL:  os.Getenv("STRIPE_CANCEL_URL"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", DefaultSMTPPort),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", DefaultSweepInterval),
		ReminderDays:  getEnvInt("REMINDER_DAYS", DefaultReminderDays),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and coherent.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
	}
	if (c.PlatformAdminEmail == "") != (c.PlatformAdminPassword == "") {
		errs = append(errs, errors.New("PLATFORM_ADMIN_EMAIL and PLATFORM_ADMIN_PASSWORD must be set together"))
	}
	if c.Stripe.Enabled() && (c.Stripe.SuccessURL == "" || c.Stripe.CancelURL == "") {
		errs = append(errs, errors.New("STRIPE_SUCCESS_URL and STRIPE_CANCEL_URL are required with STRIPE_SECRET_KEY"))
	}
	if c.SMTP.Enabled() && c.SMTP.From == "" {
		errs = append(errs, errors.New("SMTP_FROM is required with SMTP_HOST"))
	}
	if c.ReminderDays <= 0 {
		errs = append(errs, errors.New("REMINDER_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
