package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.DatabasePath)
	assert.Equal(t, DefaultJWTTTL, cfg.JWTTTL)
	assert.Equal(t, DefaultGatewayTimeout, cfg.GatewayTimeout)
	assert.Equal(t, DefaultReminderDays, cfg.ReminderDays)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.Razorpay.Enabled())
	assert.False(t, cfg.Stripe.Enabled())
	assert.False(t, cfg.SMTP.Enabled())
}

func TestFromEnv_CustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("REMINDER_DAYS", "14")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	t.Setenv("SMTP_HOST", "smtp.test")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_FROM", "billing@tillpoint.test")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 14, cfg.ReminderDays)
	assert.True(t, cfg.Razorpay.Enabled())
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestFromEnv_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("JWT_TTL", "forever")
	t.Setenv("SMTP_PORT", "smtp")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultJWTTTL, cfg.JWTTTL)
	assert.Equal(t, DefaultSMTPPort, cfg.SMTP.Port)
}

func TestFromEnv_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{Env: "development", JWTSecret: "dev-secret", ReminderDays: 7}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short production secret", func(c *Config) { c.Env = "production" }, "at least 32 characters"},
		{"admin email without password", func(c *Config) { c.PlatformAdminEmail = "ops@test" }, "must be set together"},
		{"stripe without return pages", func(c *Config) { c.Stripe.SecretKey = "sk_test" }, "STRIPE_SUCCESS_URL"},
		{"smtp without sender", func(c *Config) { c.SMTP.Host = "smtp.test" }, "SMTP_FROM"},
		{"non-positive reminder window", func(c *Config) { c.ReminderDays = 0 }, "REMINDER_DAYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
