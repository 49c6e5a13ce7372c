package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "v1", cfg.APIVersion)
	assert.Equal(t, AuthModeJWT, cfg.Auth.Mode)
	assert.Equal(t, "documents", cfg.Minio.Bucket)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.ExpiryScanInterval)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestParse_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/sci")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("AUTH_MODE", " Firebase ")
	t.Setenv("FIREBASE_PROJECT_ID", "sci-prod")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("SHARE_SWEEP_INTERVAL", "15m")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.EqualValues(t, 25, cfg.DBMaxConns)
	assert.Equal(t, AuthModeFirebase, cfg.Auth.Mode)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, 15*time.Minute, cfg.Jobs.ShareSweepInterval)
	assert.NoError(t, cfg.ValidateServe())
}

func TestParse_Malformed(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	_, err := Parse()
	assert.Error(t, err)
}

func TestValidateServe(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"jwt with secret", func(c *Config) {}, ""},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL is required"},
		{"jwt without keys", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT_SECRET or JWKS_URL"},
		{"jwks only", func(c *Config) { c.Auth.JWTSecret, c.Auth.JWKSURL = "", "https://idp/jwks.json" }, ""},
		{"firebase without project", func(c *Config) { c.Auth.Mode = AuthModeFirebase }, "FIREBASE_PROJECT_ID"},
		{"unknown mode", func(c *Config) { c.Auth.Mode = "saml" }, "unknown AUTH_MODE"},
		{"negative rate limit", func(c *Config) { c.RateLimitPerMinute = -1 }, "RATE_LIMIT_PER_MINUTE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DatabaseURL: "postgres://localhost/sci",
				Auth:        AuthConfig{Mode: AuthModeJWT, JWTSecret: "s3cret"},
			}
			tt.mutate(cfg)
			err := cfg.ValidateServe()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
