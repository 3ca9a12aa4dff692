package config_test

import (
	"testing"
	"time"

	"github.com/reception-desk/api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADMIN_SIGNUP_CODE", "let-me-in")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "let-me-in", cfg.AdminSignupCode)
	assert.False(t, cfg.AllowAnonymousOrders)
	assert.False(t, cfg.VerifyOrderTotal)
	assert.False(t, cfg.StrictReceive)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADMIN_SIGNUP_CODE", "code")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOW_ANONYMOUS_ORDERS", "true")
	t.Setenv("VERIFY_ORDER_TOTAL", "true")
	t.Setenv("STRICT_RECEIVE", "true")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.AllowAnonymousOrders)
	assert.True(t, cfg.VerifyOrderTotal)
	assert.True(t, cfg.StrictReceive)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_MissingAdminCode(t *testing.T) {
	t.Setenv("ADMIN_SIGNUP_CODE", "")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrMissingAdminCode)
}

func TestValidate_RejectsNonPositiveTTL(t *testing.T) {
	cfg := config.Config{AdminSignupCode: "x", JWTSecret: "s", SessionTTL: 0}
	assert.Error(t, cfg.Validate())
}
