package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/accounts")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 10, cfg.BcryptCost)
	require.False(t, cfg.RequireVerifiedLogin)
	require.Equal(t, StorePostgres, cfg.VerificationStore)
	require.Equal(t, 72*time.Hour, cfg.VerifyCodeTTL)
	require.Equal(t, time.Hour, cfg.ResetCodeTTL)
	require.True(t, cfg.RunMigrations)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/accounts")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("REQUIRE_VERIFIED_LOGIN", "true")
	t.Setenv("VERIFICATION_STORE", "redis")
	t.Setenv("RESET_RATE_LIMIT", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.True(t, cfg.RequireVerifiedLogin)
	require.Equal(t, StoreRedis, cfg.VerificationStore)
	require.Equal(t, 5, cfg.ResetRateLimit)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/accounts")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}
