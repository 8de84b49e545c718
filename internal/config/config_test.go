package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return FromLookuper(context.Background(), envconfig.MapLookuper(env))
}

func TestFromLookuper_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, 10, cfg.Password.BcryptCost)
	assert.Equal(t, 8, cfg.Password.MinLength)
	assert.True(t, cfg.Password.RequireDigit)
	assert.True(t, cfg.Password.RequireUpper)
	assert.False(t, cfg.Password.RequireSymbol)
	assert.Equal(t, 5, cfg.Limits.LoginMaxFailures)
	assert.Equal(t, 15*time.Minute, cfg.Limits.LoginFailureWindow)
	assert.Equal(t, uint64(5), cfg.Mongo.ConnectRetries)
	assert.Equal(t, uint64(5), cfg.Redis.ConnectRetries)
	assert.Nil(t, cfg.LogPretty)
	assert.True(t, cfg.Pretty())
}

func TestFromLookuper_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"PORT":                  "9090",
		"ENV":                   "Test",
		"JWT_EXPIRES_IN":        "90m",
		"CORS_ORIGINS":          "https://a.example,https://b.example",
		"LOG_PRETTY":            "false",
		"REDIS_DB":              "3",
		"REDIS_CONNECT_RETRIES": "2",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, EnvTest, cfg.Env)
	assert.Equal(t, 90*time.Minute, cfg.JWT.ExpiresIn)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.Pretty())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, uint64(2), cfg.Redis.ConnectRetries)
	assert.Equal(t, uint64(5), cfg.Mongo.ConnectRetries)
}

func TestValidate_ProductionRequiresLongSecret(t *testing.T) {
	_, err := load(t, map[string]string{"ENV": "production"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	_, err = load(t, map[string]string{"ENV": "production", "JWT_SECRET": "short"})
	require.Error(t, err)

	cfg, err := load(t, map[string]string{
		"ENV":        "production",
		"JWT_SECRET": "0123456789abcdef0123456789abcdef",
	})
	require.NoError(t, err)
	assert.False(t, cfg.Pretty())
}

func TestValidate_Bounds(t *testing.T) {
	cases := map[string]map[string]string{
		"bcrypt cost too low":  {"BCRYPT_COST": "2"},
		"min length zero":      {"PASSWORD_MIN_LENGTH": "0"},
		"no login failures":    {"LOGIN_MAX_FAILURES": "0"},
		"prefix without slash": {"API_PREFIX": "api"},
		"zero rate":            {"RATE_LIMIT_RPS": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, env)
			assert.Error(t, err)
		})
	}
}

func TestSigningSecret(t *testing.T) {
	cfg, err := load(t, map[string]string{"JWT_SECRET": "configured"})
	require.NoError(t, err)
	secret, generated, err := cfg.SigningSecret()
	require.NoError(t, err)
	assert.Equal(t, "configured", secret)
	assert.False(t, generated)

	cfg, err = load(t, map[string]string{})
	require.NoError(t, err)
	first, generated, err := cfg.SigningSecret()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.NotEmpty(t, first)

	second, _, err := cfg.SigningSecret()
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "each call generates a fresh secret")
}
