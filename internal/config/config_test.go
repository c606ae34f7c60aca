package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validSigningKey = strings.Repeat("ab", 32)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", validSigningKey)
	t.Setenv("AUTH_JWT_SECRET", "operator-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "HOYN_QR_V1", cfg.Token.IssuerTag)
	assert.Equal(t, 300*time.Second, cfg.Token.MaxAge())
	assert.Equal(t, 30*time.Second, cfg.Token.ClockSkew())
	assert.Equal(t, "hoyn_scanner", cfg.Token.AuthorizedOrigin)
	assert.Len(t, cfg.Token.SigningKey, 32)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, time.Minute, cfg.Cache.ProfileTTL())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TOKEN_SIGNING_KEY", validSigningKey)
	t.Setenv("AUTH_JWT_SECRET", "operator-secret")
	t.Setenv("TOKEN_MAX_AGE_SECONDS", "120")
	t.Setenv("TOKEN_ISSUER_TAG", "ACME_QR_V2")
	t.Setenv("APP_PUBLIC_BASE_URL", "https://qr.example.com/")
	t.Setenv("CACHE_PROFILE_TTL_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Token.MaxAge())
	assert.Equal(t, "ACME_QR_V2", cfg.Token.IssuerTag)
	assert.Equal(t, "https://qr.example.com", cfg.App.PublicBaseURL)
	assert.Zero(t, cfg.Cache.ProfileTTL())
}

func TestLoad_RequiresSecrets(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "no signing key", env: map[string]string{"AUTH_JWT_SECRET": "x"}},
		{name: "short signing key", env: map[string]string{"AUTH_JWT_SECRET": "x", "TOKEN_SIGNING_KEY": "abcd"}},
		{name: "no jwt secret", env: map[string]string{"TOKEN_SIGNING_KEY": validSigningKey}},
		{name: "bad window", env: map[string]string{"AUTH_JWT_SECRET": "x", "TOKEN_SIGNING_KEY": validSigningKey, "TOKEN_MAX_AGE_SECONDS": "-5"}},
		{name: "bad redis db", env: map[string]string{"AUTH_JWT_SECRET": "x", "TOKEN_SIGNING_KEY": validSigningKey, "REDIS_DB": "one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"AUTH_JWT_SECRET", "TOKEN_SIGNING_KEY", "TOKEN_MAX_AGE_SECONDS", "REDIS_DB"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseSigningKey(t *testing.T) {
	key, err := ParseSigningKey("  " + validSigningKey + "\n")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = ParseSigningKey("zz" + validSigningKey[2:])
	assert.Error(t, err)
}
