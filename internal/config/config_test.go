package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "local")
	t.Setenv("LOCAL_DATA_DIR", t.TempDir())
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ALLOW_ORIGINS", "https://portal.gov.br, *.aprendiz.org,")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DESCRIPTION_MIN_LEN", "")
	t.Setenv("REFINE_MIN_LEN", "")
	t.Setenv("RATE_LIMIT_PUBLIC_RPS", "")
	t.Setenv("RATE_LIMIT_PUBLIC_BURST", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StoreLocal, cfg.StoreBackend)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://portal.gov.br", "*.aprendiz.org"}, cfg.AllowOrigins)
	assert.Equal(t, 20, cfg.Protocol.DescriptionMinLen)
	assert.Equal(t, 10, cfg.Refine.MinLen)
	assert.Empty(t, cfg.Refine.APIKey)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 10, Burst: 20}, cfg.RateLimitPublic)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("DESCRIPTION_MIN_LEN", "15")
	t.Setenv("RATE_LIMIT_PUBLIC_RPS", "2.5")
	t.Setenv("RATE_LIMIT_PUBLIC_BURST", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 15, cfg.Protocol.DescriptionMinLen)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 2.5, Burst: 5}, cfg.RateLimitPublic)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string][2]string{
		"segredo curto":    {"JWT_SECRET", "curto"},
		"sem redis":        {"REDIS_URL", ""},
		"backend inválido": {"STORE_BACKEND", "mongo"},
		"porta inválida":   {"PORT", "abc"},
		"ttl inválido":     {"SESSION_TTL", "amanhã"},
		"descrição curta":  {"DESCRIPTION_MIN_LEN", "5"},
		"limite negativo":  {"RATE_LIMIT_PUBLIC_RPS", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadStoreBackends(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_DSN", "")
	_, err := LoadStore()
	assert.Error(t, err)

	t.Setenv("DB_DSN", "postgres://localhost/ouvidoria")
	cfg, err := LoadStore()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/ouvidoria", cfg.DBDSN)

	t.Setenv("STORE_BACKEND", "rest")
	t.Setenv("REST_URL", "https://abc.supabase.co/")
	t.Setenv("REST_API_KEY", "chave")
	cfg, err = LoadStore()
	require.NoError(t, err)
	assert.Equal(t, "https://abc.supabase.co", cfg.RESTURL)
}
