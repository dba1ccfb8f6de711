package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsToLongpoll(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
rate_limit:
  exclude_updates: ["Callback"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadEnvOverridesToken(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-file"
`)
	t.Setenv("BOT_TOKEN", "from-env")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing token", cfg: Config{}},
		{name: "unknown run mode", cfg: Config{Telegram: TelegramConfig{Token: "t", RunMode: "push"}}},
		{name: "webhook without url", cfg: Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}},
		{name: "bad exclusion", cfg: Config{
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			assert.Error(t, Normalize(&cfg))
		})
	}
}
