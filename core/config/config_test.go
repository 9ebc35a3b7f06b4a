package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: from-file
  admin_id: 5
rate_limit:
  interval_ms: 300
  exclude_updates: [" Callback ", "location"]
`)
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Telegram.Token)
	require.EqualValues(t, 5, cfg.Telegram.AdminID)
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, []string{"callback", "location"}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-only")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "env-only", cfg.Telegram.Token)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"missing token":    {},
		"bad run mode":     {Telegram: TelegramConfig{Token: "x", RunMode: "carrier-pigeon"}},
		"webhook no url":   {Telegram: TelegramConfig{Token: "x", RunMode: "webhook"}},
		"bad exclusion":    {Telegram: TelegramConfig{Token: "x"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}},
		"negative workers": {Telegram: TelegramConfig{Token: "x", SenderWorkers: -1}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, Normalize(&cfg))
		})
	}
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := Config{Telegram: TelegramConfig{Token: " x ", RunMode: "Polling"}}
	require.NoError(t, Normalize(&cfg))
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, "x", cfg.Telegram.Token)
}
