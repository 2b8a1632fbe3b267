package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "BINANCE_API_KEY", "BINANCE_API_SECRET",
		"OI_CHANGE_THRESHOLD", "CHECK_INTERVAL", "WATCH_COINS",
	} {
		key := key
		if v, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Monitor.WatchCoins)
	assert.Equal(t, 300, cfg.Monitor.CheckIntervalSeconds)
	assert.Equal(t, float64(10_000_000), cfg.Monitor.OpenInterest.ChangeThreshold)
	assert.Equal(t, "5m", cfg.Monitor.OpenInterest.RatioPeriod)
	assert.False(t, cfg.Telegram.Enabled())
	assert.False(t, cfg.FileLoaded)
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
monitor:
  watch_coins: [sol, btc]
  check_interval_seconds: 60
  open_interest:
    change_threshold: 5000000
storage:
  enabled: false
`), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"TELEGRAM_BOT_TOKEN=token\nTELEGRAM_CHAT_ID=42\nOI_CHANGE_THRESHOLD=20_000_000\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_BOT_TOKEN")
		os.Unsetenv("TELEGRAM_CHAT_ID")
		os.Unsetenv("OI_CHANGE_THRESHOLD")
	})

	cfg, err := Load(yamlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"SOL", "BTC"}, cfg.Monitor.WatchCoins)
	assert.Equal(t, 60, cfg.Monitor.CheckIntervalSeconds)
	assert.Equal(t, float64(20_000_000), cfg.Monitor.OpenInterest.ChangeThreshold)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, DefaultTelegramAPIURL, cfg.Telegram.APIURL)
	assert.True(t, cfg.FileLoaded)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CHECK_INTERVAL": "120",
		"WATCH_COINS":    " eth, btc ,,ETH",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	cfg.Monitor.WatchCoins = NormalizeCoins(cfg.Monitor.WatchCoins)

	assert.Equal(t, 120, cfg.Monitor.CheckIntervalSeconds)
	assert.Equal(t, []string{"ETH", "BTC"}, cfg.Monitor.WatchCoins)
}

func TestApplyEnvCollectsParseErrors(t *testing.T) {
	env := map[string]string{
		"CHECK_INTERVAL":      "five minutes",
		"OI_CHANGE_THRESHOLD": "ten million",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, DefaultCheckInterval, cfg.Monitor.CheckIntervalSeconds)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr int
	}{
		{"defaults", func(c *Config) {}, 0},
		{"empty coins", func(c *Config) { c.Monitor.WatchCoins = nil }, 1},
		{"zero interval", func(c *Config) { c.Monitor.CheckIntervalSeconds = 0 }, 1},
		{"negative threshold", func(c *Config) { c.Monitor.OpenInterest.ChangeThreshold = -1 }, 1},
		{"storage without url", func(c *Config) { c.Storage.Enabled = true }, 1},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "x" }, 1},
		{"several problems", func(c *Config) {
			c.Monitor.WatchCoins = nil
			c.Monitor.CheckIntervalSeconds = -5
			c.Monitor.DeliveryDelayMs = -1
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.Len(t, multierr.Errors(err), tt.wantErr)
		})
	}
}

func TestNormalizeCoins(t *testing.T) {
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, NormalizeCoins([]string{"btc", " eth", "", "BTC", "sol "}))
	assert.Empty(t, NormalizeCoins(nil))
}
