package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsFromEnv(t *testing.T) {
	t.Setenv("REPURPOSER_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("REPURPOSER_TELEGRAM_ADMINID", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, 10*time.Second, cfg.Telegram.RetryBackoff)
	assert.Equal(t, LedgerBackendFile, cfg.Ledger.Backend)
	assert.Equal(t, "access_tokens.json", cfg.Ledger.Path)
	assert.Equal(t, 30, cfg.Ledger.DefaultDays)
	assert.Equal(t, int64(50*1024*1024), cfg.Media.MaxVideoBytes)
	assert.Equal(t, 60*time.Second, cfg.Media.MaxVideoDuration)
	assert.Equal(t, int64(1000), cfg.Media.MinOutputBytes)
	assert.Equal(t, 95, cfg.Media.JPEGQuality)
	assert.Equal(t, 6*time.Hour, cfg.Jobs.ScratchMaxAge)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("REPURPOSER_TELEGRAM_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token")
}

func TestDecode_YAML(t *testing.T) {
	const doc = `
telegram:
  token: "t"
  retrybackoff: 3s
ledger:
  backend: redis
  rediskey: custom:tokens
media:
  maxvideoduration: 90s
jobs:
  maxconcurrent: 2
`
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Telegram.RetryBackoff)
	assert.Equal(t, LedgerBackendRedis, cfg.Ledger.Backend)
	assert.Equal(t, "custom:tokens", cfg.Ledger.RedisKey)
	assert.Equal(t, 90*time.Second, cfg.Media.MaxVideoDuration)
	assert.Equal(t, int64(2), cfg.Jobs.MaxConcurrent)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Telegram: TelegramConfig{Token: "t"},
			Ledger:   LedgerConfig{Backend: LedgerBackendFile, Path: "x.json", DefaultDays: 30},
			Media:    MediaConfig{MaxVideoBytes: 1, MaxVideoDuration: time.Second, JPEGQuality: 95},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *AppConfig)
		errMsg string
	}{
		{name: "ok", mutate: func(c *AppConfig) {}},
		{name: "unknown backend", mutate: func(c *AppConfig) { c.Ledger.Backend = "sqlite" }, errMsg: "unknown ledger backend"},
		{name: "no path", mutate: func(c *AppConfig) { c.Ledger.Path = "" }, errMsg: "ledger.path"},
		{name: "bad days", mutate: func(c *AppConfig) { c.Ledger.DefaultDays = 0 }, errMsg: "defaultdays"},
		{name: "bad quality", mutate: func(c *AppConfig) { c.Media.JPEGQuality = 101 }, errMsg: "jpegquality"},
		{name: "archive without bucket", mutate: func(c *AppConfig) { c.Archive.Enabled = true }, errMsg: "archive.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
