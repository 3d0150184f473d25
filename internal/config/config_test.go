package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vortex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPC.PrimaryURL)
	assert.Equal(t, 10, cfg.Feed.PollLimit)
	assert.Equal(t, 2*time.Second, cfg.Feed.PollFloor)
	assert.Equal(t, 60*time.Second, cfg.Feed.PollCeiling)
	assert.Equal(t, 1000, cfg.Feed.WindowCapacity)
	assert.Equal(t, 500, cfg.Feed.CacheCapacity)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfig(t, `
rpc:
  primary_url: https://rpc.example.com
  fallback_urls:
    - https://fb1.example.com
    - https://fb2.example.com
  websocket_url: wss://rpc.example.com
  attempt_timeout: 5s
feed:
  poll_limit: 25
  poll_floor: 1s
  poll_ceiling: 30s
tokens:
  - mintA
  - mintB
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPC.PrimaryURL)
	assert.Equal(t, []string{
		"https://rpc.example.com",
		"https://fb1.example.com",
		"https://fb2.example.com",
	}, cfg.Endpoints())
	assert.Equal(t, 5*time.Second, cfg.RPC.AttemptTimeout)
	assert.Equal(t, 25, cfg.Feed.PollLimit)
	assert.Equal(t, []string{"mintA", "mintB"}, cfg.Tokens)

	// Untouched sections keep their defaults.
	assert.Equal(t, 1000, cfg.Feed.WindowCapacity)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VORTEX_RPC_URL", "https://env.example.com")
	t.Setenv("VORTEX_RPC_FALLBACKS", "https://a.example.com, https://b.example.com")
	t.Setenv("VORTEX_TOKENS", "envMint")
	t.Setenv("VORTEX_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.RPC.PrimaryURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.RPC.FallbackURLs)
	assert.Equal(t, []string{"envMint"}, cfg.Tokens)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadBounds(t *testing.T) {
	cfg := Default()
	cfg.Feed.PollFloor = 10 * time.Second
	cfg.Feed.PollCeiling = time.Second
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RPC.PrimaryURL = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Feed.PollLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
