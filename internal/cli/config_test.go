package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
realtime_url: https://rooms.example.com
auth_token: secret
database: /tmp/gridrace-test.db
player_name: alice
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rooms.example.com", cfg.RealtimeURL)
	assert.Equal(t, "secret", cfg.AuthToken)
	assert.Equal(t, "/tmp/gridrace-test.db", cfg.Database)
	assert.Equal(t, "alice", cfg.PlayerName)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
realtime_url: https://rooms.example.com
player_name: alice
`)
	t.Setenv("GRIDRACE_REALTIME_URL", "https://staging.example.com")
	t.Setenv("GRIDRACE_PLAYER_NAME", "bob")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", cfg.RealtimeURL)
	assert.Equal(t, "bob", cfg.PlayerName)
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.RealtimeURL)
	assert.NotEmpty(t, cfg.Database, "database falls back to the default path")
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "realtime_url: [broken")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
