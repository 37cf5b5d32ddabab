package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ollamachat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.Archive.Enabled())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  url: http://gpu-box:8000
  timeout: 3s
model: gemma2:2b
log:
  level: debug
archive:
  path: /tmp/chat.db
  limit: 20
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:8000", cfg.Server.URL)
	assert.Equal(t, 3*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "gemma2:2b", cfg.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, 20, cfg.Archive.Limit)
	assert.Equal(t, "auto", cfg.Render.Style)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "server:\n  url: http://from-file:8000\nmodel: from-file\n")
	t.Setenv("OLLAMACHAT_SERVER_URL", "http://from-env:8000")
	t.Setenv("OLLAMACHAT_MODEL", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server", "", "")
	flags.String("model", "", "")
	require.NoError(t, flags.Parse([]string{"--model", "from-flag"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8000", cfg.Server.URL)
	assert.Equal(t, "from-flag", cfg.Model)
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "archive:\n  path: ~/chats.db\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "chats.db"), cfg.Archive.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad scheme", "server:\n  url: ftp://host\n"},
		{"websocket scheme", "server:\n  url: ws://localhost:8000\n"},
		{"no host", "server:\n  url: http://\n"},
		{"zero timeout", "server:\n  timeout: 0s\n"},
		{"bad limit", "archive:\n  limit: 0\n"},
		{"bad yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
