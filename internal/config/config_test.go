package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 60, cfg.Poll.MaxAttempts)
	require.Equal(t, 2000, cfg.Poll.IntervalMs)
	require.Equal(t, 5, cfg.Poll.HeartbeatEvery)
	require.Equal(t, "detail_contents", cfg.Artifact.NameMarker)
	require.Equal(t, 2000, cfg.Artifact.PreviewLimit)
	require.Equal(t, "json", cfg.Artifact.FileType)
	require.Equal(t, 2*time.Second, cfg.PollInterval())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9090
backend:
  base_url: http://backend:8000
poll:
  max_attempts: 10
  interval_ms: 500
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "http://backend:8000", cfg.Backend.BaseURL)
	require.Equal(t, 10, cfg.Poll.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	require.Equal(t, 5, cfg.Poll.HeartbeatEvery)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Poll.MaxAttempts = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Backend.BaseURL = ""
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Lark.AppToken = "bascn123"
	require.Error(t, bad.Validate())

	bad.Lark.AppID = "cli_app"
	bad.Lark.AppSecret = "secret"
	bad.Lark.TableID = "tbl123"
	require.NoError(t, bad.Validate())
}
