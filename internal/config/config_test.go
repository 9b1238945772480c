package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "timing", cfg.Replay.Mode)
	assert.Equal(t, 65535, cfg.Capture.SnapLen)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
schema: /etc/agent/tibia.json
capture:
  interface: eth0
  port: 7171
replay:
  mode: hybrid
  speed: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/agent/tibia.json", cfg.Schema)
	assert.Equal(t, "eth0", cfg.Capture.Interface)
	assert.Equal(t, 7171, cfg.Capture.Port)
	assert.Equal(t, "hybrid", cfg.Replay.Mode)
	assert.InDelta(t, 2.5, cfg.Replay.Speed, 0.0001)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := &GlobalConfig{Log: LogConfig{Level: "loud"}}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsBadReplayMode(t *testing.T) {
	cfg := &GlobalConfig{Log: LogConfig{Level: "info"}, Replay: ReplayConfig{Mode: "bogus"}}
	err := cfg.Validate()
	assert.Error(t, err)
}
