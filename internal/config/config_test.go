package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsOnEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 64, cfg.PoolFrames)
	require.Equal(t, "./data", cfg.DataDir)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadDefaultsOnMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	require.NoError(t, err)
	require.Equal(t, 64, cfg.PoolFrames)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relstore.ini")
	contents := "[buffer]\npool_frames = 128\n[storage]\ndata_dir = /tmp/relstore\n[log]\nlevel = debug\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 128, cfg.PoolFrames)
	require.Equal(t, "/tmp/relstore", cfg.DataDir)
	require.Equal(t, "debug", cfg.LogLevel)
}
