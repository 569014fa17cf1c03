package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/plang/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 1000, cfg.MaxSteps)
	assert.Equal(t, 30*time.Second, cfg.RedisCacheTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PLANG_LOG_LEVEL", "DEBUG")
	t.Setenv("PLANG_MAX_STEPS", "50")
	t.Setenv("PLANG_STORE_DRIVER", "sqlite")
	t.Setenv("PLANG_REDIS_CACHE_TTL", "2m")

	cfg := config.Load()
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 50, cfg.MaxSteps)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 2*time.Minute, cfg.RedisCacheTTL)
}

func TestLoad_IgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("PLANG_MAX_STEPS", "many")
	cfg := config.Load()
	assert.Equal(t, 1000, cfg.MaxSteps)
}

func TestLoadFile_ProfileOverlaysEnv(t *testing.T) {
	t.Setenv("PLANG_LOG_LEVEL", "DEBUG")
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bundle_dir: /srv/policies\nmax_steps: 200\n"), 0o644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/policies", cfg.BundleDir)
	assert.Equal(t, 200, cfg.MaxSteps)
	assert.Equal(t, "DEBUG", cfg.LogLevel, "profile leaves untouched fields at env values")
}

func TestValidate_Rejections(t *testing.T) {
	cfg := config.Load()
	cfg.StoreDriver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = config.Load()
	cfg.StoreDriver = "postgres"
	cfg.PostgresDSN = ""
	assert.Error(t, cfg.Validate())

	cfg = config.Load()
	cfg.MaxSteps = 0
	assert.Error(t, cfg.Validate())

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_driver: oracle\n"), 0o644))
	_, err := config.LoadFile(path)
	assert.Error(t, err)
}
