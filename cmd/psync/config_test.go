package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/photo-sync/internal/report"
	"github.com/franz/photo-sync/internal/util"
)

func TestMain(m *testing.M) {
	util.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestRequireConfigStringMissing(t *testing.T) {
	_, err := RequireConfigString("not-a-key")
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "PSYNC_NOT_A_KEY")
	assert.Contains(t, err.Error(), "--not-a-key")
}

func TestConfigFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PSYNC_EVENTS_DIR", dir)
	t.Setenv("PSYNC_CONCURRENCY", "3")
	initConfig()

	assert.Equal(t, dir, GetConfigString("events-dir", "artifacts"))
	assert.Equal(t, 3, GetConfigInt("concurrency", 0))
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, "fallback", GetConfigString("not-a-key", "fallback"))
	assert.Equal(t, 8, GetConfigInt("not-a-key", 8))
}

func TestLoadSettingsRequiresKeys(t *testing.T) {
	_, err := loadSettings("not-a-key")
	assert.ErrorIs(t, err, util.ErrInvalidConfig)

	set, err := loadSettings()
	require.NoError(t, err)
	assert.NotEmpty(t, set.EventsDir)
}

func TestLoadSettingsRequiresLedgerPath(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("db", ""))
	t.Cleanup(func() { flags.Set("db", "") })

	_, err := loadSettings("db")
	require.ErrorIs(t, err, util.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "PSYNC_DB")

	path := filepath.Join(t.TempDir(), "ledger.db")
	require.NoError(t, flags.Set("db", path))

	set, err := loadSettings("db")
	require.NoError(t, err)
	assert.Equal(t, path, set.DB)
}

func TestLoadSettingsExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PSYNC_STAGING", "~/staging")
	initConfig()

	orig := homedirExpand
	homedirExpand = func(path string) (string, error) {
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(home, path[2:]), nil
		}
		return path, nil
	}
	t.Cleanup(func() { homedirExpand = orig })

	set, err := loadSettings("staging")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "staging"), set.Staging)
}

func TestApplyLogLevel(t *testing.T) {
	t.Cleanup(func() {
		util.SetQuiet(false)
		util.SetVerbose(false)
	})

	assert.Equal(t, report.LevelInfo, applyLogLevel())
}
