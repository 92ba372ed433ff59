package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/franz/photo-sync/internal/report"
	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (PSYNC_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val <= 0 {
		return defaultValue
	}
	return val
}

// RequireConfigString returns a config value that must be set
func RequireConfigString(key string) (string, error) {
	val := viper.GetString(key)
	if val == "" {
		env := "PSYNC_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		return "", fmt.Errorf("%w: %s is required (use --%s, set %s, or add it to the config file)",
			util.ErrInvalidConfig, key, key, env)
	}
	return val, nil
}

// settings is the resolved configuration of a run
type settings struct {
	Source      string
	Dest        string
	Legacy      string
	DB          string
	Staging     string
	EventsDir   string
	Concurrency int
}

// loadSettings resolves configuration and checks that every key in required is set
func loadSettings(required ...string) (*settings, error) {
	for _, key := range required {
		if _, err := RequireConfigString(key); err != nil {
			return nil, err
		}
	}

	set := &settings{
		Source:      viper.GetString("source"),
		Dest:        viper.GetString("dest"),
		Legacy:      viper.GetString("legacy"),
		DB:          viper.GetString("db"),
		Staging:     viper.GetString("staging"),
		EventsDir:   GetConfigString("events-dir", "artifacts"),
		Concurrency: GetConfigInt("concurrency", 0),
	}

	// config files and env vars may use ~/ paths, which no shell expands
	for _, path := range []*string{&set.Source, &set.Dest, &set.Legacy, &set.DB, &set.Staging, &set.EventsDir} {
		expanded, err := homedirExpand(*path)
		if err != nil {
			return nil, fmt.Errorf("%w: expand %q: %v", util.ErrInvalidConfig, *path, err)
		}
		*path = expanded
	}
	return set, nil
}

// homedirExpand is replaced in tests
var homedirExpand = homedir.Expand

// applyLogLevel sets console verbosity and returns the matching event log level
func applyLogLevel() report.EventLevel {
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")

	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	switch {
	case quiet:
		return report.LevelWarning
	case verbose:
		return report.LevelDebug
	default:
		return report.LevelInfo
	}
}

// openEventLogger opens the JSONL event log, falling back to a no-op logger
func openEventLogger(dir string, level report.EventLevel) *report.EventLogger {
	logger, err := report.NewEventLogger(dir, level)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.InfoLog("Event log: %s", logger.Path())
	return logger
}

// openLedger opens the ledger database, tuning SQLite when the file lives on
// a network filesystem
func openLedger(path string) (*store.Store, error) {
	util.InfoLog("Opening database: %s", path)

	network := util.IsNetworkPath(filepath.Dir(path))
	if network {
		util.WarnLog("Ledger is on a network filesystem, applying network pragmas")
	}

	db, err := store.OpenWithOptions(path, &store.OpenOptions{NetworkOptimized: network})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
