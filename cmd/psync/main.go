package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/photo-sync/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "psync",
		Short: "Photo sync - incrementally migrate a file tree into a deduplicated archive",
		Long: `psync incrementally copies a source tree into a destination archive.

Content already present in a legacy archive, or already transferred by an
earlier run, is never copied again. Every run can be interrupted and
re-run safely: state lives in a SQLite ledger and files are published
atomically, never overwriting anything at the destination.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./configs/psync.yaml)")
	flags.String("db", "", "ledger database file (required)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.BoolP("quiet", "q", false, "quiet output (errors only)")

	// Roots and tuning, shared by the commands that need them
	flags.StringP("source", "s", "", "source directory to migrate")
	flags.StringP("dest", "d", "", "destination archive directory")
	flags.StringP("legacy", "l", "", "legacy archive directory (read only)")
	flags.String("staging", "", "staging directory, on the destination filesystem")
	flags.IntP("concurrency", "c", 0, "worker count for hashing and copying (default: number of CPUs)")
	flags.String("events-dir", "artifacts", "directory for event logs and run summaries")

	for _, key := range []string{"db", "verbose", "quiet", "source", "dest", "legacy", "staging", "concurrency", "events-dir"} {
		viper.BindPFlag(key, flags.Lookup(key))
	}
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("psync")
		viper.SetConfigType("yaml")
	}

	// PSYNC_SOURCE, PSYNC_EVENTS_DIR, ...
	viper.SetEnvPrefix("PSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
