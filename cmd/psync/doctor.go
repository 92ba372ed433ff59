package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/franz/photo-sync/internal/staging"
	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure psync can operate correctly.

This command checks:
- SQLite availability
- Ledger accessibility and integrity
- Source and legacy archive readability
- Destination writability
- Staging directory placement (same filesystem as the destination)
- Leftover staging files from interrupted runs
- Disk space on the destination

Use this command to troubleshoot issues before running a sync.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	util.InfoLog("=== psync doctor - System Diagnostics ===")
	util.InfoLog("")

	set, err := loadSettings()
	if err != nil {
		return err
	}

	results := []checkResult{
		checkSQLite(),
		checkDatabase(set.DB),
	}
	if set.DB != "" {
		results = append(results, checkLedgerFilesystem(set.DB))
	}

	if set.Source != "" {
		results = append(results, checkReadableDirectory("Source directory", set.Source))
	}
	if set.Legacy != "" {
		results = append(results, checkReadableDirectory("Legacy archive", set.Legacy))
	}
	if set.Dest != "" {
		results = append(results, checkDestinationDirectory(set.Dest))
		results = append(results, checkDiskSpace(set.Dest, "destination"))
	}
	if set.Staging != "" && set.Dest != "" {
		results = append(results, checkStaging(set.Staging, set.Dest))
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running psync.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed.")
	}

	return nil
}

// checkSQLite verifies the embedded SQLite reports a version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies the ledger file is accessible and intact
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	stats, err := db.GetStats()
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot read statistics: %v", err),
		}
	}

	return checkResult{
		name: "Database",
		message: fmt.Sprintf("%s (%s, %d legacy, %d transferred)",
			dbPath, util.FormatBytes(info.Size()), stats.LegacyFiles, stats.Transfers),
	}
}

// checkLedgerFilesystem warns when the ledger sits on a network mount, where
// SQLite locking and WAL are unreliable
func checkLedgerFilesystem(dbPath string) checkResult {
	info, err := util.DetectFilesystem(filepath.Dir(dbPath))
	if err != nil {
		return checkResult{
			name:    "Ledger filesystem",
			warning: true,
			message: fmt.Sprintf("cannot inspect filesystem: %v", err),
		}
	}

	if info.Network {
		return checkResult{
			name:    "Ledger filesystem",
			warning: true,
			message: fmt.Sprintf("%s is on a network filesystem (%s); keep the ledger on local disk if possible", dbPath, info.Type),
		}
	}

	fsType := info.Type
	if fsType == "" {
		fsType = "local"
	}
	return checkResult{
		name:    "Ledger filesystem",
		message: fsType,
	}
}

// checkReadableDirectory verifies a directory exists and can be listed
func checkReadableDirectory(name, path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	return checkResult{
		name:    name,
		message: fmt.Sprintf("%s (%d entries)", path, len(entries)),
	}
}

// checkDestinationDirectory verifies the destination is writable
func checkDestinationDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Destination directory",
				message: fmt.Sprintf("%s (will be created on first run)", path),
			}
		}
		return checkResult{
			name:    "Destination directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Destination directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	f, err := os.CreateTemp(path, ".psync-write-test-*")
	if err != nil {
		return checkResult{
			name:    "Destination directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(f.Name())

	return checkResult{
		name:    "Destination directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkStaging verifies staging can publish into dest by rename and
// reports files left behind by interrupted runs
func checkStaging(stagingDir, dest string) checkResult {
	for _, dir := range []string{stagingDir, dest} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return checkResult{
				name:    "Staging directory",
				warning: true,
				message: fmt.Sprintf("%s does not exist yet, filesystem check skipped", dir),
			}
		}
	}

	same, err := util.IsSameFilesystem(stagingDir, dest)
	if err != nil {
		return checkResult{
			name:    "Staging directory",
			error:   true,
			message: fmt.Sprintf("cannot compare filesystems: %v", err),
		}
	}
	if !same {
		return checkResult{
			name:    "Staging directory",
			error:   true,
			message: fmt.Sprintf("%s is not on the same filesystem as %s", stagingDir, dest),
		}
	}

	leftovers, err := filepath.Glob(filepath.Join(stagingDir, staging.Prefix+"*"))
	if err != nil {
		return checkResult{
			name:    "Staging directory",
			error:   true,
			message: err.Error(),
		}
	}
	if len(leftovers) > 0 {
		return checkResult{
			name:    "Staging directory",
			warning: true,
			message: fmt.Sprintf("%s has %d leftover staging files (removed by the next sync)", stagingDir, len(leftovers)),
		}
	}

	return checkResult{
		name:    "Staging directory",
		message: fmt.Sprintf("%s (same filesystem as destination)", stagingDir),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	// the destination may not exist yet; measure its nearest existing parent
	for {
		if _, err := os.Stat(path); err == nil || filepath.Dir(path) == path {
			break
		}
		path = filepath.Dir(path)
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))

	usedPercent := 0.0
	if totalBytes > 0 {
		usedPercent = float64(usedBytes) / float64(totalBytes) * 100
	}

	// Warn if less than 10GiB available or >90% used
	warning := false
	warningMsg := ""
	if availBytes < 10<<30 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 90 {
		warning = true
		warningMsg = " (>90% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", util.FormatBytes(availBytes), warningMsg),
	}
}
