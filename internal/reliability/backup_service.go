// Package reliability snapshots the databases and ships the snapshots to
// object storage.
package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aristath/stacktrack/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const dailyDateFormat = "2006-01-02"

// Free-space thresholds for the backup volume
const (
	criticalFreeBytes = 500 << 20 // 500 MB
	lowFreeBytes      = 5 << 30   // 5 GB
)

// BackupService writes consistent local snapshots of every database
type BackupService struct {
	databases map[string]*database.DB
	backupDir string
	log       zerolog.Logger
}

// NewBackupService creates a new backup service writing under backupDir
func NewBackupService(databases map[string]*database.DB, backupDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		backupDir: backupDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the backed-up database names in a stable order
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name, db := range s.databases {
		if db != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// BackupDatabase snapshots one database into dest, replacing any file there
func (s *BackupService) BackupDatabase(ctx context.Context, name, dest string) error {
	db, ok := s.databases[name]
	if !ok || db == nil {
		return fmt.Errorf("unknown database: %s", name)
	}

	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale backup %s: %w", dest, err)
	}

	return db.BackupInto(ctx, dest)
}

// CreateDailyBackup snapshots every database into backups/daily/YYYY-MM-DD
// and returns that directory
func (s *BackupService) CreateDailyBackup(ctx context.Context, now time.Time) (string, error) {
	dir := filepath.Join(s.backupDir, "daily", now.UTC().Format(dailyDateFormat))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, name := range s.DatabaseNames() {
		dest := filepath.Join(dir, name+".db")
		if err := s.BackupDatabase(ctx, name, dest); err != nil {
			return "", fmt.Errorf("failed to backup %s: %w", name, err)
		}
		s.log.Debug().Str("database", name).Str("path", dest).Msg("Database backed up")
	}

	s.log.Info().Str("dir", dir).Int("databases", len(s.databases)).Msg("Daily backup written")
	return dir, nil
}

// VerifyBackup opens every snapshot in dir and runs an integrity check
func (s *BackupService) VerifyBackup(ctx context.Context, dir string) error {
	for _, name := range s.DatabaseNames() {
		path := filepath.Join(dir, name+".db")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("backup file missing for %s: %w", name, err)
		}

		if err := verifySQLiteFile(ctx, path); err != nil {
			return fmt.Errorf("backup of %s is not usable: %w", name, err)
		}

		s.log.Debug().Str("database", name).Msg("Backup verified")
	}
	return nil
}

// CleanupDailyBackups removes daily backup directories older than keepDays
func (s *BackupService) CleanupDailyBackups(now time.Time, keepDays int) (int, error) {
	if keepDays <= 0 {
		return 0, nil
	}

	dailyDir := filepath.Join(s.backupDir, "daily")
	entries, err := os.ReadDir(dailyDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily backup directory: %w", err)
	}

	cutoff := now.UTC().AddDate(0, 0, -keepDays)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		day, err := time.Parse(dailyDateFormat, entry.Name())
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dailyDir, entry.Name())); err != nil {
			s.log.Warn().Err(err).Str("dir", entry.Name()).Msg("Failed to remove old backup")
			continue
		}
		removed++
	}

	return removed, nil
}

// CheckDiskSpace fails when the backup volume is nearly full
func (s *BackupService) CheckDiskSpace() error {
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	usage, err := disk.Usage(s.backupDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(usage.Free) / 1e9
	if usage.Free < criticalFreeBytes {
		s.log.Error().Float64("available_gb", availableGB).Msg("Insufficient disk space for backups")
		return fmt.Errorf("only %.2f GB free on backup volume", availableGB)
	}
	if usage.Free < lowFreeBytes {
		s.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}

	return nil
}

func verifySQLiteFile(ctx context.Context, path string) error {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}
	return nil
}
