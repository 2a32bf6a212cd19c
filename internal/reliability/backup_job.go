package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob writes the nightly local snapshot and, when object storage is
// configured, uploads an archive and rotates old ones
type BackupJob struct {
	backupService *BackupService
	objectBackup  *ObjectBackupService // nil when no bucket is configured
	retentionDays int
	timeout       time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job. objectBackup may be nil.
func NewBackupJob(backupService *BackupService, objectBackup *ObjectBackupService, retentionDays int) *BackupJob {
	return &BackupJob{
		backupService: backupService,
		objectBackup:  objectBackup,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		now:           time.Now,
		log:           zerolog.Nop(),
	}
}

// SetLogger sets the logger for the job
func (j *BackupJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// SetClock overrides the time source
func (j *BackupJob) SetClock(now func() time.Time) {
	j.now = now
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	startTime := time.Now()

	if err := j.backupService.CheckDiskSpace(); err != nil {
		return err
	}

	dir, err := j.backupService.CreateDailyBackup(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to create local backup: %w", err)
	}

	if err := j.backupService.VerifyBackup(ctx, dir); err != nil {
		return fmt.Errorf("local backup verification failed: %w", err)
	}

	removed, err := j.backupService.CleanupDailyBackups(j.now(), j.retentionDays)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to clean up local backups")
	}

	if j.objectBackup != nil {
		archive, err := j.objectBackup.CreateAndUploadBackup(ctx)
		if err != nil {
			return err
		}
		j.log.Debug().Str("archive", archive).Msg("Archive uploaded")

		if _, err := j.objectBackup.RotateOldBackups(ctx, j.retentionDays); err != nil {
			// the new archive is safe; rotation retries tomorrow
			j.log.Warn().Err(err).Msg("Backup rotation failed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("dir", dir).
		Int("local_removed", removed).
		Bool("uploaded", j.objectBackup != nil).
		Msg("Backup completed")

	return nil
}
