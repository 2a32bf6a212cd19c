package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aristath/stacktrack/internal/config"
	"github.com/aristath/stacktrack/internal/modules/live"
	"github.com/aristath/stacktrack/internal/modules/sessions"
	"github.com/aristath/stacktrack/internal/reliability"
	"github.com/aristath/stacktrack/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates the repository, services and scheduler
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.SessionRepo = sessions.NewRepository(container.SessionsDB.Conn(), container.LedgerDB.Conn(), log)
	container.LiveHub = live.NewHub(log)
	container.SessionService = sessions.NewService(container.SessionRepo, container.LiveHub, log)

	container.BackupService = reliability.NewBackupService(
		container.Databases(),
		filepath.Join(cfg.DataDir, "backups"),
		log,
	)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup object store: %w", err)
		}
		container.ObjectBackupService = reliability.NewObjectBackupService(store, container.BackupService, cfg.DataDir, log)
	} else {
		log.Info().Msg("Object storage backups disabled, keeping local backups only")
	}

	container.Scheduler = scheduler.New(log)

	return nil
}
