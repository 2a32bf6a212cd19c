package di

import (
	"fmt"

	"github.com/aristath/stacktrack/internal/config"
	"github.com/aristath/stacktrack/internal/modules/live"
	"github.com/aristath/stacktrack/internal/reliability"
	"github.com/aristath/stacktrack/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates every job and registers it with the scheduler.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("container and scheduler cannot be nil")
	}

	instances := &JobInstances{
		LivePush:            live.NewPushJob(container.SessionService, container.LiveHub),
		CheckWALCheckpoints: scheduler.NewCheckWALCheckpointsJob(container.Databases()),
		CheckDatabases:      scheduler.NewCheckDatabasesJob(container.Databases()),
		Backup: reliability.NewBackupJob(
			container.BackupService,
			container.ObjectBackupService,
			cfg.Backup.RetentionDays,
		),
	}

	instances.LivePush.SetLogger(log)
	instances.CheckWALCheckpoints.SetLogger(log)
	instances.CheckDatabases.SetLogger(log)
	instances.Backup.SetLogger(log)

	schedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.LivePushSchedule, instances.LivePush},
		{cfg.WALCheckSchedule, instances.CheckWALCheckpoints},
		{cfg.IntegrityCheckSchedule, instances.CheckDatabases},
		{cfg.Backup.Schedule, instances.Backup},
	}

	for _, s := range schedules {
		if err := container.Scheduler.AddJob(s.schedule, s.job); err != nil {
			return nil, err
		}
	}

	log.Info().Int("jobs", len(schedules)).Msg("Jobs registered")

	return instances, nil
}
