// Package di wires databases, services and jobs into a Container.
package di

import (
	"errors"

	"github.com/aristath/stacktrack/internal/database"
	"github.com/aristath/stacktrack/internal/modules/live"
	"github.com/aristath/stacktrack/internal/modules/sessions"
	"github.com/aristath/stacktrack/internal/reliability"
	"github.com/aristath/stacktrack/internal/scheduler"
)

// Container holds all application dependencies. It is created by Wire and
// handed to the server.
type Container struct {
	// Databases
	SessionsDB *database.DB // mutable session records
	LedgerDB   *database.DB // append-only event log and all-ins

	// Repositories
	SessionRepo *sessions.Repository

	// Services
	SessionService      *sessions.Service
	LiveHub             *live.Hub
	BackupService       *reliability.BackupService
	ObjectBackupService *reliability.ObjectBackupService // nil unless a bucket is configured

	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	databases := make(map[string]*database.DB, 2)
	if c.SessionsDB != nil {
		databases[database.NameSessions] = c.SessionsDB
	}
	if c.LedgerDB != nil {
		databases[database.NameLedger] = c.LedgerDB
	}
	return databases
}

// Close closes every open database
func (c *Container) Close() error {
	var errs []error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobInstances holds the registered jobs for manual triggering via API
type JobInstances struct {
	LivePush            *live.PushJob
	CheckWALCheckpoints *scheduler.CheckWALCheckpointsJob
	CheckDatabases      *scheduler.CheckDatabasesJob
	Backup              *reliability.BackupJob
}

// ByName returns every job keyed by its name
func (j *JobInstances) ByName() map[string]scheduler.Job {
	jobs := make(map[string]scheduler.Job, 4)
	for _, job := range []scheduler.Job{j.LivePush, j.CheckWALCheckpoints, j.CheckDatabases, j.Backup} {
		jobs[job.Name()] = job
	}
	return jobs
}
