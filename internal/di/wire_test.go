package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/stacktrack/internal/config"
	"github.com/aristath/stacktrack/internal/database"
	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/modules/sessions"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:                t.TempDir(),
		Port:                   8080,
		LivePushSchedule:       "@every 30s",
		WALCheckSchedule:       "@every 1h",
		IntegrityCheckSchedule: "0 30 4 * * *",
		Backup: config.BackupConfig{
			Schedule:      "0 0 3 * * *",
			Region:        "auto",
			RetentionDays: 30,
		},
	}
}

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.SessionsDB)
	assert.NotNil(t, container.LedgerDB)
	assert.Equal(t, database.ProfileLedger, container.LedgerDB.Profile())

	for _, name := range []string{"sessions.db", "ledger.db"} {
		_, err := os.Stat(filepath.Join(cfg.DataDir, name))
		assert.NoError(t, err, name)
	}
	assert.Len(t, container.Databases(), 2)
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.SessionService)
	assert.NotNil(t, container.LiveHub)
	assert.NotNil(t, container.BackupService)
	assert.Nil(t, container.ObjectBackupService, "no bucket configured")

	byName := jobs.ByName()
	assert.Len(t, byName, 4)
	for _, name := range []string{"live_push", "check_wal_checkpoints", "check_databases", "backup"} {
		assert.Contains(t, byName, name)
	}

	// the wired service persists and replays end to end
	session, err := container.SessionService.StartSession(context.Background(), sessions.StartSessionRequest{
		Name:     "wired",
		GameType: domain.GameTypeCash,
		BuyIn:    500,
	})
	require.NoError(t, err)
	assert.NoError(t, container.Scheduler.RunNow(jobs.LivePush))
	assert.NoError(t, container.Scheduler.RunNow(jobs.CheckDatabases))

	snap, err := container.SessionService.LiveState(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), snap.Stack)
}

func TestWire_WithObjectStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Bucket = "poker-backups"
	cfg.Backup.Endpoint = "http://127.0.0.1:9000"
	cfg.Backup.AccessKeyID = "key"
	cfg.Backup.SecretAccessKey = "secret"

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.ObjectBackupService)
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.WALCheckSchedule = "whenever"

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}
