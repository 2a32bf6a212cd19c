package scheduler

import (
	"testing"

	"github.com/aristath/stacktrack/internal/database"
	testingpkg "github.com/aristath/stacktrack/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := NewCheckWALCheckpointsJob(nil)
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	job := NewCheckWALCheckpointsJob(map[string]*database.DB{
		database.NameSessions: nil,
		database.NameLedger:   nil,
	})
	job.SetLogger(zerolog.Nop())

	err := job.Run()
	assert.NoError(t, err) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	sessionsDB, ledgerDB := testingpkg.NewTestDatabases(t)

	_, err := ledgerDB.Conn().Exec(
		`INSERT INTO session_events (session_id, sequence, event_type, recorded_at, event_data) VALUES ('s1', 1, 'session_start', 0, '{}')`,
	)
	require.NoError(t, err)

	job := NewCheckWALCheckpointsJob(map[string]*database.DB{
		database.NameSessions: sessionsDB,
		database.NameLedger:   ledgerDB,
	})
	assert.NoError(t, job.Run())
}
