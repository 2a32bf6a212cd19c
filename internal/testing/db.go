// Package testing provides testing utilities and helpers for the stacktrack project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/stacktrack/internal/database"
)

// NewTestDB creates a temporary-file SQLite database with its schema applied.
// The profile follows the name: "ledger" gets ProfileLedger, "sessions"
// ProfileStandard; unknown names get an empty standard database.
// The returned cleanup function closes the connection and removes the file.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	profile := database.ProfileStandard
	if name == database.NameLedger {
		profile = database.ProfileLedger
	}

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}

// NewTestDatabases returns a migrated sessions and ledger database pair,
// closed automatically when the test ends.
func NewTestDatabases(t *testing.T) (sessionsDB, ledgerDB *database.DB) {
	t.Helper()

	sessionsDB, cleanupSessions := NewTestDB(t, database.NameSessions)
	ledgerDB, cleanupLedger := NewTestDB(t, database.NameLedger)
	t.Cleanup(func() {
		cleanupLedger()
		cleanupSessions()
	})

	return sessionsDB, ledgerDB
}
