package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/stacktrack/internal/config"
	"github.com/aristath/stacktrack/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// sessions.db - session records (mutable while live)
	sessionsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "sessions.db"),
		Profile: database.ProfileStandard,
		Name:    database.NameSessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions database: %w", err)
	}
	container.SessionsDB = sessionsDB

	// ledger.db - append-only event log; the source of truth for every chart
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    database.NameLedger,
	})
	if err != nil {
		sessionsDB.Close()
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	for _, db := range []*database.DB{sessionsDB, ledgerDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")

	return container, nil
}
