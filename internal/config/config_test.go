package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STACKTRACK_DATA_DIR", dir)
	t.Setenv("PORT", "")
	t.Setenv("BACKUP_BUCKET", "")
	t.Setenv("BACKUP_ACCESS_KEY_ID", "")
	t.Setenv("BACKUP_SECRET_ACCESS_KEY", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "@every 30s", cfg.LivePushSchedule)
	assert.Equal(t, "0 30 4 * * *", cfg.IntegrityCheckSchedule)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.False(t, cfg.Backup.Enabled())
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STACKTRACK_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9001")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LIVE_PUSH_SCHEDULE", "@every 5s")
	t.Setenv("ALLOWED_ORIGINS", "https://dash.example.com, ,http://localhost:3000")
	t.Setenv("BACKUP_BUCKET", "poker-backups")
	t.Setenv("BACKUP_ACCESS_KEY_ID", "key")
	t.Setenv("BACKUP_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "@every 5s", cfg.LivePushSchedule)
	assert.Equal(t, []string{"https://dash.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Backup.Enabled())
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("STACKTRACK_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Port: 8080}, false},
		{"zero port", Config{Port: 0}, true},
		{"port out of range", Config{Port: 70000}, true},
		{"partial backup", Config{Port: 8080, Backup: BackupConfig{Bucket: "b"}}, true},
		{"full backup", Config{Port: 8080, Backup: BackupConfig{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}}, false},
		{"negative retention", Config{Port: 8080, Backup: BackupConfig{RetentionDays: -1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
