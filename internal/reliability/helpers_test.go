package reliability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aristath/stacktrack/internal/database"
	testingpkg "github.com/aristath/stacktrack/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ObjectInfo
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, SizeBytes: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeStore) put(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = bytes.Repeat([]byte{1}, 16)
}

func newTestBackupService(t *testing.T) *BackupService {
	t.Helper()

	sessionsDB, ledgerDB := testingpkg.NewTestDatabases(t)
	_, err := ledgerDB.Conn().Exec(
		`INSERT INTO session_events (session_id, sequence, event_type, recorded_at, event_data) VALUES ('s1', 1, 'session_start', 0, '{}')`,
	)
	require.NoError(t, err)

	return NewBackupService(map[string]*database.DB{
		database.NameSessions: sessionsDB,
		database.NameLedger:   ledgerDB,
	}, t.TempDir(), zerolog.Nop())
}
