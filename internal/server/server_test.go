package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/stacktrack/internal/config"
	"github.com/aristath/stacktrack/internal/di"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func setupServer(t *testing.T, devMode bool) *Server {
	t.Helper()
	return setupServerWithOrigins(t, devMode, nil)
}

func setupServerWithOrigins(t *testing.T, devMode bool, origins []string) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir:                t.TempDir(),
		Port:                   8080,
		DevMode:                devMode,
		AllowedOrigins:         origins,
		LivePushSchedule:       "@every 30s",
		WALCheckSchedule:       "@every 1h",
		IntegrityCheckSchedule: "0 30 4 * * *",
		Backup:                 config.BackupConfig{Schedule: "0 0 3 * * *", RetentionDays: 30},
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	return New(Config{
		Log:       zerolog.Nop(),
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   devMode,
		Container: container,
		Jobs:      jobs,
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := setupServer(t, true)

	w := doRequest(t, s, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "stacktrack", response["service"])
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestSystemStatus(t *testing.T) {
	s := setupServer(t, true)

	w := doRequest(t, s, "GET", "/api/system/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Contains(t, response.Databases, "sessions")
	assert.Contains(t, response.Databases, "ledger")
	assert.Greater(t, response.Goroutines, 0)
	assert.Equal(t, 0, response.LiveSubscribers)
}

func TestDatabaseStatsAndDisk(t *testing.T) {
	s := setupServer(t, true)

	w := doRequest(t, s, "GET", "/api/system/databases", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "page_size")

	w = doRequest(t, s, "GET", "/api/system/disk", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var disk DiskUsageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &disk))
	assert.Greater(t, disk.DataDirMB, 0.0)
}

func TestJobs(t *testing.T) {
	s := setupServer(t, true)

	w := doRequest(t, s, "GET", "/api/system/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var jobs []JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"backup", "check_databases", "check_wal_checkpoints", "live_push"}, names)

	w = doRequest(t, s, "POST", "/api/system/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, s, "POST", "/api/system/jobs/check_wal_checkpoints", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		s.systemHandlers.mu.Lock()
		defer s.systemHandlers.mu.Unlock()
		return !s.systemHandlers.running["check_wal_checkpoints"]
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSessionRoutesMounted(t *testing.T) {
	s := setupServer(t, false)

	w := doRequest(t, s, "POST", "/api/sessions", map[string]interface{}{
		"name":      "Friday",
		"game_type": "tournament",
		"buy_in":    100,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, s, "GET", "/api/sessions?status=live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func preflight(s *Server, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("OPTIONS", "/api/sessions", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestCORSPreflight(t *testing.T) {
	s := setupServerWithOrigins(t, true, []string{"http://dashboard.local"})

	w := preflight(s, "http://dashboard.local")
	assert.Equal(t, "http://dashboard.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	w = preflight(s, "http://elsewhere.local")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	s := setupServer(t, true)

	w := preflight(s, "http://dashboard.local")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	s := setupServer(t, true)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-Id"))
}

func TestOriginHosts(t *testing.T) {
	assert.Nil(t, originHosts(nil))
	assert.Equal(t,
		[]string{"dash.example.com", "localhost:3000", "*.example.com"},
		originHosts([]string{"https://dash.example.com", "http://localhost:3000", "*.example.com"}))
}

func TestLiveStreamThroughMiddleware(t *testing.T) {
	s := setupServer(t, false)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	body := strings.NewReader(`{"name":"ws","game_type":"cash","buy_in":300}`)
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", body)
	require.NoError(t, err)
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.Data.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/sessions/"+created.Data.ID+"/live/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stack":300`)
}

func TestLiveStreamRejectsUnlistedOrigin(t *testing.T) {
	s := setupServerWithOrigins(t, true, []string{"http://dashboard.local"})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	body := strings.NewReader(`{"name":"ws","game_type":"cash","buy_in":300}`)
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", body)
	require.NoError(t, err)
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + created.Data.ID + "/live/ws"

	dial := func(origin string) error {
		conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{origin}},
		})
		if err == nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
		return err
	}

	assert.Error(t, dial("http://elsewhere.local"))
	assert.NoError(t, dial("http://dashboard.local"))
}
