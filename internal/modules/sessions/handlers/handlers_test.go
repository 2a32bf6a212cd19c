package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/stacktrack/internal/modules/sessions"
	testingpkg "github.com/aristath/stacktrack/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router http.Handler
	now    time.Time
}

func setupRouter(t *testing.T) *testServer {
	t.Helper()

	sessionsDB, ledgerDB := testingpkg.NewTestDatabases(t)
	repo := sessions.NewRepository(sessionsDB.Conn(), ledgerDB.Conn(), zerolog.Nop())

	ts := &testServer{now: testingpkg.FixtureStart}
	service := sessions.NewService(repo, nil, zerolog.Nop())
	service.SetClock(func() time.Time { return ts.now })

	handler := NewHandler(service, zerolog.Nop())
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	ts.router = router

	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

func (ts *testServer) startSession(t *testing.T) string {
	t.Helper()
	w, response := ts.do(t, "POST", "/api/sessions", map[string]interface{}{
		"name":      "Home game",
		"game_type": "cash",
		"buy_in":    1000,
		"big_blind": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return response["data"].(map[string]interface{})["id"].(string)
}

func TestHandleStartSession(t *testing.T) {
	ts := setupRouter(t)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "valid cash session",
			body:           map[string]interface{}{"game_type": "cash", "buy_in": 1000},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "second live session",
			body:           map[string]interface{}{"game_type": "cash", "buy_in": 1000},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "invalid game type",
			body:           map[string]interface{}{"game_type": "mixed", "buy_in": 1000},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := ts.do(t, "POST", "/api/sessions", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.expectedStatus == http.StatusCreated {
				assert.NotNil(t, response["metadata"])
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "live", data["status"])
			} else {
				assert.NotEmpty(t, response["error"])
			}
		})
	}
}

func TestHandleSessionLifecycle(t *testing.T) {
	ts := setupRouter(t)
	id := ts.startSession(t)
	base := "/api/sessions/" + id

	ts.now = ts.now.Add(30 * time.Minute)
	w, response := ts.do(t, "POST", base+"/events", map[string]interface{}{
		"event_type": "stack_update",
		"event_data": map[string]interface{}{"amount": 1500},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	evt := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), evt["sequence"])
	assert.Equal(t, "stack_update", evt["event_type"])

	ts.now = ts.now.Add(5 * time.Minute)
	w, _ = ts.do(t, "POST", base+"/all-ins", map[string]interface{}{
		"pot_amount":      600,
		"win_probability": 25,
		"actual_result":   true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, response = ts.do(t, "GET", base+"/live", nil)
	require.Equal(t, http.StatusOK, w.Code)
	live := response["data"].(map[string]interface{})
	assert.Equal(t, float64(35), live["elapsed_minutes"])
	assert.Equal(t, float64(500), live["profit"])
	assert.Equal(t, "0h 35m", live["elapsed"])

	ts.now = ts.now.Add(25 * time.Minute)
	w, response = ts.do(t, "POST", base+"/end", map[string]interface{}{"cash_out": 1800})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", response["data"].(map[string]interface{})["status"])

	w, response = ts.do(t, "GET", base+"/chart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := response["data"].(map[string]interface{})
	assert.Equal(t, false, result["empty"])
	chart := result["chart"].(map[string]interface{})
	assert.Equal(t, "cash", chart["variant"])
	points := chart["points"].([]interface{})
	require.Len(t, points, 3)
	last := points[2].(map[string]interface{})
	assert.Equal(t, float64(60), last["x"])
	assert.Equal(t, float64(800), last["profit"])
	assert.Equal(t, float64(350), last["adjusted_profit"])

	w, response = ts.do(t, "GET", base+"/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"].([]interface{}), 4)

	w, response = ts.do(t, "GET", base+"/all-ins/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), response["data"].(map[string]interface{})["count"])

	w, _ = ts.do(t, "POST", base+"/events", map[string]interface{}{"event_type": "hand_complete"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleRecordEvent_Validation(t *testing.T) {
	ts := setupRouter(t)
	id := ts.startSession(t)
	base := "/api/sessions/" + id

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{"missing type", map[string]interface{}{"event_data": map[string]interface{}{}}, http.StatusBadRequest},
		{"unknown type", map[string]interface{}{"event_type": "table_change"}, http.StatusBadRequest},
		{"missing amount", map[string]interface{}{"event_type": "rebuy", "event_data": map[string]interface{}{}}, http.StatusBadRequest},
		{"wrong field type", map[string]interface{}{"event_type": "rebuy", "event_data": map[string]interface{}{"amount": "ten"}}, http.StatusBadRequest},
		{"valid hands passed", map[string]interface{}{"event_type": "hands_passed", "event_data": map[string]interface{}{"count": 3}}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := ts.do(t, "POST", base+"/events", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}

	w, _ := ts.do(t, "POST", "/api/sessions/missing/events", map[string]interface{}{"event_type": "hand_complete"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetChart_Params(t *testing.T) {
	ts := setupRouter(t)
	id := ts.startSession(t)
	base := "/api/sessions/" + id

	w, _ := ts.do(t, "GET", base+"/chart?variant=omaha", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, "GET", base+"/chart?axis=distance", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// nothing to plot yet
	w, response := ts.do(t, "GET", base+"/chart?variant=tournament&axis=hands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := response["data"].(map[string]interface{})
	assert.Equal(t, true, result["empty"])
	assert.Equal(t, "hands", result["chart"].(map[string]interface{})["axis"])

	w, _ = ts.do(t, "GET", "/api/sessions/missing/chart", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListAndDeleteSessions(t *testing.T) {
	ts := setupRouter(t)
	id := ts.startSession(t)

	w, response := ts.do(t, "GET", "/api/sessions?status=live", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"].([]interface{}), 1)

	w, _ = ts.do(t, "GET", "/api/sessions?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, "DELETE", "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = ts.do(t, "GET", "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, response = ts.do(t, "GET", "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, response["data"].([]interface{}))
}

func TestHandleGetLive_At(t *testing.T) {
	ts := setupRouter(t)
	id := ts.startSession(t)

	ts.now = ts.now.Add(time.Hour)
	at := testingpkg.FixtureStart.Add(20 * time.Minute).Format(time.RFC3339)

	w, response := ts.do(t, "GET", "/api/sessions/"+id+"/live?at="+at, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(20), response["data"].(map[string]interface{})["elapsed_minutes"])

	w, _ = ts.do(t, "GET", "/api/sessions/"+id+"/live?at=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
