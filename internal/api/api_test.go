// ABOUTME: Tests for the HTTP API handlers and server lifecycle.
// ABOUTME: Drives every route through httptest against a temp SQLite service.
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/fatigue/internal/api"
	"github.com/harperreed/fatigue/internal/service"
	"github.com/harperreed/fatigue/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- test helpers -----------------------------------------------------------

var est = time.FixedZone("EST", -5*3600)

// now is 15:00 local on 2025-03-10.
var now = time.Date(2025, 3, 10, 15, 0, 0, 0, est)

// unix returns the unix seconds of a local time on 2025-03-10.
func unix(hour, minute int) int64 {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, est).Unix()
}

func newService(t *testing.T) *service.Service {
	t.Helper()
	repo, err := storage.OpenKVInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return service.New(repo,
		service.WithClock(func() time.Time { return now }),
		service.WithLocation(est),
	)
}

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	return api.New(newService(t), nil)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, &buf))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// register creates a subject with rest 40, max 186, threshold 26, W_total 200.
func register(t *testing.T, h http.Handler, first, group string) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/v1/user/new/", map[string]interface{}{
		"first_name":      first,
		"last_name":       "Runner",
		"group_id":        group,
		"age":             20,
		"rest_heart_rate": 40,
		"hrr_cp":          26,
		"awc_tot":         200,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp api.RegisterResponse
	decode(t, rr, &resp)
	return resp.UserID
}

// --- user routes ------------------------------------------------------------

func TestRegister(t *testing.T) {
	h := newHandler(t)

	rr := do(t, h, http.MethodPost, "/api/v1/user/new/", map[string]interface{}{
		"first_name": "Ada",
		"last_name":  "Runner",
		"group_id":   "team-a",
		"age":        20,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created api.RegisterResponse
	decode(t, rr, &created)
	assert.True(t, created.Created)
	assert.InDelta(t, 186, created.MaxHR, 1e-9)
	assert.NotEmpty(t, created.UserID)

	rr = do(t, h, http.MethodPost, "/api/v1/user/new/", map[string]interface{}{
		"first_name": "Ada",
		"last_name":  "Runner",
		"age":        30,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var updated api.RegisterResponse
	decode(t, rr, &updated)
	assert.False(t, updated.Created)
	assert.Equal(t, created.UserID, updated.UserID)
	assert.InDelta(t, 179, updated.MaxHR, 1e-9)
}

func TestRegisterValidation(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing first name", map[string]interface{}{"group_id": "team-a"}},
		{"missing group", map[string]interface{}{"first_name": "Ada"}},
		{"negative age", map[string]interface{}{"first_name": "Ada", "group_id": "team-a", "age": -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/v1/user/new/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h := newHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/user/new/", bytes.NewBufferString("{not json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/user/login/", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "empty")
}

func TestLogin(t *testing.T) {
	h := newHandler(t)
	id := register(t, h, "Ada", "team-a")

	rr := do(t, h, http.MethodPost, "/api/v1/user/login/", api.LoginRequest{FirstName: "Ada", LastName: "Runner"})
	require.Equal(t, http.StatusOK, rr.Code)
	var found api.LoginResponse
	decode(t, rr, &found)
	assert.True(t, found.Created)
	assert.Equal(t, id, found.UserID)
	assert.Equal(t, "team-a", found.GroupID)

	rr = do(t, h, http.MethodPost, "/api/v1/user/login/", api.LoginRequest{FirstName: "Grace"})
	require.Equal(t, http.StatusOK, rr.Code)
	var missing api.LoginResponse
	decode(t, rr, &missing)
	assert.False(t, missing.Created)
	assert.Empty(t, missing.UserID)
}

// --- uploads ----------------------------------------------------------------

func TestUploadHeartRateSingle(t *testing.T) {
	h := newHandler(t)
	id := register(t, h, "Ada", "team-a")

	rr := do(t, h, http.MethodPost, "/api/v1/upload/heart_rate/", map[string]interface{}{
		"user_id":    id,
		"heart_rate": 100,
		"timestamp":  unix(9, 0),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp api.HeartRateResponse
	decode(t, rr, &resp)
	require.Len(t, resp.FatigueLevels, 1)
	assert.InDelta(t, 0.07548, resp.FatigueLevels[0], 1e-4)
	assert.InDelta(t, 15.096, resp.WExp, 1e-3)
}

func TestUploadHeartRateBatchChainsSeed(t *testing.T) {
	h := newHandler(t)
	id := register(t, h, "Ada", "team-a")

	first := do(t, h, http.MethodPost, "/api/v1/upload/heart_rate/", map[string]interface{}{
		"user_id":    id,
		"heart_rate": 100,
		"timestamp":  unix(9, 0),
	})
	require.Equal(t, http.StatusCreated, first.Code)

	rr := do(t, h, http.MethodPost, "/api/v1/upload/heart_rate/", map[string]interface{}{
		"user_id": id,
		"samples": []map[string]interface{}{
			{"heart_rate": 50, "timestamp": unix(9, 2)},
			{"heart_rate": 100, "timestamp": unix(9, 1)},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp api.HeartRateResponse
	decode(t, rr, &resp)
	require.Len(t, resp.FatigueLevels, 2)
	// Samples are applied in timestamp order: 100 bpm then 50 bpm.
	assert.InDelta(t, 0.15096, resp.FatigueLevels[0], 1e-4)
	assert.InDelta(t, 0.055205, resp.FatigueLevels[1], 1e-4)
}

func TestUploadHeartRateNewSession(t *testing.T) {
	h := newHandler(t)
	id := register(t, h, "Ada", "team-a")

	for i := 0; i < 2; i++ {
		rr := do(t, h, http.MethodPost, "/api/v1/upload/heart_rate/", map[string]interface{}{
			"user_id":     id,
			"heart_rate":  100,
			"timestamp":   unix(10, i),
			"new_session": true,
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp api.HeartRateResponse
		decode(t, rr, &resp)
		assert.InDelta(t, 0.07548, resp.FatigueLevels[0], 1e-4)
	}
}

func TestUploadHeartRateErrors(t *testing.T) {
	h := newHandler(t)
	id := register(t, h, "Ada", "team-a")

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"unknown subject", map[string]interface{}{"user_id": "ffffffff-ffff-ffff-ffff-ffffffffffff", "heart_rate": 90}, http.StatusNotFound},
		{"missing user", map[string]interface{}{"heart_rate": 90}, http.StatusBadRequest},
		{"no samples", map[string]interface{}{"user_id": id}, http.StatusBadRequest},
		{"sample without heart rate", map[string]interface{}{"user_id": id, "samples": []map[string]interface{}{{"timestamp": unix(9, 0)}}}, http.StatusBadRequest},
		{"both forms", map[string]interface{}{"user_id": id, "heart_rate": 90, "samples": []map[string]interface{}{{"heart_rate": 90}}}, http.StatusBadRequest},
		{"future timestamp", map[string]interface{}{"user_id": id, "heart_rate": 90, "timestamp": unix(16, 0)}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/v1/upload/heart_rate/", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())

			var resp map[string]string
			decode(t, rr, &resp)
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestUploadFatigueLevel(t *testing.T) {
	h := newHandler(t)
	id := register(t, h, "Ada", "team-a")

	rr := do(t, h, http.MethodPost, "/api/v1/upload/fatigue_level/", map[string]interface{}{
		"user_id":       id,
		"fatigue_level": 0.4,
		"timestamp":     unix(11, 0),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/v1/upload/fatigue_level/", map[string]interface{}{"user_id": id})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/v1/upload/fatigue_level/", map[string]interface{}{"user_id": id, "fatigue_level": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadActivity(t *testing.T) {
	h := newHandler(t)
	ada := register(t, h, "Ada", "team-a")
	grace := register(t, h, "Grace", "team-a")

	rr := do(t, h, http.MethodPost, "/api/v1/upload/activity/", map[string]interface{}{
		"user_id":   ada,
		"peer_id":   grace,
		"timestamp": unix(12, 0),
		"if_open":   true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp api.CreatedResponse
	decode(t, rr, &resp)
	assert.NotEmpty(t, resp.ID)

	rr = do(t, h, http.MethodPost, "/api/v1/upload/activity/", map[string]interface{}{"user_id": ada, "peer_id": "ffffffff"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- peer views -------------------------------------------------------------

func TestPeerGroup(t *testing.T) {
	h := newHandler(t)
	ada := register(t, h, "Ada", "team-a")
	register(t, h, "Grace", "team-a")
	register(t, h, "Linus", "team-b")

	rr := do(t, h, http.MethodPost, "/api/v1/upload/fatigue_level/", map[string]interface{}{
		"user_id":       ada,
		"fatigue_level": 0.25,
		"timestamp":     unix(14, 0),
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/peer/group/team-a/", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.GroupResponse
	decode(t, rr, &resp)
	assert.Equal(t, "team-a", resp.GroupID)
	require.Len(t, resp.Peers, 2)

	byName := map[string]service.Peer{}
	for _, p := range resp.Peers {
		byName[p.FirstName] = p
	}
	assert.Equal(t, 0.25, byName["Ada"].FatigueLevel)
	assert.Equal(t, unix(14, 0), byName["Ada"].LastUpdate)
	assert.Equal(t, -1.0, byName["Grace"].FatigueLevel)
	assert.Zero(t, byName["Grace"].LastUpdate)
}

func TestPeerSummary(t *testing.T) {
	h := newHandler(t)
	id := register(t, h, "Ada", "team-a")

	for _, obs := range []struct {
		level float64
		at    int64
	}{
		{10, unix(5, 5)},
		{20, unix(5, 40)},
		{99, time.Date(2025, 3, 9, 23, 30, 0, 0, est).Unix()}, // yesterday, inside the window
	} {
		rr := do(t, h, http.MethodPost, "/api/v1/upload/fatigue_level/", map[string]interface{}{
			"user_id":       id,
			"fatigue_level": obs.level,
			"timestamp":     obs.at,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := do(t, h, http.MethodGet, "/api/v1/peer/"+id+"/", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Date         string `json:"date"`
		Observations []struct {
			Hour  int        `json:"hour_from_midnight"`
			Range [2]float64 `json:"fatigue_level_range"`
			Mean  *float64   `json:"avg_fatigue_level"`
		} `json:"observations"`
	}
	decode(t, rr, &resp)

	assert.Equal(t, "2025-03-10", resp.Date)
	require.Len(t, resp.Observations, 24)
	assert.Equal(t, 5, resp.Observations[5].Hour)
	assert.Equal(t, [2]float64{10, 20}, resp.Observations[5].Range)
	require.NotNil(t, resp.Observations[5].Mean)
	assert.Equal(t, 15.0, *resp.Observations[5].Mean)

	assert.Equal(t, [2]float64{-1, -1}, resp.Observations[23].Range)
	assert.Nil(t, resp.Observations[23].Mean)
}

func TestPeerSummaryNotFound(t *testing.T) {
	h := newHandler(t)

	rr := do(t, h, http.MethodGet, "/api/v1/peer/ffffffff/", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- routing and errors -----------------------------------------------------

func TestMethodNotAllowed(t *testing.T) {
	h := newHandler(t)

	rr := do(t, h, http.MethodGet, "/api/v1/user/new/", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthz(t *testing.T) {
	h := newHandler(t)

	rr := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp api.HealthResponse
	decode(t, rr, &resp)
	assert.Equal(t, "ok", resp.Status)
}

func TestInternalErrorIsHiddenAndLogged(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "fatigue.db"))
	require.NoError(t, err)
	svc := service.New(db, service.WithClock(func() time.Time { return now }), service.WithLocation(est))

	core, logs := observer.New(zapcore.ErrorLevel)
	h := api.New(svc, zap.New(core))

	require.NoError(t, db.Close())

	rr := do(t, h, http.MethodGet, "/api/v1/peer/group/team-a/", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal server error")
	assert.NotContains(t, rr.Body.String(), "closed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "request failed", logs.All()[0].Message)
}

// --- server lifecycle -------------------------------------------------------

func TestServerServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := api.NewServer(ln.Addr().String(), newHandler(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
