package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/engine"
	"github.com/umuterturk/investment-game/internal/lifeevents"
	"github.com/umuterturk/investment-game/internal/persistence"
	"github.com/umuterturk/investment-game/internal/player"
	"github.com/umuterturk/investment-game/internal/refdata"
)

const testKey = "secret"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ds, err := refdata.Default()
	require.NoError(t, err)
	sim, err := engine.New(engine.Options{
		Data:   ds,
		Seed:   3,
		Start:  clock.Date{Day: 10, Month: 5, Year: 2007},
		Age:    30,
		EndAge: 65,
		Player: player.New("api", 10000, 30000, "London", 900),
		Events: []lifeevents.Event{},
	})
	require.NoError(t, err)
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &Server{Sim: sim, DB: db, Slot: "test", AdminKey: testKey, TickRate: 100}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, ts *httptest.Server, path, body, key string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)
	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/status", &status))
	assert.Equal(t, "2007-06-10", status["date"])
	assert.Equal(t, "paused", status["state"])
	assert.Equal(t, 10000.0, status["cash"])
}

func TestPostNeedsBearerToken(t *testing.T) {
	s, ts := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/tick", "", "wrong").StatusCode)

	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, post(t, ts, "/api/v1/tick", "", "").StatusCode)
}

func TestManualTick(t *testing.T) {
	s, ts := newTestServer(t)
	resp := post(t, ts, "/api/v1/tick", `{"days": 25}`, testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep engine.TickReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.Equal(t, clock.Date{Day: 5, Month: 6, Year: 2007}, rep.Date)
	assert.Equal(t, rep.Date, s.Sim.Date())
	assert.NotEmpty(t, rep.Events, "July 1 settlement should be reported")

	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/tick", `{"days": 400}`, testKey).StatusCode)
}

func TestManualTickRateLimited(t *testing.T) {
	s, ts := newTestServer(t)
	ts.Close()
	s.TickRate = 2
	ts = httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/tick", "", testKey).StatusCode)
	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/tick", "", testKey).StatusCode)
	resp := post(t, ts, "/api/v1/tick", "", testKey)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestActions(t *testing.T) {
	s, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/action/buy_stock", `{"ticker": "LLOY", "shares": 10}`, testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10.0, s.Sim.Snapshot().Player.Holdings["LLOY"].Shares)

	resp = post(t, ts, "/api/v1/action/buy_stock", `{"ticker": "LLOYD", "shares": 10}`, testKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], `"LLOY"`)

	assert.Equal(t, http.StatusConflict,
		post(t, ts, "/api/v1/action/buy_stock", `{"ticker": "LLOY", "shares": 1e9}`, testKey).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/action/sell_stock", `{"ticker": "LLOY", "shares": -1}`, testKey).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		post(t, ts, "/api/v1/action/buy_yacht", `{}`, testKey).StatusCode)
	assert.Equal(t, http.StatusOK,
		post(t, ts, "/api/v1/action/set_insurance", `{"kind": "health", "on": true}`, testKey).StatusCode)
	assert.True(t, s.Sim.Snapshot().Player.Insurance.Health)
}

func TestRunState(t *testing.T) {
	s, ts := newTestServer(t)
	assert.Equal(t, http.StatusOK, post(t, ts, "/api/v1/runstate", `{"state": "fast"}`, testKey).StatusCode)
	assert.Equal(t, clock.Fast, s.Sim.RunState())
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/runstate", `{"state": "bogus"}`, testKey).StatusCode)

	var out map[string]string
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/runstate", &out))
	assert.Equal(t, "fast", out["state"])
}

func TestPrices(t *testing.T) {
	_, ts := newTestServer(t)
	var today struct {
		Date   string             `json:"date"`
		Prices map[string]float64 `json:"prices"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/prices", &today))
	assert.Equal(t, "2007-06-10", today.Date)
	assert.Greater(t, today.Prices["stock:LLOY"], 0.0)

	var past struct {
		Prices map[string]float64 `json:"prices"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/prices?date=2006-12-31&asset=stock:LLOY", &past))
	assert.Len(t, past.Prices, 1)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts, "/api/v1/prices?asset=stock:LLOYD", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts, "/api/v1/prices?date=soon", nil))
}

func TestSaveAndHistory(t *testing.T) {
	s, ts := newTestServer(t)
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/tick", `{"days": 25}`, testKey).StatusCode)
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/save", "", testKey).StatusCode)
	assert.True(t, s.DB.HasSave("test"))

	var ledger []engine.Event
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/ledger?limit=5", &ledger))
	assert.NotEmpty(t, ledger)

	var events []engine.Event
	require.Equal(t, http.StatusOK, getJSON(t, ts, "/api/v1/events?category=month", &events))
	for _, e := range events {
		assert.Equal(t, engine.CategoryMonth, e.Category)
	}
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(player.ErrInsufficientFunds))
	assert.Equal(t, http.StatusConflict, statusFor(player.ErrNegativeEquity))
	assert.Equal(t, http.StatusConflict, statusFor(player.ErrGameOver))
	assert.Equal(t, http.StatusNotFound, statusFor(player.ErrUnknownAsset))
	assert.Equal(t, http.StatusBadRequest, statusFor(player.ErrInvalidAmount))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestStreamSendsSnapshotThenTicks(t *testing.T) {
	s, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello streamMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "snapshot", hello.Type)
	require.NotNil(t, hello.View)
	assert.Equal(t, "2007-06-10", hello.View.Date.String())

	rep, err := s.Sim.Tick()
	require.NoError(t, err)
	s.Hub.Broadcast(rep)

	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "tick", msg.Type)
	require.NotNil(t, msg.Report)
	assert.Equal(t, rep.Date, msg.Report.Date)
	assert.Equal(t, 1, s.Hub.Clients())
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
}
