package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/difficulty"
	"github.com/talgya/hauntsim/internal/engine"
	"github.com/talgya/hauntsim/internal/persistence"
	"github.com/talgya/hauntsim/internal/players"
)

const testLayout = `
name: chapel
rooms:
  a: Nave
floors:
  - rows:
      - "#########"
      - "#aaaaaaa#"
      - "#aaaaaaa#"
      - "#.......#"
      - "#########"
breaches:
  - {x: 4, y: 1, z: 0}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMission(t *testing.T) *engine.Mission {
	t.Helper()
	g, err := board.ParseLayout([]byte(testLayout))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	m, err := engine.NewMission(g, engine.MissionConfig{
		Seed:   9,
		Level:  difficulty.Standard,
		Team:   []players.Spec{{Behavior: "idle"}},
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("mission: %v", err)
	}
	return m
}

func testServer(t *testing.T, withMission bool) (*Server, *httptest.Server) {
	t.Helper()
	s := &Server{Eng: engine.NewEngine(quietLogger()), AdminKey: "secret", Logger: quietLogger()}
	if withMission {
		s.SetMission(testMission(t))
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func do(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestStatusWithoutMission(t *testing.T) {
	_, srv := testServer(t, false)
	resp, body := do(t, "GET", srv.URL+"/api/v1/status", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatal(err)
	}
	if status["mission"] != nil {
		t.Errorf("expected null mission, got %v", status["mission"])
	}
	if resp, _ := do(t, "GET", srv.URL+"/api/v1/ghost", "", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a mission, got %d", resp.StatusCode)
	}
}

func TestStatusAndGhost(t *testing.T) {
	_, srv := testServer(t, true)
	_, body := do(t, "GET", srv.URL+"/api/v1/status", "", "")
	var status struct {
		Mission struct {
			Map     string `json:"map"`
			Phase   string `json:"phase"`
			Living  int    `json:"living"`
			Outcome string `json:"outcome"`
		} `json:"mission"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatal(err)
	}
	if status.Mission.Map != "chapel" || status.Mission.Phase != "calm" || status.Mission.Living != 1 {
		t.Errorf("unexpected status %+v", status.Mission)
	}

	_, body = do(t, "GET", srv.URL+"/api/v1/ghost", "", "")
	var ghost struct {
		Ghost struct {
			Position board.Position `json:"position"`
			Phase    string         `json:"phase"`
		} `json:"ghost"`
		Breach *struct {
			Tile   board.Tile `json:"tile"`
			Closed bool       `json:"closed"`
		} `json:"breach"`
	}
	if err := json.Unmarshal(body, &ghost); err != nil {
		t.Fatal(err)
	}
	if ghost.Breach == nil || ghost.Breach.Tile != (board.Tile{X: 4, Y: 1}) {
		t.Errorf("expected breach at 4,1, got %+v", ghost.Breach)
	}
	if ghost.Ghost.Position != (board.Position{X: 4, Y: 1}) {
		t.Errorf("expected ghost on the breach, got %v", ghost.Ghost.Position)
	}
}

func TestEventsAndMap(t *testing.T) {
	s, srv := testServer(t, true)
	m := s.mission.Load()
	for i := 0; i < 3; i++ {
		_ = m.AdminRepellent(1)
	}

	_, body := do(t, "GET", srv.URL+"/api/v1/events?limit=2", "", "")
	var events []engine.Record
	if err := json.Unmarshal(body, &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[1].Seq != 4 {
		t.Errorf("expected the two most recent records, got %+v", events)
	}

	_, body = do(t, "GET", srv.URL+"/api/v1/events?since=1&category=countermeasure", "", "")
	events = nil
	_ = json.Unmarshal(body, &events)
	if len(events) != 3 {
		t.Errorf("expected 3 countermeasure records, got %d", len(events))
	}
	if resp, _ := do(t, "GET", srv.URL+"/api/v1/events?since=x", "", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad cursor, got %d", resp.StatusCode)
	}

	_, body = do(t, "GET", srv.URL+"/api/v1/map", "", "")
	var mp struct {
		Floors [][]string `json:"floors"`
	}
	_ = json.Unmarshal(body, &mp)
	if len(mp.Floors) != 1 || mp.Floors[0][1] != "#aaaaaaa#" {
		t.Errorf("unexpected map %+v", mp)
	}
}

func TestSpeedAdmin(t *testing.T) {
	s, srv := testServer(t, true)
	if resp, _ := do(t, "POST", srv.URL+"/api/v1/speed", "", `{"speed":4}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp, _ := do(t, "POST", srv.URL+"/api/v1/speed", "secret", `{"speed":-1}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for negative speed, got %d", resp.StatusCode)
	}
	resp, body := do(t, "POST", srv.URL+"/api/v1/speed", "secret", `{"speed":4}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"speed": 4`) {
		t.Errorf("expected speed 4, got %d %s", resp.StatusCode, body)
	}
	if s.Eng.Speed() != 4 {
		t.Errorf("expected engine speed 4, got %f", s.Eng.Speed())
	}

	s.AdminKey = ""
	if resp, _ := do(t, "POST", srv.URL+"/api/v1/speed", "secret", `{"speed":2}`); resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 with admin disabled, got %d", resp.StatusCode)
	}
}

func TestRepellentAdmin(t *testing.T) {
	_, srv := testServer(t, true)
	if resp, _ := do(t, "GET", srv.URL+"/api/v1/repellent", "", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", resp.StatusCode)
	}
	resp, body := do(t, "POST", srv.URL+"/api/v1/repellent", "secret", `{"hits":5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", resp.StatusCode, body)
	}
	var out struct {
		Hits int `json:"repellent_hits"`
	}
	_ = json.Unmarshal(body, &out)
	if out.Hits != 5 {
		t.Errorf("expected 5 hits, got %d", out.Hits)
	}
	if resp, _ := do(t, "POST", srv.URL+"/api/v1/repellent", "secret", `{"hits":0}`); resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for zero hits, got %d", resp.StatusCode)
	}
}

func TestMissionsEndpoints(t *testing.T) {
	s, srv := testServer(t, true)
	if resp, _ := do(t, "GET", srv.URL+"/api/v1/missions", "", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a database, got %d", resp.StatusCode)
	}

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s.DB = db

	m := s.mission.Load()
	m.Abort()
	if err := db.SaveReport(m.Report()); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveEvents(m.ID, m.Events(0, 0)); err != nil {
		t.Fatal(err)
	}

	_, body := do(t, "GET", srv.URL+"/api/v1/missions", "", "")
	var rows []persistence.MissionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Outcome != "aborted" {
		t.Fatalf("expected one aborted mission, got %+v", rows)
	}

	_, body = do(t, "GET", srv.URL+"/api/v1/missions/"+m.ID.String(), "", "")
	var detail struct {
		Mission persistence.MissionRow `json:"mission"`
		Events  []engine.Record        `json:"events"`
	}
	if err := json.Unmarshal(body, &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Mission.ID != m.ID.String() || len(detail.Events) != 2 {
		t.Errorf("unexpected detail %+v", detail)
	}
	if resp, _ := do(t, "GET", srv.URL+"/api/v1/missions/nope", "", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if resp, _ := do(t, "GET", srv.URL+"/api/v1/missions/"+uuid.NewString(), "", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStream(t *testing.T) {
	s, srv := testServer(t, true)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var first engine.Record
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read catch-up: %v", err)
	}
	if first.Kind != "started" {
		t.Errorf("expected started record first, got %+v", first)
	}

	if err := s.mission.Load().AdminRepellent(2); err != nil {
		t.Fatal(err)
	}
	var next engine.Record
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read live record: %v", err)
	}
	if next.Kind != "admin_repellent" || next.Seq != first.Seq+1 {
		t.Errorf("expected live admin_repellent record, got %+v", next)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected the first two requests allowed")
	}
	if rl.Allow("a") {
		t.Error("expected the third request limited")
	}
	if rl.RetryAfter("a") != 61 {
		t.Errorf("expected retry after 61s, got %d", rl.RetryAfter("a"))
	}
	if !rl.Allow("b") {
		t.Error("expected other clients unaffected")
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("expected the window to reset")
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if ip := clientIP(r); ip != "10.0.0.1" {
		t.Errorf("expected 10.0.0.1, got %s", ip)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if ip := clientIP(r); ip != "1.2.3.4" {
		t.Errorf("expected 1.2.3.4, got %s", ip)
	}
}
