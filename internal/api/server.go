// Package api provides the HTTP API for observing a running mission.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/hauntsim/internal/engine"
	"github.com/talgya/hauntsim/internal/persistence"
)

const (
	maxStreamConns = 8
	streamCatchUp  = 50
	pingInterval   = 15 * time.Second
	writeWait      = 5 * time.Second
)

// Server serves the mission state over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB // nil disables /missions
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	Logger   *slog.Logger

	mission     atomic.Pointer[engine.Mission]
	streamConns int32
	upgrader    websocket.Upgrader
	limiter     *RateLimiter
	once        sync.Once
}

// SetMission switches the server to a new mission.
func (s *Server) SetMission(m *engine.Mission) {
	s.mission.Store(m)
}

func (s *Server) init() {
	s.once.Do(func() {
		if s.Logger == nil {
			s.Logger = slog.Default()
		}
		s.upgrader = websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		}
		s.limiter = NewRateLimiter(30, time.Minute)
	})
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	s.init()
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/ghost", s.withMission(s.handleGhost))
	mux.HandleFunc("/api/v1/events", s.withMission(s.handleEvents))
	mux.HandleFunc("/api/v1/map", s.withMission(s.handleMap))
	mux.HandleFunc("/api/v1/missions", s.handleMissions)
	mux.HandleFunc("/api/v1/missions/", s.handleMissionDetail)

	// Event stream (websocket), rate limited per client.
	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(s.limiter, s.withMission(s.handleStream)))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/repellent", s.adminOnly(s.handleRepellent))

	return mux
}

// Start serves the API until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	s.Logger.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no HAUNTSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

type missionHandler func(w http.ResponseWriter, r *http.Request, m *engine.Mission)

// withMission rejects requests while no mission is loaded.
func (s *Server) withMission(next missionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.mission.Load()
		if m == nil {
			http.Error(w, "no mission loaded", http.StatusServiceUnavailable)
			return
		}
		next(w, r, m)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "hauntsim",
		"mission": nil,
	}
	if s.Eng != nil {
		status["tick"] = s.Eng.Tick()
		status["speed"] = speedValue(s.Eng.Speed())
		status["running"] = s.Eng.Running()
	}
	if m := s.mission.Load(); m != nil {
		v := m.View()
		living := 0
		for _, p := range v.Players {
			if p.Alive {
				living++
			}
		}
		status["mission"] = map[string]any{
			"id":         v.MissionID,
			"map":        v.Map,
			"difficulty": v.Difficulty,
			"seed":       v.Seed,
			"clock":      engine.Clock(v.Clock),
			"outcome":    v.Outcome,
			"phase":      v.Ghost.Phase,
			"players":    len(v.Players),
			"living":     living,
			"stats":      v.Stats,
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleGhost(w http.ResponseWriter, r *http.Request, m *engine.Mission) {
	v := m.View()
	var breach *engine.Breach
	for i := range v.Breaches {
		if v.Breaches[i].ID == v.Ghost.BreachID {
			breach = &v.Breaches[i]
		}
	}
	writeJSON(w, map[string]any{
		"ghost":      v.Ghost,
		"visibility": v.Visibility,
		"breach":     breach,
		"salt":       v.SaltTraces,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, m *engine.Mission) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}

	events := m.Events(since, 0)
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Record
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if since == 0 && len(events) > limit {
		// Without a cursor return the most recent records.
		events = events[len(events)-limit:]
	} else if len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []engine.Record{}
	}
	writeJSON(w, events)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request, m *engine.Mission) {
	g := m.Grid()
	floors := make([][]string, g.FloorCount)
	for z := range floors {
		floors[z] = g.Rows(z)
	}
	writeJSON(w, map[string]any{
		"name":   g.Name,
		"width":  g.Width,
		"height": g.Height,
		"floors": floors,
	})
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	rows, err := s.DB.Missions(limit)
	if err != nil {
		s.Logger.Error("list missions", "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persistence.MissionRow{}
	}
	writeJSON(w, rows)
}

// handleMissionDetail serves GET /api/v1/missions/:id with its event log.
func (s *Server) handleMissionDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/v1/missions/"))
	if err != nil {
		http.Error(w, "invalid mission id", http.StatusBadRequest)
		return
	}
	row, err := s.DB.Mission(id)
	if err != nil {
		http.Error(w, "mission not found", http.StatusNotFound)
		return
	}
	events, err := s.DB.MissionEvents(id, 0)
	if err != nil {
		s.Logger.Error("load mission events", "mission", id.String(), "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"mission": row, "events": events})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "no engine", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		if err := s.Eng.SetSpeed(req.Speed); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, map[string]any{"speed": speedValue(s.Eng.Speed())})
}

func (s *Server) handleRepellent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m := s.mission.Load()
	if m == nil {
		http.Error(w, "no mission loaded", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Hits int `json:"hits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := m.AdminRepellent(req.Hits); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.Logger.Info("admin repellent", "hits", req.Hits)
	writeJSON(w, map[string]any{"repellent_hits": m.View().Ghost.RepellentHits})
}

// handleStream upgrades to a websocket and pushes mission records: a
// catch-up of recent records, then every new one as it happens.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, m *engine.Mission) {
	current := atomic.AddInt32(&s.streamConns, 1)
	if current > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streamConns, -1)

	// Subscribe before the catch-up so nothing falls between the two.
	ch, cancel := m.Subscribe(256)
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var lastSeq uint64
	catchUp := m.Events(0, 0)
	if len(catchUp) > streamCatchUp {
		catchUp = catchUp[len(catchUp)-streamCatchUp:]
	}
	for _, e := range catchUp {
		if err := writeRecord(conn, e); err != nil {
			return
		}
		lastSeq = e.Seq
	}
	s.Logger.Info("stream client connected", "mission", m.ID.String(), "remote", r.RemoteAddr)

	// The reader only watches for the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Seq <= lastSeq {
				continue
			}
			if err := writeRecord(conn, e); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			s.Logger.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeRecord(conn *websocket.Conn, e engine.Record) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}

// speedValue makes the unthrottled speed JSON encodable.
func speedValue(v float64) any {
	if v > 1e300 {
		return "max"
	}
	return v
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
