package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/ghost"
	"github.com/talgya/hauntsim/internal/influence"
	"github.com/talgya/hauntsim/internal/players"
)

// View is a consistent copy of the mission state for readers outside the
// engine goroutine.
type View struct {
	MissionID  uuid.UUID          `json:"mission_id"`
	Map        string             `json:"map"`
	Difficulty string             `json:"difficulty"`
	Seed       int64              `json:"seed"`
	Tick       uint64             `json:"tick"`
	Clock      float64            `json:"clock"`
	Duration   float64            `json:"duration"`
	Outcome    Outcome            `json:"outcome"`
	Ghost      ghost.Snapshot     `json:"ghost"`
	Visibility float64            `json:"visibility"`
	Players    []players.Player   `json:"players"`
	Breaches   []Breach           `json:"breaches"`
	Influences []influence.Object `json:"influences"`
	SaltTraces []board.Position   `json:"salt_traces"`
	Stats      Stats              `json:"stats"`
}

// View copies the current state.
func (m *Mission) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	team := make([]players.Player, len(m.team))
	for i, member := range m.team {
		team[i] = *member.Player
	}
	return View{
		MissionID:  m.ID,
		Map:        m.MapName,
		Difficulty: m.Level.String(),
		Seed:       m.Seed,
		Tick:       m.tick,
		Clock:      m.clock,
		Duration:   m.Duration,
		Outcome:    m.outcome,
		Ghost:      m.ghost.Snapshot(),
		Visibility: m.visibility,
		Players:    team,
		Breaches:   m.breaches.List(),
		Influences: m.influences.Snapshot(),
		SaltTraces: append([]board.Position(nil), m.saltTraces...),
		Stats:      m.stats,
	}
}

// Report is the summary stored when a mission ends.
type Report struct {
	ID         uuid.UUID `json:"id"`
	Map        string    `json:"map"`
	Difficulty string    `json:"difficulty"`
	Seed       int64     `json:"seed"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Clock      float64   `json:"clock"`
	Outcome    Outcome   `json:"outcome"`
	Team       int       `json:"team"`
	Survivors  int       `json:"survivors"`
	Stats      Stats     `json:"stats"`
}

// Report summarizes the mission. EndedAt is zero while it is running.
func (m *Mission) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Report{
		ID:         m.ID,
		Map:        m.MapName,
		Difficulty: m.Level.String(),
		Seed:       m.Seed,
		StartedAt:  m.Started,
		EndedAt:    m.ended,
		Clock:      m.clock,
		Outcome:    m.outcome,
		Team:       len(m.team),
		Survivors:  players.Living(m.teamPlayers()),
		Stats:      m.stats,
	}
}
