package engine

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/difficulty"
	"github.com/talgya/hauntsim/internal/ghost"
	"github.com/talgya/hauntsim/internal/influence"
	"github.com/talgya/hauntsim/internal/players"
)

const (
	// DefaultDuration is the mission time limit in seconds.
	DefaultDuration = 20 * 60
	// EventRingSize is the number of records kept for the API.
	EventRingSize = 1000
	// SaltRange is how close a salt pile must land to affect the ghost.
	SaltRange = 3.0

	maxSaltTraces = 200
	maxCueTrack   = 5000
)

// Outcome is how a mission ended.
type Outcome string

const (
	OutcomeRunning  Outcome = "running"
	OutcomeExpelled Outcome = "expelled" // ghost driven off
	OutcomeWiped    Outcome = "wiped"    // every player died
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeAborted  Outcome = "aborted"
)

// ObjectSpec places an influence object at mission start.
type ObjectSpec struct {
	Name     string         `yaml:"name" json:"name"`
	Kind     string         `yaml:"kind" json:"kind"` // attractive or repulsive
	Position board.Position `yaml:"position" json:"position"`
	Charge   float64        `yaml:"charge" json:"charge"`
}

// MissionConfig describes a mission to load.
type MissionConfig struct {
	ID        uuid.UUID
	Seed      int64
	Level     difficulty.Level
	Values    difficulty.Values // zero means difficulty.For(Level)
	Tuning    ghost.Tuning
	Influence influence.Config
	Rules     players.Rules
	Team      []players.Spec
	Objects   []ObjectSpec // nil places the default objects
	Duration  float64      // seconds; zero means DefaultDuration
	Logger    *slog.Logger
}

// Stats are running mission totals.
type Stats struct {
	Warnings        int     `json:"warnings"`
	Hunts           int     `json:"hunts"`
	DamageDealt     float64 `json:"damage_dealt"`
	Deaths          int     `json:"deaths"`
	RepellentHits   int     `json:"repellent_hits"`
	RepellentMisses int     `json:"repellent_misses"`
	Phenomena       int     `json:"phenomena"`
	Cues            int     `json:"cues"`
	SaltTraces      int     `json:"salt_traces"`
	PeakRage        float64 `json:"peak_rage"`
	DroppedRecords  int     `json:"dropped_records"`
}

// Record is one entry of the mission event log.
type Record struct {
	Seq         uint64  `json:"seq" db:"seq"`
	Time        float64 `json:"time" db:"time"`
	Category    string  `json:"category" db:"category"` // transition, damage, death, phenomenon, countermeasure, mission
	Kind        string  `json:"kind" db:"kind"`
	PlayerID    string  `json:"player_id,omitempty" db:"player_id"`
	Description string  `json:"description" db:"description"`
}

// Mission wires a board, its ghost, the breach registry, the team and the
// influence objects together and advances them one tick at a time.
type Mission struct {
	ID       uuid.UUID
	Seed     int64
	Level    difficulty.Level
	MapName  string
	Started  time.Time
	Duration float64

	mu         sync.RWMutex
	grid       *board.Grid
	ghost      *ghost.Agent
	breaches   *BreachRegistry
	team       []players.Member
	influences *influence.Registry
	rules      players.Rules
	values     difficulty.Values
	rng        *rand.Rand

	tick       uint64
	clock      float64
	outcome    Outcome
	ended      time.Time
	visibility float64
	saltTraces []board.Position
	cues       []ghost.Cue
	stats      Stats

	seq     uint64
	ring    []Record
	subs    map[int]chan Record
	nextSub int

	log *slog.Logger
}

// NewMission loads a mission on a board: picks the breach, spawns the ghost,
// the team and the influence objects.
func NewMission(g *board.Grid, cfg MissionConfig) (*Mission, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	values := cfg.Values
	if values == (difficulty.Values{}) {
		values = difficulty.For(cfg.Level)
	}
	if cfg.Influence == (influence.Config{}) {
		cfg.Influence = influence.DefaultConfig()
	}
	if cfg.Rules == (players.Rules{}) {
		cfg.Rules = players.DefaultRules()
	}
	if cfg.Team == nil {
		cfg.Team = players.DefaultTeam()
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	logger = logger.With("mission", cfg.ID.String())

	breach, err := board.SelectBreach(g, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("select breach: %w", err)
	}
	team, err := players.NewSpawner(cfg.Seed, logger).SpawnTeam(g, cfg.Team)
	if err != nil {
		return nil, fmt.Errorf("spawn team: %w", err)
	}

	m := &Mission{
		ID:         cfg.ID,
		Seed:       cfg.Seed,
		Level:      cfg.Level,
		MapName:    g.Name,
		Started:    time.Now().UTC(),
		Duration:   cfg.Duration,
		grid:       g,
		breaches:   NewBreachRegistry(),
		team:       team,
		influences: influence.NewRegistry(cfg.Influence),
		rules:      cfg.Rules,
		values:     values,
		rng:        rand.New(rand.NewSource(cfg.Seed + 400)),
		outcome:    OutcomeRunning,
		subs:       make(map[int]chan Record),
		log:        logger,
	}

	breachID := m.breaches.Open(uuid.Nil, breach.Tile, breach.Room)
	m.ghost = ghost.New(ghost.Config{
		Spawn:      breach.Tile.Position(),
		BreachID:   breachID,
		Board:      g,
		Difficulty: values,
		Tuning:     cfg.Tuning,
		Seed:       cfg.Seed,
		Logger:     logger,
	})
	m.ghost.Subscribe(m.onTransition)

	objects := cfg.Objects
	if objects == nil {
		objects = m.defaultObjects(breach.Tile)
	}
	for _, o := range objects {
		kind, err := influence.ParseKind(o.Kind)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", o.Name, err)
		}
		m.influences.Add(o.Name, o.Position, kind, o.Charge)
	}

	m.record("mission", "started", "", fmt.Sprintf("%s on %s, breach in %s",
		cfg.Level, g.Name, g.RoomName(breach.Room)))
	logger.Info("mission loaded",
		"map", g.Name,
		"difficulty", cfg.Level.String(),
		"seed", cfg.Seed,
		"breach", breach.Tile.Position().String(),
		"team", len(team),
		"objects", m.influences.Len(),
	)
	return m, nil
}

// defaultObjects puts a charged trinket in a random room and a crucifix next
// to the breach.
func (m *Mission) defaultObjects(breach board.Tile) []ObjectSpec {
	var roomTiles []board.Tile
	for y := 0; y < m.grid.Height; y++ {
		for x := 0; x < m.grid.Width; x++ {
			t := board.Tile{X: x, Y: y, Z: 0}
			if _, ok := m.grid.RoomOf(t); ok && m.grid.PlayerFree(t) {
				roomTiles = append(roomTiles, t)
			}
		}
	}
	var objects []ObjectSpec
	if len(roomTiles) > 0 {
		t := roomTiles[m.rng.Intn(len(roomTiles))]
		objects = append(objects, ObjectSpec{Name: "music box", Kind: "attractive", Position: t.Position(), Charge: 0.5})
	}
	for _, n := range breach.Neighbors() {
		if m.grid.PlayerFree(n) {
			objects = append(objects, ObjectSpec{Name: "crucifix", Kind: "repulsive", Position: n.Position()})
			break
		}
	}
	return objects
}

// Step advances the mission by dt seconds. It returns false once the
// mission has ended.
func (m *Mission) Step(dt float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome != OutcomeRunning {
		return false
	}
	m.tick++
	m.clock += dt

	gpos := m.ghost.Position()
	phase := m.ghost.Phase()
	for _, member := range m.team {
		p := member.Player
		if !p.Alive {
			continue
		}
		dist := p.Position.WeightedDistance(gpos)
		_, inRoom := m.grid.RoomOf(p.Position.Tile())
		view := players.View{
			Time:          m.clock,
			GhostPosition: gpos,
			GhostDistance: dist,
			GhostVisible:  m.visibility > 0.3 || phase == ghost.Hunting,
			Warning:       phase == ghost.Warning,
			Hunting:       phase == ghost.Hunting,
			Expelled:      m.ghost.Expelled(),
			InRoom:        inRoom,
		}
		intent := member.Behavior.Decide(p, view, m.rng)
		use := players.Apply(p, intent, dt, dist, m.grid, m.rules)
		m.applyUsage(p, use, dt)
	}

	breach, _ := m.breaches.Get(m.ghost.BreachID())
	extra := m.influences.Update(dt, gpos, breach.Tile.Position(), m.values.HuntProvocationRadius,
		func(t board.Tile) bool {
			_, ok := m.grid.RoomOf(t)
			return ok
		})

	team := make([]*players.Player, len(m.team))
	for i, member := range m.team {
		team[i] = member.Player
	}
	out := m.ghost.Tick(ghost.Input{
		Now:             m.clock,
		DT:              dt,
		Players:         players.Snapshots(team),
		Influences:      m.influences.Snapshot(),
		InfluenceConfig: m.influences.Config(),
		ExtraRage:       extra,
	})
	m.visibility = out.Visibility
	m.applyOutput(team, out)
	m.checkOutcome()
	return m.outcome == OutcomeRunning
}

func (m *Mission) applyUsage(p *players.Player, use players.Usage, dt float64) {
	dist := p.Position.WeightedDistance(m.ghost.Position())
	if use.RepellentDT > 0 {
		m.ghost.ExposeRepellent(dist, use.Correct, use.RepellentDT)
	}
	if use.SageStrength > 0 {
		m.ghost.ApplySage(use.SageStrength, dist, dt)
	}
	if use.Salt {
		if dist <= SaltRange {
			m.ghost.ApplySalt()
			m.record("countermeasure", "salt", p.ID, fmt.Sprintf("%s threw salt at the ghost", p.Name))
		} else {
			m.record("countermeasure", "salt_wasted", p.ID, fmt.Sprintf("%s threw salt into an empty room", p.Name))
		}
	}
}

func (m *Mission) applyOutput(team []*players.Player, out ghost.Output) {
	byID := make(map[string]*players.Player, len(team))
	for _, p := range team {
		byID[p.ID] = p
	}

	for _, d := range out.Damage {
		p, ok := byID[d.PlayerID]
		if !ok {
			continue
		}
		m.stats.DamageDealt += d.Amount
		if p.Damage(d.Amount, m.clock) {
			m.stats.Deaths++
			m.record("death", "killed", p.ID, fmt.Sprintf("%s was killed by the ghost", p.Name))
			m.log.Info("player killed", "player", p.Name, "clock", Clock(m.clock))
		}
	}

	for _, ph := range out.Phenomena {
		m.stats.Phenomena++
		p, ok := byID[ph.PlayerID]
		if !ok {
			continue
		}
		p.Witnessed++
		scare := 1.0
		if ph.Kind == ghost.DoorSlam {
			scare = 3
		}
		p.Sanity = math.Max(0, p.Sanity-scare)
		m.record("phenomenon", ph.Kind.String(), p.ID,
			fmt.Sprintf("%s witnessed a %s in %s", p.Name, ph.Kind, m.grid.RoomName(ph.Room)))
	}

	m.stats.Cues += len(out.Cues)
	if room := maxCueTrack - len(m.cues); room > 0 {
		if len(out.Cues) > room {
			out.Cues = out.Cues[:room]
		}
		m.cues = append(m.cues, out.Cues...)
	}

	m.stats.SaltTraces += len(out.SaltTraces)
	m.saltTraces = append(m.saltTraces, out.SaltTraces...)
	if len(m.saltTraces) > maxSaltTraces {
		m.saltTraces = m.saltTraces[len(m.saltTraces)-maxSaltTraces:]
	}

	if out.HitsDelta > 0 || out.MissesDelta > 0 {
		m.record("countermeasure", "repellent", "",
			fmt.Sprintf("repellent: %d hits, %d misses", out.HitsDelta, out.MissesDelta))
	}
	m.stats.RepellentHits = m.ghost.RepellentHits()
	m.stats.RepellentMisses = m.ghost.RepellentMisses()
	m.stats.PeakRage = math.Max(m.stats.PeakRage, m.ghost.Rage())

	// The breach fades with its ghost.
	if out.Expelled {
		m.breaches.Fade(m.ghost.BreachID(), out.Opacity)
	}
	if out.Despawned {
		m.breaches.Fade(m.ghost.BreachID(), 0)
	}
}

// onTransition records ghost transition events. Runs inside Tick.
func (m *Mission) onTransition(e ghost.Event) {
	switch e.Kind {
	case ghost.EventWarning:
		m.stats.Warnings++
	case ghost.EventHunt:
		m.stats.Hunts++
	}
	m.record("transition", e.Kind.String(), "",
		fmt.Sprintf("rage %.1f / %.1f, hunting %.1f, hunts %d", e.Rage, e.RageLimit, e.Hunting, e.TimesHunted))
}

func (m *Mission) checkOutcome() {
	switch {
	case m.ghost.Despawned():
		m.finish(OutcomeExpelled)
	case len(m.team) > 0 && players.Living(m.teamPlayers()) == 0:
		m.finish(OutcomeWiped)
	case m.clock >= m.Duration:
		m.finish(OutcomeTimedOut)
	}
}

func (m *Mission) teamPlayers() []*players.Player {
	out := make([]*players.Player, len(m.team))
	for i, member := range m.team {
		out[i] = member.Player
	}
	return out
}

func (m *Mission) finish(o Outcome) {
	m.outcome = o
	m.ended = time.Now().UTC()
	m.record("mission", string(o), "", fmt.Sprintf("mission ended at %s: %s", Clock(m.clock), o))
	m.log.Info("mission ended",
		"outcome", string(o),
		"clock", Clock(m.clock),
		"hunts", m.stats.Hunts,
		"deaths", m.stats.Deaths,
		"repellent_hits", m.stats.RepellentHits,
	)
}

// Abort ends a running mission early.
func (m *Mission) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == OutcomeRunning {
		m.finish(OutcomeAborted)
	}
}

// AdminRepellent credits n correct repellent hits to the ghost.
func (m *Mission) AdminRepellent(n int) error {
	if n <= 0 {
		return fmt.Errorf("repellent hits must be positive, got %d", n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome != OutcomeRunning {
		return fmt.Errorf("mission is %s", m.outcome)
	}
	m.ghost.AddRepellentHits(n)
	m.record("countermeasure", "admin_repellent", "", fmt.Sprintf("admin credited %d repellent hits", n))
	return nil
}

// Outcome returns the mission outcome so far.
func (m *Mission) Outcome() Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.outcome
}

// Grid returns the mission board. The grid is never modified after load.
func (m *Mission) Grid() *board.Grid { return m.grid }

// Cues returns a copy of the audio cue track.
func (m *Mission) Cues() []ghost.Cue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ghost.Cue(nil), m.cues...)
}
