// Package ghost implements the adversarial agent of a mission: where the
// ghost wanders, how its hostility builds into hunts, how it moves, and how
// it is expelled. An Agent is single threaded; the owner calls Tick once per
// simulation frame with a consistent snapshot of the world.
package ghost

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/difficulty"
	"github.com/talgya/hauntsim/internal/influence"
)

// Board is the read-only view of the building the ghost needs.
type Board interface {
	Loaded() bool
	GhostFree(board.Tile) bool
	PlayerFree(board.Tile) bool
	FloorValid(board.Tile) bool
	StairOffset(board.Tile) int
	RoomOf(board.Tile) (board.RoomID, bool)
	Floors() int
}

// PlayerSnapshot is the state of one player at the start of a tick.
type PlayerSnapshot struct {
	ID       string
	Position board.Position
	Health   float64 // 0-100
	Sanity   float64 // 0-100
	Hiding   bool
	Sound    float64 // smoothed ambient sound level the player makes
}

// Alive reports whether the player can still be targeted and damaged.
func (p PlayerSnapshot) Alive() bool {
	return p.Health > 0
}

// Input is everything a tick reads from the world.
type Input struct {
	Now             float64 // mission clock, seconds
	DT              float64 // seconds since the previous tick
	Players         []PlayerSnapshot
	Influences      []influence.Object
	InfluenceConfig influence.Config
	ExtraRage       float64 // rage provoked by objects this tick
}

// Damage is health removed from a player during a hunt.
type Damage struct {
	PlayerID string  `json:"player_id"`
	Amount   float64 `json:"amount"`
}

// Output is everything a tick produces for collaborators.
type Output struct {
	Position         board.Position   `json:"position"`
	Target           *board.Position  `json:"target,omitempty"`
	Phase            Phase            `json:"phase"`
	WarningIntensity float64          `json:"warning_intensity"`
	Visibility       float64          `json:"visibility"`
	Damage           []Damage         `json:"damage,omitempty"`
	Cues             []Cue            `json:"cues,omitempty"`
	HitsDelta        int              `json:"hits_delta"`
	MissesDelta      int              `json:"misses_delta"`
	Expelled         bool             `json:"expelled"`
	Despawned        bool             `json:"despawned"`
	Opacity          float64          `json:"opacity"`
	Particles        []board.Position `json:"particles,omitempty"`
	SaltTraces       []board.Position `json:"salt_traces,omitempty"`
	Phenomena        []Phenomenon     `json:"phenomena,omitempty"`
	Events           []Event          `json:"events,omitempty"`
}

// Config creates an Agent.
type Config struct {
	Spawn      board.Position
	BreachID   uuid.UUID
	Board      Board
	Difficulty difficulty.Values
	Tuning     Tuning
	Seed       int64
	Logger     *slog.Logger
}

// Agent is the ghost of one mission.
type Agent struct {
	ID       uuid.UUID
	breachID uuid.UUID

	spawn     board.Position
	pos       board.Position
	target    board.Position
	hasTarget bool
	warp      float64

	rage          float64
	rageLimitMult float64
	hunting       float64
	phase         Phase
	warnIntensity float64
	warnTimer     float64
	huntStart     float64
	calm          float64
	timesHunted   int
	lastRoar      float64
	anger         runningMean

	hits, misses           int
	hitsFrame, missesFrame float64
	hitsDelta, missesDelta int

	saltTimer      float64
	saltSpawnTimer float64

	fade      *fadeOut
	despawned bool

	now      float64
	board    Board
	diff     difficulty.Values
	tuning   Tuning
	dynamics *Dynamics
	rng      *rand.Rand
	bus      Bus
	log      *slog.Logger
	out      *Output
}

// New creates a ghost standing on its breach.
func New(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte{
		byte(cfg.Seed), byte(cfg.Seed >> 8), byte(cfg.Seed >> 16), byte(cfg.Seed >> 24),
		byte(cfg.Seed >> 32), byte(cfg.Seed >> 40), byte(cfg.Seed >> 48), byte(cfg.Seed >> 56),
	})
	a := &Agent{
		ID:            id,
		breachID:      cfg.BreachID,
		spawn:         cfg.Spawn,
		pos:           cfg.Spawn,
		rageLimitMult: 1,
		board:         cfg.Board,
		diff:          cfg.Difficulty,
		tuning:        cfg.Tuning.withDefaults(),
		rng:           rng,
		log:           logger.With("ghost", id.String()[:8]),
	}
	a.anger.window = a.tuning.AngerWindow
	a.dynamics = NewDynamics(cfg.Seed, rng)
	return a
}

// Subscribe registers a transition event handler.
func (a *Agent) Subscribe(h Handler) { a.bus.Subscribe(h) }

// Tick advances the ghost by one frame: hunt controller, destination
// selection, movement, then the expulsion check. Once expelled only the
// fade-out advances.
func (a *Agent) Tick(in Input) Output {
	a.now = in.Now
	out := Output{}
	a.out = &out
	defer func() { a.out = nil }()

	switch {
	case a.despawned:
		// Nothing left to update.
	case a.fade != nil:
		a.advanceFade(in.DT)
	case a.board == nil || !a.board.Loaded():
		// Collision data not ready; skip the frame.
	default:
		a.countRepellent()
		a.rage += nonNegative(in.ExtraRage)
		a.updateHunt(in)
		a.rollPhenomena(in)
		a.selectDestination(in)
		a.integrate(in.DT)
		a.checkExpulsion()
		out.HitsDelta = a.hitsDelta
		out.MissesDelta = a.missesDelta
		a.hitsDelta, a.missesDelta = 0, 0
	}

	out.Position = a.pos
	if a.hasTarget {
		t := a.target
		out.Target = &t
	}
	out.Phase = a.phase
	out.WarningIntensity = a.warnIntensity
	out.Opacity = a.Opacity()
	out.Visibility = a.dynamics.VisualAlpha(a.now) * out.Opacity
	out.Expelled = a.fade != nil
	out.Despawned = a.despawned
	return out
}

func (a *Agent) emit(kind EventKind) {
	e := Event{
		Kind:        kind,
		GhostID:     a.ID,
		Time:        a.now,
		Rage:        a.rage,
		RageLimit:   a.RageLimit(),
		Hunting:     a.hunting,
		TimesHunted: a.timesHunted,
	}
	if a.out != nil {
		a.out.Events = append(a.out.Events, e)
	}
	a.bus.publish(e)
}

// Position returns the current position.
func (a *Agent) Position() board.Position { return a.pos }

// Spawn returns the breach position the ghost is anchored to.
func (a *Agent) Spawn() board.Position { return a.spawn }

// BreachID returns the handle of the paired breach.
func (a *Agent) BreachID() uuid.UUID { return a.breachID }

// Target returns the movement goal, if any.
func (a *Agent) Target() (board.Position, bool) { return a.target, a.hasTarget }

// Rage returns the hostility accumulator.
func (a *Agent) Rage() float64 { return a.rage }

// Hunting returns the remaining hunt fuel.
func (a *Agent) Hunting() float64 { return a.hunting }

// Warp returns the transient speed boost.
func (a *Agent) Warp() float64 { return a.warp }

// Phase returns the hunt phase.
func (a *Agent) Phase() Phase { return a.phase }

// HuntTarget reports whether a hunt is in progress.
func (a *Agent) HuntTarget() bool { return a.phase == Hunting }

// HuntWarningActive reports whether a hunt is imminent.
func (a *Agent) HuntWarningActive() bool { return a.phase == Warning }

// WarningIntensity ramps 0 to 1 over the warning countdown.
func (a *Agent) WarningIntensity() float64 { return a.warnIntensity }

// CalmTime returns the remaining calm time in seconds.
func (a *Agent) CalmTime() float64 { return a.calm }

// RageLimitMultiplier returns the escalating anti-spam multiplier.
func (a *Agent) RageLimitMultiplier() float64 { return a.rageLimitMult }

// RageLimit returns the rage that triggers the next hunt.
func (a *Agent) RageLimit() float64 {
	return a.tuning.RageLimitBase * math.Sqrt(a.diff.RageLikelihood) * a.rageLimitMult
}

// TimesHunted returns the number of completed hunts.
func (a *Agent) TimesHunted() int { return a.timesHunted }

// RepellentHits returns the number of correct repellent exposures.
func (a *Agent) RepellentHits() int { return a.hits }

// RepellentMisses returns the number of wrong repellent exposures.
func (a *Agent) RepellentMisses() int { return a.misses }

// Expelled reports whether the fade-out has started.
func (a *Agent) Expelled() bool { return a.fade != nil }

// Despawned reports whether the fade-out has finished.
func (a *Agent) Despawned() bool { return a.despawned }

// Difficulty returns the values the ghost was created with.
func (a *Agent) Difficulty() difficulty.Values { return a.diff }

// Tuning returns the active tuning.
func (a *Agent) Tuning() Tuning { return a.tuning }

// Snapshot is a read-only copy of the ghost state.
type Snapshot struct {
	ID                  uuid.UUID       `json:"id"`
	BreachID            uuid.UUID       `json:"breach_id"`
	Position            board.Position  `json:"position"`
	Spawn               board.Position  `json:"spawn"`
	Target              *board.Position `json:"target,omitempty"`
	Phase               Phase           `json:"phase"`
	Rage                float64         `json:"rage"`
	RageLimit           float64         `json:"rage_limit"`
	RageLimitMultiplier float64         `json:"rage_limit_multiplier"`
	Hunting             float64         `json:"hunting"`
	WarningIntensity    float64         `json:"warning_intensity"`
	CalmTime            float64         `json:"calm_time"`
	Warp                float64         `json:"warp"`
	TimesHunted         int             `json:"times_hunted"`
	RepellentHits       int             `json:"repellent_hits"`
	RepellentMisses     int             `json:"repellent_misses"`
	Expelled            bool            `json:"expelled"`
	Despawned           bool            `json:"despawned"`
	Opacity             float64         `json:"opacity"`
	RageTendency        float64         `json:"rage_tendency"`
}

// Snapshot copies the current state.
func (a *Agent) Snapshot() Snapshot {
	s := Snapshot{
		ID:                  a.ID,
		BreachID:            a.breachID,
		Position:            a.pos,
		Spawn:               a.spawn,
		Phase:               a.phase,
		Rage:                a.rage,
		RageLimit:           a.RageLimit(),
		RageLimitMultiplier: a.rageLimitMult,
		Hunting:             a.hunting,
		WarningIntensity:    a.warnIntensity,
		CalmTime:            a.calm,
		Warp:                a.warp,
		TimesHunted:         a.timesHunted,
		RepellentHits:       a.hits,
		RepellentMisses:     a.misses,
		Expelled:            a.fade != nil,
		Despawned:           a.despawned,
		Opacity:             a.Opacity(),
		RageTendency:        a.dynamics.RageTendency(a.now),
	}
	if a.hasTarget {
		t := a.target
		s.Target = &t
	}
	return s
}
