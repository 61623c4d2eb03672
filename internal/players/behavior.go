// Player behavior: every tick each living player looks at what it can
// perceive and returns an Intent. Built-in behaviors are plain rules;
// custom ones are tengo scripts (see script.go).

package players

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/talgya/hauntsim/internal/board"
)

// View is what a player perceives this tick.
type View struct {
	Time          float64
	GhostPosition board.Position
	GhostDistance float64
	GhostVisible  bool
	Warning       bool
	Hunting       bool
	Expelled      bool
	InRoom        bool
}

// Intent is what a player wants to do this tick.
type Intent struct {
	MoveX, MoveY float64 // direction; normalized when applied
	Climb        bool    // take the stairs under the player
	Sound        float64 // noise made this tick, 0-1
	Hide         bool
	Repellent    bool // spray repellent
	Sage         bool // light a sage bundle
	Salt         bool // drop a salt pile
}

// Behavior decides a player's intent.
type Behavior interface {
	Name() string
	Decide(p *Player, v View, rng *rand.Rand) Intent
}

// BehaviorFunc adapts a function into a Behavior.
type BehaviorFunc struct {
	name string
	fn   func(p *Player, v View, rng *rand.Rand) Intent
}

// Name returns the behavior name.
func (b BehaviorFunc) Name() string { return b.name }

// Decide runs the function.
func (b BehaviorFunc) Decide(p *Player, v View, rng *rand.Rand) Intent {
	return b.fn(p, v, rng)
}

var builtins = map[string]Behavior{
	"idle":         BehaviorFunc{"idle", decideIdle},
	"investigator": BehaviorFunc{"investigator", decideInvestigator},
	"screamer":     BehaviorFunc{"screamer", decideScreamer},
	"hider":        BehaviorFunc{"hider", decideHider},
	"exorcist":     BehaviorFunc{"exorcist", decideExorcist},
}

// Builtin returns a built-in behavior by name.
func Builtin(name string) (Behavior, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown behavior %q", name)
	}
	return b, nil
}

// BuiltinNames lists the built-in behaviors.
func BuiltinNames() []string {
	names := maps.Keys(builtins)
	slices.Sort(names)
	return names
}

func decideIdle(p *Player, v View, rng *rand.Rand) Intent {
	return Intent{Sound: 0.02}
}

// decideInvestigator approaches the ghost to look for evidence while it is
// calm and backs off once a hunt is coming.
func decideInvestigator(p *Player, v View, rng *rand.Rand) Intent {
	if v.Warning || v.Hunting {
		return flee(p, v, 0.6)
	}
	if v.GhostDistance > 3 {
		in := toward(p, v.GhostPosition, 0.3)
		in.Climb = !p.Position.SameFloor(v.GhostPosition)
		return in
	}
	if v.GhostDistance < 5 && p.Kit.SageBundles > 0 && p.SageLeft <= 0 && p.Sanity < 40 {
		return Intent{Sound: 0.2, Sage: true}
	}
	return wander(rng, 0.2)
}

// decideScreamer walks up to the ghost and never stops shouting.
func decideScreamer(p *Player, v View, rng *rand.Rand) Intent {
	in := toward(p, v.GhostPosition, 1.0)
	in.Climb = !p.Position.SameFloor(v.GhostPosition)
	if v.GhostDistance < 1 {
		in.MoveX, in.MoveY = 0, 0
	}
	return in
}

// decideHider stays quiet and hides as soon as a hunt is announced.
func decideHider(p *Player, v View, rng *rand.Rand) Intent {
	if v.Warning || v.Hunting {
		return Intent{Hide: true}
	}
	return wander(rng, 0.05)
}

// decideExorcist goes for the ghost with salt, sage and repellent.
func decideExorcist(p *Player, v View, rng *rand.Rand) Intent {
	if v.Expelled {
		return Intent{Sound: 0.1}
	}
	if v.Hunting && p.Kit.RepellentSeconds <= 0 {
		return flee(p, v, 0.5)
	}
	in := toward(p, v.GhostPosition, 0.4)
	in.Climb = !p.Position.SameFloor(v.GhostPosition)
	if v.GhostDistance < 1 {
		in.MoveX, in.MoveY = 0, 0
	}
	switch {
	case v.GhostDistance < 1.4 && p.Kit.RepellentSeconds > 0:
		in.Repellent = true
	case v.GhostDistance < 3 && p.Kit.SaltPiles > 0:
		in.Salt = true
	case v.Warning && v.GhostDistance < 5 && p.Kit.SageBundles > 0 && p.SageLeft <= 0:
		in.Sage = true
	}
	return in
}

func toward(p *Player, target board.Position, sound float64) Intent {
	return Intent{
		MoveX: target.X - p.Position.X,
		MoveY: target.Y - p.Position.Y,
		Sound: sound,
	}
}

func flee(p *Player, v View, sound float64) Intent {
	in := toward(p, v.GhostPosition, sound)
	in.MoveX, in.MoveY = -in.MoveX, -in.MoveY
	return in
}

func wander(rng *rand.Rand, sound float64) Intent {
	angle := rng.Float64() * 2 * math.Pi
	return Intent{MoveX: math.Cos(angle), MoveY: math.Sin(angle), Sound: sound}
}
