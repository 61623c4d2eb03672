package players

import (
	"math"

	"github.com/talgya/hauntsim/internal/board"
)

// Board is the part of the building players need to walk around.
type Board interface {
	PlayerFree(board.Tile) bool
	StairOffset(board.Tile) int
	RoomOf(board.Tile) (board.RoomID, bool)
	Floors() int
}

// Rules tunes player physiology.
type Rules struct {
	WalkSpeed      float64 `yaml:"walk_speed"`      // tiles per second
	SoundSmoothing float64 `yaml:"sound_smoothing"` // seconds
	SanityDrain    float64 `yaml:"sanity_drain"`    // per second inside rooms
	SanityRecover  float64 `yaml:"sanity_recover"`  // per second outside rooms
	SageBurnTime   float64 `yaml:"sage_burn_time"`  // seconds per bundle
}

// DefaultRules returns the standard player rules.
func DefaultRules() Rules {
	return Rules{
		WalkSpeed:      2.0,
		SoundSmoothing: 2.0,
		SanityDrain:    0.08,
		SanityRecover:  0.5,
		SageBurnTime:   20,
	}
}

// Usage is the countermeasure activity a player produced this tick.
type Usage struct {
	RepellentDT  float64 // seconds of spraying
	Correct      bool
	SageStrength float64 // 0 when not burning
	Salt         bool
}

// Apply carries out an intent: movement with collision, hiding, noise,
// sanity and equipment use.
func Apply(p *Player, in Intent, dt, ghostDist float64, b Board, rules Rules) Usage {
	var use Usage
	if !p.Alive {
		p.Sound = 0
		return use
	}

	p.Hiding = in.Hide
	sound := clampUnit(in.Sound)
	if p.Hiding {
		sound = 0
	} else {
		move(p, in, dt, b, rules)
	}
	alpha := 1.0
	if rules.SoundSmoothing > 0 {
		alpha = math.Min(1, dt/rules.SoundSmoothing)
	}
	p.Sound += (sound - p.Sound) * alpha

	if _, inRoom := b.RoomOf(p.Position.Tile()); inRoom {
		p.Sanity -= rules.SanityDrain * dt * (1 + 2/(1+ghostDist))
	} else {
		p.Sanity += rules.SanityRecover * dt
	}
	p.Sanity = math.Max(0, math.Min(100, p.Sanity))

	if in.Repellent && p.Kit.RepellentSeconds > 0 {
		use.RepellentDT = math.Min(dt, p.Kit.RepellentSeconds)
		use.Correct = p.Kit.RepellentCorrect
		p.Kit.RepellentSeconds -= use.RepellentDT
	}
	if in.Sage && p.SageLeft <= 0 && p.Kit.SageBundles > 0 {
		p.Kit.SageBundles--
		p.SageLeft = rules.SageBurnTime
	}
	if p.SageLeft > 0 {
		// Smoke thickens quickly and thins out at the end.
		elapsed := rules.SageBurnTime - p.SageLeft
		use.SageStrength = math.Pow(math.Min(math.Min(elapsed*3, 1), math.Max(p.SageLeft/2, 0)), 2)
		p.SageLeft = math.Max(0, p.SageLeft-dt)
	}
	if in.Salt && p.Kit.SaltPiles > 0 {
		p.Kit.SaltPiles--
		use.Salt = true
	}
	return use
}

func move(p *Player, in Intent, dt float64, b Board, rules Rules) {
	if in.Climb {
		tile := p.Position.Tile()
		if off := b.StairOffset(tile); off != 0 {
			z := tile.Z + off
			if z >= 0 && z < b.Floors() && b.PlayerFree(board.Tile{X: tile.X, Y: tile.Y, Z: z}) {
				p.Position.Z = float64(z)
				return
			}
		}
	}
	n := math.Hypot(in.MoveX, in.MoveY)
	if n < 1e-9 {
		return
	}
	stepLen := math.Min(rules.WalkSpeed*dt, n)
	next := p.Position
	next.X += in.MoveX / n * stepLen
	next.Y += in.MoveY / n * stepLen
	if b.PlayerFree(next.Tile()) {
		p.Position = next
		return
	}
	// Slide along walls.
	slideX := p.Position
	slideX.X = next.X
	if b.PlayerFree(slideX.Tile()) {
		p.Position = slideX
		return
	}
	slideY := p.Position
	slideY.Y = next.Y
	if b.PlayerFree(slideY.Tile()) {
		p.Position = slideY
	}
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
