package ghost

import (
	"github.com/talgya/hauntsim/internal/board"
)

// fadeOut tracks the terminal sequence after expulsion.
type fadeOut struct {
	duration  float64
	remaining float64
}

// checkExpulsion starts the fade-out in the tick repellent hits reach the
// threshold.
func (a *Agent) checkExpulsion() {
	if a.fade != nil || a.hits < a.tuning.ExpulsionThreshold {
		return
	}
	a.fade = &fadeOut{duration: a.tuning.FadeDuration, remaining: a.tuning.FadeDuration}
	a.hasTarget = false
	a.warp = 0
	a.log.Info("ghost expelled", "hits", a.hits, "misses", a.misses)
	a.roar(RoarFull, 1.0)
	a.emit(EventExpelled)
}

// advanceFade ramps opacity down, puffs smoke and despawns at the end.
func (a *Agent) advanceFade(dt float64) {
	f := a.fade
	f.remaining = nonNegative(f.remaining - dt)
	opacity := a.Opacity()

	if f.remaining > 0 && a.rng.Float64() < (1-opacity)/3 {
		a.out.Particles = append(a.out.Particles, board.Position{
			X: a.pos.X + uniform(a.rng, -0.9, 0.9)*dt,
			Y: a.pos.Y + uniform(a.rng, -0.9, 0.9)*dt,
			Z: a.pos.Z,
		})
	}
	if f.remaining <= 0 {
		a.roar(RoarFull, 0.2)
		a.despawned = true
		a.log.Info("ghost despawned")
		a.emit(EventDespawned)
	}
}

// Opacity is 1 until expelled, then ramps to 0 over the fade-out.
func (a *Agent) Opacity() float64 {
	if a.fade == nil {
		if a.despawned {
			return 0
		}
		return 1
	}
	if a.fade.duration <= 0 {
		return 0
	}
	return clamp(a.fade.remaining/a.fade.duration, 0, 1)
}
