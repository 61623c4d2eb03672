package ghost

import (
	"math"
)

// integrate moves the ghost toward its target. Speed depends on the phase;
// warp bursts now and then let the ghost glide quickly across the map.
func (a *Agent) integrate(dt float64) {
	if !a.hasTarget {
		return
	}
	f := dt * 60 // frames at 60 Hz

	dx := a.target.X - a.pos.X
	dy := a.target.Y - a.pos.Y
	d := math.Hypot(dx, dy)

	if a.rng.Intn(a.tuning.WarpChance) == 0 && d > 3 && a.warp < 0.1 {
		a.warp += a.tuning.WarpBurst
	}
	a.warp = nonNegative(a.warp - f*0.5)
	if d < 5 {
		a.warp /= math.Pow(1.2, f)
	}

	dlen := d + 0.001
	if dlen > 1 {
		dx /= math.Sqrt(dlen)
		dy /= math.Sqrt(dlen)
	}
	dx *= a.warp + 1
	dy *= a.warp + 1

	if a.phase == Hunting {
		if a.now-a.huntStart > 1 {
			if dlen < 4 {
				dx /= (dlen + 1.5) / 4
				dy /= (dlen + 1.5) / 4
			}
			a.pos.X += dx / 70 * f * a.diff.HuntingAggression
			a.pos.Y += dy / 70 * f * a.diff.HuntingAggression
		}
	} else {
		a.pos.X += dx / 200 * f * a.diff.GhostSpeed
		a.pos.Y += dy / 200 * f * a.diff.GhostSpeed
	}

	a.moveVertical(dt)

	if dlen < a.tuning.ArrivalRadius && a.pos.SameFloor(a.target) {
		a.hasTarget = false
	}
}

// moveVertical drifts toward the target floor. Z only changes when the
// target is on another floor and stays within the building.
func (a *Agent) moveVertical(dt float64) {
	top := float64(max(a.board.Floors()-1, 0))
	if a.pos.SameFloor(a.target) {
		a.pos.Z = clamp(a.pos.Z, 0, top)
		return
	}
	dz := a.target.Z - a.pos.Z
	step := a.tuning.VerticalSpeed * a.diff.GhostSpeed * dt
	if math.Abs(dz) < step {
		a.pos.Z = a.target.Z
	} else {
		a.pos.Z += math.Copysign(step, dz)
	}
	a.pos.Z = clamp(a.pos.Z, 0, top)
}
