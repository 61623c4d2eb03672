package ghost

import "math"

// ExposeRepellent applies one frame of repellent exposure at the given
// distance. Every full unit of exposure counts as a hit (right repellent) or
// miss (wrong repellent) on the next tick, and both enrage the ghost.
func (a *Agent) ExposeRepellent(distance float64, correct bool, dt float64) {
	if a.fade != nil || distance >= a.tuning.RepellentRange {
		return
	}
	amount := dt * a.tuning.RepellentRate / (distance + 1)
	if correct {
		a.hitsFrame += amount
	} else {
		a.missesFrame += amount
	}
}

// AddRepellentHits counts n correct exposures directly.
func (a *Agent) AddRepellentHits(n int) {
	if n <= 0 || a.fade != nil {
		return
	}
	a.hits += n
	a.hitsDelta += n
}

// countRepellent converts accumulated exposure into hits and misses.
func (a *Agent) countRepellent() {
	for a.hitsFrame >= 1 {
		a.hitsFrame--
		a.hits++
		a.hitsDelta++
		a.rage += 0.6 * a.diff.RageLikelihood
	}
	for a.missesFrame >= 1 {
		a.missesFrame--
		a.misses++
		a.missesDelta++
		a.rage += 0.6 * a.diff.RageLikelihood
	}
}

// ApplySage calms the ghost from burning sage of the given strength (0-1)
// at the given distance over dt seconds.
func (a *Agent) ApplySage(strength, distance, dt float64) {
	if a.fade != nil || distance >= a.tuning.SageRange {
		return
	}
	s := clamp(strength, 0, 1)
	a.rage = nonNegative(a.rage - 30*dt*s/(1+distance))
	a.calm = math.Min(a.calm+10*dt*s/(1+distance), 30)
}

// ApplySalt starts the salt effect: while it lasts and the ghost is not
// hunting it leaves traces where it walks.
func (a *Agent) ApplySalt() {
	if a.fade != nil {
		return
	}
	a.saltTimer = a.tuning.SaltDuration
	a.saltSpawnTimer = 0
}

// SaltActive reports whether the salt effect is running.
func (a *Agent) SaltActive() bool { return a.saltTimer > 0 }
