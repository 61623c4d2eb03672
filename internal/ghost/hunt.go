package ghost

import (
	"fmt"
	"math"
)

// updateHunt runs the hostility state machine for one tick.
func (a *Agent) updateHunt(in Input) {
	dt := in.DT
	a.lastRoar += dt
	roar := RoarNone
	roarDelay := 3.0

	a.updateSalt(dt)

	if a.calm > 0 {
		a.calm -= math.Min(dt, a.calm)
	}

	// Far away players calm the ghost down.
	minDist := 1000.0
	living := 0
	for _, p := range in.Players {
		if !p.Alive() {
			continue
		}
		living++
		minDist = math.Min(minDist, a.pos.WeightedDistance(p.Position))
	}
	minDist = clamp(minDist, 1, 1000)
	a.rage = nonNegative(a.rage - dt*math.Sqrt(minDist)/10)
	if a.phase != Hunting {
		a.hunting = nonNegative(a.hunting - dt*math.Sqrt(minDist)/3)
	}

	if a.phase == Warning && living == 0 {
		a.cancelWarning()
	}
	if a.phase == Warning {
		a.warnTimer -= dt
		a.warnIntensity = clamp(1-a.warnTimer/a.tuning.WarningDuration, 0, 1)
		if a.warnTimer <= 0 {
			a.startHunt()
		}
	}

	if a.phase == Hunting {
		roar = a.huntTick(in)
	} else {
		roar, roarDelay = a.escalate(in, living)
	}

	if a.lastRoar > 30 && roar == RoarNone {
		roar = RoarSnore
	}
	if a.lastRoar > roarDelay && roar != RoarNone {
		a.roar(roar, roar.Volume())
	}
}

// huntTick damages players and burns hunt fuel.
func (a *Agent) huntTick(in Input) RoarKind {
	dt := in.DT
	elapsed := a.now - a.huntStart
	strength := clamp(elapsed, 0, 2)
	for _, p := range in.Players {
		if !p.Alive() {
			continue
		}
		d2 := a.pos.WeightedDistance2(p.Position) + 2
		dmg := 1 / d2 * a.diff.HealthDrainRate * dt * 30 * strength / (1 + a.calm/5)
		if dmg > 0 {
			a.out.Damage = append(a.out.Damage, Damage{PlayerID: p.ID, Amount: dmg})
		}
	}

	roar := RoarDim
	if a.hunting > 4 {
		roar = RoarFull
	}
	a.rage = nonNegative(a.rage - dt*20)

	if elapsed >= 1 {
		a.hunting -= dt
		if a.hunting <= 0 {
			a.hunting = 0
			a.endHunt()
		}
	}
	return roar
}

// escalate updates rage from player anger while Calm or Warning and may
// start a hunt warning.
func (a *Agent) escalate(in Input, living int) (RoarKind, float64) {
	dt := in.DT
	roar := RoarNone
	roarDelay := 3.0

	angry := math.Sqrt(a.anger2(in.Players, dt))
	af := 1 + math.Pow(a.anger.avg()*2, 2)
	a.rage /= math.Pow(1.01, dt/af)
	a.rage = nonNegative(a.rage - dt*2/af)
	a.rage += angry * dt / 10 / (1 + a.calm) * a.diff.RageLikelihood * a.dynamics.RageTendency(a.now)
	a.rage += a.roomBonus(in.Players) * dt
	a.hunting = nonNegative(a.hunting - dt*0.2/a.diff.HuntDuration)
	a.anger.push(angry, dt)

	if a.phase != Calm {
		return roar, roarDelay
	}

	limit := a.RageLimit()
	switch {
	case a.rage > limit && living > 0:
		a.rageLimitMult = clamp(a.rageLimitMult*a.tuning.RageLimitGrowth, 1, a.tuning.RageLimitMax)
		prev := a.rage
		a.rage /= 1 + a.diff.HuntCooldown
		if a.hunting < 1 {
			roar = RoarFull
			roarDelay = 0.2
		}
		a.hunting += prev/50 + 5
		a.phase = Warning
		a.warnTimer = a.tuning.WarningDuration
		a.warnIntensity = 0
		a.log.Info("hunt warning",
			"rage", fmt.Sprintf("%.1f", prev),
			"limit", fmt.Sprintf("%.1f", limit),
			"hunting", fmt.Sprintf("%.1f", a.hunting))
		a.emit(EventWarning)
	case a.rage > limit/2 && a.hunting < 1 && a.lastRoar > 10:
		roar = RoarDim
	}

	if a.phase == Calm {
		a.rageLimitMult = clamp(a.rageLimitMult/math.Pow(a.tuning.RageLimitRelax, dt), 1, a.tuning.RageLimitMax)
	}
	return roar, roarDelay
}

// anger2 sums the squared anger contribution of every living player:
// closer, louder, less sane players anger the ghost more.
func (a *Agent) anger2(players []PlayerSnapshot, dt float64) float64 {
	total := 0.0
	for _, p := range players {
		if !p.Alive() {
			continue
		}
		total += a.playerAnger2(p, dt)
	}
	return total
}

func (a *Agent) playerAnger2(p PlayerSnapshot, dt float64) float64 {
	sanity := math.Max(p.Sanity, 0.01)
	invSanity := (120 - sanity) / 100
	radius := math.Max(a.diff.HuntProvocationRadius, 0.01)
	dist2 := a.pos.WeightedDistance2(p.Position)/radius*(0.01+sanity) + 0.1 + sanity/100
	sound := nonNegative(p.Sound)
	angry2 := 1 / dist2 * 1e6 / sanity * sound * clamp(p.Health/100, 0, 1)
	return angry2*invSanity + math.Sqrt(sound)*invSanity*dt*3000.1
}

// roomBonus is the flat rage per second from players standing inside rooms.
func (a *Agent) roomBonus(players []PlayerSnapshot) float64 {
	bonus := 0.0
	for _, p := range players {
		if !p.Alive() {
			continue
		}
		if _, ok := a.board.RoomOf(p.Position.Tile()); !ok {
			continue
		}
		sanity := clamp(p.Sanity, 0, 100)
		bonus += a.tuning.RoomRageBonus * (120 - sanity) / 100
	}
	return bonus
}

func (a *Agent) startHunt() {
	a.phase = Hunting
	a.huntStart = a.now
	a.warnTimer = 0
	a.warnIntensity = 1
	// Force the destination selector to pick a player next.
	a.hasTarget = false
	a.log.Info("hunt started", "hunting", fmt.Sprintf("%.1f", a.hunting))
	a.emit(EventHunt)
}

// cancelWarning drops a pending hunt back to Calm when nobody is left to
// hunt. No transition event is published.
func (a *Agent) cancelWarning() {
	a.phase = Calm
	a.warnTimer = 0
	a.warnIntensity = 0
	a.log.Info("hunt warning cancelled", "reason", "no living players")
}

func (a *Agent) endHunt() {
	a.phase = Calm
	a.warnIntensity = 0
	a.hasTarget = false
	a.timesHunted++
	a.log.Info("hunt finished", "times_hunted", a.timesHunted)
	a.emit(EventHuntEnd)
}

// updateSalt leaves traces on walkable neighbour tiles while the salt effect
// lasts and the ghost is not hunting.
func (a *Agent) updateSalt(dt float64) {
	if a.saltTimer <= 0 || a.hunting > 0.1 {
		return
	}
	a.saltTimer = nonNegative(a.saltTimer - dt)
	a.saltSpawnTimer += dt
	if a.saltSpawnTimer < a.tuning.SaltInterval {
		return
	}
	a.saltSpawnTimer -= a.tuning.SaltInterval
	if a.rng.Float64() >= 0.5 {
		return
	}
	for _, n := range a.pos.Tile().Neighbors() {
		if !a.board.PlayerFree(n) {
			continue
		}
		p := n.Position()
		p.X += uniform(a.rng, -0.2, 0.2)
		p.Y += uniform(a.rng, -0.2, 0.2)
		a.out.SaltTraces = append(a.out.SaltTraces, p)
		return
	}
}
