package ghost

import (
	"math"
	"math/rand"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/influence"
)

// Destination is the outcome of one selection round.
type Destination struct {
	Point board.Position
	Seek  bool // aimed at a player rather than wandering
}

// selectDestination picks a new movement goal when the ghost has none, or
// now and then during a hunt so it keeps re-acquiring players.
func (a *Agent) selectDestination(in Input) {
	reselect := !a.hasTarget ||
		(a.phase == Hunting && a.rng.Intn(a.tuning.HuntReselectChance) == 0)
	if !reselect {
		return
	}

	dest, ok := a.seek(in.Players)
	if !ok {
		dest = Destination{Point: a.wander(in)}
	}
	if !a.acceptable(dest.Point) {
		// Rejected; keep whatever target we had and try again next tick.
		return
	}
	if dest.Seek {
		a.log.Debug("seeking player", "target", dest.Point.String(), "hunting", a.hunting)
	}
	a.target = dest.Point
	a.hasTarget = true
}

// acceptable reports whether a destination can become the target.
func (a *Agent) acceptable(p board.Position) bool {
	t := p.Tile()
	if _, ok := a.board.RoomOf(t); !ok {
		return false
	}
	return a.board.GhostFree(t) && a.board.FloorValid(t)
}

// seek rolls whether the ghost goes after a player. The roll is near
// certain during a hunt and grows with hunting fuel otherwise.
func (a *Agent) seek(players []PlayerSnapshot) (Destination, bool) {
	bonus := 0.0001
	if a.phase == Hunting {
		bonus = 10000
	}
	if uniform(a.rng, 0, math.Sqrt(a.hunting*10+bonus)*10) <= 10 {
		return Destination{}, false
	}

	var candidates []PlayerSnapshot
	for _, p := range players {
		if p.Alive() {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Destination{}, false
	}
	p := candidates[a.rng.Intn(len(candidates))]

	radius := 1.0
	if p.Hiding {
		radius *= 2
	}
	lost := a.calm > 5
	if lost {
		radius++
	}

	guess := a.pos
	if a.hasTarget {
		guess = a.target
	}
	guess.X += uniform(a.rng, -radius, radius)
	guess.Y += uniform(a.rng, -radius, radius)

	aim := p.Position
	if p.Hiding || lost {
		aim = guess
	}
	a.calm -= math.Min(2, a.calm)

	point := board.Position{
		X: aim.X + uniform(a.rng, -radius, radius),
		Y: aim.Y + uniform(a.rng, -radius, radius),
		Z: float64(p.Position.Floor()),
	}
	return Destination{Point: point, Seek: true}, true
}

// wander samples candidate points around a blend of the ghost position and
// its breach and returns the best scoring one, or the spawn point.
func (a *Agent) wander(in Input) board.Position {
	return SampleDestination(a.rng, a.board, a.pos, a.spawn, a.diff.AttractionToBreach,
		in.Influences, in.InfluenceConfig, a.tuning)
}

// SampleDestination draws tuning.SampleCount wander candidates and returns
// the highest scoring one on a floor-valid, ghost-free tile. It falls back to
// spawn when no candidate qualifies.
func SampleDestination(rng *rand.Rand, b Board, pos, spawn board.Position, attraction float64,
	objects []influence.Object, icfg influence.Config, t Tuning) board.Position {

	if attraction <= 0 {
		attraction = 0.01
	}
	best := spawn
	bestScore := math.Inf(-1)
	for i := 0; i < t.SampleCount; i++ {
		p := wanderCandidate(rng, b, pos, spawn, attraction, t.MaxWanderDistance)
		tile := p.Tile()
		if !b.FloorValid(tile) || !b.GhostFree(tile) {
			continue
		}
		score := scoreDestination(b, p, pos, attraction, objects, icfg, t)
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}

// wanderCandidate draws one point. The wander width is heavy tailed so most
// candidates land close while a few land far away, and the five summed
// offsets give a rough bell shape around a pull toward the breach.
func wanderCandidate(rng *rand.Rand, b Board, pos, spawn board.Position, attraction, maxDist float64) board.Position {
	w := math.Pow(uniform(rng, 0.001, 1), 6)*12/attraction + 0.5
	dx := sumUniform(rng, 5, -1, 1)
	dy := sumUniform(rng, 5, -1, 1)
	dist := sumUniform(rng, 5, 0.2, w)
	if dist > maxDist {
		dist = maxDist
	}

	p := board.Position{
		X: (spawn.X + pos.X*w) / (1 + w),
		Y: (spawn.Y + pos.Y*w) / (1 + w),
	}
	if norm := math.Hypot(dx, dy); norm > 0 {
		p.X += dx / norm * dist
		p.Y += dy / norm * dist
	}

	floor := int(math.Round((spawn.Z + pos.Z*w) / (1 + w)))
	floor += b.StairOffset(board.Tile{X: int(math.Round(p.X)), Y: int(math.Round(p.Y)), Z: floor})
	p.Z = float64(clamp(floor, 0, max(b.Floors()-1, 0)))
	return p
}

// scoreDestination is (1 + influence/attraction) / (1 + |penalty|/10).
func scoreDestination(b Board, p, from board.Position, attraction float64,
	objects []influence.Object, icfg influence.Config, t Tuning) float64 {

	penalty := 0.0
	if !b.PlayerFree(p.Tile()) {
		penalty += t.WallPenalty
	}
	if p.Floor() != from.Floor() {
		penalty += t.FloorChangePenalty
	}
	infl := influence.Score(objects, icfg, p)
	return (1 + infl/attraction) / (1 + math.Abs(penalty)/10)
}
