package board

import (
	"math/rand"
	"sort"
)

// BreachCandidate is a scored breach location.
type BreachCandidate struct {
	Tile  Tile
	Room  RoomID
	Score float64
}

// RankBreaches scores the grid's declared breach candidates. Rooms with more
// open floor and candidates away from the stairs score higher; a seeded
// jitter breaks ties so the same seed always ranks identically.
func RankBreaches(g *Grid, seed int64) []BreachCandidate {
	rng := rand.New(rand.NewSource(seed + 200))
	sizes := g.RoomTiles()

	var stairs []Tile
	for z := 0; z < g.FloorCount; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				t := Tile{X: x, Y: y, Z: z}
				if g.StairOffset(t) != 0 {
					stairs = append(stairs, t)
				}
			}
		}
	}

	candidates := make([]BreachCandidate, 0, len(g.Breaches()))
	for _, t := range g.Breaches() {
		room, ok := g.RoomOf(t)
		if !ok || !g.GhostFree(t) {
			continue
		}
		candidates = append(candidates, BreachCandidate{
			Tile:  t,
			Room:  room,
			Score: breachScore(g, t, sizes[room], stairs) + rng.Float64(),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// SelectBreach picks the spawn tile for a mission. The pick is random among
// the top-ranked candidates so repeated missions on one map differ.
func SelectBreach(g *Grid, seed int64) (BreachCandidate, error) {
	candidates := RankBreaches(g, seed)
	if len(candidates) == 0 {
		return BreachCandidate{}, ErrNoBreach
	}
	top := len(candidates)
	if top > 3 {
		top = 3
	}
	rng := rand.New(rand.NewSource(seed + 201))
	return candidates[rng.Intn(top)], nil
}

// breachScore prefers large rooms and tiles far from stairs.
func breachScore(g *Grid, t Tile, roomSize int, stairs []Tile) float64 {
	score := float64(roomSize) * 0.1

	open := 0
	for _, n := range t.Neighbors() {
		if g.PlayerFree(n) {
			open++
		}
	}
	score += float64(open) * 0.2

	if len(stairs) > 0 {
		nearest := -1.0
		for _, s := range stairs {
			d := t.Position().WeightedDistance(s.Position())
			if nearest < 0 || d < nearest {
				nearest = d
			}
		}
		if nearest > 6 {
			nearest = 6
		}
		score += nearest * 0.3
	}
	return score
}
