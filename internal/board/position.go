// Package board provides the building grid, positions, and spatial queries.
// A board is a stack of floors; each floor is a row-major grid of tiles.
package board

import (
	"fmt"
	"math"
)

// FloorDistanceWeight multiplies the vertical component of a distance when
// the two positions are on different floors.
const FloorDistanceWeight = 10.0

// Position is a continuous location on the board. Z is the floor level;
// integer values sit exactly on a floor.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Tile is a discrete board cell.
type Tile struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Delta is the difference between two positions.
type Delta struct {
	DX, DY, DZ float64
}

// Tile returns the tile containing the position (rounded).
func (p Position) Tile() Tile {
	return Tile{
		X: int(math.Round(p.X)),
		Y: int(math.Round(p.Y)),
		Z: int(math.Round(p.Z)),
	}
}

// Floor returns the rounded floor level.
func (p Position) Floor() int {
	return int(math.Round(p.Z))
}

// SameFloor reports whether both positions round to the same floor.
func (p Position) SameFloor(o Position) bool {
	return p.Floor() == o.Floor()
}

// Sub returns the delta from o to p.
func (p Position) Sub(o Position) Delta {
	return Delta{DX: p.X - o.X, DY: p.Y - o.Y, DZ: p.Z - o.Z}
}

// Distance2 returns the squared euclidean distance.
func (p Position) Distance2(o Position) float64 {
	d := p.Sub(o)
	return d.DX*d.DX + d.DY*d.DY + d.DZ*d.DZ
}

// Distance returns the euclidean distance.
func (p Position) Distance(o Position) float64 {
	return math.Sqrt(p.Distance2(o))
}

// WeightedDistance2 is the squared distance used for proximity checks:
// across floors the vertical component is scaled by FloorDistanceWeight.
func (p Position) WeightedDistance2(o Position) float64 {
	d := p.Sub(o)
	if !p.SameFloor(o) {
		d.DZ *= FloorDistanceWeight
	}
	return d.DX*d.DX + d.DY*d.DY + d.DZ*d.DZ
}

// WeightedDistance is the square root of WeightedDistance2.
func (p Position) WeightedDistance(o Position) float64 {
	return math.Sqrt(p.WeightedDistance2(o))
}

// String formats the position for logs.
func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// Position returns the center of the tile.
func (t Tile) Position() Position {
	return Position{X: float64(t.X), Y: float64(t.Y), Z: float64(t.Z)}
}

// Neighbors returns the eight same-floor neighbours of the tile.
func (t Tile) Neighbors() [8]Tile {
	var result [8]Tile
	i := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			result[i] = Tile{X: t.X + dx, Y: t.Y + dy, Z: t.Z}
			i++
		}
	}
	return result
}

// Length returns the length of the delta.
func (d Delta) Length() float64 {
	return math.Sqrt(d.DX*d.DX + d.DY*d.DY + d.DZ*d.DZ)
}
