package board

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// ErrNoBreach is returned when a board declares no breach candidates.
var ErrNoBreach = errors.New("board has no breach candidates")

// RoomID identifies a room on the board.
type RoomID uint16

// Cell holds the collision flags of one tile.
type Cell struct {
	FloorValid bool // Tile exists (not void / outside the building shell)
	GhostFree  bool // The ghost may occupy the tile
	PlayerFree bool // Players may walk here; false means a wall or furniture
	Stair      int8 // Floor offset reached by taking the stairs on this tile
}

// Grid is an in-memory board: collision field, room registry and the breach
// candidates declared by the map.
type Grid struct {
	Name       string
	Width      int
	Height     int
	FloorCount int

	cells     []Cell
	rooms     map[Tile]RoomID
	roomNames map[RoomID]string
	breaches  []Tile
	loaded    bool
}

// NewGrid creates an empty (all void) grid.
func NewGrid(name string, width, height, floors int) *Grid {
	return &Grid{
		Name:       name,
		Width:      width,
		Height:     height,
		FloorCount: floors,
		cells:      make([]Cell, width*height*floors),
		rooms:      make(map[Tile]RoomID),
		roomNames:  make(map[RoomID]string),
	}
}

func (g *Grid) index(t Tile) (int, bool) {
	if !g.InBounds(t) {
		return 0, false
	}
	return (t.Z*g.Height+t.Y)*g.Width + t.X, true
}

// InBounds returns true if the tile lies inside the grid volume.
func (g *Grid) InBounds(t Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.Z >= 0 &&
		t.X < g.Width && t.Y < g.Height && t.Z < g.FloorCount
}

// Cell returns the collision flags of a tile. Out of bounds tiles are void.
func (g *Grid) Cell(t Tile) Cell {
	i, ok := g.index(t)
	if !ok {
		return Cell{}
	}
	return g.cells[i]
}

// SetCell stores the collision flags of a tile. Out of bounds writes are ignored.
func (g *Grid) SetCell(t Tile, c Cell) {
	if i, ok := g.index(t); ok {
		g.cells[i] = c
	}
}

// SetRoom assigns a tile to a room.
func (g *Grid) SetRoom(t Tile, id RoomID, name string) {
	g.rooms[t] = id
	if name != "" {
		g.roomNames[id] = name
	}
}

// AddBreach registers a breach candidate.
func (g *Grid) AddBreach(t Tile) {
	g.breaches = append(g.breaches, t)
}

// Breaches returns the breach candidates declared by the map.
func (g *Grid) Breaches() []Tile {
	return g.breaches
}

// MarkLoaded flags the collision data as ready for queries.
func (g *Grid) MarkLoaded() {
	g.loaded = true
}

// Loaded reports whether the collision data is ready.
func (g *Grid) Loaded() bool {
	return g != nil && g.loaded
}

// GhostFree reports whether the ghost may occupy the tile.
func (g *Grid) GhostFree(t Tile) bool { return g.Cell(t).GhostFree }

// PlayerFree reports whether players may walk on the tile.
func (g *Grid) PlayerFree(t Tile) bool { return g.Cell(t).PlayerFree }

// FloorValid reports whether the tile exists on its floor.
func (g *Grid) FloorValid(t Tile) bool { return g.Cell(t).FloorValid }

// StairOffset returns the floor change reached by the stairs on the tile.
func (g *Grid) StairOffset(t Tile) int { return int(g.Cell(t).Stair) }

// Floors returns the number of floors.
func (g *Grid) Floors() int { return g.FloorCount }

// RoomOf returns the room containing the tile, if any.
func (g *Grid) RoomOf(t Tile) (RoomID, bool) {
	id, ok := g.rooms[t]
	return id, ok
}

// RoomName returns the display name of a room.
func (g *Grid) RoomName(id RoomID) string {
	if name, ok := g.roomNames[id]; ok {
		return name
	}
	return fmt.Sprintf("room-%d", id)
}

// RoomIDs returns the declared rooms in ascending order.
func (g *Grid) RoomIDs() []RoomID {
	ids := maps.Keys(g.RoomTiles())
	slices.Sort(ids)
	return ids
}

// RoomTiles returns the number of tiles per room.
func (g *Grid) RoomTiles() map[RoomID]int {
	counts := make(map[RoomID]int)
	for _, id := range g.rooms {
		counts[id]++
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%s %dx%dx%d, rooms=%d, breaches=%d)",
		g.Name, g.Width, g.Height, g.FloorCount, len(g.RoomIDs()), len(g.breaches))
}
