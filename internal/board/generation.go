package board

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds procedural house parameters.
type GenConfig struct {
	Width    int   // Tiles per row
	Height   int   // Rows per floor
	Floors   int   // Number of floors
	RoomSize int   // Target room edge length in tiles
	Seed     int64 // Random seed (0 = random)
}

// DefaultGenConfig returns a medium two-storey house.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:    28,
		Height:   18,
		Floors:   2,
		RoomSize: 6,
	}
}

// SmallTestConfig returns a tiny single floor house for tests.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:    12,
		Height:   10,
		Floors:   1,
		RoomSize: 5,
		Seed:     42,
	}
}

var roomNames = []string{
	"Kitchen", "Living Room", "Bedroom", "Bathroom", "Hallway", "Study",
	"Nursery", "Basement", "Attic", "Dining Room", "Laundry", "Storage",
}

// Generate builds a house: an outer wall shell, rooms cut by jittered
// interior walls with doorways, stairs linking floors, and breach candidates
// in every room.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.RoomSize < 3 {
		cfg.RoomSize = 3
	}
	rng := rand.New(rand.NewSource(seed))

	// Wall jitter comes from noise so partitions look hand drawn rather
	// than perfectly gridded.
	wallNoise := opensimplex.NewNormalized(seed)
	thinNoise := opensimplex.NewNormalized(seed + 1)

	g := NewGrid("generated", cfg.Width, cfg.Height, cfg.Floors)
	nextRoom := RoomID(1)

	for z := 0; z < cfg.Floors; z++ {
		vertical := partition(wallNoise, z, cfg.Width, cfg.RoomSize, 0.0)
		horizontal := partition(wallNoise, z, cfg.Height, cfg.RoomSize, 100.0)

		for y := 0; y < cfg.Height; y++ {
			for x := 0; x < cfg.Width; x++ {
				t := Tile{X: x, Y: y, Z: z}
				shell := x == 0 || y == 0 || x == cfg.Width-1 || y == cfg.Height-1
				switch {
				case shell:
					g.SetCell(t, Cell{FloorValid: true})
				case vertical[x] || horizontal[y]:
					// Some interior walls are thin enough for the ghost.
					thin := octaveNoise(thinNoise, float64(x), float64(y)+float64(z)*50, 2, 0.2, 0.5) > 0.6
					g.SetCell(t, Cell{FloorValid: true, GhostFree: thin})
				default:
					g.SetCell(t, Cell{FloorValid: true, GhostFree: true, PlayerFree: true})
				}
			}
		}

		// Assign rooms to the cells between partitions.
		xs := cuts(vertical, cfg.Width)
		ys := cuts(horizontal, cfg.Height)
		for yi := 0; yi+1 < len(ys); yi++ {
			for xi := 0; xi+1 < len(xs); xi++ {
				id := nextRoom
				nextRoom++
				name := roomNames[rng.Intn(len(roomNames))]
				var interior []Tile
				for y := ys[yi] + 1; y < ys[yi+1]; y++ {
					for x := xs[xi] + 1; x < xs[xi+1]; x++ {
						t := Tile{X: x, Y: y, Z: z}
						g.SetRoom(t, id, name)
						interior = append(interior, t)
					}
				}
				if len(interior) > 0 {
					g.AddBreach(interior[rng.Intn(len(interior))])
				}
				// Doorways to the east and south neighbours.
				if xi+2 < len(xs) && ys[yi+1]-ys[yi] > 1 {
					door := Tile{X: xs[xi+1], Y: ys[yi] + 1 + rng.Intn(ys[yi+1]-ys[yi]-1), Z: z}
					g.SetCell(door, Cell{FloorValid: true, GhostFree: true, PlayerFree: true})
				}
				if yi+2 < len(ys) && xs[xi+1]-xs[xi] > 1 {
					door := Tile{X: xs[xi] + 1 + rng.Intn(xs[xi+1]-xs[xi]-1), Y: ys[yi+1], Z: z}
					g.SetCell(door, Cell{FloorValid: true, GhostFree: true, PlayerFree: true})
				}
			}
		}
	}

	placeStairs(g, rng)
	g.MarkLoaded()
	return g
}

// partition marks wall lines along one axis, spaced around roomSize with
// noise jitter.
func partition(noise opensimplex.Noise, z, length, roomSize int, offset float64) []bool {
	walls := make([]bool, length)
	pos := 0
	for {
		jitter := octaveNoise(noise, float64(pos)+offset, float64(z)*10, 3, 0.3, 0.5)
		step := roomSize + int((jitter-0.5)*float64(roomSize))
		if step < 3 {
			step = 3
		}
		pos += step
		if pos >= length-3 {
			break
		}
		walls[pos] = true
	}
	return walls
}

// cuts returns the wall positions along an axis including both shell walls.
func cuts(walls []bool, length int) []int {
	result := []int{0}
	for i, w := range walls {
		if w && i > 0 && i < length-1 {
			result = append(result, i)
		}
	}
	return append(result, length-1)
}

// placeStairs links each pair of consecutive floors with a stair tile that is
// open on both floors.
func placeStairs(g *Grid, rng *rand.Rand) {
	for z := 0; z+1 < g.FloorCount; z++ {
		var shared []Tile
		for y := 1; y < g.Height-1; y++ {
			for x := 1; x < g.Width-1; x++ {
				lower := Tile{X: x, Y: y, Z: z}
				upper := Tile{X: x, Y: y, Z: z + 1}
				if g.PlayerFree(lower) && g.PlayerFree(upper) {
					shared = append(shared, lower)
				}
			}
		}
		if len(shared) == 0 {
			continue
		}
		lower := shared[rng.Intn(len(shared))]
		upper := Tile{X: lower.X, Y: lower.Y, Z: z + 1}

		c := g.Cell(lower)
		c.Stair = 1
		g.SetCell(lower, c)
		c = g.Cell(upper)
		c.Stair = -1
		g.SetCell(upper, c)
	}
}

// octaveNoise samples multi-octave simplex noise, normalized to 0-1.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
