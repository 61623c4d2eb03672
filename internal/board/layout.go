package board

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout is the on-disk description of a building. Each floor is a list of
// ASCII rows:
//
//	' '      void (outside the building)
//	'#'      solid wall
//	':'      thin wall the ghost passes through
//	'.'      open floor outside any room
//	'a'-'z'  open floor belonging to that room
type Layout struct {
	Name     string            `yaml:"name"`
	Floors   []FloorLayout     `yaml:"floors"`
	Rooms    map[string]string `yaml:"rooms"`
	Stairs   []StairLayout     `yaml:"stairs"`
	Breaches []Tile            `yaml:"breaches"`
}

// FloorLayout is one floor of a Layout.
type FloorLayout struct {
	Rows []string `yaml:"rows"`
}

// StairLayout marks a tile whose stairs lead Offset floors up (or down).
type StairLayout struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Z      int `yaml:"z"`
	Offset int `yaml:"offset"`
}

// LoadLayoutFile reads and builds a grid from a YAML layout file.
func LoadLayoutFile(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	g, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return g, nil
}

// ParseLayout decodes YAML layout data into a grid.
func ParseLayout(data []byte) (*Grid, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return l.Build()
}

// Build converts the layout into a loaded Grid.
func (l Layout) Build() (*Grid, error) {
	if len(l.Floors) == 0 {
		return nil, fmt.Errorf("layout %q has no floors", l.Name)
	}

	width, height := 0, 0
	for _, f := range l.Floors {
		if len(f.Rows) > height {
			height = len(f.Rows)
		}
		for _, row := range f.Rows {
			if len(row) > width {
				width = len(row)
			}
		}
	}

	g := NewGrid(l.Name, width, height, len(l.Floors))
	for z, f := range l.Floors {
		for y, row := range f.Rows {
			for x, ch := range []byte(row) {
				t := Tile{X: x, Y: y, Z: z}
				switch {
				case ch == ' ':
					// void
				case ch == '#':
					g.SetCell(t, Cell{FloorValid: true})
				case ch == ':':
					g.SetCell(t, Cell{FloorValid: true, GhostFree: true})
				case ch == '.':
					g.SetCell(t, Cell{FloorValid: true, GhostFree: true, PlayerFree: true})
				case ch >= 'a' && ch <= 'z':
					g.SetCell(t, Cell{FloorValid: true, GhostFree: true, PlayerFree: true})
					key := string(ch)
					g.SetRoom(t, RoomID(ch-'a'+1), l.Rooms[key])
				default:
					return nil, fmt.Errorf("floor %d row %d: unknown tile %q", z, y, ch)
				}
			}
		}
	}

	for _, s := range l.Stairs {
		t := Tile{X: s.X, Y: s.Y, Z: s.Z}
		if !g.FloorValid(t) {
			return nil, fmt.Errorf("stairs at %v are outside the building", t)
		}
		if s.Z+s.Offset < 0 || s.Z+s.Offset >= g.FloorCount {
			return nil, fmt.Errorf("stairs at %v lead to missing floor %d", t, s.Z+s.Offset)
		}
		c := g.Cell(t)
		c.Stair = int8(s.Offset)
		g.SetCell(t, c)
	}

	for _, b := range l.Breaches {
		if !g.GhostFree(b) {
			return nil, fmt.Errorf("breach at %v is not on an open tile", b)
		}
		g.AddBreach(b)
	}

	g.MarkLoaded()
	return g, nil
}

// Rows renders floor z in the layout tile legend.
func (g *Grid) Rows(z int) []string {
	rows := make([]string, g.Height)
	buf := make([]byte, g.Width)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t := Tile{X: x, Y: y, Z: z}
			c := g.Cell(t)
			switch {
			case !c.FloorValid:
				buf[x] = ' '
			case !c.GhostFree:
				buf[x] = '#'
			case !c.PlayerFree:
				buf[x] = ':'
			default:
				buf[x] = '.'
				if id, ok := g.RoomOf(t); ok {
					buf[x] = byte('a' + (int(id)-1)%26)
				}
			}
		}
		rows[y] = string(buf)
	}
	return rows
}
