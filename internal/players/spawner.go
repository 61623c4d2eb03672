package players

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/hauntsim/internal/board"
)

// Spec describes one team member to spawn.
type Spec struct {
	Name     string `yaml:"name" json:"name"`
	Behavior string `yaml:"behavior" json:"behavior"` // built-in name, embedded script name or .tengo path
	Kit      Kit    `yaml:"kit" json:"kit"`
}

// DefaultTeam is the team used when none is configured.
func DefaultTeam() []Spec {
	return []Spec{
		{Behavior: "investigator", Kit: Kit{SageBundles: 1}},
		{Behavior: "hider"},
		{Behavior: "exorcist", Kit: Kit{RepellentSeconds: 30, RepellentCorrect: true, SageBundles: 2, SaltPiles: 2}},
		{Behavior: "cautious", Kit: Kit{SageBundles: 2}},
	}
}

var firstNames = []string{
	"Ada", "Bram", "Cleo", "Dmitri", "Edda", "Felix", "Greta", "Hugo",
	"Ines", "Jonas", "Kasia", "Lev", "Mara", "Nils", "Orla", "Pavel",
}

// Spawner creates team members deterministically from a seed.
type Spawner struct {
	rng    *rand.Rand
	nextID int
	log    *slog.Logger
}

// NewSpawner creates a spawner.
func NewSpawner(seed int64, logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{rng: rand.New(rand.NewSource(seed + 300)), log: logger}
}

// Member is a spawned player together with its behavior.
type Member struct {
	Player   *Player
	Behavior Behavior
}

// SpawnTeam places the team at a common entrance tile.
func (s *Spawner) SpawnTeam(g *board.Grid, specs []Spec) ([]Member, error) {
	entry, err := s.Entrance(g)
	if err != nil {
		return nil, err
	}
	scripts := map[string]*ScriptBehavior{}
	members := make([]Member, 0, len(specs))
	for _, spec := range specs {
		behavior, err := s.resolve(spec.Behavior, scripts)
		if err != nil {
			return nil, err
		}
		s.nextID++
		name := spec.Name
		if name == "" {
			name = firstNames[s.rng.Intn(len(firstNames))]
		}
		pos := entry.Position()
		pos.X += s.rng.Float64()*0.4 - 0.2
		pos.Y += s.rng.Float64()*0.4 - 0.2
		if !g.PlayerFree(pos.Tile()) {
			pos = entry.Position()
		}
		members = append(members, Member{
			Player: &Player{
				ID:       fmt.Sprintf("p%d", s.nextID),
				Name:     name,
				Behavior: behavior.Name(),
				Position: pos,
				Health:   100,
				Sanity:   100,
				Alive:    true,
				Kit:      spec.Kit,
			},
			Behavior: behavior,
		})
	}
	s.log.Info("team spawned", "players", len(members), "entrance", fmt.Sprintf("%d,%d,%d", entry.X, entry.Y, entry.Z))
	return members, nil
}

func (s *Spawner) resolve(name string, scripts map[string]*ScriptBehavior) (Behavior, error) {
	if name == "" {
		name = "investigator"
	}
	if b, err := Builtin(name); err == nil {
		return b, nil
	}
	if compiled, ok := scripts[name]; ok {
		return compiled.Clone(), nil
	}
	compiled, err := LoadScript(name, s.log)
	if err != nil {
		return nil, err
	}
	scripts[name] = compiled
	return compiled.Clone(), nil
}

// Entrance picks a walkable tile outside every room, preferring the ground
// floor. Buildings without corridors fall back to any walkable tile.
func (s *Spawner) Entrance(g *board.Grid) (board.Tile, error) {
	var corridor, walkable []board.Tile
	for z := 0; z < g.FloorCount; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				t := board.Tile{X: x, Y: y, Z: z}
				if !g.PlayerFree(t) {
					continue
				}
				walkable = append(walkable, t)
				if _, ok := g.RoomOf(t); !ok && z == 0 {
					corridor = append(corridor, t)
				}
			}
		}
		if len(walkable) > 0 {
			break
		}
	}
	switch {
	case len(corridor) > 0:
		return corridor[s.rng.Intn(len(corridor))], nil
	case len(walkable) > 0:
		return walkable[s.rng.Intn(len(walkable))], nil
	}
	return board.Tile{}, fmt.Errorf("no walkable tile for the team in %s", g.Name)
}
