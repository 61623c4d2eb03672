package players

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/hauntsim/internal/board"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// corridorGrid is a 10x5 building: a corridor along y=1 (no room), a room
// below it (room 1) and a wall at x=5 between y=2 and y=3.
func corridorGrid() *board.Grid {
	g := board.NewGrid("test", 10, 5, 2)
	for z := 0; z < 2; z++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 10; x++ {
				t := board.Tile{X: x, Y: y, Z: z}
				if x == 0 || y == 0 || x == 9 || y == 4 {
					g.SetCell(t, board.Cell{FloorValid: true})
					continue
				}
				g.SetCell(t, board.Cell{FloorValid: true, GhostFree: true, PlayerFree: true})
				if y >= 2 {
					g.SetRoom(t, 1, "kitchen")
				}
			}
		}
	}
	g.SetCell(board.Tile{X: 5, Y: 2}, board.Cell{FloorValid: true})
	g.SetCell(board.Tile{X: 5, Y: 3}, board.Cell{FloorValid: true})
	g.SetCell(board.Tile{X: 2, Y: 1}, board.Cell{FloorValid: true, GhostFree: true, PlayerFree: true, Stair: 1})
	g.MarkLoaded()
	return g
}

func newPlayer(x, y float64) *Player {
	return &Player{ID: "p1", Position: board.Position{X: x, Y: y}, Health: 100, Sanity: 100, Alive: true}
}

func TestApplyMovesAndBlocksOnWalls(t *testing.T) {
	g := corridorGrid()
	rules := DefaultRules()

	p := newPlayer(3, 1)
	Apply(p, Intent{MoveX: 1}, 0.5, 10, g, rules)
	if math.Abs(p.Position.X-4) > 1e-9 {
		t.Errorf("expected x=4 after half a second, got %f", p.Position.X)
	}

	p = newPlayer(4.4, 2)
	for i := 0; i < 60; i++ {
		Apply(p, Intent{MoveX: 1}, 1.0/60, 10, g, rules)
	}
	if p.Position.Tile().X == 5 {
		t.Errorf("expected wall at x=5 to block, got %v", p.Position)
	}
}

func TestApplySlidesAlongWalls(t *testing.T) {
	g := corridorGrid()
	p := newPlayer(4.4, 2)
	for i := 0; i < 30; i++ {
		Apply(p, Intent{MoveX: 1, MoveY: -1}, 1.0/60, 10, g, DefaultRules())
	}
	if p.Position.Y >= 2 {
		t.Errorf("expected the player to slide north, got %v", p.Position)
	}
}

func TestApplyClimbsStairs(t *testing.T) {
	g := corridorGrid()
	p := newPlayer(2, 1)
	Apply(p, Intent{Climb: true}, 1.0/60, 10, g, DefaultRules())
	if p.Position.Floor() != 1 {
		t.Errorf("expected floor 1 after climbing, got %d", p.Position.Floor())
	}
	Apply(p, Intent{Climb: true}, 1.0/60, 10, g, DefaultRules())
	if p.Position.Floor() != 1 {
		t.Errorf("expected to stay on floor 1 without a stair, got %d", p.Position.Floor())
	}
}

func TestApplySoundSmoothingAndHiding(t *testing.T) {
	g := corridorGrid()
	p := newPlayer(3, 3)
	for i := 0; i < 60*10; i++ {
		Apply(p, Intent{Sound: 1}, 1.0/60, 10, g, DefaultRules())
	}
	if p.Sound < 0.9 {
		t.Errorf("expected smoothed sound near 1, got %f", p.Sound)
	}
	before := p.Position
	for i := 0; i < 60*10; i++ {
		Apply(p, Intent{Hide: true, Sound: 1, MoveX: 1}, 1.0/60, 10, g, DefaultRules())
	}
	if !p.Hiding {
		t.Error("expected player to be hiding")
	}
	if p.Sound > 0.1 {
		t.Errorf("expected hiding player to go quiet, got %f", p.Sound)
	}
	if p.Position != before {
		t.Errorf("expected hiding player to stay put, moved to %v", p.Position)
	}
}

func TestSanityDrainsInRoomsAndRecoversOutside(t *testing.T) {
	g := corridorGrid()
	rules := DefaultRules()
	p := newPlayer(3, 3)
	Apply(p, Intent{}, 10, 0, g, rules)
	if p.Sanity >= 100 {
		t.Fatalf("expected sanity to drain in a room, got %f", p.Sanity)
	}
	drained := p.Sanity
	p.Position = board.Position{X: 3, Y: 1}
	Apply(p, Intent{}, 2, 0, g, rules)
	if p.Sanity <= drained {
		t.Errorf("expected sanity to recover in the corridor, got %f (was %f)", p.Sanity, drained)
	}
}

func TestEquipmentUse(t *testing.T) {
	g := corridorGrid()
	rules := DefaultRules()
	p := newPlayer(3, 3)
	p.Kit = Kit{RepellentSeconds: 0.05, RepellentCorrect: true, SageBundles: 1, SaltPiles: 1}

	use := Apply(p, Intent{Repellent: true, Salt: true}, 0.1, 1, g, rules)
	if math.Abs(use.RepellentDT-0.05) > 1e-9 || !use.Correct {
		t.Errorf("expected 0.05s of correct repellent, got %+v", use)
	}
	if !use.Salt || p.Kit.SaltPiles != 0 {
		t.Errorf("expected one salt pile used, got %+v kit=%+v", use, p.Kit)
	}
	use = Apply(p, Intent{Repellent: true, Salt: true}, 0.1, 1, g, rules)
	if use.RepellentDT != 0 || use.Salt {
		t.Errorf("expected an empty kit to do nothing, got %+v", use)
	}

	Apply(p, Intent{Sage: true}, 0.1, 1, g, rules)
	if p.Kit.SageBundles != 0 || p.SageLeft <= 0 {
		t.Fatalf("expected a sage bundle burning, got kit=%+v left=%f", p.Kit, p.SageLeft)
	}
	peak := 0.0
	for p.SageLeft > 0 {
		use = Apply(p, Intent{}, 0.1, 1, g, rules)
		peak = math.Max(peak, use.SageStrength)
	}
	if peak < 0.99 {
		t.Errorf("expected sage to reach full strength, got %f", peak)
	}
}

func TestDamageKills(t *testing.T) {
	p := newPlayer(1, 1)
	if p.Damage(40, 1) {
		t.Error("expected player to survive 40 damage")
	}
	if !p.Damage(70, 2) {
		t.Error("expected player to die")
	}
	if p.Alive || p.Health != 0 || p.DiedAt != 2 {
		t.Errorf("expected dead player at t=2, got %+v", p)
	}
	if p.Damage(10, 3) {
		t.Error("expected no second death")
	}
	if s := p.Snapshot(); s.Alive() {
		t.Error("expected snapshot of dead player to be dead")
	}
}

func TestBuiltinBehaviors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := newPlayer(3, 3)
	p.Kit = Kit{RepellentSeconds: 10}
	ghostAt := board.Position{X: 4, Y: 3}
	v := View{GhostPosition: ghostAt, GhostDistance: 1, Hunting: true}

	hider, _ := Builtin("hider")
	if in := hider.Decide(p, v, rng); !in.Hide {
		t.Error("expected hider to hide during a hunt")
	}
	exorcist, _ := Builtin("exorcist")
	if in := exorcist.Decide(p, v, rng); !in.Repellent {
		t.Error("expected exorcist to spray repellent next to the ghost")
	}
	investigator, _ := Builtin("investigator")
	if in := investigator.Decide(p, v, rng); in.MoveX >= 0 {
		t.Errorf("expected investigator to flee west, got %+v", in)
	}
	screamer, _ := Builtin("screamer")
	if in := screamer.Decide(p, View{GhostPosition: ghostAt, GhostDistance: 5}, rng); in.Sound != 1 || in.MoveX <= 0 {
		t.Errorf("expected screamer to approach loudly, got %+v", in)
	}
	if _, err := Builtin("nope"); err == nil {
		t.Error("expected error for unknown behavior")
	}
	names := BuiltinNames()
	want := []string{"exorcist", "hider", "idle", "investigator", "screamer"}
	if len(names) != len(want) {
		t.Fatalf("expected built-in behaviors %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected built-in behaviors %v, got %v", want, names)
			break
		}
	}
}

func TestScriptBehavior(t *testing.T) {
	src := []byte(`
decide := func(view) {
	if view.hunting {
		return {hide: true}
	}
	return {move_x: view.ghost_x - view.x, sound: 0.5, salt: view.salt > 0}
}
`)
	s, err := CompileScript("custom", src, quietLogger())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	p := newPlayer(3, 3)
	p.Kit.SaltPiles = 1

	in := s.Decide(p, View{GhostPosition: board.Position{X: 6, Y: 3}}, rng)
	if in.MoveX != 3 || in.Sound != 0.5 || !in.Salt {
		t.Errorf("expected move_x=3 sound=0.5 salt, got %+v", in)
	}
	in = s.Decide(p, View{Hunting: true}, rng)
	if !in.Hide || in.Sound != 0 {
		t.Errorf("expected hide intent, got %+v", in)
	}
}

func TestScriptErrorsStandStill(t *testing.T) {
	if _, err := CompileScript("broken", []byte(`decide := func(view) {`), quietLogger()); err == nil {
		t.Error("expected compile error")
	}
	s, err := CompileScript("bad", []byte(`decide := func(view) { return view.hunting + 1 }`), quietLogger())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	in := s.Decide(newPlayer(1, 1), View{}, rand.New(rand.NewSource(1)))
	if in != (Intent{}) {
		t.Errorf("expected empty intent on script error, got %+v", in)
	}
}

func TestEmbeddedScripts(t *testing.T) {
	for _, name := range []string{"cautious", "provoker"} {
		s, err := LoadScript(name, quietLogger())
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		in := s.Decide(newPlayer(1, 1), View{GhostPosition: board.Position{X: 8, Y: 1}, GhostDistance: 7}, rand.New(rand.NewSource(1)))
		if in.MoveX <= 0 {
			t.Errorf("%s: expected to approach a distant ghost, got %+v", name, in)
		}
	}
	if _, err := LoadScript("missing", quietLogger()); err == nil {
		t.Error("expected error for missing script")
	}
}

func TestSpawnTeamDeterministic(t *testing.T) {
	g := corridorGrid()
	a, err := NewSpawner(7, quietLogger()).SpawnTeam(g, DefaultTeam())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	b, _ := NewSpawner(7, quietLogger()).SpawnTeam(g, DefaultTeam())
	if len(a) != 4 {
		t.Fatalf("expected 4 members, got %d", len(a))
	}
	for i := range a {
		pa, pb := a[i].Player, b[i].Player
		if pa.Position != pb.Position || pa.Name != pb.Name {
			t.Errorf("member %d differs: %+v vs %+v", i, pa, pb)
		}
		if _, inRoom := g.RoomOf(pa.Position.Tile()); inRoom {
			t.Errorf("expected spawn in the corridor, got %v", pa.Position)
		}
		if !g.PlayerFree(pa.Position.Tile()) {
			t.Errorf("expected walkable spawn, got %v", pa.Position)
		}
	}
	if a[3].Behavior.Name() != "cautious" {
		t.Errorf("expected embedded cautious script, got %s", a[3].Behavior.Name())
	}
	if _, err := NewSpawner(7, quietLogger()).SpawnTeam(g, []Spec{{Behavior: "ghostbuster"}}); err == nil {
		t.Error("expected error for unknown behavior")
	}
}
