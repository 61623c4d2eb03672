package players

import (
	"embed"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

//go:embed scripts/*.tengo
var scriptsFS embed.FS

// Scripts define a function decide(view) returning a map with any of
// move_x, move_y, climb, sound, hide, repellent, sage, salt.
const dispatchScript = `
__intent = decide(__view)
`

// ScriptBehavior runs a tengo script every tick.
type ScriptBehavior struct {
	name     string
	compiled *tengo.Compiled
	memory   *tengo.Map
	log      *slog.Logger
}

// LoadScript compiles a script by name. Names ending in .tengo are read from
// disk; bare names resolve to the embedded scripts.
func LoadScript(name string, logger *slog.Logger) (*ScriptBehavior, error) {
	var src []byte
	var err error
	if strings.HasSuffix(name, ".tengo") {
		src, err = os.ReadFile(name)
	} else {
		src, err = scriptsFS.ReadFile("scripts/" + name + ".tengo")
	}
	if err != nil {
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}
	return CompileScript(strings.TrimSuffix(filepath.Base(name), ".tengo"), src, logger)
}

// CompileScript compiles script source.
func CompileScript(name string, src []byte, logger *slog.Logger) (*ScriptBehavior, error) {
	if logger == nil {
		logger = slog.Default()
	}
	script := tengo.NewScript(append(append([]byte{}, src...), []byte(dispatchScript)...))
	_ = script.Add("__view", map[string]any{})
	_ = script.Add("__memory", map[string]any{})
	_ = script.Add("__intent", map[string]any{})
	script.SetImports(stdlib.GetModuleMap("math", "text", "fmt"))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile script %s: %w", name, err)
	}
	return &ScriptBehavior{
		name:     name,
		compiled: compiled,
		memory:   &tengo.Map{Value: map[string]tengo.Object{}},
		log:      logger,
	}, nil
}

// Name returns the script name.
func (s *ScriptBehavior) Name() string { return s.name }

// Clone returns a copy with its own globals and memory, for another player.
func (s *ScriptBehavior) Clone() *ScriptBehavior {
	return &ScriptBehavior{
		name:     s.name,
		compiled: s.compiled.Clone(),
		memory:   &tengo.Map{Value: map[string]tengo.Object{}},
		log:      s.log,
	}
}

// Decide runs the script. Script errors are logged and the player stands
// still for the tick.
func (s *ScriptBehavior) Decide(p *Player, v View, rng *rand.Rand) Intent {
	view := map[string]tengo.Object{
		"time":           &tengo.Float{Value: v.Time},
		"x":              &tengo.Float{Value: p.Position.X},
		"y":              &tengo.Float{Value: p.Position.Y},
		"z":              &tengo.Float{Value: p.Position.Z},
		"health":         &tengo.Float{Value: p.Health},
		"sanity":         &tengo.Float{Value: p.Sanity},
		"ghost_x":        &tengo.Float{Value: v.GhostPosition.X},
		"ghost_y":        &tengo.Float{Value: v.GhostPosition.Y},
		"ghost_z":        &tengo.Float{Value: v.GhostPosition.Z},
		"ghost_distance": &tengo.Float{Value: v.GhostDistance},
		"ghost_visible":  boolObject(v.GhostVisible),
		"warning":        boolObject(v.Warning),
		"hunting":        boolObject(v.Hunting),
		"expelled":       boolObject(v.Expelled),
		"in_room":        boolObject(v.InRoom),
		"roll":           &tengo.Float{Value: rng.Float64()},
		"repellent":      &tengo.Float{Value: p.Kit.RepellentSeconds},
		"sage":           &tengo.Int{Value: int64(p.Kit.SageBundles)},
		"salt":           &tengo.Int{Value: int64(p.Kit.SaltPiles)},
		"memory":         s.memory,
	}
	if err := s.compiled.Set("__view", &tengo.ImmutableMap{Value: view}); err != nil {
		s.log.Warn("script view", "script", s.name, "player", p.ID, "error", err)
		return Intent{}
	}
	if err := s.compiled.Run(); err != nil {
		s.log.Warn("script error", "script", s.name, "player", p.ID, "error", err)
		return Intent{}
	}
	result := s.compiled.Get("__intent").Map()
	return Intent{
		MoveX:     toFloat(result["move_x"]),
		MoveY:     toFloat(result["move_y"]),
		Climb:     toBool(result["climb"]),
		Sound:     toFloat(result["sound"]),
		Hide:      toBool(result["hide"]),
		Repellent: toBool(result["repellent"]),
		Sage:      toBool(result["sage"]),
		Salt:      toBool(result["salt"]),
	}
}

func boolObject(b bool) tengo.Object {
	if b {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
