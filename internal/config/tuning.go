package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hauntsim/internal/difficulty"
	"github.com/talgya/hauntsim/internal/engine"
	"github.com/talgya/hauntsim/internal/ghost"
	"github.com/talgya/hauntsim/internal/influence"
	"github.com/talgya/hauntsim/internal/players"
)

// ErrNoTuningFile is returned when no tuning file is configured or the file
// does not exist. Callers fall back to DefaultTuning.
var ErrNoTuningFile = errors.New("no tuning file")

// Tuning is the content of the YAML tuning file. Omitted sections keep
// their defaults.
type Tuning struct {
	Ghost      ghost.Tuning         `yaml:"ghost"`
	Influence  influence.Config     `yaml:"influence"`
	Players    players.Rules        `yaml:"players"`
	Difficulty difficulty.Overrides `yaml:"difficulty"`
	Team       []players.Spec       `yaml:"team"`
	Objects    []engine.ObjectSpec  `yaml:"objects"`
	Duration   float64              `yaml:"duration"` // mission time limit, seconds
}

// DefaultTuning returns the built-in tuning.
func DefaultTuning() Tuning {
	return Tuning{
		Ghost:     ghost.DefaultTuning(),
		Influence: influence.DefaultConfig(),
		Players:   players.DefaultRules(),
		Duration:  engine.DefaultDuration,
	}
}

// LoadTuning reads a tuning file over the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, ErrNoTuningFile
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, ErrNoTuningFile
	}
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes tuning YAML over the defaults.
func ParseTuning(data []byte) (Tuning, error) {
	t := DefaultTuning()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return DefaultTuning(), fmt.Errorf("decode tuning: %w", err)
	}
	if t.Duration < 0 {
		return DefaultTuning(), fmt.Errorf("duration must be >= 0, got %v", t.Duration)
	}
	return t, nil
}

// MissionConfig builds the engine configuration for a mission.
func (t Tuning) MissionConfig(seed int64, level difficulty.Level) engine.MissionConfig {
	return engine.MissionConfig{
		Seed:      seed,
		Level:     level,
		Values:    t.Difficulty.Resolve(level),
		Tuning:    t.Ghost,
		Influence: t.Influence,
		Rules:     t.Players,
		Team:      t.Team,
		Objects:   t.Objects,
		Duration:  t.Duration,
	}
}
