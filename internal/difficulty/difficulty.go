// Package difficulty defines the mission difficulty levels and the ghost
// behavior values each one fixes for the duration of a mission.
package difficulty

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is a difficulty level.
type Level uint8

const (
	TutorialI Level = iota
	TutorialII
	TutorialIII
	TutorialIV
	TutorialV
	Standard
	Hard
	Expert
	Master
)

// AllLevels lists every level in increasing order of challenge.
var AllLevels = []Level{
	TutorialI, TutorialII, TutorialIII, TutorialIV, TutorialV,
	Standard, Hard, Expert, Master,
}

var levelNames = map[Level]string{
	TutorialI:   "tutorial-1",
	TutorialII:  "tutorial-2",
	TutorialIII: "tutorial-3",
	TutorialIV:  "tutorial-4",
	TutorialV:   "tutorial-5",
	Standard:    "standard",
	Hard:        "hard",
	Expert:      "expert",
	Master:      "master",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// ParseLevel converts a level name (case-insensitive) into a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

// MarshalYAML encodes the level by name.
func (l Level) MarshalYAML() (any, error) {
	return l.String(), nil
}

// UnmarshalYAML decodes a level name.
func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseLevel(node.Value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Values are the ghost-relevant difficulty values.
type Values struct {
	GhostSpeed            float64 `yaml:"ghost_speed" json:"ghost_speed"`
	RageLikelihood        float64 `yaml:"ghost_rage_likelihood" json:"ghost_rage_likelihood"`
	HuntingAggression     float64 `yaml:"ghost_hunting_aggression" json:"ghost_hunting_aggression"`
	InteractionFrequency  float64 `yaml:"ghost_interaction_frequency" json:"ghost_interaction_frequency"`
	HuntDuration          float64 `yaml:"ghost_hunt_duration" json:"ghost_hunt_duration"`
	HuntCooldown          float64 `yaml:"ghost_hunt_cooldown" json:"ghost_hunt_cooldown"`
	AttractionToBreach    float64 `yaml:"ghost_attraction_to_breach" json:"ghost_attraction_to_breach"`
	HuntProvocationRadius float64 `yaml:"hunt_provocation_radius" json:"hunt_provocation_radius"`
	HealthDrainRate       float64 `yaml:"health_drain_rate" json:"health_drain_rate"`
}

// table is indexed by Level.
var table = [...]Values{
	TutorialI:   {1.0, 1.3, 1.1, 0.9, 0.5, 6.0, 10.0, 1.5, 0.4},
	TutorialII:  {1.05, 1.3, 1.1, 0.9, 0.7, 5.0, 8.0, 1.6, 0.7},
	TutorialIII: {1.1, 1.3, 1.1, 0.9, 0.9, 4.0, 5.0, 1.7, 0.9},
	TutorialIV:  {1.15, 1.3, 1.1, 1.0, 1.0, 3.0, 3.0, 1.8, 1.0},
	TutorialV:   {1.2, 1.3, 1.2, 1.0, 1.1, 2.5, 1.5, 1.9, 1.05},
	Standard:    {1.3, 1.3, 1.25, 1.0, 1.15, 2.0, 1.0, 2.0, 1.10},
	Hard:        {1.5, 1.6, 1.35, 1.1, 1.25, 1.0, 0.7, 2.4, 1.20},
	Expert:      {1.8, 2.8, 1.6, 1.1, 1.4, 0.7, 0.5, 3.0, 1.35},
	Master:      {2.5, 4.0, 2.6, 1.1, 1.9, 0.05, 0.05, 5.0, 1.6},
}

// For returns the built-in values of a level. Unknown levels get Standard.
func For(l Level) Values {
	if int(l) < len(table) {
		return table[l]
	}
	return table[Standard]
}

// Overrides replaces individual values per level. Zero fields keep the
// built-in value.
type Overrides map[Level]Values

// LoadOverrides reads a YAML file of the form
//
//	hard:
//	  ghost_speed: 1.7
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read difficulty overrides: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode difficulty overrides: %w", err)
	}
	return o, nil
}

// Resolve returns the level's values with overrides applied.
func (o Overrides) Resolve(l Level) Values {
	v := For(l)
	over, ok := o[l]
	if !ok {
		return v
	}
	merge(&v.GhostSpeed, over.GhostSpeed)
	merge(&v.RageLikelihood, over.RageLikelihood)
	merge(&v.HuntingAggression, over.HuntingAggression)
	merge(&v.InteractionFrequency, over.InteractionFrequency)
	merge(&v.HuntDuration, over.HuntDuration)
	merge(&v.HuntCooldown, over.HuntCooldown)
	merge(&v.AttractionToBreach, over.AttractionToBreach)
	merge(&v.HuntProvocationRadius, over.HuntProvocationRadius)
	merge(&v.HealthDrainRate, over.HealthDrainRate)
	return v
}

func merge(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
