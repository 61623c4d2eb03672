// Package players models the investigators inside the building: their
// position, health, sanity and the noise they make, plus the scripted
// behaviors that drive simulated teams.
package players

import (
	"math"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/ghost"
)

// Kit is the countermeasure equipment a player carries.
type Kit struct {
	RepellentSeconds float64 `json:"repellent_seconds" yaml:"repellent_seconds"` // spray time left
	RepellentCorrect bool    `json:"repellent_correct" yaml:"repellent_correct"` // brewed for this ghost
	SageBundles      int     `json:"sage_bundles" yaml:"sage_bundles"`
	SaltPiles        int     `json:"salt_piles" yaml:"salt_piles"`
}

// Player is one investigator.
type Player struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Behavior string         `json:"behavior"`
	Position board.Position `json:"position"`
	Health   float64        `json:"health"` // 0-100
	Sanity   float64        `json:"sanity"` // 0-100
	Hiding   bool           `json:"hiding"`
	Sound    float64        `json:"sound"` // smoothed noise level, 0-1
	Alive    bool           `json:"alive"`
	Kit      Kit            `json:"kit"`

	// Sage burning in progress
	SageLeft float64 `json:"sage_left"`

	// Stats
	DamageTaken float64 `json:"damage_taken"`
	Witnessed   int     `json:"witnessed"`
	DiedAt      float64 `json:"died_at,omitempty"`
}

// Snapshot converts the player into the ghost's per-tick view.
func (p *Player) Snapshot() ghost.PlayerSnapshot {
	health := p.Health
	if !p.Alive {
		health = 0
	}
	return ghost.PlayerSnapshot{
		ID:       p.ID,
		Position: p.Position,
		Health:   health,
		Sanity:   p.Sanity,
		Hiding:   p.Hiding,
		Sound:    p.Sound,
	}
}

// Damage removes health and reports whether the player died.
func (p *Player) Damage(amount, now float64) bool {
	if !p.Alive || amount <= 0 {
		return false
	}
	p.Health -= amount
	p.DamageTaken += amount
	if p.Health <= 0 {
		p.Health = 0
		p.Alive = false
		p.DiedAt = now
		return true
	}
	return false
}

// Snapshots converts a team for the ghost.
func Snapshots(team []*Player) []ghost.PlayerSnapshot {
	out := make([]ghost.PlayerSnapshot, len(team))
	for i, p := range team {
		out[i] = p.Snapshot()
	}
	return out
}

// Living counts the players still alive.
func Living(team []*Player) int {
	n := 0
	for _, p := range team {
		if p.Alive {
			n++
		}
	}
	return n
}

// MeanSanity returns the average sanity of living players, or 0.
func MeanSanity(team []*Player) float64 {
	total, n := 0.0, 0
	for _, p := range team {
		if p.Alive {
			total += p.Sanity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(total/float64(n)*10) / 10
}
