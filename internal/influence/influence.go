// Package influence tracks the charged objects that bias where the ghost
// wanders. Attractive objects pull candidate destinations toward them and
// Repulsive ones push them away. Charge builds up passively and drains while
// the ghost lingers nearby.
package influence

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/talgya/hauntsim/internal/board"
)

// Kind is the sign of an object's influence.
type Kind uint8

const (
	Attractive Kind = iota
	Repulsive
)

func (k Kind) String() string {
	switch k {
	case Attractive:
		return "attractive"
	case Repulsive:
		return "repulsive"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "attractive":
		return Attractive, nil
	case "repulsive":
		return Repulsive, nil
	}
	return 0, fmt.Errorf("unknown influence kind %q", s)
}

// Object is a charged item placed in the building.
type Object struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Position board.Position `json:"position"`
	Kind     Kind           `json:"kind"`
	Charge   float64        `json:"charge"` // 0-1
}

// Config controls charging, discharge and scoring weights.
type Config struct {
	ChargeRate           float64 `yaml:"object_charge_rate"`
	AttractiveDischarge  float64 `yaml:"attractive_discharge_multiplier"`
	RepulsiveDischarge   float64 `yaml:"repulsive_discharge_multiplier"`
	DischargeRadius      float64 `yaml:"object_discharge_radius"`
	AttractiveMultiplier float64 `yaml:"attractive_influence_multiplier"`
	RepulsiveMultiplier  float64 `yaml:"repulsive_influence_multiplier"`
	ProvocationCharge    float64 `yaml:"provocation_charge"`
	ProvocationRage      float64 `yaml:"provocation_rage"`
	RemovalAngerRate     float64 `yaml:"attractive_removal_anger_rate"`
}

// DefaultConfig returns the standard interaction tuning.
func DefaultConfig() Config {
	return Config{
		ChargeRate:           0.01,
		AttractiveDischarge:  0.05,
		RepulsiveDischarge:   0.02,
		DischargeRadius:      3.0,
		AttractiveMultiplier: 1.0,
		RepulsiveMultiplier:  1.0,
		ProvocationCharge:    0.8,
		ProvocationRage:      0.2,
		RemovalAngerRate:     0.05,
	}
}

// Registry holds the objects of one mission. Iteration order is insertion
// order so scoring is reproducible under a fixed seed.
type Registry struct {
	cfg     Config
	objects []*Object
	index   map[uuid.UUID]*Object
	removed map[uuid.UUID]bool // attractive objects carried out of every room
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:     cfg,
		index:   make(map[uuid.UUID]*Object),
		removed: make(map[uuid.UUID]bool),
	}
}

// Config returns the registry's tuning.
func (r *Registry) Config() Config { return r.cfg }

// Add places a new object and returns its handle.
func (r *Registry) Add(name string, pos board.Position, kind Kind, charge float64) uuid.UUID {
	o := &Object{
		ID:       uuid.New(),
		Name:     name,
		Position: pos,
		Kind:     kind,
		Charge:   math.Max(0, math.Min(1, charge)),
	}
	r.objects = append(r.objects, o)
	r.index[o.ID] = o
	return o.ID
}

// Remove deletes an object. It reports whether the object existed.
func (r *Registry) Remove(id uuid.UUID) bool {
	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	delete(r.removed, id)
	for i, o := range r.objects {
		if o.ID == id {
			r.objects = append(r.objects[:i], r.objects[i+1:]...)
			break
		}
	}
	return true
}

// Move relocates an object.
func (r *Registry) Move(id uuid.UUID, pos board.Position) bool {
	o, ok := r.index[id]
	if !ok {
		return false
	}
	o.Position = pos
	return true
}

// Get returns a copy of an object.
func (r *Registry) Get(id uuid.UUID) (Object, bool) {
	o, ok := r.index[id]
	if !ok {
		return Object{}, false
	}
	return *o, true
}

// Len returns the number of objects.
func (r *Registry) Len() int { return len(r.objects) }

// Snapshot returns copies of all objects in insertion order.
func (r *Registry) Snapshot() []Object {
	out := make([]Object, len(r.objects))
	for i, o := range r.objects {
		out[i] = *o
	}
	return out
}

// Score returns the signed influence of a snapshot at a point:
// the sum of ±multiplier*charge/(d²+1).
func Score(objects []Object, cfg Config, p board.Position) float64 {
	total := 0.0
	for _, o := range objects {
		d2 := o.Position.Distance2(p)
		switch o.Kind {
		case Attractive:
			total += cfg.AttractiveMultiplier * o.Charge / (d2 + 1)
		case Repulsive:
			total -= cfg.RepulsiveMultiplier * o.Charge / (d2 + 1)
		}
	}
	return total
}

// RoomLookup reports whether a tile belongs to a room.
type RoomLookup func(board.Tile) bool

// Update charges every object, discharges those near the ghost and returns
// the rage the objects provoke this tick: charged repulsive objects close to
// the breach, and attractive objects that were carried out of the building.
func (r *Registry) Update(dt float64, ghost, breach board.Position, provocationRadius float64, inRoom RoomLookup) float64 {
	rage := 0.0
	for _, o := range r.objects {
		o.Charge = math.Min(1, o.Charge+r.cfg.ChargeRate*dt)

		if ghost.Distance(o.Position) <= r.cfg.DischargeRadius {
			if o.Kind == Repulsive &&
				breach.Distance(o.Position) <= provocationRadius &&
				o.Charge > r.cfg.ProvocationCharge {
				rage += r.cfg.ProvocationRage
			}
			switch o.Kind {
			case Attractive:
				o.Charge -= r.cfg.AttractiveDischarge * dt
			case Repulsive:
				o.Charge -= r.cfg.RepulsiveDischarge * dt
			}
			o.Charge = math.Max(0, o.Charge)
			continue
		}

		if o.Kind == Attractive && inRoom != nil {
			r.removed[o.ID] = !inRoom(o.Position.Tile())
		}
	}

	for id, gone := range r.removed {
		if gone && r.index[id] != nil {
			rage += r.cfg.RemovalAngerRate * dt
		}
	}
	return rage
}
