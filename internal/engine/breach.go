package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/hauntsim/internal/board"
)

// Breach is the rift a ghost is anchored to. It fades with its ghost.
type Breach struct {
	ID      uuid.UUID    `json:"id"`
	Tile    board.Tile   `json:"tile"`
	Room    board.RoomID `json:"room"`
	Opacity float64      `json:"opacity"`
	Closed  bool         `json:"closed"`
}

// BreachRegistry owns the breaches of a mission. Ghosts refer to them by ID.
type BreachRegistry struct {
	order []uuid.UUID
	byID  map[uuid.UUID]*Breach
}

// NewBreachRegistry creates an empty registry.
func NewBreachRegistry() *BreachRegistry {
	return &BreachRegistry{byID: make(map[uuid.UUID]*Breach)}
}

// Open registers a breach and returns its handle.
func (r *BreachRegistry) Open(id uuid.UUID, t board.Tile, room board.RoomID) uuid.UUID {
	if id == uuid.Nil {
		id = uuid.New()
	}
	r.byID[id] = &Breach{ID: id, Tile: t, Room: room, Opacity: 1}
	r.order = append(r.order, id)
	return id
}

// Get returns a copy of a breach.
func (r *BreachRegistry) Get(id uuid.UUID) (Breach, bool) {
	b, ok := r.byID[id]
	if !ok {
		return Breach{}, false
	}
	return *b, true
}

// Fade sets the opacity of a breach; zero closes it.
func (r *BreachRegistry) Fade(id uuid.UUID, opacity float64) bool {
	b, ok := r.byID[id]
	if !ok || b.Closed {
		return false
	}
	b.Opacity = opacity
	if opacity <= 0 {
		b.Opacity = 0
		b.Closed = true
	}
	return true
}

// List returns copies of all breaches in opening order.
func (r *BreachRegistry) List() []Breach {
	out := make([]Breach, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}
