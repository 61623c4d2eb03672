package ghost

import (
	"fmt"

	"github.com/google/uuid"
)

// EventKind identifies a state transition of the ghost.
type EventKind uint8

const (
	EventWarning   EventKind = iota // Calm -> Warning
	EventHunt                       // Warning -> Hunting
	EventHuntEnd                    // Hunting -> Calm
	EventExpelled                   // fade-out started
	EventDespawned                  // fade-out finished
)

var eventNames = map[EventKind]string{
	EventWarning:   "calm_to_warning",
	EventHunt:      "warning_to_hunting",
	EventHuntEnd:   "hunting_to_calm",
	EventExpelled:  "expelled",
	EventDespawned: "despawned",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a state transition published by the ghost.
type Event struct {
	Kind        EventKind `json:"kind"`
	GhostID     uuid.UUID `json:"ghost_id"`
	Time        float64   `json:"time"` // mission clock, seconds
	Rage        float64   `json:"rage"`
	RageLimit   float64   `json:"rage_limit"`
	Hunting     float64   `json:"hunting"`
	TimesHunted int       `json:"times_hunted"`
}

// Handler receives transition events synchronously during a tick.
// Handlers must not block.
type Handler func(Event)

// Bus fans transition events out to subscribers in subscription order.
type Bus struct {
	handlers []Handler
}

// Subscribe registers a handler.
func (b *Bus) Subscribe(h Handler) {
	b.handlers = append(b.handlers, h)
}

func (b *Bus) publish(e Event) {
	for _, h := range b.handlers {
		h(e)
	}
}
