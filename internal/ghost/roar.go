package ghost

import (
	"fmt"

	"github.com/talgya/hauntsim/internal/board"
)

// RoarKind selects a family of ghost sounds.
type RoarKind uint8

const (
	RoarNone RoarKind = iota
	RoarFull
	RoarDim
	RoarSnore
)

func (k RoarKind) String() string {
	switch k {
	case RoarFull:
		return "full"
	case RoarDim:
		return "dim"
	case RoarSnore:
		return "snore"
	}
	return "none"
}

// MarshalText encodes the kind by name.
func (k RoarKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Volume is the default playback volume of the kind.
func (k RoarKind) Volume() float64 {
	switch k {
	case RoarFull:
		return 1.0
	case RoarDim:
		return 0.9
	case RoarSnore:
		return 0.3
	}
	return 0
}

var roarSounds = map[RoarKind]string{
	RoarFull:  "ghost-roar",
	RoarDim:   "ghost-effect",
	RoarSnore: "ghost-snore",
}

// RoarVariants is the number of sound files per kind.
const RoarVariants = 4

// Cue is an audio signal emitted by the ghost.
type Cue struct {
	Kind     RoarKind       `json:"kind"`
	Sound    string         `json:"sound"`
	Variant  int            `json:"variant"`
	Volume   float64        `json:"volume"`
	Position board.Position `json:"position"`
	Time     float64        `json:"time"`
}

// roar emits a cue of the given kind with a random variant and resets the
// silence timer.
func (a *Agent) roar(kind RoarKind, volume float64) {
	if kind == RoarNone {
		return
	}
	variant := a.rng.Intn(RoarVariants)
	a.lastRoar = 0
	if a.out == nil {
		return
	}
	a.out.Cues = append(a.out.Cues, Cue{
		Kind:     kind,
		Sound:    fmt.Sprintf("sounds/%s-%d.ogg", roarSounds[kind], variant+1),
		Variant:  variant,
		Volume:   volume,
		Position: a.pos,
		Time:     a.now,
	})
}
