package ghost

import (
	"math"

	"github.com/talgya/hauntsim/internal/board"
)

// PhenomenonKind is a physical manifestation near a player.
type PhenomenonKind uint8

const (
	DoorSlam PhenomenonKind = iota
	LightFlicker
)

func (k PhenomenonKind) String() string {
	if k == DoorSlam {
		return "door_slam"
	}
	return "light_flicker"
}

// MarshalText encodes the kind by name.
func (k PhenomenonKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Phenomenon happens in the room of a player.
type Phenomenon struct {
	Kind     PhenomenonKind `json:"kind"`
	PlayerID string         `json:"player_id"`
	Room     board.RoomID   `json:"room"`
	Time     float64        `json:"time"`
}

// rollPhenomena gives each player inside a room a chance of witnessing a door
// slam or light flicker; the chance falls off with distance to the ghost.
func (a *Agent) rollPhenomena(in Input) {
	for _, p := range in.Players {
		if !p.Alive() {
			continue
		}
		room, ok := a.board.RoomOf(p.Position.Tile())
		if !ok {
			continue
		}
		d2 := p.Position.WeightedDistance2(a.pos)
		chance := math.Sqrt(10/(d2+2)) / 200 * a.diff.InteractionFrequency
		if a.rng.Float64() >= chance {
			continue
		}
		kind := LightFlicker
		if a.rng.Intn(10) == 0 {
			kind = DoorSlam
		}
		a.out.Phenomena = append(a.out.Phenomena, Phenomenon{
			Kind:     kind,
			PlayerID: p.ID,
			Room:     room,
			Time:     a.now,
		})
	}
}
