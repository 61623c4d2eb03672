package ghost

import "fmt"

// Phase is the hunt state of the ghost. Exactly one phase is active at a
// time; the hunt flags exposed to collaborators are derived from it.
type Phase uint8

const (
	Calm Phase = iota
	Warning
	Hunting
)

func (p Phase) String() string {
	switch p {
	case Calm:
		return "calm"
	case Warning:
		return "warning"
	case Hunting:
		return "hunting"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
