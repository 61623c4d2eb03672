package ghost

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

const (
	shortTermFreq = 0.5
	longTermFreq  = 0.07
)

// Dynamics gives each ghost a slowly drifting personality: how prone it is
// to rage and how visible it is at a given moment. Both come from a per-ghost
// simplex noise field sampled along the mission clock.
type Dynamics struct {
	noise          opensimplex.Noise
	rageX, rageY   float64
	alphaX, alphaY float64
}

// NewDynamics creates the noise field and draws the per-ghost offsets.
func NewDynamics(seed int64, rng *rand.Rand) *Dynamics {
	return &Dynamics{
		noise:  opensimplex.New(seed),
		rageX:  uniform(rng, 0, 100),
		rageY:  uniform(rng, 0, 100),
		alphaX: uniform(rng, 0, 100),
		alphaY: uniform(rng, 0, 100),
	}
}

// multiplier mixes a fast and a slow noise sample into a value in [0, 1].
func (d *Dynamics) multiplier(t, ox, oy float64) float64 {
	short := d.noise.Eval2(t*shortTermFreq+ox, t*longTermFreq+oy)
	long := d.noise.Eval2(t*longTermFreq-ox*1.5, t*longTermFreq*0.1+oy*3.3)
	combined := math.Tanh((short+long)*2)*0.5 + 0.5
	return clamp(combined, 0, 1)
}

// RageTendency scales how fast anger turns into rage, in [0.5, 1.5].
func (d *Dynamics) RageTendency(t float64) float64 {
	return 0.5 + d.multiplier(t, d.rageX, d.rageY)
}

// VisualAlpha scales how visible the ghost is, in [0, 1].
func (d *Dynamics) VisualAlpha(t float64) float64 {
	return d.multiplier(t, d.alphaX, d.alphaY)
}
