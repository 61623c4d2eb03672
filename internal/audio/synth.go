// Package audio synthesizes the ghost's audio cues and renders a mission's
// cue track to WAV.
package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/talgya/hauntsim/internal/ghost"
)

// DefaultSampleRate is the rendering sample rate.
const DefaultSampleRate = beep.SampleRate(22050)

// Cue durations per kind.
const (
	RoarDuration  = 1200 * time.Millisecond
	DimDuration   = 800 * time.Millisecond
	SnoreDuration = 2 * time.Second
)

// growl is a pitch-wobbling saw with crackle, shaped by an exponential
// decay. Variants shift the base pitch.
type growl struct {
	sr      beep.SampleRate
	base    float64 // Hz
	noise   float64 // crackle mix, 0-1
	decay   float64 // per second
	pos     int
	samples int
	phase   float64
	seed    uint32
}

func newGrowl(sr beep.SampleRate, d time.Duration, base, noise, decay float64, seed uint32) *growl {
	return &growl{sr: sr, base: base, noise: noise, decay: decay, samples: sr.N(d), seed: seed | 1}
}

func (g *growl) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if g.pos >= g.samples {
			return i, i > 0
		}
		t := float64(g.pos) / float64(g.sr)

		// Pitch wobble around the base frequency.
		freq := g.base * (1 + 0.15*math.Sin(2*math.Pi*5*t))
		g.phase += freq / float64(g.sr)
		g.phase -= math.Floor(g.phase)
		saw := 2*g.phase - 1

		// xorshift crackle
		g.seed ^= g.seed << 13
		g.seed ^= g.seed >> 17
		g.seed ^= g.seed << 5
		noise := float64(g.seed)/float64(math.MaxUint32)*2 - 1

		attack := math.Min(t/0.05, 1)
		env := attack * math.Exp(-t*g.decay)
		sample := env * ((1-g.noise)*saw + g.noise*noise) * 0.8

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *growl) Err() error { return nil }

// snore is a slow breathing rumble: a low sine under amplitude modulation.
type snore struct {
	sr      beep.SampleRate
	base    float64
	pos     int
	samples int
}

func (s *snore) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.pos >= s.samples {
			return i, i > 0
		}
		t := float64(s.pos) / float64(s.sr)
		breath := 0.5 - 0.5*math.Cos(2*math.Pi*t/s.sr.D(s.samples).Seconds())
		sample := 0.6 * breath * (math.Sin(2*math.Pi*s.base*t) + 0.3*math.Sin(2*math.Pi*s.base*1.5*t)) / 1.3

		samples[i][0] = sample
		samples[i][1] = sample
		s.pos++
	}
	return len(samples), true
}

func (s *snore) Err() error { return nil }

// newVolume scales a streamer linearly; zero volume is silent.
// math.Log2(0) is -Inf, so silence is handled explicitly.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// Synthesize returns the sound of one cue at its own volume.
func Synthesize(c ghost.Cue, sr beep.SampleRate) beep.Streamer {
	shift := 1 + 0.08*float64(c.Variant)
	var s beep.Streamer
	switch c.Kind {
	case ghost.RoarFull:
		s = newGrowl(sr, RoarDuration, 70*shift, 0.35, 2.5, uint32(c.Variant+1)*2654435761)
	case ghost.RoarDim:
		s = newGrowl(sr, DimDuration, 110*shift, 0.6, 4, uint32(c.Variant+7)*2654435761)
	case ghost.RoarSnore:
		s = &snore{sr: sr, base: 48 * shift, samples: sr.N(SnoreDuration)}
	default:
		return beep.Silence(0)
	}
	return newVolume(s, c.Volume)
}

// Duration returns how long a cue of the given kind plays.
func Duration(k ghost.RoarKind) time.Duration {
	switch k {
	case ghost.RoarFull:
		return RoarDuration
	case ghost.RoarDim:
		return DimDuration
	case ghost.RoarSnore:
		return SnoreDuration
	}
	return 0
}
