package audio

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/ghost"
)

// Config controls track rendering.
type Config struct {
	SampleRate   beep.SampleRate
	MasterVolume float64
	// Listener, when set, attenuates and pans cues by their position
	// relative to it.
	Listener *board.Position
}

// DefaultConfig returns the standard rendering config.
func DefaultConfig() Config {
	return Config{SampleRate: DefaultSampleRate, MasterVolume: 0.8}
}

type scheduled struct {
	start int // sample offset
	cue   ghost.Cue
}

// timeline plays cues at their mission clock offsets over a fixed length.
type timeline struct {
	cfg     Config
	pending []scheduled
	mixer   *beep.Mixer
	pos     int
	length  int
}

func newTimeline(cues []ghost.Cue, seconds float64, cfg Config) *timeline {
	tl := &timeline{cfg: cfg, mixer: &beep.Mixer{}, length: cfg.SampleRate.N(time.Duration(seconds * float64(time.Second)))}
	for _, c := range cues {
		tl.pending = append(tl.pending, scheduled{
			start: cfg.SampleRate.N(time.Duration(c.Time * float64(time.Second))),
			cue:   c,
		})
	}
	sort.SliceStable(tl.pending, func(i, j int) bool { return tl.pending[i].start < tl.pending[j].start })
	return tl
}

func (tl *timeline) Stream(samples [][2]float64) (n int, ok bool) {
	if tl.pos >= tl.length {
		return 0, false
	}
	if remaining := tl.length - tl.pos; len(samples) > remaining {
		samples = samples[:remaining]
	}
	end := tl.pos + len(samples)
	for len(tl.pending) > 0 && tl.pending[0].start < end {
		next := tl.pending[0]
		tl.pending = tl.pending[1:]
		offset := next.start - tl.pos
		if offset < 0 {
			offset = 0
		}
		tl.mixer.Add(beep.Seq(beep.Silence(offset), tl.place(next.cue)))
	}
	tl.mixer.Stream(samples)
	tl.pos = end
	return len(samples), true
}

func (tl *timeline) Err() error { return nil }

// place applies master volume and listener-relative attenuation and pan.
func (tl *timeline) place(c ghost.Cue) beep.Streamer {
	s := Synthesize(c, tl.cfg.SampleRate)
	gain := tl.cfg.MasterVolume
	if l := tl.cfg.Listener; l != nil {
		d := c.Position.WeightedDistance(*l)
		gain /= 1 + d/4
		pan := math.Max(-1, math.Min(1, (c.Position.X-l.X)/8))
		s = &effects.Pan{Streamer: s, Pan: pan}
	}
	return newVolume(s, gain)
}

// RenderWAV writes the cue track of a mission lasting seconds as a 16-bit
// stereo WAV.
func RenderWAV(w io.WriteSeeker, cues []ghost.Cue, seconds float64, cfg Config) error {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.MasterVolume == 0 {
		cfg.MasterVolume = DefaultConfig().MasterVolume
	}
	if seconds <= 0 {
		return fmt.Errorf("track length must be positive, got %v", seconds)
	}
	format := beep.Format{SampleRate: cfg.SampleRate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, newTimeline(cues, seconds, cfg), format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// TrackLength returns the seconds needed to hear every cue to the end.
func TrackLength(cues []ghost.Cue, clock float64) float64 {
	length := clock
	for _, c := range cues {
		length = math.Max(length, c.Time+Duration(c.Kind).Seconds())
	}
	return length
}
