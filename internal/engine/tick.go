// Package engine provides the fixed-timestep mission loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// FrameRate is the number of ticks per simulated second.
const FrameRate = 60

// Engine drives a mission forward at a fixed timestep.
type Engine struct {
	Step     float64       // Simulated seconds per tick
	Interval time.Duration // Wall time per tick at speed 1

	// OnTick runs every tick; returning false stops the loop.
	OnTick func(tick uint64, dt float64) bool
	// OnSecond runs once per simulated second.
	OnSecond func(tick uint64)

	mu      sync.Mutex
	tick    uint64
	speed   float64 // 1.0 = real-time, 0 = paused, +Inf = unthrottled
	running bool
	stop    chan struct{}
	log     *slog.Logger
}

// NewEngine creates an engine ticking at FrameRate.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Step:     1.0 / FrameRate,
		Interval: time.Second / FrameRate,
		speed:    1.0,
		log:      logger,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(speed float64) error {
	if math.IsNaN(speed) || speed < 0 {
		return fmt.Errorf("invalid speed %v", speed)
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
	e.log.Info("engine speed changed", "speed", fmt.Sprintf("%.2f", speed))
	return nil
}

// Tick returns the number of ticks run so far.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the loop. Blocks until the context is cancelled, Stop is called
// or OnTick returns false.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.log.Info("engine started", "tick", e.Tick(), "speed", fmt.Sprintf("%.2f", e.Speed()))
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped", "tick", e.Tick(), "reason", ctx.Err())
			return
		case <-stop:
			e.log.Info("engine stopped", "tick", e.Tick())
			return
		default:
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			time.Sleep(50 * time.Millisecond)
			continue
		}

		start := time.Now()
		if !e.step() {
			e.log.Info("engine finished", "tick", e.Tick())
			return
		}

		// Sleep for the remainder of the interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
}

// RunTicks runs n ticks immediately, ignoring speed. It returns the number of
// ticks run before OnTick asked to stop.
func (e *Engine) RunTicks(n int) int {
	for i := 0; i < n; i++ {
		if !e.step() {
			return i + 1
		}
	}
	return n
}

// Stop halts the loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running && e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Engine) step() bool {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil && !e.OnTick(tick, e.Step) {
		return false
	}
	if tick%FrameRate == 0 && e.OnSecond != nil {
		e.OnSecond(tick)
	}
	return true
}

// Clock formats a mission clock in seconds as m:ss.
func Clock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
