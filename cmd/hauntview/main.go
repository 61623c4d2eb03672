// Command hauntview runs a mission in the terminal and draws the house, the
// team and the ghost as it plays out.
//
// Keys: q/Esc quit, space pause, +/- speed, f follow the ghost's floor,
// PgUp/PgDn change floor, r credit ten repellent hits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/config"
	"github.com/talgya/hauntsim/internal/engine"
	"github.com/talgya/hauntsim/internal/entropy"
)

// speeds the viewer cycles through with +/-.
var speeds = []float64{0.5, 1, 2, 4, 8, 16}

type viewer struct {
	screen  tcell.Screen
	eng     *engine.Engine
	mission *engine.Mission

	floor    int
	follow   bool
	speedIdx int
	paused   bool
	status   string
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hauntview:", err)
		os.Exit(1)
	}
	// The screen owns the terminal; logs go to a file when requested.
	logger := slog.New(slog.NewTextHandler(discardOr(os.Getenv("HAUNTVIEW_LOG")), &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	seed := entropy.Resolve(cfg.Seed, entropy.NewClient(cfg.RandomOrgKey))
	grid, err := loadGrid(cfg.MapPath, seed)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hauntview:", err)
		os.Exit(1)
	}
	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil && !errors.Is(err, config.ErrNoTuningFile) {
		fmt.Fprintln(os.Stderr, "hauntview:", err)
		os.Exit(1)
	}
	mcfg := tuning.MissionConfig(seed, cfg.Difficulty)
	mcfg.Logger = logger
	m, err := engine.NewMission(grid, mcfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hauntview:", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hauntview:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "hauntview:", err)
		os.Exit(1)
	}

	v := newViewer(screen, m, logger)
	v.run()
	screen.Fini()

	r := m.Report()
	fmt.Printf("Mission on %s (%s, seed %d): %s after %s, %d of %d survived\n",
		r.Map, r.Difficulty, r.Seed, r.Outcome, engine.Clock(r.Clock), r.Survivors, r.Team)
}

func newViewer(screen tcell.Screen, m *engine.Mission, logger *slog.Logger) *viewer {
	eng := engine.NewEngine(logger)
	eng.OnTick = func(tick uint64, dt float64) bool {
		return m.Step(dt)
	}
	return &viewer{
		screen:   screen,
		eng:      eng,
		mission:  m,
		follow:   true,
		speedIdx: 1,
	}
}

func (v *viewer) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go v.eng.Run(ctx)

	ticker := time.NewTicker(33 * time.Millisecond) // ~30 FPS
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !v.handleInput(ev) {
				v.mission.Abort()
				return
			}
		case <-ticker.C:
			v.draw()
		}
	}
}

func (v *viewer) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyPgUp:
			v.follow = false
			v.floor = min(v.floor+1, v.mission.Grid().Floors()-1)
		case tcell.KeyPgDn:
			v.follow = false
			v.floor = max(v.floor-1, 0)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				v.paused = !v.paused
				v.applySpeed()
			case '+', '=':
				v.speedIdx = min(v.speedIdx+1, len(speeds)-1)
				v.applySpeed()
			case '-':
				v.speedIdx = max(v.speedIdx-1, 0)
				v.applySpeed()
			case 'f':
				v.follow = !v.follow
			case 'r':
				if err := v.mission.AdminRepellent(10); err != nil {
					v.status = err.Error()
				} else {
					v.status = "credited 10 repellent hits"
				}
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *viewer) applySpeed() {
	speed := speeds[v.speedIdx]
	if v.paused {
		speed = 0
	}
	if err := v.eng.SetSpeed(speed); err != nil {
		v.status = err.Error()
	}
}

func loadGrid(path string, seed int64) (*board.Grid, error) {
	if path != "" {
		return board.LoadLayoutFile(path)
	}
	gen := board.DefaultGenConfig()
	gen.Seed = seed
	return board.Generate(gen), nil
}

func discardOr(path string) io.Writer {
	if path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			return f
		}
	}
	return io.Discard
}
