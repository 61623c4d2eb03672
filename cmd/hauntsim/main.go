// Command hauntsim runs ghost hunting missions: a scripted team against one
// ghost in a generated or hand drawn house.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/hauntsim/internal/api"
	"github.com/talgya/hauntsim/internal/audio"
	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/config"
	"github.com/talgya/hauntsim/internal/engine"
	"github.com/talgya/hauntsim/internal/entropy"
	"github.com/talgya/hauntsim/internal/persistence"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hauntsim:", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeds := entropy.NewClient(cfg.RandomOrgKey)
	if seeds == nil && cfg.Seed == 0 {
		slog.Info("HAUNTSIM_RANDOM_ORG_KEY not set, seeding from crypto/rand")
	}
	seed := entropy.Resolve(cfg.Seed, seeds)

	// ── Tuning ────────────────────────────────────────────────────────
	tuning, err := config.LoadTuning(cfg.TuningPath)
	switch {
	case errors.Is(err, config.ErrNoTuningFile):
		slog.Info("no tuning file, using defaults", "path", cfg.TuningPath)
	case err != nil:
		slog.Error("failed to load tuning", "path", cfg.TuningPath, "error", err)
		os.Exit(1)
	default:
		slog.Info("tuning loaded", "path", cfg.TuningPath)
	}
	var updates <-chan config.Tuning
	if cfg.TuningPath != "" {
		watcher, err := config.NewWatcher(cfg.TuningPath, logger)
		if err != nil {
			slog.Warn("tuning hot reload disabled", "error", err)
		} else {
			defer watcher.Close()
			updates = watcher.Updates
		}
	}

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			slog.Error("failed to create data directory", "error", err)
			os.Exit(1)
		}
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)
		if last, err := db.GetMeta("last_mission"); err == nil {
			slog.Info("previous mission on record", "id", last)
		}
	}

	// ── Engine and HTTP API ───────────────────────────────────────────
	eng := engine.NewEngine(logger)
	if err := eng.SetSpeed(cfg.Speed); err != nil {
		slog.Error("bad speed", "error", err)
		os.Exit(1)
	}

	var server *api.Server
	if cfg.Port != 0 {
		if cfg.AdminKey == "" {
			slog.Warn("HAUNTSIM_ADMIN_KEY not set, admin POST endpoints are disabled")
		}
		server = &api.Server{Eng: eng, DB: db, Port: cfg.Port, AdminKey: cfg.AdminKey, Logger: logger}
		go func() {
			if err := server.Start(ctx); err != nil {
				slog.Error("HTTP API stopped", "error", err)
			}
		}()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	}

	// ── Missions ──────────────────────────────────────────────────────
	var fixed *board.Grid
	if cfg.MapPath != "" {
		fixed, err = board.LoadLayoutFile(cfg.MapPath)
		if err != nil {
			slog.Error("failed to load map", "path", cfg.MapPath, "error", err)
			os.Exit(1)
		}
	}

	for i := 0; cfg.Missions == 0 || i < cfg.Missions; i++ {
		// Reloaded tuning applies from the next mission on.
		for drained := false; !drained; {
			select {
			case t, ok := <-updates:
				if !ok {
					updates = nil
					drained = true
					continue
				}
				tuning = t
				slog.Info("new tuning takes effect", "mission", i+1)
			default:
				drained = true
			}
		}

		missionSeed := seed + int64(i)
		grid := fixed
		if grid == nil {
			gen := board.DefaultGenConfig()
			gen.Seed = missionSeed
			grid = board.Generate(gen)
		}

		report, err := runMission(ctx, eng, server, db, grid, tuning, cfg, missionSeed, logger)
		if err != nil {
			slog.Error("mission failed", "error", err)
			os.Exit(1)
		}
		printSummary(report)

		if ctx.Err() != nil {
			break
		}
	}
	fmt.Println("Done.")
}

// runMission plays one mission to its end on the engine and stores the
// outcome.
func runMission(ctx context.Context, eng *engine.Engine, server *api.Server, db *persistence.DB,
	grid *board.Grid, tuning config.Tuning, cfg config.Config, seed int64, logger *slog.Logger) (engine.Report, error) {
	mcfg := tuning.MissionConfig(seed, cfg.Difficulty)
	mcfg.Logger = logger
	m, err := engine.NewMission(grid, mcfg)
	if err != nil {
		return engine.Report{}, err
	}
	if server != nil {
		server.SetMission(m)
	}

	records, cancel := m.Subscribe(256)
	recorded := make(chan error, 1)
	go func() {
		if db == nil {
			for range records {
			}
			recorded <- nil
			return
		}
		// The channel closes when the mission is done; the recorder must
		// outlive ctx to keep the final records.
		recorded <- db.Record(context.Background(), m.ID, records, time.Second)
	}()

	eng.OnTick = func(tick uint64, dt float64) bool {
		return m.Step(dt)
	}
	eng.OnSecond = func(tick uint64) {
		if tick%(60*engine.FrameRate) != 0 {
			return
		}
		v := m.View()
		slog.Info("mission progress",
			"clock", engine.Clock(v.Clock),
			"phase", v.Ghost.Phase.String(),
			"rage", fmt.Sprintf("%.1f", v.Ghost.Rage),
			"hunts", v.Stats.Hunts,
			"repellent_hits", v.Stats.RepellentHits,
		)
	}
	eng.Run(ctx)
	if ctx.Err() != nil {
		m.Abort()
	}
	cancel()
	if err := <-recorded; err != nil {
		slog.Error("event log incomplete", "mission", m.ID.String(), "error", err)
	}

	report := m.Report()
	if db != nil {
		if err := db.SaveReport(report); err != nil {
			slog.Error("failed to save mission report", "error", err)
		}
		if err := db.SaveMeta("last_mission", m.ID.String()); err != nil {
			slog.Error("failed to save metadata", "error", err)
		}
	}
	if cfg.CuesWAV != "" {
		renderCues(cueTrackPath(cfg.CuesWAV, cfg.Missions, m.ID.String()), m, report)
	}
	return report, nil
}

// cueTrackPath gives every mission its own file when several run.
func cueTrackPath(path string, missions int, id string) string {
	if missions == 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + id[:8] + ext
}

func renderCues(path string, m *engine.Mission, report engine.Report) {
	cues := m.Cues()
	f, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create cue track", "path", path, "error", err)
		return
	}
	defer f.Close()
	if err := audio.RenderWAV(f, cues, audio.TrackLength(cues, report.Clock), audio.DefaultConfig()); err != nil {
		slog.Error("failed to render cue track", "path", path, "error", err)
		return
	}
	if info, err := f.Stat(); err == nil {
		slog.Info("cue track written", "path", path, "cues", len(cues), "size", humanize.Bytes(uint64(info.Size())))
	}
}

func printSummary(r engine.Report) {
	fmt.Printf("\nMission %s on %s (%s, seed %d): %s after %s\n",
		r.ID.String()[:8], r.Map, r.Difficulty, r.Seed, strings.ToUpper(string(r.Outcome)), engine.Clock(r.Clock))
	fmt.Printf("  survivors     %d of %d\n", r.Survivors, r.Team)
	fmt.Printf("  hunts         %d (%d warnings)\n", r.Stats.Hunts, r.Stats.Warnings)
	fmt.Printf("  damage dealt  %s\n", humanize.FormatFloat("#,###.#", r.Stats.DamageDealt))
	fmt.Printf("  repellent     %s hits, %s misses\n",
		humanize.Comma(int64(r.Stats.RepellentHits)), humanize.Comma(int64(r.Stats.RepellentMisses)))
	fmt.Printf("  phenomena     %d, cues %d, peak rage %.1f\n", r.Stats.Phenomena, r.Stats.Cues, r.Stats.PeakRage)
	if !r.EndedAt.IsZero() {
		fmt.Printf("  ended         %s\n", humanize.Time(r.EndedAt))
	}
}

// newLogger writes text to terminals and JSON everywhere else.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
