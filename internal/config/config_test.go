package config

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/hauntsim/internal/difficulty"
	"github.com/talgya/hauntsim/internal/ghost"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HAUNTSIM_SEED", "HAUNTSIM_DIFFICULTY", "HAUNTSIM_PORT", "HAUNTSIM_SPEED", "HAUNTSIM_DB", "HAUNTSIM_MISSIONS"} {
		t.Setenv(k, "")
	}
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Seed != 0 || cfg.Difficulty != difficulty.Standard || cfg.Port != 8080 || cfg.Speed != 1 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Missions != 1 {
		t.Errorf("expected one mission by default, got %d", cfg.Missions)
	}
	if cfg.DBPath != "data/hauntsim.db" {
		t.Errorf("expected default db path, got %s", cfg.DBPath)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("HAUNTSIM_SEED", "1234")
	t.Setenv("HAUNTSIM_DIFFICULTY", "Expert")
	t.Setenv("HAUNTSIM_PORT", "0")
	t.Setenv("HAUNTSIM_SPEED", "max")
	t.Setenv("HAUNTSIM_ADMIN_KEY", "secret")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Seed != 1234 || cfg.Difficulty != difficulty.Expert || cfg.Port != 0 || cfg.AdminKey != "secret" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !math.IsInf(cfg.Speed, 1) {
		t.Errorf("expected unthrottled speed, got %v", cfg.Speed)
	}

	t.Setenv("HAUNTSIM_SEED", "many")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error for bad seed")
	}
	t.Setenv("HAUNTSIM_SEED", "")
	t.Setenv("HAUNTSIM_MISSIONS", "-2")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error for negative mission count")
	}
	t.Setenv("HAUNTSIM_MISSIONS", "")
	t.Setenv("HAUNTSIM_DIFFICULTY", "nightmare")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error for bad difficulty")
	}
}

func TestParseSpeed(t *testing.T) {
	if v, err := ParseSpeed("2.5"); err != nil || v != 2.5 {
		t.Errorf("expected 2.5, got %v (%v)", v, err)
	}
	if _, err := ParseSpeed("-1"); err == nil {
		t.Error("expected error for negative speed")
	}
	if _, err := ParseSpeed("fast"); err == nil {
		t.Error("expected error for non-numeric speed")
	}
}

func TestLoadTuningMissing(t *testing.T) {
	tun, err := LoadTuning("")
	if !errors.Is(err, ErrNoTuningFile) {
		t.Errorf("expected ErrNoTuningFile, got %v", err)
	}
	if tun.Ghost != ghost.DefaultTuning() {
		t.Error("expected default tuning alongside ErrNoTuningFile")
	}
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrNoTuningFile) {
		t.Errorf("expected ErrNoTuningFile for missing file, got %v", err)
	}
}

const tuningYAML = `
ghost:
  sample_count: 20
  expulsion_threshold: 300
influence:
  object_discharge_radius: 4
difficulty:
  hard:
    ghost_speed: 9
team:
  - name: Vera
    behavior: screamer
objects:
  - name: doll
    kind: attractive
    position: {x: 2, y: 3, z: 0}
duration: 600
`

func TestParseTuning(t *testing.T) {
	tun, err := ParseTuning([]byte(tuningYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tun.Ghost.SampleCount != 20 || tun.Ghost.ExpulsionThreshold != 300 {
		t.Errorf("expected overridden ghost tuning, got %+v", tun.Ghost)
	}
	if tun.Ghost.WallPenalty != ghost.DefaultTuning().WallPenalty {
		t.Errorf("expected omitted fields to keep defaults, got %f", tun.Ghost.WallPenalty)
	}
	if tun.Influence.DischargeRadius != 4 || tun.Influence.ChargeRate != 0.01 {
		t.Errorf("unexpected influence config %+v", tun.Influence)
	}

	mc := tun.MissionConfig(7, difficulty.Hard)
	if mc.Values.GhostSpeed != 9 {
		t.Errorf("expected overridden ghost speed 9, got %f", mc.Values.GhostSpeed)
	}
	if mc.Values.RageLikelihood != difficulty.For(difficulty.Hard).RageLikelihood {
		t.Error("expected other hard values untouched")
	}
	if len(mc.Team) != 1 || mc.Team[0].Behavior != "screamer" {
		t.Errorf("expected one screamer, got %+v", mc.Team)
	}
	if len(mc.Objects) != 1 || mc.Objects[0].Position.Y != 3 {
		t.Errorf("expected doll at y=3, got %+v", mc.Objects)
	}
	if mc.Duration != 600 || mc.Seed != 7 {
		t.Errorf("unexpected mission config %+v", mc)
	}

	if _, err := ParseTuning([]byte("ghost: [1, 2")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := ParseTuning([]byte("duration: -5")); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("ghost:\n  sample_count: 11\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	// Unrelated files are ignored; broken YAML keeps the previous tuning.
	_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644)
	time.Sleep(150 * time.Millisecond)
	_ = os.WriteFile(path, []byte("ghost: [broken"), 0o644)
	time.Sleep(150 * time.Millisecond)
	if err := os.WriteFile(path, []byte("ghost:\n  sample_count: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case tun := <-w.Updates:
			if tun.Ghost.SampleCount == 12 {
				return
			}
		case <-deadline:
			t.Fatal("expected reloaded tuning with sample_count 12")
		}
	}
}
