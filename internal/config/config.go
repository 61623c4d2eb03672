// Package config reads the runner configuration from the environment and
// the optional YAML tuning file.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/hauntsim/internal/difficulty"
)

// Config is the runner configuration.
type Config struct {
	Seed         int64 // 0 draws a fresh seed
	Difficulty   difficulty.Level
	MapPath      string // empty generates a house
	DBPath       string // empty disables persistence
	Port         int    // 0 disables the HTTP API
	AdminKey     string
	TuningPath   string
	Speed        float64 // +Inf runs unthrottled
	Missions     int     // 0 runs until interrupted
	CuesWAV      string  // empty disables WAV rendering
	RandomOrgKey string
	LogLevel     string
}

// FromEnv reads HAUNTSIM_* variables.
func FromEnv() (Config, error) {
	var cfg Config
	var err error

	if cfg.Seed, err = envInt64("HAUNTSIM_SEED", 0); err != nil {
		return cfg, err
	}
	if cfg.Difficulty, err = difficulty.ParseLevel(envOrDefault("HAUNTSIM_DIFFICULTY", "standard")); err != nil {
		return cfg, fmt.Errorf("HAUNTSIM_DIFFICULTY: %w", err)
	}
	cfg.MapPath = os.Getenv("HAUNTSIM_MAP")
	cfg.DBPath = envOrDefault("HAUNTSIM_DB", "data/hauntsim.db")
	port, err := envInt64("HAUNTSIM_PORT", 8080)
	if err != nil {
		return cfg, err
	}
	cfg.Port = int(port)
	cfg.AdminKey = os.Getenv("HAUNTSIM_ADMIN_KEY")
	cfg.TuningPath = os.Getenv("HAUNTSIM_TUNING")
	if cfg.Speed, err = ParseSpeed(envOrDefault("HAUNTSIM_SPEED", "1")); err != nil {
		return cfg, fmt.Errorf("HAUNTSIM_SPEED: %w", err)
	}
	missions, err := envInt64("HAUNTSIM_MISSIONS", 1)
	if err != nil {
		return cfg, err
	}
	if missions < 0 {
		return cfg, fmt.Errorf("HAUNTSIM_MISSIONS must be >= 0, got %d", missions)
	}
	cfg.Missions = int(missions)
	cfg.CuesWAV = os.Getenv("HAUNTSIM_CUES_WAV")
	cfg.RandomOrgKey = os.Getenv("HAUNTSIM_RANDOM_ORG_KEY")
	cfg.LogLevel = envOrDefault("HAUNTSIM_LOG_LEVEL", "info")
	return cfg, nil
}

// ParseSpeed parses a speed multiplier; "max" means unthrottled.
func ParseSpeed(s string) (float64, error) {
	if strings.EqualFold(strings.TrimSpace(s), "max") {
		return math.Inf(1), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse speed %q: %w", s, err)
	}
	if v < 0 || math.IsNaN(v) {
		return 0, fmt.Errorf("speed must be >= 0, got %v", v)
	}
	return v, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
