// Package persistence stores mission reports and the mission event log in
// SQLite. Live ghost state is never persisted.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hauntsim/internal/engine"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS missions (
		id TEXT PRIMARY KEY,
		map TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		clock REAL NOT NULL,
		outcome TEXT NOT NULL,
		team INTEGER NOT NULL,
		survivors INTEGER NOT NULL,
		hunts INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		repellent_hits INTEGER NOT NULL,
		stats_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mission_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		time REAL NOT NULL,
		category TEXT NOT NULL,
		kind TEXT NOT NULL,
		player_id TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_mission ON events(mission_id, seq);
	CREATE INDEX IF NOT EXISTS idx_missions_started ON missions(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// MissionRow is a stored mission report.
type MissionRow struct {
	ID            string  `db:"id" json:"id"`
	Map           string  `db:"map" json:"map"`
	Difficulty    string  `db:"difficulty" json:"difficulty"`
	Seed          int64   `db:"seed" json:"seed"`
	StartedAt     string  `db:"started_at" json:"started_at"`
	EndedAt       string  `db:"ended_at" json:"ended_at"`
	Clock         float64 `db:"clock" json:"clock"`
	Outcome       string  `db:"outcome" json:"outcome"`
	Team          int     `db:"team" json:"team"`
	Survivors     int     `db:"survivors" json:"survivors"`
	Hunts         int     `db:"hunts" json:"hunts"`
	Deaths        int     `db:"deaths" json:"deaths"`
	RepellentHits int     `db:"repellent_hits" json:"repellent_hits"`
	StatsJSON     string  `db:"stats_json" json:"-"`
}

// Stats decodes the stored mission stats.
func (r MissionRow) Stats() (engine.Stats, error) {
	var s engine.Stats
	err := json.Unmarshal([]byte(r.StatsJSON), &s)
	return s, err
}

// SaveReport writes (or replaces) a mission report.
func (db *DB) SaveReport(r engine.Report) error {
	statsJSON, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	ended := ""
	if !r.EndedAt.IsZero() {
		ended = r.EndedAt.Format(time.RFC3339Nano)
	}
	_, err = db.conn.Exec(`INSERT OR REPLACE INTO missions
		(id, map, difficulty, seed, started_at, ended_at, clock, outcome,
		 team, survivors, hunts, deaths, repellent_hits, stats_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Map, r.Difficulty, r.Seed,
		r.StartedAt.Format(time.RFC3339Nano), ended, r.Clock, string(r.Outcome),
		r.Team, r.Survivors, r.Stats.Hunts, r.Stats.Deaths, r.Stats.RepellentHits,
		string(statsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert mission %s: %w", r.ID, err)
	}
	slog.Info("mission report saved", "mission", r.ID.String(), "outcome", string(r.Outcome))
	return nil
}

// SaveEvents appends mission records to the event log.
func (db *DB) SaveEvents(missionID uuid.UUID, records []engine.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(mission_id, seq, time, category, kind, player_id, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	id := missionID.String()
	for _, r := range records {
		if _, err := stmt.Exec(id, r.Seq, r.Time, r.Category, r.Kind, r.PlayerID, r.Description); err != nil {
			return fmt.Errorf("insert event %d: %w", r.Seq, err)
		}
	}

	return tx.Commit()
}

// Missions returns the most recent mission reports, newest first.
func (db *DB) Missions(limit int) ([]MissionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []MissionRow
	err := db.conn.Select(&rows,
		"SELECT * FROM missions ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	return rows, err
}

// Mission returns one mission report.
func (db *DB) Mission(id uuid.UUID) (MissionRow, error) {
	var row MissionRow
	err := db.conn.Get(&row, "SELECT * FROM missions WHERE id = ?", id.String())
	return row, err
}

// MissionEvents returns the stored records of a mission in order.
func (db *DB) MissionEvents(id uuid.UUID, limit int) ([]engine.Record, error) {
	if limit <= 0 {
		limit = 1000
	}
	var records []engine.Record
	err := db.conn.Select(&records,
		`SELECT seq, time, category, kind, player_id, description
		 FROM events WHERE mission_id = ? ORDER BY seq LIMIT ?`,
		id.String(), limit,
	)
	return records, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
