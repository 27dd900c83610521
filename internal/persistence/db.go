// Package persistence provides SQLite-based storage of runs and snapshots.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/conjunction/internal/config"
	"github.com/talgya/conjunction/internal/world"
)

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Run is one stored simulation run.
type Run struct {
	ID         string  `db:"id" json:"id"`
	StartedAt  string  `db:"started_at" json:"started_at"`
	FinishedAt *string `db:"finished_at" json:"finished_at"`
	State      string  `db:"state" json:"state"`
	Settings   string  `db:"settings_yaml" json:"settings_yaml"`
}

// Snapshot is the headline of one stored snapshot.
type Snapshot struct {
	RunID           string  `db:"run_id"`
	Generation      int     `db:"generation"`
	Order           int     `db:"order_no"`
	Demes           int     `db:"demes"`
	Population      int     `db:"population"`
	MeanHybridIndex float64 `db:"mean_hi"`
}

// DemeRow is the stored statistics of one deme at one snapshot.
type DemeRow struct {
	Generation     int     `db:"generation" json:"generation"`
	Deme           int     `db:"deme" json:"deme"`
	X              int     `db:"x" json:"x"`
	Y              int     `db:"y" json:"y"`
	Size           int     `db:"size" json:"size"`
	MeanFitness    float64 `db:"mean_fitness" json:"mean_fitness"`
	Heterozygosity float64 `db:"heterozygosity" json:"heterozygosity"`
	MeanHI         float64 `db:"mean_hi" json:"mean_hi"`
	VarHI          float64 `db:"var_hi" json:"var_hi"`
	VarP           float64 `db:"var_p" json:"var_p"`
	LD             float64 `db:"ld" json:"ld"`
	Frequencies    string  `db:"frequencies_json" json:"-"` // JSON array
}

// ZeroDRow is the stored 0-D summary at one snapshot.
type ZeroDRow struct {
	Generation  int     `db:"generation" json:"generation"`
	Population  int     `db:"population" json:"population"`
	Material    float64 `db:"material" json:"material"`
	TotalBlocks int     `db:"total_blocks" json:"total_blocks"`
	MeanFitness float64 `db:"mean_fitness" json:"mean_fitness"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		state TEXT NOT NULL,
		settings_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		order_no INTEGER NOT NULL,
		demes INTEGER NOT NULL,
		population INTEGER NOT NULL,
		mean_hi REAL NOT NULL,
		PRIMARY KEY (run_id, order_no)
	);

	CREATE TABLE IF NOT EXISTS deme_stats (
		run_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		deme INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		size INTEGER NOT NULL,
		mean_fitness REAL NOT NULL,
		heterozygosity REAL NOT NULL,
		mean_hi REAL NOT NULL,
		var_hi REAL NOT NULL,
		var_p REAL NOT NULL,
		ld REAL NOT NULL,
		frequencies_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS zero_d_stats (
		run_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		population INTEGER NOT NULL,
		material REAL NOT NULL,
		total_blocks INTEGER NOT NULL,
		mean_fitness REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_deme_stats_run ON deme_stats(run_id, generation);
	CREATE INDEX IF NOT EXISTS idx_zero_d_stats_run ON zero_d_stats(run_id, generation);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun records the start of a run with its settings.
func (db *DB) BeginRun(id string, s config.Settings) error {
	settings, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, started_at, state, settings_yaml) VALUES (?, ?, ?, ?)",
		id, time.Now().UTC().Format(time.RFC3339), "running", settings,
	)
	return err
}

// FinishRun marks a run as ended in the given state.
func (db *DB) FinishRun(id, state string) error {
	_, err := db.conn.Exec(
		"UPDATE runs SET finished_at = ?, state = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), state, id,
	)
	return err
}

// GetRun loads one run.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT id, started_at, finished_at, state, settings_yaml FROM runs WHERE id = ?", id)
	return r, err
}

// SaveSnapshot stores the statistics of the world at one snapshot.
func (db *DB) SaveSnapshot(runID string, generation, order int, w *world.World) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO snapshots (run_id, generation, order_no, demes, population, mean_hi)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, generation, order, w.DemeCount(), w.Population(), w.MeanHybridIndex(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if w.Dimension() == 0 {
		z := w.ZeroD()
		_, err = tx.Exec(
			`INSERT INTO zero_d_stats (run_id, generation, population, material, total_blocks, mean_fitness)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, generation, z.Population, z.Material, z.TotalBlocks, z.MeanFitness,
		)
		if err != nil {
			return fmt.Errorf("insert 0-D stats: %w", err)
		}
		return tx.Commit()
	}

	stmt, err := tx.Preparex(`INSERT INTO deme_stats
		(run_id, generation, deme, x, y, size, mean_fitness, heterozygosity,
		 mean_hi, var_hi, var_p, ld, frequencies_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	stats := w.Stats()
	for _, st := range stats {
		freqJSON, _ := json.Marshal(st.Frequencies)
		_, err := stmt.Exec(
			runID, generation, st.Index, st.X, st.Y, st.Size, st.MeanFitness, st.Heterozygosity,
			st.MeanHI, st.VarHI, st.VarP, st.LD, string(freqJSON),
		)
		if err != nil {
			return fmt.Errorf("insert deme %d: %w", st.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("snapshot stored", "run", runID, "generation", generation, "demes", len(stats))
	return nil
}

// Snapshots lists the snapshots of a run in order.
func (db *DB) Snapshots(runID string) ([]Snapshot, error) {
	var out []Snapshot
	err := db.conn.Select(&out,
		`SELECT run_id, generation, order_no, demes, population, mean_hi
		FROM snapshots WHERE run_id = ? ORDER BY order_no`,
		runID,
	)
	return out, err
}

// DemeStats returns the stored deme statistics of a run at one generation.
func (db *DB) DemeStats(runID string, generation int) ([]DemeRow, error) {
	var out []DemeRow
	err := db.conn.Select(&out,
		`SELECT generation, deme, x, y, size, mean_fitness, heterozygosity,
		        mean_hi, var_hi, var_p, ld, frequencies_json
		FROM deme_stats WHERE run_id = ? AND generation = ? ORDER BY x, y`,
		runID, generation,
	)
	return out, err
}

// ZeroDStats returns the stored 0-D summaries of a run.
func (db *DB) ZeroDStats(runID string) ([]ZeroDRow, error) {
	var out []ZeroDRow
	err := db.conn.Select(&out,
		`SELECT generation, population, material, total_blocks, mean_fitness
		FROM zero_d_stats WHERE run_id = ? ORDER BY generation`,
		runID,
	)
	return out, err
}

// SaveMeta stores a key-value pair describing a run, such as its seed.
func (db *DB) SaveMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	return err
}

// RunMeta returns every metadata pair of a run.
func (db *DB) RunMeta(runID string) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.conn.Select(&rows, "SELECT key, value FROM run_meta WHERE run_id = ? ORDER BY key", runID); err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(rows))
	for _, r := range rows {
		meta[r.Key] = r.Value
	}
	return meta, nil
}
