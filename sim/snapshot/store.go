package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store keeps snapshots in a SQLite database, one row per run id plus a
// per-day summary table for inspection.
type Store struct {
	conn *sqlx.DB
}

// RunInfo describes a stored run.
type RunInfo struct {
	RunID   string `db:"run_id"`
	Seed    int64  `db:"seed"`
	LastDay int    `db:"last_day"`
	Version int    `db:"version"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		last_day INTEGER NOT NULL,
		version INTEGER NOT NULL,
		state_json BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS day_summaries (
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		incidents INTEGER NOT NULL,
		grave INTEGER NOT NULL,
		events INTEGER NOT NULL,
		casualties INTEGER NOT NULL,
		mean_congestion REAL NOT NULL,
		PRIMARY KEY (run_id, day)
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save writes a run's state (full replace of any previous save).
func (s *Store) Save(ctx context.Context, runID string, st *State) error {
	data, err := Encode(st)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO runs (run_id, seed, last_day, version, state_json) VALUES (?, ?, ?, ?, ?)",
		runID, st.Seed, st.Day, st.Version, data,
	); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM day_summaries WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO day_summaries
		(run_id, day, incidents, grave, events, casualties, mean_congestion)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range Summaries(st) {
		if _, err := stmt.ExecContext(ctx, runID, d.Day, d.Incidents, d.Grave, d.Events, d.Casualties, d.MeanCongestion); err != nil {
			return fmt.Errorf("save summary day %d: %w", d.Day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logrus.Infof("saved run %s through day %d (%d bytes)", runID, st.Day, len(data))
	return nil
}

// Load reads a run's state. A missing run yields ErrNotFound.
func (s *Store) Load(ctx context.Context, runID string) (*State, error) {
	var data []byte
	err := s.conn.GetContext(ctx, &data, "SELECT state_json FROM runs WHERE run_id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %q: %w", runID, err)
	}
	return Decode(data)
}

// Runs lists the stored runs.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	var runs []RunInfo
	err := s.conn.SelectContext(ctx, &runs, "SELECT run_id, seed, last_day, version FROM runs ORDER BY run_id")
	return runs, err
}

// Days returns the per-day summaries of a run in day order.
func (s *Store) Days(ctx context.Context, runID string) ([]DaySummary, error) {
	var days []DaySummary
	err := s.conn.SelectContext(ctx, &days,
		`SELECT day, incidents, grave, events, casualties, mean_congestion
		FROM day_summaries WHERE run_id = ? ORDER BY day`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		var n int
		if err := s.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM runs WHERE run_id = ?", runID); err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
	}
	return days, nil
}
