// Package history persists analysis reports and fix attempts so a designer
// can see what changed, when, and whether it stuck.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds history store configuration.
type Config struct {
	DataDir string
}

// Store is the audit log backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the history database under cfg.DataDir.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "history.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS analyses (
			id                  TEXT PRIMARY KEY,
			part_name           TEXT NOT NULL,
			process             TEXT NOT NULL,
			violation_count     INTEGER NOT NULL,
			critical_count      INTEGER NOT NULL,
			is_manufacturable   INTEGER NOT NULL,
			recommended_process TEXT NOT NULL DEFAULT '',
			created_at          TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_analyses_part    ON analyses(part_name);
		CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);

		CREATE TABLE IF NOT EXISTS fixes (
			id          TEXT PRIMARY KEY,
			rule_id     TEXT NOT NULL,
			feature_id  TEXT NOT NULL,
			success     INTEGER NOT NULL,
			rolled_back INTEGER NOT NULL,
			old_value   REAL NOT NULL,
			new_value   REAL NOT NULL,
			message     TEXT NOT NULL,
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_fixes_rule    ON fixes(rule_id);
		CREATE INDEX IF NOT EXISTS idx_fixes_created ON fixes(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AnalysisEntry is the input for recording one analysis run.
type AnalysisEntry struct {
	PartName           string
	Process            string
	ViolationCount     int
	CriticalCount      int
	IsManufacturable   bool
	RecommendedProcess string
}

// AnalysisRecord is one stored analysis run.
type AnalysisRecord struct {
	ID                 string `json:"id"`
	PartName           string `json:"part_name"`
	Process            string `json:"process"`
	ViolationCount     int    `json:"violation_count"`
	CriticalCount      int    `json:"critical_count"`
	IsManufacturable   bool   `json:"is_manufacturable"`
	RecommendedProcess string `json:"recommended_process"`
	CreatedAt          string `json:"created_at"`
}

// RecordAnalysis stores an analysis run and returns its id.
func (s *Store) RecordAnalysis(e AnalysisEntry) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO analyses (id, part_name, process, violation_count, critical_count, is_manufacturable, recommended_process)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, e.PartName, e.Process, e.ViolationCount, e.CriticalCount,
		boolToInt(e.IsManufacturable), e.RecommendedProcess,
	)
	if err != nil {
		return "", fmt.Errorf("history: record analysis: %w", err)
	}
	return id, nil
}

// RecentAnalyses returns the newest analysis runs, optionally filtered by
// part name.
func (s *Store) RecentAnalyses(partName string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, part_name, process, violation_count, critical_count, is_manufacturable, recommended_process, created_at
	          FROM analyses`
	var args []any
	if partName != "" {
		query += " WHERE part_name = ?"
		args = append(args, partName)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: recent analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AnalysisRecord
	for rows.Next() {
		var r AnalysisRecord
		var manufacturable int
		if err := rows.Scan(&r.ID, &r.PartName, &r.Process, &r.ViolationCount,
			&r.CriticalCount, &manufacturable, &r.RecommendedProcess, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.IsManufacturable = manufacturable != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// FixEntry is the input for recording one fix attempt.
type FixEntry struct {
	RuleID     string
	FeatureID  string
	Success    bool
	RolledBack bool
	OldValue   float64
	NewValue   float64
	Message    string
}

// FixRecord is one stored fix attempt.
type FixRecord struct {
	ID         string  `json:"id"`
	RuleID     string  `json:"rule_id"`
	FeatureID  string  `json:"feature_id"`
	Success    bool    `json:"success"`
	RolledBack bool    `json:"rolled_back"`
	OldValue   float64 `json:"old_value"`
	NewValue   float64 `json:"new_value"`
	Message    string  `json:"message"`
	CreatedAt  string  `json:"created_at"`
}

// RecordFix stores a fix attempt and returns its id.
func (s *Store) RecordFix(e FixEntry) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO fixes (id, rule_id, feature_id, success, rolled_back, old_value, new_value, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.RuleID, e.FeatureID, boolToInt(e.Success), boolToInt(e.RolledBack),
		e.OldValue, e.NewValue, e.Message,
	)
	if err != nil {
		return "", fmt.Errorf("history: record fix: %w", err)
	}
	return id, nil
}

// RecentFixes returns the newest fix attempts.
func (s *Store) RecentFixes(limit int) ([]FixRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, rule_id, feature_id, success, rolled_back, old_value, new_value, message, created_at
		 FROM fixes ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent fixes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FixRecord
	for rows.Next() {
		var r FixRecord
		var success, rolledBack int
		if err := rows.Scan(&r.ID, &r.RuleID, &r.FeatureID, &success, &rolledBack,
			&r.OldValue, &r.NewValue, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.RolledBack = rolledBack != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats holds aggregate history statistics.
type Stats struct {
	TotalAnalyses   int      `json:"total_analyses"`
	TotalFixes      int      `json:"total_fixes"`
	SuccessfulFixes int      `json:"successful_fixes"`
	RolledBackFixes int      `json:"rolled_back_fixes"`
	Parts           []string `json:"parts"`
}

// Stats returns aggregate statistics across all recorded activity.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&stats.TotalAnalyses)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM fixes").Scan(&stats.TotalFixes)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM fixes WHERE success = 1").Scan(&stats.SuccessfulFixes)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM fixes WHERE rolled_back = 1").Scan(&stats.RolledBackFixes)

	rows, err := s.db.Query(
		"SELECT part_name FROM analyses GROUP BY part_name ORDER BY MAX(created_at) DESC")
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			stats.Parts = append(stats.Parts, p)
		}
	}
	return stats, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
