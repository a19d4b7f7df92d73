//go:build !mips64 && !mips64le && !ppc64 && !s390x

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

const schema = `
CREATE TABLE IF NOT EXISTS renders (
    id TEXT PRIMARY KEY,
    ts_start INTEGER NOT NULL,
    ts_end INTEGER NOT NULL,
    status TEXT NOT NULL,
    origin TEXT,
    preset TEXT,
    categories INTEGER DEFAULT 0,
    samples INTEGER DEFAULT 0,
    prompts_pending INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    bytes INTEGER DEFAULT 0,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_renders_ts_start ON renders(ts_start);
CREATE INDEX IF NOT EXISTS idx_renders_status_ts ON renders(status, ts_start);
`

const renderColumns = `id, ts_start, ts_end, status, origin, preset, categories, samples,
	prompts_pending, duration_ms, bytes, error`

// SQLiteStore implements Store using SQLite with WAL mode.
type SQLiteStore struct {
	db      *sql.DB
	maxRows int
	pruneMu sync.Mutex
	logger  *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// It enables WAL mode for better concurrent performance.
func NewSQLiteStore(path string, maxRows int, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SQLiteStore{
		db:      db,
		maxRows: maxRows,
		logger:  logger,
	}, nil
}

// Insert records a render and prunes the table if it grew past maxRows.
func (s *SQLiteStore) Insert(r *Render) error {
	_, err := s.db.Exec(`INSERT INTO renders (`+renderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TSStart, r.TSEnd, string(r.Status), r.Origin, r.Preset, r.Categories, r.Samples,
		r.PromptsPending, r.DurationMs, r.Bytes, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert render: %w", err)
	}

	s.maybePrune()
	return nil
}

// GetByID retrieves a single render.
func (s *SQLiteStore) GetByID(id string) (*Render, error) {
	row := s.db.QueryRow(`SELECT `+renderColumns+` FROM renders WHERE id = ?`, id)
	r, err := scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get render: %w", err)
	}
	return r, nil
}

// List retrieves renders newest first.
func (s *SQLiteStore) List(opts ListOptions) ([]Render, error) {
	query := `SELECT ` + renderColumns + ` FROM renders WHERE 1=1`
	var args []any

	if opts.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*opts.Status))
	}
	if opts.Window > 0 {
		cutoff := time.Now().UnixMilli() - opts.Window.Milliseconds()
		query += " AND ts_start >= ?"
		args = append(args, cutoff)
	}

	query += " ORDER BY ts_start DESC, rowid DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list renders: %w", err)
	}
	defer rows.Close()

	var renders []Render
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		renders = append(renders, *r)
	}
	return renders, rows.Err()
}

// Overview computes statistics over renders started within window.
func (s *SQLiteStore) Overview(window time.Duration) (*Overview, error) {
	cutoff := time.Now().UnixMilli() - window.Milliseconds()

	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(duration_ms), 0),
			COALESCE(SUM(samples), 0)
		FROM renders
		WHERE ts_start >= ?
	`, cutoff)

	var o Overview
	var avgDur float64
	if err := row.Scan(&o.TotalRenders, &o.SuccessCount, &avgDur, &o.Samples); err != nil {
		return nil, fmt.Errorf("overview query: %w", err)
	}
	o.ErrorCount = o.TotalRenders - o.SuccessCount
	o.AvgDurationMs = int(avgDur)
	if o.TotalRenders > 0 {
		o.SuccessRate = float64(o.SuccessCount) / float64(o.TotalRenders)
	}

	rows, err := s.db.Query(`SELECT duration_ms FROM renders WHERE ts_start >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("overview durations: %w", err)
	}
	defer rows.Close()

	var durations []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan duration: %w", err)
		}
		durations = append(durations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	o.P95DurationMs = p95(durations)

	return &o, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) maybePrune() {
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM renders`).Scan(&count); err != nil {
		s.logger.Error("prune count query failed", "err", err)
		return
	}
	if count <= s.maxRows {
		return
	}

	toDelete := count - s.maxRows
	_, err := s.db.Exec(`
		DELETE FROM renders WHERE id IN (
			SELECT id FROM renders ORDER BY ts_start ASC, rowid ASC LIMIT ?
		)
	`, toDelete)
	if err != nil {
		s.logger.Error("prune failed", "err", err)
	} else {
		s.logger.Debug("pruned old renders", "deleted", toDelete)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRender(row rowScanner) (*Render, error) {
	var r Render
	var status string
	var origin, preset, errText sql.NullString
	err := row.Scan(&r.ID, &r.TSStart, &r.TSEnd, &status, &origin, &preset, &r.Categories, &r.Samples,
		&r.PromptsPending, &r.DurationMs, &r.Bytes, &errText)
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	r.Origin = origin.String
	r.Preset = preset.String
	r.Error = errText.String
	return &r, nil
}
