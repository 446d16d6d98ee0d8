// Package history keeps a local journal of plugin activity: launches,
// provisioning runs, imports and exports.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Kind classifies a journal entry.
type Kind string

const (
	KindLaunch    Kind = "launch"
	KindCommand   Kind = "command"
	KindProvision Kind = "provision"
	KindImport    Kind = "import"
	KindExport    Kind = "export"
)

// DefaultLimit is used by Recent when limit is not positive.
const DefaultLimit = 50

// Entry is one journal row.
type Entry struct {
	ID      int64
	At      time.Time
	Kind    Kind
	Plugin  string
	Detail  string
	Success bool
	Error   string
}

// Journal appends entries to a sqlite database.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the journal at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers from concurrent workers.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: path, now: time.Now}
	if err := j.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS activity (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  at TEXT NOT NULL,
  kind TEXT NOT NULL,
  plugin TEXT NOT NULL,
  detail TEXT NOT NULL DEFAULT '',
  success INTEGER NOT NULL,
  error TEXT NOT NULL DEFAULT ''
)`
	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create activity table: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS activity_plugin ON activity (plugin)`); err != nil {
		return fmt.Errorf("create activity index: %w", err)
	}
	return nil
}

// Path returns the database location.
func (j *Journal) Path() string { return j.path }

// Record appends e. A zero At is replaced by the current time.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.At.IsZero() {
		e.At = j.now()
	}
	e.At = e.At.UTC()

	const stmt = `INSERT INTO activity (at, kind, plugin, detail, success, error) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := j.db.ExecContext(ctx, stmt,
		e.At.Format(time.RFC3339Nano),
		string(e.Kind),
		e.Plugin,
		e.Detail,
		boolToInt(e.Success),
		e.Error,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert activity: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("insert activity: %w", err)
	}
	return e, nil
}

// Query filters Recent. Zero fields match everything.
type Query struct {
	Plugin string
	Kind   Kind
	Limit  int
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, at, kind, plugin, detail, success, error FROM activity WHERE 1=1`
	var args []interface{}
	if q.Plugin != "" {
		query += ` AND plugin = ?`
		args = append(args, q.Plugin)
	}
	if q.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			at      string
			kind    string
			success int
		)
		if err := rows.Scan(&e.ID, &at, &kind, &e.Plugin, &e.Detail, &success, &e.Error); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse activity time %q: %w", at, err)
		}
		e.Kind = Kind(kind)
		e.Success = success != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of entries per kind for plugin, or for every
// plugin when plugin is empty.
func (j *Journal) Counts(ctx context.Context, plugin string) (map[Kind]int, error) {
	query := `SELECT kind, COUNT(*) FROM activity`
	var args []interface{}
	if plugin != "" {
		query += ` WHERE plugin = ?`
		args = append(args, plugin)
	}
	query += ` GROUP BY kind`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan activity count: %w", err)
		}
		counts[Kind(kind)] = n
	}
	return counts, rows.Err()
}

// Close releases the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
