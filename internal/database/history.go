package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkcheck/internal/model"
)

// dbFileName is the SQLite file created in the database directory.
const dbFileName = "linkcheck.db"

// timestampLayout is fixed-width so that stored timestamps sort as text.
const timestampLayout = "2006-01-02 15:04:05.000000"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores finished link check results.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	// Read-only commands set it to false so that they do not leave an empty
	// database behind.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging, which lets a history listing
	// read while a batch check is writing.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("no history database at %s: %w", dbPath, err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS check_runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		ok_count INTEGER NOT NULL,
		broken_count INTEGER NOT NULL,
		registered INTEGER NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON check_runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON check_runs(started_at);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores a finished result. Saving the same run twice replaces
// the earlier copy.
func (h *HistoryDB) SaveResult(ctx context.Context, r *model.Result) error {
	resultJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	query := `
	INSERT INTO check_runs (id, start_url, started_at, duration_ms, ok_count, broken_count, registered, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		duration_ms = excluded.duration_ms,
		ok_count = excluded.ok_count,
		broken_count = excluded.broken_count,
		registered = excluded.registered,
		result_json = excluded.result_json
	`
	_, err = h.db.ExecContext(ctx, query,
		r.ID,
		r.StartURL,
		r.StartedAt.UTC().Format(timestampLayout),
		r.Duration.Milliseconds(),
		r.OK,
		r.Broken,
		r.Registered,
		string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// RunSummary describes a stored run without its failure list.
type RunSummary struct {
	ID         string
	StartURL   string
	StartedAt  time.Time
	Duration   time.Duration
	OK         int
	Broken     int
	Registered int
}

// ListRuns returns the runs of startURL, newest first. A limit of zero or
// less returns every run.
func (h *HistoryDB) ListRuns(ctx context.Context, startURL string, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, start_url, started_at, duration_ms, ok_count, broken_count, registered
	FROM check_runs
	WHERE start_url = ?
	ORDER BY started_at DESC
	`
	args := []any{startURL}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var startedAt string
		var durationMillis int64
		if err := rows.Scan(&run.ID, &run.StartURL, &startedAt, &durationMillis,
			&run.OK, &run.Broken, &run.Registered); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(startedAt)
		run.Duration = time.Duration(durationMillis) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListSites returns every start URL with at least one stored run.
func (h *HistoryDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT start_url FROM check_runs ORDER BY start_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// GetRun returns the full result stored under id.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*model.Result, error) {
	var resultJSON string
	err := h.db.QueryRowContext(ctx, `SELECT result_json FROM check_runs WHERE id = ?`, id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeResult(resultJSON)
}

// LatestResults returns up to n full results for startURL, newest first.
func (h *HistoryDB) LatestResults(ctx context.Context, startURL string, n int) ([]*model.Result, error) {
	query := `
	SELECT result_json FROM check_runs
	WHERE start_url = ?
	ORDER BY started_at DESC
	LIMIT ?
	`
	rows, err := h.db.QueryContext(ctx, query, startURL, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer rows.Close()

	var results []*model.Result
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r, err := decodeResult(resultJSON)
		if err != nil {
			continue // Skip malformed rows
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteRunsBefore removes runs started before cutoff and returns how many
// were deleted.
func (h *HistoryDB) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM check_runs WHERE started_at < ?`,
		cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

func decodeResult(resultJSON string) (*model.Result, error) {
	var r model.Result
	if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &r, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// parseTimestamp parses a stored timestamp as UTC. It returns the zero time
// when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
