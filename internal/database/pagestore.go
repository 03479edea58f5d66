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

	"github.com/nao1215/triesearch/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "triesearch.db"

var (
	// ErrDatabaseNotFound is returned by Open when the file does not exist
	// and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no matching crawl run is stored.
	ErrRunNotFound = errors.New("crawl run not found")
)

// PageStore provides SQLite-based storage for crawled pages.
//
// Design decision: Pages are grouped by run, one run per crawled seed, so a
// later crawl of the same seed never mixes with an earlier one and an index
// can be rebuilt from exactly one crawl.
type PageStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures PageStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Run is one stored crawl of one seed.
type Run struct {
	ID         int64
	Seed       string
	MaxDepth   int
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Pages      int
}

// Finished reports whether FinishRun was called for the run.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Open opens or creates the page store in dbDir.
func Open(dbDir string, opts Options) (*PageStore, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file. The pragma is applied to
	// every new connection.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &PageStore{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *PageStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *PageStore) Path() string {
	return s.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (s *PageStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);

	-- Rows keep their id on upsert, so ORDER BY id is crawl order.
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		words TEXT NOT NULL,
		raw_hash TEXT,
		headers TEXT,
		fetched_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun records the start of a crawl and returns its run ID.
func (s *PageStore) StartRun(ctx context.Context, seed string, maxDepth int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (seed, max_depth, started_at) VALUES (?, ?, ?)`,
		seed, maxDepth, formatTimestamp(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun marks a run complete and records its page count.
func (s *PageStore) FinishRun(ctx context.Context, runID int64, pages int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, pages = ? WHERE id = ?`,
		formatTimestamp(time.Now()), pages, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrRunNotFound, runID)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SavePage inserts or updates a page of a run. Uses UPSERT to handle the
// same URL being saved twice within one run.
func (s *PageStore) SavePage(ctx context.Context, runID int64, page *model.Page) error {
	return savePage(ctx, s.db, runID, page)
}

func savePage(ctx context.Context, db execer, runID int64, page *model.Page) error {
	if page.Hash == "" && len(page.Raw) > 0 {
		page.ComputeHash()
	}

	words := page.Words
	if words == nil {
		words = []string{}
	}
	wordsJSON, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("failed to serialize words: %w", err)
	}
	headersJSON, err := json.Marshal(page.Headers)
	if err != nil {
		return fmt.Errorf("failed to serialize headers: %w", err)
	}

	query := `
	INSERT INTO pages (run_id, url, depth, status_code, content_type, title, words, raw_hash, headers, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		depth = excluded.depth,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		words = excluded.words,
		raw_hash = excluded.raw_hash,
		headers = excluded.headers,
		fetched_at = excluded.fetched_at
	`

	_, err = db.ExecContext(ctx, query,
		runID,
		page.URL,
		page.Depth,
		page.StatusCode,
		page.ContentType,
		page.Title,
		string(wordsJSON),
		page.Hash,
		string(headersJSON),
		formatTimestamp(page.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", page.URL, err)
	}
	return nil
}

// SaveCrawl stores a whole crawl result as one finished run in a single
// transaction and returns the run ID.
func (s *PageStore) SaveCrawl(ctx context.Context, result *model.CrawlResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	started := result.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (seed, max_depth, started_at, finished_at, pages) VALUES (?, ?, ?, ?, ?)`,
		result.Seed, result.MaxDepth, formatTimestamp(started), formatTimestamp(finished), len(result.Pages),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for _, page := range result.Pages {
		if err := savePage(ctx, tx, runID, page); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}
	return runID, nil
}

// LoadPages returns the pages of a run in crawl order. Raw content is not
// stored, so loaded pages carry words and metadata only.
func (s *PageStore) LoadPages(ctx context.Context, runID int64) ([]*model.Page, error) {
	query := `
	SELECT url, depth, status_code, content_type, title, words, raw_hash, headers, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	defer rows.Close()

	pages := make([]*model.Page, 0)
	for rows.Next() {
		var (
			page        model.Page
			wordsJSON   string
			headersJSON sql.NullString
			fetchedAt   sql.NullString
		)
		if err := rows.Scan(
			&page.URL,
			&page.Depth,
			&page.StatusCode,
			&page.ContentType,
			&page.Title,
			&wordsJSON,
			&page.Hash,
			&headersJSON,
			&fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		if err := json.Unmarshal([]byte(wordsJSON), &page.Words); err != nil {
			return nil, fmt.Errorf("failed to parse words of %s: %w", page.URL, err)
		}
		if headersJSON.Valid && headersJSON.String != "" && headersJSON.String != "null" {
			if err := json.Unmarshal([]byte(headersJSON.String), &page.Headers); err != nil {
				return nil, fmt.Errorf("failed to parse headers of %s: %w", page.URL, err)
			}
		}
		page.FetchedAt = parseTimestamp(fetchedAt.String)

		pages = append(pages, &page)
	}

	return pages, rows.Err()
}

// GetRun returns the run with the given ID.
func (s *PageStore) GetRun(ctx context.Context, runID int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, seed, max_depth, started_at, finished_at, pages
	FROM runs WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrRunNotFound, runID)
	}
	return run, err
}

// LatestRun returns the most recent finished run of seed.
func (s *PageStore) LatestRun(ctx context.Context, seed string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, seed, max_depth, started_at, finished_at, pages
	FROM runs
	WHERE seed = ? AND finished_at IS NOT NULL
	ORDER BY id DESC
	LIMIT 1
	`, seed)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: seed %s", ErrRunNotFound, seed)
	}
	return run, err
}

// LatestRuns returns the most recent finished run of every stored seed,
// ordered by seed.
func (s *PageStore) LatestRuns(ctx context.Context) ([]*Run, error) {
	return s.queryRuns(ctx, `
	SELECT id, seed, max_depth, started_at, finished_at, pages
	FROM runs
	WHERE id IN (
		SELECT MAX(id) FROM runs WHERE finished_at IS NOT NULL GROUP BY seed
	)
	ORDER BY seed
	`)
}

// ListRuns returns every run, newest first.
func (s *PageStore) ListRuns(ctx context.Context) ([]*Run, error) {
	return s.queryRuns(ctx, `
	SELECT id, seed, max_depth, started_at, finished_at, pages
	FROM runs
	ORDER BY id DESC
	`)
}

// DeleteRun removes a run and its pages.
func (s *PageStore) DeleteRun(ctx context.Context, runID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrRunNotFound, runID)
	}
	return nil
}

func (s *PageStore) queryRuns(ctx context.Context, query string, args ...any) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Seed, &run.MaxDepth, &startedAt, &finishedAt, &run.Pages); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	return &run, nil
}

// formatTimestamp stores times in UTC so they sort lexically.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses s with the known formats and returns the zero time
// when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
