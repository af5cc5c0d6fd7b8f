/*
Package sqlite provides a SQLite-backed implementation of generic.DocumentStore.

PURPOSE:
  Persists month documents as one row per (employee, year, month). The
  document body is a JSON object of week records. In production the same
  shape maps onto PostgreSQL jsonb (see store/postgres).

INTERFACES IMPLEMENTED:
  generic.DocumentStore: Read, WithTx
  generic.DocumentTx:    Read, WriteMerge (via txStore)

KEY TABLES:
  timesheet_documents: One JSON body per employee/year/month

MERGE SEMANTICS:
  WriteMerge decodes the stored body, overwrites the given top-level keys
  and writes the whole body back inside the same sql.Tx. Keys not named in
  the merge are preserved.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety: SQLite has a single writer, so
  transactions are serialized by the store mutex and plain reads share the
  read lock. With PostgreSQL row locks do this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/timesheets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  weeks := timesheet.NewWeekStore(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/timesheet-engine/generic"
)

// Store implements generic.DocumentStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per-connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Month documents (one JSON body per employee/year/month)
	CREATE TABLE IF NOT EXISTS timesheet_documents (
		employee_id TEXT NOT NULL,
		year TEXT NOT NULL,
		month TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year, month)
	);

	-- For per-employee listings
	CREATE INDEX IF NOT EXISTS idx_timesheet_documents_employee
		ON timesheet_documents(employee_id, year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE (generic.DocumentStore interface)
// =============================================================================

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Read returns the document at path.
func (s *Store) Read(ctx context.Context, path generic.DocumentPath) (generic.Document, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, found, err := s.readDoc(ctx, s.db, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, generic.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *Store) readDoc(ctx context.Context, db queryer, path generic.DocumentPath) (generic.Document, bool, error) {
	var body string
	err := db.QueryRowContext(ctx,
		`SELECT body FROM timesheet_documents WHERE employee_id = ? AND year = ? AND month = ?`,
		string(path.EmployeeID), path.Year, path.Month,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &generic.StoreError{Op: "read", Path: path, Err: err}
	}

	doc := generic.Document{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, false, &generic.StoreError{Op: "decode", Path: path, Err: err}
	}
	return doc, true, nil
}

func (s *Store) writeDoc(ctx context.Context, db execer, path generic.DocumentPath, doc generic.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return &generic.StoreError{Op: "encode", Path: path, Err: err}
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = db.ExecContext(ctx, `
		INSERT INTO timesheet_documents (employee_id, year, month, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year, month) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, string(path.EmployeeID), path.Year, path.Month, string(body), now, now)
	if err != nil {
		if isBusyError(err) {
			return &generic.StoreError{Op: "write", Path: path, Err: generic.ErrConcurrentModification}
		}
		return &generic.StoreError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, path generic.DocumentPath, fn func(generic.DocumentTx) error) error {
	if err := path.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", generic.ErrTransactionFailed, err)
	}
	defer sqlTx.Rollback()

	ts := &txStore{tx: sqlTx, parent: s, path: path}
	if err := fn(ts); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", generic.ErrTransactionFailed, err)
	}
	return nil
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
	path   generic.DocumentPath
}

func (ts *txStore) Read(ctx context.Context) (generic.Document, error) {
	doc, found, err := ts.parent.readDoc(ctx, ts.tx, ts.path)
	if err != nil {
		return nil, err
	}
	if !found {
		return generic.Document{}, nil
	}
	return doc, nil
}

func (ts *txStore) WriteMerge(ctx context.Context, partial generic.Document) error {
	doc, err := ts.Read(ctx)
	if err != nil {
		return err
	}
	doc.Merge(partial)
	return ts.parent.writeDoc(ctx, ts.tx, ts.path, doc)
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

// ListPaths returns every stored document path for an employee, newest month first.
func (s *Store) ListPaths(ctx context.Context, employeeID generic.EmployeeID) ([]generic.DocumentPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month FROM timesheet_documents
		WHERE employee_id = ?
		ORDER BY year DESC, month DESC
	`, string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var paths []generic.DocumentPath
	for rows.Next() {
		p := generic.DocumentPath{EmployeeID: employeeID}
		if err := rows.Scan(&p.Year, &p.Month); err != nil {
			return nil, fmt.Errorf("failed to scan document path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
