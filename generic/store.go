/*
store.go - Persistence interface for month documents

PURPOSE:
  Defines the interface between the week record store and the database.
  The store is a keyed, hierarchical document store: one document per
  (employee, year, month) path, each document a mapping of top-level keys
  to JSON values. Implementations: in-memory, SQLite, PostgreSQL.

KEY INTERFACES:
  DocumentStore: Plain reads plus transaction scoping
  DocumentTx:    Read and merge-write inside one transaction

MERGE CONTRACT:
  WriteMerge replaces only the top-level keys it is given. Sibling keys
  already in the document are preserved. A key is never deleted through
  WriteMerge.

ATOMICITY:
  WithTx runs fn against a single document. If fn returns an error nothing
  it wrote is visible. Two transactions on the same path never interleave;
  transactions on different paths do not block each other (store-permitting).

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL jsonb

EXAMPLE:
  err := docs.WithTx(ctx, path, func(tx generic.DocumentTx) error {
      doc, err := tx.Read(ctx)
      if err != nil {
          return err
      }
      return tx.WriteMerge(ctx, generic.Document{"2025-03-10": raw})
  })

SEE ALSO:
  - timesheet/store.go: WeekStore built on DocumentStore
*/
package generic

import (
	"context"
	"encoding/json"
	"fmt"
)

// =============================================================================
// DOCUMENT PATH
// =============================================================================

// DocumentPath addresses one month document.
type DocumentPath struct {
	EmployeeID EmployeeID
	Year       string
	Month      string
}

func (p DocumentPath) String() string {
	return fmt.Sprintf("timesheets/%s/%s/%s", p.EmployeeID, p.Year, p.Month)
}

// Validate rejects paths with empty segments.
func (p DocumentPath) Validate() error {
	if p.EmployeeID == "" || p.Year == "" || p.Month == "" {
		return fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return nil
}

// Document is a month document: top-level key to raw JSON value.
type Document map[string]json.RawMessage

// Clone returns a copy that shares no byte slices with d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Merge copies every key of partial into d, overwriting existing keys.
func (d Document) Merge(partial Document) {
	for k, v := range partial {
		d[k] = append(json.RawMessage(nil), v...)
	}
}

// =============================================================================
// STORE - Interface for document persistence
// =============================================================================

// DocumentStore persists month documents.
type DocumentStore interface {
	// Read returns the document at path outside any transaction.
	// Returns ErrDocumentNotFound if it does not exist.
	Read(ctx context.Context, path DocumentPath) (Document, error)

	// WithTx executes fn within a transaction scoped to path.
	// If fn returns error, nothing is written.
	// If fn returns nil, all merges are committed together.
	WithTx(ctx context.Context, path DocumentPath, fn func(tx DocumentTx) error) error
}

// DocumentTx is the transactional view handed to WithTx callbacks.
type DocumentTx interface {
	// Read returns the document as seen by this transaction.
	// An absent document is returned as an empty, non-nil Document.
	Read(ctx context.Context) (Document, error)

	// WriteMerge merges partial into the document.
	WriteMerge(ctx context.Context, partial Document) error
}
