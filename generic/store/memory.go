// Package store provides DocumentStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps documents in a map. Each path has its own lock so that
// transactions on different months never wait on each other.
type Memory struct {
	mu    sync.RWMutex
	docs  map[generic.DocumentPath]generic.Document
	locks map[generic.DocumentPath]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[generic.DocumentPath]generic.Document),
		locks: make(map[generic.DocumentPath]*sync.Mutex),
	}
}

// Read returns a copy of the document at path.
func (m *Memory) Read(_ context.Context, path generic.DocumentPath) (generic.Document, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, generic.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

// WithTx executes fn within a transaction on path.
// Writes are buffered in the view and applied only if fn succeeds.
func (m *Memory) WithTx(ctx context.Context, path generic.DocumentPath, fn func(generic.DocumentTx) error) error {
	if err := path.Validate(); err != nil {
		return err
	}
	lock := m.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	view := &txMemoryView{parent: m, path: path, pending: generic.Document{}}
	if err := fn(view); err != nil {
		return err
	}
	if len(view.pending) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if !ok {
		doc = generic.Document{}
		m.docs[path] = doc
	}
	doc.Merge(view.pending)
	return nil
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *Memory) pathLock(path generic.DocumentPath) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[path] = lock
	}
	return lock
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

type txMemoryView struct {
	parent  *Memory
	path    generic.DocumentPath
	pending generic.Document
}

func (tv *txMemoryView) Read(_ context.Context) (generic.Document, error) {
	tv.parent.mu.RLock()
	doc := tv.parent.docs[tv.path].Clone()
	tv.parent.mu.RUnlock()

	if doc == nil {
		doc = generic.Document{}
	}
	doc.Merge(tv.pending)
	return doc, nil
}

func (tv *txMemoryView) WriteMerge(_ context.Context, partial generic.Document) error {
	tv.pending.Merge(partial)
	return nil
}
