// Package docid mints document ids for the writer and guards against the
// collision the source implementation left unguarded: spec.md §4.7 notes
// that the original draws a random document id and never checks for
// reuse, and records checking plus redraw as the recommended fix. This
// package is that fix, backed by a small SQLite registry so the
// collision check survives process restarts.
package docid

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sync"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/memvecgo/internal/errkit"
	"github.com/Aman-CERP/memvecgo/internal/pointer"
)

// maxRedraws bounds the collision-retry loop. With a 27-bit space this is
// never expected to matter in practice; it exists so a Registry bug
// surfaces as an error instead of a hang.
const maxRedraws = 32

// Registry reserves fresh, never-before-used document ids.
type Registry interface {
	Reserve(ctx context.Context) (uint32, error)
}

// SQLiteRegistry persists reserved ids in a SQLite table so collisions
// are detected across process restarts, not just within one run.
type SQLiteRegistry struct {
	db *sql.DB
	// lock guards the registry file against two memvecgo processes
	// pointed at the same path minting concurrently; nil for the
	// in-memory registry, which never leaves the process. Grounded on
	// the teacher's internal/embed.FileLock, which serializes a
	// different shared-file resource (a model download) the same way.
	lock *flock.Flock
}

// NewSQLiteRegistry opens (creating if needed) a SQLite-backed registry.
// path == "" opens an in-memory database, useful for tests that don't
// need cross-process durability.
func NewSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	dsn := path
	var lock *flock.Flock
	if dsn == "" {
		dsn = ":memory:"
	} else {
		lock = flock.New(path + ".lock")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errkit.Internal("docid: opening registry database", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS document_ids (id INTEGER PRIMARY KEY)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errkit.Internal("docid: creating registry schema", err)
	}

	return &SQLiteRegistry{db: db, lock: lock}, nil
}

// Reserve draws a uniform random document id in [0, 2^27) and inserts it,
// redrawing on a primary-key collision up to maxRedraws times. When the
// registry is file-backed, the whole draw-insert loop runs under an
// exclusive file lock so two processes sharing the same registry path
// never race on the same candidate.
func (r *SQLiteRegistry) Reserve(ctx context.Context) (uint32, error) {
	if r.lock != nil {
		if err := r.lock.Lock(); err != nil {
			return 0, errkit.Internal("docid: acquiring registry file lock", err)
		}
		defer r.lock.Unlock()
	}

	for attempt := 0; attempt < maxRedraws; attempt++ {
		candidate := uint32(rand.Int63n(int64(pointer.MaxDocument) + 1))

		_, err := r.db.ExecContext(ctx, `INSERT INTO document_ids (id) VALUES (?)`, candidate)
		if err == nil {
			return candidate, nil
		}
		// Any insert failure on a fresh random draw is assumed to be a
		// collision; the next iteration redraws. A genuinely broken
		// database surfaces once maxRedraws is exhausted.
	}
	return 0, errkit.Internal(fmt.Sprintf("docid: exhausted %d redraws", maxRedraws), nil)
}

// Close releases the underlying database handle and, if held, the
// registry file lock.
func (r *SQLiteRegistry) Close() error {
	if r.lock != nil {
		r.lock.Unlock()
	}
	return r.db.Close()
}

// MemoryRegistry is a process-local Registry for tests and single-process
// runs that don't need a durable document-id ledger.
type MemoryRegistry struct {
	mu   sync.Mutex
	used map[uint32]struct{}
}

// NewMemoryRegistry builds an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{used: make(map[uint32]struct{})}
}

// Reserve draws a uniform random document id, redrawing on collision.
func (r *MemoryRegistry) Reserve(ctx context.Context) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxRedraws; attempt++ {
		candidate := uint32(rand.Int63n(int64(pointer.MaxDocument) + 1))
		if _, exists := r.used[candidate]; exists {
			continue
		}
		r.used[candidate] = struct{}{}
		return candidate, nil
	}
	return 0, errkit.Internal(fmt.Sprintf("docid: exhausted %d redraws", maxRedraws), nil)
}

var (
	_ Registry = (*SQLiteRegistry)(nil)
	_ Registry = (*MemoryRegistry)(nil)
)
