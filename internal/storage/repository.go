// Package storage persists extraction results for the downstream load
// stage. The extraction core never imports it; cmd wiring decides whether
// and where results are written.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sheetetl/internal/extract"
)

// Config is the minimal configuration needed to create a repository.
//
// Kind must match a registered backend kind ("sqlite", "postgres"); DSN is
// passed through to the backend factory, so its validation is
// backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Run identifies one orchestrator invocation being persisted.
type Run struct {
	ID         string
	SourceFile string
	StartedAt  time.Time
}

// Repository is a backend-agnostic sink for extraction results.
//
// The interface is intentionally minimal: ensure the schema exists, write a
// run. Each backend implements idempotency in its own idiomatic way
// (Postgres ON CONFLICT, SQLite OR IGNORE).
type Repository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureSchema creates tables as needed, with create-if-not-exists
	// semantics so startup stays idempotent.
	EnsureSchema(ctx context.Context) error

	// SaveRun persists the run row, every result's records (as JSON payloads
	// with run/collection/sheet/row provenance columns), its errors, and its
	// per-sheet stats. Re-saving an already-saved run id is a no-op for the
	// run row and must not duplicate it.
	SaveRun(ctx context.Context, run Run, results []extract.Result) error
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call from an init() function in
// the backend package. Registering an empty kind, a nil factory, or the same
// kind twice panics.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository using the registered backend factory for
// cfg.Kind. An empty or unregistered kind is an error.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
