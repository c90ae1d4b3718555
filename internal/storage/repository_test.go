package storage

import (
	"context"
	"testing"
)

// TestNew_RejectsUnknownKind verifies the factory fails fast on missing or
// unregistered kinds instead of guessing a backend.
func TestNew_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
	if _, err := New(context.Background(), Config{Kind: "oracle"}); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}

// TestRegister_DuplicatePanics verifies double registration panics at init
// time rather than allowing ambiguous backend selection.
func TestRegister_DuplicatePanics(t *testing.T) {
	t.Parallel()

	f := func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil }
	Register("dup-test", f)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	Register("dup-test", f)
}
