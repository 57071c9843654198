package controls

import (
	"context"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "alice"); err != nil || ok {
		t.Fatalf("get before set: %v %v", ok, err)
	}
	if err := store.Set(ctx, "alice", State{NextChip: 93, Operator: true}); err != nil {
		t.Fatalf("set: %v", err)
	}
	st, ok, err := store.Get(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("get: %v %v", ok, err)
	}
	if st.NextChip != 93 || !st.Operator {
		t.Fatalf("state %#v", st)
	}
	// overwrite clears the operator flag
	if err := store.Set(ctx, "alice", State{NextChip: 94}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	st, _, _ = store.Get(ctx, "alice")
	if st.NextChip != 94 || st.Operator {
		t.Fatalf("state after overwrite %#v", st)
	}
	// independent users
	if err := store.Set(ctx, "bob", State{NextChip: 90}); err != nil {
		t.Fatalf("set bob: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, user := range []string{"alice", "bob"} {
		if _, ok, err := store.Get(ctx, user); err != nil || ok {
			t.Fatalf("%s must be gone after reset: %v %v", user, ok, err)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	defer func() { _ = store.Close() }()
	testStore(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLite(filepath.Join(t.TempDir(), "controls.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	testStore(t, store)
}
