package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	l := NewLocal(t.TempDir())
	ctx := context.Background()

	if _, ok := l.Load(ctx, "user-1", "tasks"); ok {
		t.Fatal("empty cache must miss")
	}

	payload := []byte(`[{"id":"a"}]`)
	l.Save(ctx, "user-1", "tasks", payload)

	got, ok := l.Load(ctx, "user-1", "tasks")
	if !ok {
		t.Fatal("expected a hit after save")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload changed: %s", got)
	}

	// Other users and keys stay isolated.
	if _, ok := l.Load(ctx, "user-2", "tasks"); ok {
		t.Fatal("wrong user must miss")
	}
	if _, ok := l.Load(ctx, "user-1", "categories"); ok {
		t.Fatal("wrong key must miss")
	}
}

func TestLocalDiscardsMalformedEntry(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir)
	ctx := context.Background()

	l.Save(ctx, "user-1", "tasks", []byte(`{"ok":true}`))
	path := filepath.Join(dir, "user-1", "tasks.json")
	if err := os.WriteFile(path, []byte("{corrupted"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	// A fresh mirror over the same directory simulates read-after-reload.
	reloaded := NewLocal(dir)
	if _, ok := reloaded.Load(ctx, "user-1", "tasks"); ok {
		t.Fatal("malformed entry must be treated as missing")
	}
	// The corrupted entry is gone, not retried forever.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupted entry must be erased, stat err=%v", err)
	}
}
