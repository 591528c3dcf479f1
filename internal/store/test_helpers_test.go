package store

import (
	"path/filepath"
	"testing"
	"time"
)

// testNow stamps rows written by tests.
var testNow = time.UnixMilli(1_700_000_000_000)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fixedIDs struct {
	ids []string
	n   int
}

func (f *fixedIDs) Generate() string {
	id := f.ids[f.n%len(f.ids)]
	f.n++
	return id
}
