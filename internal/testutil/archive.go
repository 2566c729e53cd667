package testutil

import (
	"path/filepath"
	"testing"

	"github.com/SaketSinghRajput/honeycomb/internal/archive"
)

// NewTestArchive creates a report archive in a temp dir and registers
// t.Cleanup to close it. Uses TestSigningKey.
func NewTestArchive(t *testing.T) *archive.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := archive.NewStore(filepath.Join(dir, "reports.db"), TestSigningKey)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
