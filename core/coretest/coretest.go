// Package coretest opens throwaway stores for tests.
package coretest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/maeven-tapa/eals/core"
)

// Open creates a fresh database file under t.TempDir and closes it on cleanup.
func Open(t testing.TB) *core.DatabaseManager {
	t.Helper()

	dm, err := core.Open(context.Background(), core.Options{
		Path:     filepath.Join(t.TempDir(), "eals.db"),
		LogLevel: core.LogLevelSilent,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return dm
}
