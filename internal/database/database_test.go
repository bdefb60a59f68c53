package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMigrateIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := OpenMigrated(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenMigrated: %v", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Fatalf("recorded %d migrations, want 2", n)
	}

	for _, table := range []string{"users", "games", "daily_results"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "nested", "worldle.db")

	db, err := OpenMigrated(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenMigrated(%s): %v", dsn, err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}
