package shared

import "testing"

func TestRunMigrations(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	for _, table := range []string{"playlists", "playlists_sequence", "completions"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}

	// Applying twice is a no-op.
	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() second run error = %v", err)
	}
}

func TestRollbackMigration(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if err := RollbackMigration(db); err != nil {
		t.Fatalf("RollbackMigration() error = %v", err)
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='completions'").Scan(&name)
	if err == nil {
		t.Error("expected completions table to be dropped")
	}

	if err := RollbackMigration(db); err == nil {
		t.Error("expected error when no migrations remain")
	}
}
