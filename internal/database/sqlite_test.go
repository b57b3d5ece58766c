package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConnOpensLazilyAndMigrates(t *testing.T) {
	db := New(Config{Path: filepath.Join(t.TempDir(), "nested", "practice.db")})
	defer db.Close()

	if db.conn != nil {
		t.Fatal("expected no connection before first use")
	}

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("Conn returned error: %v", err)
	}
	if _, err := os.Stat(db.Path()); err != nil {
		t.Fatalf("database file not created under a missing directory: %v", err)
	}

	for _, table := range []string{"practice_sessions", "device_identity", "migrations"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	var applied int
	if err := conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", applied)
	}
}

func TestConnReopensAfterUnderlyingClose(t *testing.T) {
	ctx := context.Background()
	db := New(Config{Path: filepath.Join(t.TempDir(), "practice.db")})
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn returned error: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO device_identity (key, value) VALUES ('user_id', 'abc')`); err != nil {
		t.Fatal(err)
	}

	// Invalidate the pool behind the handle's back.
	conn.Close()

	again, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("expected reopen to succeed, got %v", err)
	}
	if again == conn {
		t.Fatal("expected a fresh connection pool")
	}

	var value string
	if err := again.QueryRow(`SELECT value FROM device_identity WHERE key = 'user_id'`).Scan(&value); err != nil {
		t.Fatalf("data lost across reopen: %v", err)
	}
	if value != "abc" {
		t.Fatalf("expected abc, got %q", value)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "practice.db")

	first := New(Config{Path: path})
	if _, err := first.Conn(ctx); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := New(Config{Path: path})
	defer second.Close()
	conn, err := second.Conn(ctx)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	var applied int
	if err := conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", applied)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := New(Config{Path: ":memory:"})
	defer db.Close()

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO device_identity (key, value) VALUES ('k', 'v')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM device_identity`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d rows", n)
	}
}

func TestConnHonoursCancelledContext(t *testing.T) {
	db := New(Config{Path: ":memory:"})
	defer db.Close()
	if _, err := db.Conn(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := db.Conn(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
