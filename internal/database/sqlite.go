package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mdobak/go-xerrors"
	_ "modernc.org/sqlite"

	"github.com/jengzang/practice-backend-go/internal/logging"
)

// Config holds database configuration
type Config struct {
	Path string
}

// DB is a lazily opened sqlite handle owned by the caller.
//
// Every call to Conn probes the underlying connection with an empty
// transaction and reopens it once if the probe fails, so a handle that was
// invalidated underneath the process recovers on the next operation.
type DB struct {
	cfg Config

	mu   sync.Mutex
	conn *sql.DB
}

// New creates a handle. Nothing is opened until first use.
func New(cfg Config) *DB {
	return &DB{cfg: cfg}
}

// Path returns the configured database path
func (d *DB) Path() string {
	return d.cfg.Path
}

// Conn returns a live connection pool, opening or reopening it as needed
func (d *DB) Conn(ctx context.Context) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return d.open(ctx)
	}

	err := probe(ctx, d.conn)
	if err == nil {
		return d.conn, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	err = xerrors.New(err)
	logging.GetLogger().WarnContext(ctx, "database probe failed, reopening",
		slog.String("path", d.Path()), slog.Any("error", err))
	d.conn.Close()
	d.conn = nil
	return d.open(ctx)
}

// Close closes the connection if it was opened
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// Transaction executes a function within a database transaction
func (d *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	conn, err := d.Conn(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (d *DB) open(ctx context.Context) (*sql.DB, error) {
	memory := isMemory(d.cfg.Path)
	if !memory {
		if dir := filepath.Dir(d.cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", d.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		// each connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := NewMigrationManager(conn, Migrations()).RunMigrations(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logging.GetLogger().InfoContext(ctx, "database opened", slog.String("path", d.Path()))
	d.conn = conn
	return conn, nil
}

// probe runs a trivial transaction to check the pool is still usable
func probe(ctx context.Context, conn *sql.DB) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	return tx.Rollback()
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}
