// Package scenario is a catalog of named scenario definitions — host/link
// topology descriptions and the actor mix to spawn, stored so a run can be
// replayed by name from the CLI. It deliberately stores only the
// definitions, never simulation runtime state (spec.md's Non-goal: "no
// persistence of simulation state across runs").
package scenario

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlite_migrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultMaxConns        = 5
	defaultConnMaxLifetime = 10 * time.Minute
)

// Store is a SQLite-backed scenario catalog.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the catalog database at path and
// brings its schema up to date.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("scenario: create dir: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("scenario: open: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxConns)
	db.SetMaxIdleConns(defaultMaxConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	src, err := iofs.New(sqlSchemas, "migrations")
	if err != nil {
		return fmt.Errorf("scenario: migration source: %w", err)
	}

	driver, err := sqlite_migrate.WithInstance(s.db, &sqlite_migrate.Config{})
	if err != nil {
		return fmt.Errorf("scenario: migration driver: %w", err)
	}

	mig, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("scenario: migrate init: %w", err)
	}

	log.Debugf("scenario: applying migrations")

	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("scenario: migrate up: %w", err)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
