// Package migrations owns the journal schema. Schema changes ship as numbered
// SQL files embedded in the binary and are applied with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// ErrNoSchema is returned by CheckDBMigrationStatus for a journal that was
// never migrated, which usually means nothing has been watched yet.
var ErrNoSchema = errors.New("journal has no schema version (needs migration)")

// openSource opens the embedded migration files. Every caller closes it.
var openSource = func() (source.Driver, error) {
	return iofs.New(migrationFiles, "files")
}

// CheckDBMigrationStatus verifies that the journal schema is at the version
// this binary expects. Readers call this instead of migrating so they never
// modify a journal they only query.
func CheckDBMigrationStatus(db *sql.DB) error {
	m, src, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m.Close would also close db, which the caller owns, so only the
	// source is released.
	defer src.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return ErrNoSchema
		}
		return fmt.Errorf("failed to get journal schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("journal is in dirty state at version %d (migration failed previously)", version)
	}

	latest, err := LatestVersion()
	if err != nil {
		return err
	}

	switch {
	case version < latest:
		return fmt.Errorf("journal is at version %d but latest is %d (%d migrations behind)",
			version, latest, latest-version)
	case version > latest:
		return fmt.Errorf("journal version %d is ahead of binary version %d (binary needs update)",
			version, latest)
	}
	return nil
}

// MigrateUp applies all pending migrations. It is a no-op on a current journal.
func MigrateUp(db *sql.DB) error {
	m, src, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer src.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// LatestVersion returns the highest schema version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := openSource()
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	latest, err := lastVersion(src)
	if err != nil {
		return 0, fmt.Errorf("failed to determine latest version: %w", err)
	}
	return latest, nil
}

// newMigrate binds the embedded migrations to db. The returned source must be
// closed by the caller once m is no longer used.
func newMigrate(db *sql.DB) (*migrate.Migrate, source.Driver, error) {
	sourceDriver, err := openSource()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, sourceDriver, nil
}

// lastVersion walks the source from its first migration to its last.
func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next reports os.ErrNotExist past the last migration.
			return version, nil
		}
		version = next
	}
}
