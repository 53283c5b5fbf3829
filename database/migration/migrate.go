// Package migration applies versioned SQL migrations from an fs.FS to a
// sqlite database with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Up applies pending migrations and returns the resulting version. Files in
// dir follow VERSION_name.up.sql / VERSION_name.down.sql.
func Up(db *sql.DB, fsys fs.FS, dir string) (uint, error) {
	m, err := newMigrator(db, fsys, dir)
	if err != nil {
		return 0, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	return version(m)
}

// Down rolls back every migration.
func Down(db *sql.DB, fsys fs.FS, dir string) error {
	m, err := newMigrator(db, fsys, dir)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version reports the applied version; 0 when nothing is applied.
func Version(db *sql.DB, fsys fs.FS, dir string) (uint, error) {
	m, err := newMigrator(db, fsys, dir)
	if err != nil {
		return 0, err
	}
	return version(m)
}

func version(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("migration %d is dirty", v)
	}
	return v, nil
}

// newMigrator must not be followed by m.Close(): it would close db.
func newMigrator(db *sql.DB, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite3 driver: %w", err)
	}
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
