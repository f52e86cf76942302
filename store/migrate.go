package store

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/crocme10/ctl2mimir/ctlerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to the latest version. Logical shape:
// indexes(index_id PK, index_type, data_source, region, status, created_at,
// updated_at) — §6.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return ctlerr.Wrap(ctlerr.Store, err, "could not load embedded migrations")
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return ctlerr.Wrap(ctlerr.Store, err, "could not init migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return ctlerr.Wrap(ctlerr.Store, err, "could not init migration runner")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ctlerr.Wrap(ctlerr.Store, err, "could not run migrations")
	}
	return nil
}
