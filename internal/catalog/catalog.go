// SPDX-License-Identifier: Apache-2.0

// Package catalog is the relational store of repositories, content items,
// repository files, snapshots, views and sync history: the source of truth
// for what the pool owns and who references it.
package catalog

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/adlio/schema"
	"github.com/jmoiron/sqlx"

	// load the pure-Go sqlite driver
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var migrationsFS embed.FS

// Catalog wraps a sqlx handle to the relational store. One process opens
// one Catalog; callers obtain transactional Sessions from it for each
// logical operation (sync run, snapshot creation, publish, GC pass).
type Catalog struct {
	db   *sqlx.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if necessary) the sqlite database at path and
// applies any pending migrations.
func Open(path string) (*Catalog, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("while opening catalog %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, path: path}

	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return c, nil
}

func (c *Catalog) migrate() error {
	migrations, err := schema.FSMigrations(migrationsFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("while reading catalog migrations: %w", err)
	}

	migrator := schema.NewMigrator(schema.WithDialect(schema.SQLite))
	if err := migrator.Apply(c.db, migrations); err != nil {
		return fmt.Errorf("while applying catalog migrations: %w", err)
	}

	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Session is a transactional handle bound to a single *sqlx.Tx. Every
// operation that mutates more than one table (a sync's metadata + content
// item writes, a snapshot's frozen relationship set) is expected to go
// through one Session so it commits atomically.
type Session struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (c *Catalog) WithTx(ctx context.Context, fn func(*Session) error) (errFn error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if errFn != nil {
			_ = tx.Rollback()
			return
		}
		errFn = tx.Commit()
	}()

	return fn(&Session{tx: tx})
}

// DB exposes the underlying handle for read-only queries that don't need
// transactional semantics (listings, diffing, GC scans).
func (c *Catalog) DB() *sqlx.DB {
	return c.db
}
