// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/internal/cfgutil"

	// Register the pgx driver under name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	// Register SQLite driver under name "sqlite".
	_ "modernc.org/sqlite"
)

const (
	// DefaultBusyTimeout is how long SQLite waits for a competing writer
	// before failing a statement.
	DefaultBusyTimeout = 5 * time.Second

	// defaultMaxConns bounds the connection pool of a store.
	defaultMaxConns = 10
)

// Config holds the collaborators and tunables of a store.
type Config struct {
	// Contracts caches the programs bound to stored outputs. Every store
	// sharing a Context hands out the same program instances.
	Contracts *contract.Context

	// Unblinder opens confidential outputs on insert. It may be nil if
	// only explicit outputs are inserted.
	Unblinder Unblinder

	// BusyTimeout overrides DefaultBusyTimeout for SQLite stores.
	BusyTimeout time.Duration

	// MaxConns overrides the default connection pool size.
	MaxConns int
}

// Store indexes spendable outputs in a SQL database.
type Store struct {
	db        *sql.DB
	dialect   dialect
	contracts *contract.Context
	unblinder Unblinder
}

func (cfg *Config) validate() error {
	if cfg.Contracts == nil {
		return storeError(ErrInvalidConfig, "missing contract context",
			nil)
	}

	return nil
}

// sqliteDSN returns the data source name of the SQLite file at path.
func sqliteDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout == 0 {
		busyTimeout = DefaultBusyTimeout
	}

	return fmt.Sprintf("file:%s?_pragma=busy_timeout=%d"+
		"&_pragma=journal_mode=WAL&_pragma=foreign_keys=1"+
		"&_txlock=immediate", path, busyTimeout.Milliseconds())
}

func openDB(ctx context.Context, d dialect, dsn string,
	cfg *Config) (*sql.DB, error) {

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, storeError(ErrDatabase, "open database", err)
	}

	maxConns := cfg.MaxConns
	if maxConns == 0 {
		maxConns = defaultMaxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storeError(ErrDatabase, "connect to database", err)
	}

	return db, nil
}

func newStore(db *sql.DB, d dialect, cfg *Config) *Store {
	initPrometheusMetrics()

	return &Store{
		db:        db,
		dialect:   d,
		contracts: cfg.Contracts,
		unblinder: cfg.Unblinder,
	}
}

// listTables returns the names of the user tables of the database.
func listTables(ctx context.Context, db *sql.DB, d dialect) ([]string,
	error) {

	rows, err := db.QueryContext(ctx, d.listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// Exists reports whether a SQLite store file exists at path. It never
// creates or opens the file.
func Exists(path string) bool {
	exists, err := cfgutil.FileExists(path)
	return err == nil && exists
}

// Create creates a new SQLite store at path and initializes its schema. It
// fails with ErrStoreAlreadyExists if the file already holds any tables.
func Create(ctx context.Context, path string, cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	db, err := openDB(ctx, sqliteDialect, sqliteDSN(path, cfg.BusyTimeout),
		cfg)
	if err != nil {
		return nil, err
	}

	tables, err := listTables(ctx, db, sqliteDialect)
	if err != nil {
		_ = db.Close()
		return nil, storeError(ErrDatabase, "inspect database", err)
	}
	if len(tables) > 0 {
		_ = db.Close()
		str := fmt.Sprintf("store already exists at %s", path)
		return nil, storeError(ErrStoreAlreadyExists, str, nil)
	}

	if err := migrate(ctx, db, sqliteDialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Infof("Created coin store at %s", path)

	return newStore(db, sqliteDialect, cfg), nil
}

// Connect opens the existing SQLite store at path, applying any pending
// migrations. It fails with ErrStoreNotFound if no file exists and with
// ErrStoreNotInitialized if the file holds no store.
func Connect(ctx context.Context, path string, cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !Exists(path) {
		str := fmt.Sprintf("no store at %s", path)
		return nil, storeError(ErrStoreNotFound, str, nil)
	}

	db, err := openDB(ctx, sqliteDialect, sqliteDSN(path, cfg.BusyTimeout),
		cfg)
	if err != nil {
		return nil, err
	}

	if err := connectSchema(ctx, db, sqliteDialect, path); err != nil {
		_ = db.Close()
		return nil, err
	}

	return newStore(db, sqliteDialect, cfg), nil
}

// connectSchema checks that the database holds a store and migrates it.
func connectSchema(ctx context.Context, db *sql.DB, d dialect,
	location string) error {

	tables, err := listTables(ctx, db, d)
	if err != nil {
		return storeError(ErrDatabase, "inspect database", err)
	}

	initialized := false
	for _, table := range tables {
		if table == "schema_version" {
			initialized = true
			break
		}
	}
	if !initialized {
		str := fmt.Sprintf("%s holds no coin store", location)
		return storeError(ErrStoreNotInitialized, str, nil)
	}

	return migrate(ctx, db, d)
}

// OpenPostgres connects to the PostgreSQL database named by dsn. An empty
// database is initialized, while a database that already holds a store is
// migrated to the latest schema.
func OpenPostgres(ctx context.Context, dsn string, cfg *Config) (*Store,
	error) {

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	db, err := openDB(ctx, postgresDialect, dsn, cfg)
	if err != nil {
		return nil, err
	}

	tables, err := listTables(ctx, db, postgresDialect)
	if err != nil {
		_ = db.Close()
		return nil, storeError(ErrDatabase, "inspect database", err)
	}

	if len(tables) == 0 {
		err = migrate(ctx, db, postgresDialect)
	} else {
		err = connectSchema(ctx, db, postgresDialect, "database")
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newStore(db, postgresDialect, cfg), nil
}

// Engine returns the backend of the store.
func (s *Store) Engine() Engine {
	return s.dialect.engine
}

// Contracts returns the program cache of the store.
func (s *Store) Contracts() *contract.Context {
	return s.contracts
}

// Healthcheck verifies that the database is reachable.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeError(ErrDatabase, "ping database", err)
	}

	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storeError(ErrDatabase, "close database", err)
	}

	return nil
}
