// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"database/sql"
	"strings"
)

// Engine names a supported SQL backend.
type Engine string

const (
	// EngineSQLite stores outputs in a local SQLite file.
	EngineSQLite Engine = "sqlite"

	// EnginePostgres stores outputs in a PostgreSQL database.
	EnginePostgres Engine = "postgres"
)

// dialect captures the differences between the supported engines. Queries
// use $N placeholders, which both engines accept.
type dialect struct {
	engine Engine

	// driver is the database/sql driver name.
	driver string

	// serialKey is the column definition of an auto incrementing primary
	// key.
	serialKey string

	// blob is the binary column type.
	blob string

	// listTables returns the names of the user tables in the database.
	listTables string

	// lockRows is appended to a SELECT inside a write transaction so the
	// selected rows stay locked until the transaction ends. SQLite write
	// transactions already hold the database lock.
	lockRows string

	// readTxOptions are the options of the snapshot transaction used for
	// reads.
	readTxOptions *sql.TxOptions
}

var (
	sqliteDialect = dialect{
		engine:    EngineSQLite,
		driver:    "sqlite",
		serialKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		blob:      "BLOB",
		listTables: `SELECT name FROM sqlite_master WHERE type = 'table'
			AND name NOT LIKE 'sqlite_%'`,
		lockRows:      "",
		readTxOptions: &sql.TxOptions{ReadOnly: true},
	}

	postgresDialect = dialect{
		engine:    EnginePostgres,
		driver:    "pgx",
		serialKey: "BIGSERIAL PRIMARY KEY",
		blob:      "BYTEA",
		listTables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema()`,
		lockRows: " FOR UPDATE",
		readTxOptions: &sql.TxOptions{
			Isolation: sql.LevelRepeatableRead,
			ReadOnly:  true,
		},
	}
)

// ddl expands the {{serial}} and {{blob}} markers of a schema statement.
func (d dialect) ddl(stmt string) string {
	return strings.NewReplacer(
		"{{serial}}", d.serialKey,
		"{{blob}}", d.blob,
	).Replace(stmt)
}
