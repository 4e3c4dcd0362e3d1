// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"context"
	"database/sql"
	"fmt"
)

// dbVersion encapsulates a version along with the statements that, once
// applied, will reflect the current version of the store.
type dbVersion struct {
	version    uint32
	statements []string
}

// dbVersions represents the different versions of the store, along with the
// migrations allowing them to proceed to said versions.
var dbVersions = []dbVersion{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE utxos (
				id {{serial}},
				txid {{blob}} NOT NULL,
				vout BIGINT NOT NULL,
				script_pubkey {{blob}} NOT NULL,
				asset_id {{blob}} NOT NULL,
				value BIGINT NOT NULL,
				is_confidential BOOLEAN NOT NULL,
				txout {{blob}} NOT NULL,
				txout_witness {{blob}},
				secrets {{blob}},
				spent BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE (txid, vout)
			)`,
			`CREATE INDEX utxos_asset_script_idx
				ON utxos (asset_id, script_pubkey, spent)`,
			`CREATE TABLE asset_entropies (
				id {{serial}},
				name TEXT NOT NULL UNIQUE,
				entropy {{blob}} NOT NULL
			)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE contracts (
				id {{serial}},
				script_pubkey {{blob}} NOT NULL UNIQUE,
				source {{blob}} NOT NULL,
				source_tag {{blob}} NOT NULL,
				arguments {{blob}} NOT NULL,
				label TEXT NOT NULL,
				history {{blob}}
			)`,
			`CREATE INDEX contracts_source_tag_idx
				ON contracts (source_tag)`,
			`CREATE INDEX contracts_label_idx ON contracts (label)`,
		},
	},
	{
		version: 3,
		statements: []string{
			`ALTER TABLE utxos ADD COLUMN issuance_entropy {{blob}}`,
			`ALTER TABLE utxos ADD COLUMN issuance_blinded BOOLEAN`,
		},
	},
}

// getLatestDBVersion retrieves the most recent version of the store.
func getLatestDBVersion() uint32 {
	return dbVersions[len(dbVersions)-1].version
}

// getMigrationsToApply determines the migrations that need to be applied in
// order for the given version to catch up to the latest version.
func getMigrationsToApply(version uint32) []dbVersion {
	var migrations []dbVersion
	for _, dbVersion := range dbVersions {
		if dbVersion.version > version {
			migrations = append(migrations, dbVersion)
		}
	}
	return migrations
}

// currentVersion returns the schema version recorded in the database, or
// zero for a database that was never migrated.
func currentVersion(ctx context.Context, db *sql.DB) (uint32, error) {
	var version uint32
	err := db.QueryRowContext(
		ctx, "SELECT version FROM schema_version",
	).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}

	return version, err
}

// migrate brings the schema up to the latest version. Each version is
// applied in its own transaction together with the version bump.
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS
		schema_version (version BIGINT NOT NULL)`)
	if err != nil {
		return storeError(ErrMigration, "create version table", err)
	}

	version, err := currentVersion(ctx, db)
	if err != nil {
		return storeError(ErrMigration, "read schema version", err)
	}
	if version > getLatestDBVersion() {
		return storeError(ErrMigration, fmt.Sprintf("schema version %d "+
			"is newer than supported version %d", version,
			getLatestDBVersion()), nil)
	}

	for _, m := range getMigrationsToApply(version) {
		if err := applyMigration(ctx, db, d, version, m); err != nil {
			return storeError(ErrMigration, fmt.Sprintf("migrate "+
				"to version %d", m.version), err)
		}
		log.Infof("Migrated %s coin store to version %d", d.engine,
			m.version)
		version = m.version
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, d dialect,
	from uint32, m dbVersion) error {

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, d.ddl(stmt)); err != nil {
			return err
		}
	}

	if from == 0 {
		_, err = tx.ExecContext(
			ctx, "INSERT INTO schema_version (version) VALUES ($1)",
			int64(m.version),
		)
	} else {
		_, err = tx.ExecContext(
			ctx, "UPDATE schema_version SET version = $1",
			int64(m.version),
		)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}
