// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"context"
	"database/sql"
)

// ReadTx is a read only snapshot of the store. Every read performed through
// one ReadTx observes the same committed state.
type ReadTx struct {
	s  *Store
	tx *sql.Tx
}

// WriteTx is a read-write transaction. Its changes become visible to other
// transactions atomically once the Update closure returns nil.
type WriteTx struct {
	ReadTx
}

// View runs f inside a read only snapshot transaction.
func (s *Store) View(ctx context.Context, f func(*ReadTx) error) error {
	tx, err := s.db.BeginTx(ctx, s.dialect.readTxOptions)
	if err != nil {
		return storeError(ErrDatabase, "begin read transaction", err)
	}

	// Make sure the transaction rolls back in the event of a panic.
	defer func() {
		_ = tx.Rollback()
	}()

	return f(&ReadTx{s: s, tx: tx})
}

// Update runs f inside a read-write transaction. The transaction commits
// only if f returns nil and is rolled back otherwise.
func (s *Store) Update(ctx context.Context, f func(*WriteTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(ErrDatabase, "begin write transaction", err)
	}

	// Make sure the transaction rolls back in the event of a panic.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := f(&WriteTx{ReadTx{s: s, tx: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError(ErrDatabase, "commit transaction", err)
	}

	return nil
}
