// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific StoreError.
const (
	// ErrDatabase indicates an error with the underlying database.  When
	// this error code is set, the Err field of the StoreError will be set
	// to the underlying error returned from the database.
	ErrDatabase ErrorCode = iota

	// ErrStoreAlreadyExists indicates that a store was about to be created
	// at a location that already holds tables.
	ErrStoreAlreadyExists

	// ErrStoreNotFound indicates that no store exists at the location.
	ErrStoreNotFound

	// ErrStoreNotInitialized indicates that the location exists but holds
	// no store tables.
	ErrStoreNotInitialized

	// ErrMigration indicates that a schema migration failed.
	ErrMigration

	// ErrInvalidConfig indicates that the store was opened with an
	// incomplete configuration.
	ErrInvalidConfig

	// ErrUtxoAlreadyExists indicates that an output with the same outpoint
	// is already stored.
	ErrUtxoAlreadyExists

	// ErrUtxoNotFound indicates that the outpoint is not stored.
	ErrUtxoNotFound

	// ErrUtxoAlreadySpent indicates that the outpoint is already marked as
	// spent.
	ErrUtxoAlreadySpent

	// ErrMissingBlindingKey indicates that a confidential output was
	// inserted without the key needed to unblind it.
	ErrMissingBlindingKey

	// ErrMissingTxOutWitness indicates that a confidential output was
	// inserted without its range and surjection proofs.
	ErrMissingTxOutWitness

	// ErrInvalidBlindingKey indicates that the blinding key is not a valid
	// secp256k1 scalar.
	ErrInvalidBlindingKey

	// ErrUnblind indicates that a confidential output could not be opened
	// with the supplied blinding key.
	ErrUnblind

	// ErrAssetNameExists indicates that an entropy is already registered
	// under the name.
	ErrAssetNameExists

	// ErrAssetNameNotFound indicates that no entropy is registered under
	// the name.
	ErrAssetNameNotFound

	// ErrContractNotFound indicates that no contract is registered for the
	// lookup key.
	ErrContractNotFound

	// ErrContractConflict indicates that a different contract is already
	// registered for the script.
	ErrContractConflict

	// ErrCompilation indicates that a contract program failed to compile.
	ErrCompilation

	// ErrDecode indicates that a stored value could not be decoded.
	ErrDecode

	// ErrEncode indicates that a value could not be encoded for storage.
	ErrEncode

	// ErrValueOverflow indicates that an amount does not fit the storage
	// representation or that a sum of amounts overflowed.
	ErrValueOverflow
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDatabase:            "ErrDatabase",
	ErrStoreAlreadyExists:  "ErrStoreAlreadyExists",
	ErrStoreNotFound:       "ErrStoreNotFound",
	ErrStoreNotInitialized: "ErrStoreNotInitialized",
	ErrMigration:           "ErrMigration",
	ErrInvalidConfig:       "ErrInvalidConfig",
	ErrUtxoAlreadyExists:   "ErrUtxoAlreadyExists",
	ErrUtxoNotFound:        "ErrUtxoNotFound",
	ErrUtxoAlreadySpent:    "ErrUtxoAlreadySpent",
	ErrMissingBlindingKey:  "ErrMissingBlindingKey",
	ErrMissingTxOutWitness: "ErrMissingTxOutWitness",
	ErrInvalidBlindingKey:  "ErrInvalidBlindingKey",
	ErrUnblind:             "ErrUnblind",
	ErrAssetNameExists:     "ErrAssetNameExists",
	ErrAssetNameNotFound:   "ErrAssetNameNotFound",
	ErrContractNotFound:    "ErrContractNotFound",
	ErrContractConflict:    "ErrContractConflict",
	ErrCompilation:         "ErrCompilation",
	ErrDecode:              "ErrDecode",
	ErrEncode:              "ErrEncode",
	ErrValueOverflow:       "ErrValueOverflow",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// StoreError provides a single type for errors that can happen during store
// operation.
type StoreError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e StoreError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error, if any.
func (e StoreError) Unwrap() error {
	return e.Err
}

// storeError creates a StoreError given a set of arguments.
func storeError(c ErrorCode, desc string, err error) StoreError {
	return StoreError{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether err is a StoreError with the given code.
func IsError(err error, code ErrorCode) bool {
	var e StoreError
	return errors.As(err, &e) && e.ErrorCode == code
}

// wrapDatabaseError returns err unchanged if it already is a StoreError and
// wraps it as ErrDatabase otherwise.
func wrapDatabaseError(desc string, err error) error {
	var storeErr StoreError
	if errors.As(err, &storeErr) {
		return err
	}

	return storeError(ErrDatabase, desc, err)
}

// isUniqueViolation reports whether err is a unique constraint violation
// raised by either supported engine.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}

	return false
}
