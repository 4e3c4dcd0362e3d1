// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dexkit/coinstore/elements"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// AssetEntropy is an issuance entropy registered under a unique name.
type AssetEntropy struct {
	Name    string
	Entropy elements.Entropy
}

// InsertAssetEntropy registers entropy under name. Names are unique.
func (tx *WriteTx) InsertAssetEntropy(ctx context.Context, name string,
	entropy elements.Entropy) error {

	_, err := tx.tx.ExecContext(ctx, `INSERT INTO asset_entropies
		(name, entropy) VALUES ($1, $2)`, name, entropy[:])
	switch {
	case isUniqueViolation(err):
		str := fmt.Sprintf("asset name %q already registered", name)
		return storeError(ErrAssetNameExists, str, err)

	case err != nil:
		return storeError(ErrDatabase, "insert asset entropy", err)
	}

	log.Debugf("Registered entropy %v as %q", entropy, name)

	return nil
}

func scanAssetEntropy(scan func(...interface{}) error) (AssetEntropy,
	error) {

	var (
		name    string
		entropy []byte
	)
	if err := scan(&name, &entropy); err != nil {
		return AssetEntropy{}, err
	}
	if len(entropy) != len(elements.Entropy{}) {
		str := fmt.Sprintf("invalid entropy length %d for %q",
			len(entropy), name)
		return AssetEntropy{}, storeError(ErrDecode, str, nil)
	}

	return AssetEntropy{Name: name, Entropy: elements.Entropy(entropy)}, nil
}

// QueryAssetEntropies looks up each name and returns one result per name, in
// order. Unknown names yield None.
func (tx *ReadTx) QueryAssetEntropies(ctx context.Context,
	names ...string) ([]fn.Option[AssetEntropy], error) {

	results := make([]fn.Option[AssetEntropy], 0, len(names))
	for _, name := range names {
		row := tx.tx.QueryRowContext(ctx, `SELECT name, entropy FROM
			asset_entropies WHERE name = $1`, name)

		entry, err := scanAssetEntropy(row.Scan)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			results = append(results, fn.None[AssetEntropy]())

		case err != nil:
			return nil, wrapDatabaseError("look up asset entropy",
				err)

		default:
			results = append(results, fn.Some(entry))
		}
	}

	return results, nil
}

// AssetEntropy returns the entropy registered under name.
func (tx *ReadTx) AssetEntropy(ctx context.Context,
	name string) (AssetEntropy, error) {

	results, err := tx.QueryAssetEntropies(ctx, name)
	if err != nil {
		return AssetEntropy{}, err
	}

	str := fmt.Sprintf("asset name %q not registered", name)
	return results[0].UnwrapOrErr(
		storeError(ErrAssetNameNotFound, str, nil),
	)
}

// ListAssetEntropies returns every registered entropy in registration order.
func (tx *ReadTx) ListAssetEntropies(ctx context.Context) ([]AssetEntropy,
	error) {

	rows, err := tx.tx.QueryContext(ctx, `SELECT name, entropy FROM
		asset_entropies ORDER BY id ASC`)
	if err != nil {
		return nil, storeError(ErrDatabase, "list asset entropies", err)
	}
	defer rows.Close()

	var entries []AssetEntropy
	for rows.Next() {
		entry, err := scanAssetEntropy(rows.Scan)
		if err != nil {
			return nil, wrapDatabaseError("scan asset entropy", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(ErrDatabase, "list asset entropies", err)
	}

	return entries, nil
}

// InsertAssetEntropy registers entropy under name in its own transaction.
func (s *Store) InsertAssetEntropy(ctx context.Context, name string,
	entropy elements.Entropy) error {

	err := s.Update(ctx, func(tx *WriteTx) error {
		return tx.InsertAssetEntropy(ctx, name, entropy)
	})
	if err != nil {
		recordError("InsertAssetEntropy", err)
		return err
	}

	prometheusEntropyInsert.Inc()

	return nil
}

// QueryAssetEntropies looks up each name against a single snapshot.
func (s *Store) QueryAssetEntropies(ctx context.Context,
	names ...string) ([]fn.Option[AssetEntropy], error) {

	var results []fn.Option[AssetEntropy]
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		results, err = tx.QueryAssetEntropies(ctx, names...)
		return err
	})
	recordError("QueryAssetEntropies", err)

	return results, err
}

// AssetEntropy returns the entropy registered under name.
func (s *Store) AssetEntropy(ctx context.Context,
	name string) (AssetEntropy, error) {

	var entry AssetEntropy
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		entry, err = tx.AssetEntropy(ctx, name)
		return err
	})
	recordError("AssetEntropy", err)

	return entry, err
}

// ListAssetEntropies returns every registered entropy.
func (s *Store) ListAssetEntropies(ctx context.Context) ([]AssetEntropy,
	error) {

	var entries []AssetEntropy
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		entries, err = tx.ListAssetEntropies(ctx)
		return err
	})
	recordError("ListAssetEntropies", err)

	return entries, err
}
