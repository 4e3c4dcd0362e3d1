// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/elements"
	"github.com/dexkit/coinstore/internal/zero"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Unblinder opens confidential outputs. Implementations rewind the range
// proof of the output with the ECDH secret shared between the blinding key
// and the output nonce.
type Unblinder interface {
	Unblind(txOut *elements.TxOut, witness *elements.TxOutWitness,
		blindingKey *btcec.PrivateKey) (elements.TxOutSecrets, error)
}

// UnblinderFunc adapts a plain function to the Unblinder interface.
type UnblinderFunc func(*elements.TxOut, *elements.TxOutWitness,
	*btcec.PrivateKey) (elements.TxOutSecrets, error)

// Unblind calls f(txOut, witness, blindingKey).
func (f UnblinderFunc) Unblind(txOut *elements.TxOut,
	witness *elements.TxOutWitness,
	blindingKey *btcec.PrivateKey) (elements.TxOutSecrets, error) {

	return f(txOut, witness, blindingKey)
}

// InsertParams describes an output to add to the store.
type InsertParams struct {
	// OutPoint identifies the output.
	OutPoint wire.OutPoint

	// TxOut is the output itself.
	TxOut *elements.TxOut

	// Witness holds the proofs of a confidential output. It is required
	// for confidential outputs and optional otherwise.
	Witness *elements.TxOutWitness

	// BlindingKey is the 32 byte secret key that opens a confidential
	// output. It is ignored for explicit outputs.
	BlindingKey []byte

	// Issuance records the issuance the output belongs to, if any.
	Issuance fn.Option[Issuance]
}

// parseBlindingKey validates a serialized blinding key.
func parseBlindingKey(b []byte) (*btcec.PrivateKey, error) {
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("want %d bytes, got %d",
			btcec.PrivKeyBytesLen, len(b))
	}

	var keyBytes [btcec.PrivKeyBytesLen]byte
	copy(keyBytes[:], b)
	defer zero.Bytea32(&keyBytes)

	var scalar btcec.ModNScalar
	overflow := scalar.SetBytes(&keyBytes)
	defer scalar.Zero()
	if overflow != 0 || scalar.IsZero() {
		return nil, errors.New("key is not a valid scalar")
	}

	key, _ := btcec.PrivKeyFromBytes(keyBytes[:])

	return key, nil
}

// resolved is an output ready to be written.
type resolved struct {
	asset   elements.AssetID
	value   uint64
	secrets []byte
	witness []byte
}

// resolve extracts the asset and value of an output, unblinding it when it is
// confidential.
func (tx *WriteTx) resolve(p *InsertParams) (*resolved, error) {
	var r resolved

	if p.Witness != nil && !p.Witness.IsEmpty() {
		witness, err := p.Witness.Bytes()
		if err != nil {
			return nil, storeError(ErrEncode, "encode witness", err)
		}
		r.witness = witness
	}

	if !p.TxOut.IsConfidential() {
		asset := p.TxOut.ExplicitAsset()
		value := p.TxOut.ExplicitValue()
		if asset.IsNone() || value.IsNone() {
			return nil, storeError(ErrEncode, "output has neither "+
				"explicit nor committed asset and value", nil)
		}
		r.asset = asset.UnsafeFromSome()
		r.value = value.UnsafeFromSome()

		return &r, nil
	}

	if len(p.BlindingKey) == 0 {
		str := fmt.Sprintf("confidential output %v requires a "+
			"blinding key", p.OutPoint)
		return nil, storeError(ErrMissingBlindingKey, str, nil)
	}
	if r.witness == nil {
		str := fmt.Sprintf("confidential output %v requires a "+
			"witness", p.OutPoint)
		return nil, storeError(ErrMissingTxOutWitness, str, nil)
	}

	key, err := parseBlindingKey(p.BlindingKey)
	if err != nil {
		return nil, storeError(ErrInvalidBlindingKey, "parse blinding "+
			"key", err)
	}
	defer key.Zero()

	if tx.s.unblinder == nil {
		return nil, storeError(ErrUnblind, "no unblinder configured",
			nil)
	}
	secrets, err := tx.s.unblinder.Unblind(p.TxOut, p.Witness, key)
	if err != nil {
		str := fmt.Sprintf("unblind output %v", p.OutPoint)
		return nil, storeError(ErrUnblind, str, err)
	}

	defer zero.Bytea32(&secrets.AssetBlindingFactor)
	defer zero.Bytea32(&secrets.ValueBlindingFactor)

	r.secrets, err = encodeSecrets(&secrets)
	if err != nil {
		return nil, storeError(ErrEncode, "encode secrets", err)
	}
	r.asset = secrets.Asset
	r.value = secrets.Value

	return &r, nil
}

// nullBytes maps a nil slice to a SQL NULL.
func nullBytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return b
}

// Insert adds an output to the store. Confidential outputs are unblinded
// first so their asset and value can be queried.
func (tx *WriteTx) Insert(ctx context.Context, p *InsertParams) error {
	if p == nil || p.TxOut == nil {
		return storeError(ErrEncode, "missing output", nil)
	}

	r, err := tx.resolve(p)
	if err != nil {
		return err
	}
	if r.value > math.MaxInt64 {
		str := fmt.Sprintf("value %d of output %v exceeds the "+
			"storable range", r.value, p.OutPoint)
		return storeError(ErrValueOverflow, str, nil)
	}

	txOut, err := p.TxOut.Bytes()
	if err != nil {
		return storeError(ErrEncode, "encode output", err)
	}

	var (
		entropy interface{}
		blinded interface{}
	)
	p.Issuance.WhenSome(func(i Issuance) {
		entropy = i.Entropy[:]
		blinded = i.Blinded
	})

	_, err = tx.tx.ExecContext(ctx, `INSERT INTO utxos (txid, vout,
		script_pubkey, asset_id, value, is_confidential, txout,
		txout_witness, secrets, issuance_entropy, issuance_blinded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.OutPoint.Hash[:], int64(p.OutPoint.Index),
		nonNil(p.TxOut.ScriptPubKey), r.asset[:], int64(r.value),
		r.secrets != nil, txOut, nullBytes(r.witness),
		nullBytes(r.secrets), entropy, blinded,
	)
	switch {
	case isUniqueViolation(err):
		str := fmt.Sprintf("output %v already exists", p.OutPoint)
		return storeError(ErrUtxoAlreadyExists, str, err)

	case err != nil:
		return storeError(ErrDatabase, "insert output", err)
	}

	log.Debugf("Inserted output %v (asset=%v, value=%d, confidential=%v)",
		p.OutPoint, r.asset, r.value, r.secrets != nil)

	return nil
}

// MarkAsSpent flags a stored output as spent. Spent outputs remain in the
// store but no longer match filters by default.
func (tx *WriteTx) MarkAsSpent(ctx context.Context, op wire.OutPoint) error {
	res, err := tx.tx.ExecContext(ctx, `UPDATE utxos SET spent = TRUE
		WHERE txid = $1 AND vout = $2 AND spent = FALSE`,
		op.Hash[:], int64(op.Index),
	)
	if err != nil {
		return storeError(ErrDatabase, "mark output spent", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storeError(ErrDatabase, "mark output spent", err)
	}
	if n == 1 {
		log.Debugf("Marked output %v spent", op)
		return nil
	}

	var exists bool
	err = tx.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM utxos
		WHERE txid = $1 AND vout = $2)`, op.Hash[:], int64(op.Index),
	).Scan(&exists)
	if err != nil {
		return storeError(ErrDatabase, "look up output", err)
	}
	if exists {
		str := fmt.Sprintf("output %v already spent", op)
		return storeError(ErrUtxoAlreadySpent, str, nil)
	}

	str := fmt.Sprintf("output %v not found", op)
	return storeError(ErrUtxoNotFound, str, nil)
}

// QueryUtxos evaluates every filter against this snapshot and returns one
// result per filter, in order.
func (tx *ReadTx) QueryUtxos(ctx context.Context,
	filters ...Filter) ([]QueryResult, error) {

	results := make([]QueryResult, 0, len(filters))
	for _, f := range filters {
		entries, err := tx.queryEntries(ctx, f)
		if err != nil {
			return nil, err
		}

		result, err := classify(entries, f.requiredValue)
		if err != nil {
			return nil, err
		}

		log.Tracef("Filter %v matched %d outputs worth %d: %v", f,
			len(result.Entries), result.Total, result.Kind)
		results = append(results, result)
	}

	return results, nil
}

func (tx *ReadTx) queryEntries(ctx context.Context, f Filter) ([]Entry,
	error) {

	stmt, args := f.query()
	rows, err := tx.tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, storeError(ErrDatabase, "query outputs", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := tx.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(ErrDatabase, "query outputs", err)
	}

	return entries, nil
}

// nonNil returns b, or an empty slice if b is nil.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// scanEntry reads one row selected with utxoColumns.
func (tx *ReadTx) scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		txid, txOutBytes, secretBytes, entropy []byte
		witness, source, args                  []byte
		vout                                   int64
		blinded                                sql.NullBool
		contractID                             sql.NullInt64
		label                                  sql.NullString
	)
	err := rows.Scan(
		&txid, &vout, &txOutBytes, &witness, &secretBytes, &entropy,
		&blinded, &contractID, &source, &args, &label,
	)
	if err != nil {
		return Entry{}, storeError(ErrDatabase, "scan output", err)
	}

	if len(txid) != chainhash.HashSize {
		return Entry{}, storeError(ErrDecode, fmt.Sprintf("invalid "+
			"txid length %d", len(txid)), nil)
	}
	var op wire.OutPoint
	copy(op.Hash[:], txid)
	op.Index = uint32(vout)

	txOut, err := elements.TxOutFromBytes(txOutBytes)
	if err != nil {
		str := fmt.Sprintf("decode output %v", op)
		return Entry{}, storeError(ErrDecode, str, err)
	}

	var entry Entry
	if secretBytes != nil {
		secrets, err := decodeSecrets(secretBytes)
		if err != nil {
			str := fmt.Sprintf("decode secrets of %v", op)
			return Entry{}, storeError(ErrDecode, str, err)
		}
		entry = NewConfidentialEntry(op, txOut, secrets)
	} else {
		entry = NewExplicitEntry(op, txOut)
	}

	if entropy != nil {
		if len(entropy) != len(elements.Entropy{}) {
			str := fmt.Sprintf("invalid issuance entropy of %v", op)
			return Entry{}, storeError(ErrDecode, str, nil)
		}
		entry = entry.WithIssuance(
			elements.Entropy(entropy), blinded.Valid && blinded.Bool,
		)
	}

	if !contractID.Valid {
		return entry, nil
	}

	program, err := tx.s.contracts.Bind(contract.Row{
		Source:    nonNil(source),
		Arguments: nonNil(args),
	})
	switch {
	case errors.Is(err, contract.ErrCompile):
		str := fmt.Sprintf("compile contract of %v", op)
		return Entry{}, storeError(ErrCompilation, str, err)

	case err != nil:
		str := fmt.Sprintf("decode contract of %v", op)
		return Entry{}, storeError(ErrDecode, str, err)
	}

	program.WhenSome(func(p *contract.Program) {
		entry = entry.WithContract(p)
	})
	if label.Valid {
		entry = entry.WithLabel(label.String)
	}

	return entry, nil
}

// Insert adds a single output in its own transaction.
func (s *Store) Insert(ctx context.Context, p *InsertParams) error {
	err := s.Update(ctx, func(tx *WriteTx) error {
		return tx.Insert(ctx, p)
	})
	if err != nil {
		recordError("Insert", err)
		return err
	}

	prometheusUtxoInsert.Inc()

	return nil
}

// MarkAsSpent flags a single output as spent in its own transaction.
func (s *Store) MarkAsSpent(ctx context.Context, op wire.OutPoint) error {
	err := s.Update(ctx, func(tx *WriteTx) error {
		return tx.MarkAsSpent(ctx, op)
	})
	if err != nil {
		recordError("MarkAsSpent", err)
		return err
	}

	prometheusUtxoSpend.Inc()

	return nil
}

// ApplyTransaction marks the inputs of a transaction spent and inserts its
// outputs atomically. Either every change is applied or none is.
func (s *Store) ApplyTransaction(ctx context.Context, spends []wire.OutPoint,
	outputs []*InsertParams) error {

	err := s.Update(ctx, func(tx *WriteTx) error {
		for _, op := range spends {
			if err := tx.MarkAsSpent(ctx, op); err != nil {
				return err
			}
		}
		for _, p := range outputs {
			if err := tx.Insert(ctx, p); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		recordError("ApplyTransaction", err)
		return err
	}

	prometheusUtxoSpend.Add(float64(len(spends)))
	prometheusUtxoInsert.Add(float64(len(outputs)))

	return nil
}

// QueryUtxos evaluates the filters against a single snapshot of the store
// and returns one result per filter, in order.
func (s *Store) QueryUtxos(ctx context.Context,
	filters ...Filter) ([]QueryResult, error) {

	var results []QueryResult
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		results, err = tx.QueryUtxos(ctx, filters...)
		return err
	})
	if err != nil {
		recordError("QueryUtxos", err)
		return nil, err
	}

	prometheusUtxoQuery.Add(float64(len(filters)))
	for _, result := range results {
		prometheusUtxoQueryResults.WithLabelValues(
			result.Kind.String(),
		).Inc()
	}

	return results, nil
}
