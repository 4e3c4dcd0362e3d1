// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dexkit/coinstore/contract"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ContractParams describes a contract instance to register. Outputs locked to
// ScriptPubKey are bound to the program compiled from Source and Arguments.
type ContractParams struct {
	Source       string
	Arguments    contract.Arguments
	ScriptPubKey []byte
	Label        string
}

// ContractInfo is a registered contract instance.
type ContractInfo struct {
	ScriptPubKey []byte
	Label        string
	Program      *contract.Program
	History      []HistoryEntry
}

// AddContract compiles a contract and binds it to its script. Registering
// the same contract twice is a no-op, while registering a different contract
// for an already bound script fails with ErrContractConflict.
func (tx *WriteTx) AddContract(ctx context.Context, p *ContractParams) error {
	program, err := tx.s.contracts.Add(p.Source, p.Arguments)
	if err != nil {
		return storeError(ErrCompilation, "compile contract", err)
	}

	encodedArgs, err := p.Arguments.Encode()
	if err != nil {
		return storeError(ErrEncode, "encode arguments", err)
	}

	existing, err := tx.lockContract(ctx, p.ScriptPubKey)
	if err != nil {
		return err
	}
	if existing.IsSome() {
		return checkBinding(existing.UnsafeFromSome(), program)
	}

	tag := contract.SourceTag(p.Source)
	res, err := tx.tx.ExecContext(ctx, `INSERT INTO contracts (script_pubkey,
		source, source_tag, arguments, label)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (script_pubkey) DO NOTHING`,
		nonNil(p.ScriptPubKey), []byte(p.Source), tag[:],
		nonNil(encodedArgs), p.Label,
	)
	if err != nil {
		return storeError(ErrDatabase, "insert contract", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError(ErrDatabase, "insert contract", err)
	}

	// A concurrent registration of the same script committed first.
	if n == 0 {
		existing, err := tx.lockContract(ctx, p.ScriptPubKey)
		if err != nil {
			return err
		}
		if existing.IsNone() {
			str := fmt.Sprintf("contract for script %x vanished "+
				"during registration", p.ScriptPubKey)
			return storeError(ErrDatabase, str, nil)
		}

		return checkBinding(existing.UnsafeFromSome(), program)
	}

	log.Debugf("Registered contract %v for script %x (label=%q)",
		program.Key(), p.ScriptPubKey, p.Label)

	return nil
}

// checkBinding accepts an existing registration of program and rejects a
// registration of any other program.
func checkBinding(info *ContractInfo, program *contract.Program) error {
	if info.Program == program {
		return nil
	}

	str := fmt.Sprintf("script %x is bound to another contract",
		info.ScriptPubKey)
	return storeError(ErrContractConflict, str, nil)
}

const contractColumns = "script_pubkey, source, arguments, label, history"

func (tx *ReadTx) scanContract(scan func(...interface{}) error) (
	*ContractInfo, error) {

	var (
		script, source, args, history []byte
		label                         string
	)
	if err := scan(&script, &source, &args, &label, &history); err != nil {
		return nil, err
	}

	program, err := tx.s.contracts.Bind(contract.Row{
		Source:    nonNil(source),
		Arguments: nonNil(args),
	})
	switch {
	case errors.Is(err, contract.ErrCompile):
		str := fmt.Sprintf("compile contract of script %x", script)
		return nil, storeError(ErrCompilation, str, err)

	case err != nil:
		str := fmt.Sprintf("bind contract of script %x", script)
		return nil, storeError(ErrDecode, str, err)
	}

	entries, err := decodeHistory(history)
	if err != nil {
		str := fmt.Sprintf("decode history of script %x", script)
		return nil, storeError(ErrDecode, str, err)
	}

	return &ContractInfo{
		ScriptPubKey: script,
		Label:        label,
		Program:      program.UnsafeFromSome(),
		History:      entries,
	}, nil
}

func (tx *ReadTx) contractByScript(ctx context.Context, script []byte,
	suffix string) (fn.Option[*ContractInfo], error) {

	row := tx.tx.QueryRowContext(ctx, "SELECT "+contractColumns+
		" FROM contracts WHERE script_pubkey = $1"+suffix, nonNil(script))

	info, err := tx.scanContract(row.Scan)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fn.None[*ContractInfo](), nil

	case err != nil:
		return fn.None[*ContractInfo](), wrapDatabaseError(
			"look up contract", err,
		)
	}

	return fn.Some(info), nil
}

// ContractByScriptPubKey returns the contract bound to script.
func (tx *ReadTx) ContractByScriptPubKey(ctx context.Context,
	script []byte) (*ContractInfo, error) {

	info, err := tx.contractByScript(ctx, script, "")
	if err != nil {
		return nil, err
	}

	str := fmt.Sprintf("no contract for script %x", script)
	return info.UnwrapOrErr(storeError(ErrContractNotFound, str, nil))
}

// lockContract reads the contract bound to script and keeps its row locked
// until the transaction ends.
func (tx *WriteTx) lockContract(ctx context.Context,
	script []byte) (fn.Option[*ContractInfo], error) {

	return tx.contractByScript(ctx, script, tx.s.dialect.lockRows)
}

func (tx *ReadTx) listContracts(ctx context.Context, where string,
	arg interface{}) ([]*ContractInfo, error) {

	rows, err := tx.tx.QueryContext(ctx, "SELECT "+contractColumns+
		" FROM contracts WHERE "+where+" ORDER BY id ASC", arg)
	if err != nil {
		return nil, storeError(ErrDatabase, "list contracts", err)
	}
	defer rows.Close()

	var infos []*ContractInfo
	for rows.Next() {
		info, err := tx.scanContract(rows.Scan)
		if err != nil {
			return nil, wrapDatabaseError("scan contract", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(ErrDatabase, "list contracts", err)
	}

	return infos, nil
}

// ContractsByLabel returns the contracts registered under label.
func (tx *ReadTx) ContractsByLabel(ctx context.Context,
	label string) ([]*ContractInfo, error) {

	return tx.listContracts(ctx, "label = $1", label)
}

// ContractsBySource returns the contracts compiled from source, in
// registration order.
func (tx *ReadTx) ContractsBySource(ctx context.Context,
	source string) ([]*ContractInfo, error) {

	tag := contract.SourceTag(source)
	return tx.listContracts(ctx, "source_tag = $1", tag[:])
}

// AppendContractHistory records an action against the contract bound to
// script.
func (tx *WriteTx) AppendContractHistory(ctx context.Context, script []byte,
	action string, txid fn.Option[chainhash.Hash],
	timestamp time.Time) error {

	locked, err := tx.lockContract(ctx, script)
	if err != nil {
		return err
	}
	str := fmt.Sprintf("no contract for script %x", script)
	info, err := locked.UnwrapOrErr(
		storeError(ErrContractNotFound, str, nil),
	)
	if err != nil {
		return err
	}

	history := append(info.History, HistoryEntry{
		Action:    action,
		TxID:      txid,
		Timestamp: timestamp.Truncate(time.Second).UTC(),
	})
	encoded, err := encodeHistory(history)
	if err != nil {
		return storeError(ErrEncode, "encode history", err)
	}

	_, err = tx.tx.ExecContext(ctx, `UPDATE contracts SET history = $1
		WHERE script_pubkey = $2`, encoded, nonNil(script))
	if err != nil {
		return storeError(ErrDatabase, "update history", err)
	}

	log.Debugf("Recorded %q for contract %s", action,
		hex.EncodeToString(script))

	return nil
}

// AddContract registers a contract in its own transaction.
func (s *Store) AddContract(ctx context.Context, p *ContractParams) error {
	err := s.Update(ctx, func(tx *WriteTx) error {
		return tx.AddContract(ctx, p)
	})
	if err != nil {
		recordError("AddContract", err)
		return err
	}

	prometheusContractAdd.Inc()

	return nil
}

// ContractByScriptPubKey returns the contract bound to script.
func (s *Store) ContractByScriptPubKey(ctx context.Context,
	script []byte) (*ContractInfo, error) {

	var info *ContractInfo
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		info, err = tx.ContractByScriptPubKey(ctx, script)
		return err
	})
	recordError("ContractByScriptPubKey", err)

	return info, err
}

// ContractsByLabel returns the contracts registered under label.
func (s *Store) ContractsByLabel(ctx context.Context,
	label string) ([]*ContractInfo, error) {

	var infos []*ContractInfo
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		infos, err = tx.ContractsByLabel(ctx, label)
		return err
	})
	recordError("ContractsByLabel", err)

	return infos, err
}

// ContractsBySource returns the contracts compiled from source.
func (s *Store) ContractsBySource(ctx context.Context,
	source string) ([]*ContractInfo, error) {

	var infos []*ContractInfo
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		infos, err = tx.ContractsBySource(ctx, source)
		return err
	})
	recordError("ContractsBySource", err)

	return infos, err
}

// AppendContractHistory records an action against a contract in its own
// transaction.
func (s *Store) AppendContractHistory(ctx context.Context, script []byte,
	action string, txid fn.Option[chainhash.Hash],
	timestamp time.Time) error {

	err := s.Update(ctx, func(tx *WriteTx) error {
		return tx.AppendContractHistory(
			ctx, script, action, txid, timestamp,
		)
	})
	recordError("AppendContractHistory", err)

	return err
}
