// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/elements"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Issuance records the issuance an output belongs to.
type Issuance struct {
	// Entropy is the issuance entropy the asset and token ids derive
	// from.
	Entropy elements.Entropy

	// Blinded records whether the issuance amounts were blinded, which
	// selects the reissuance token id.
	Blinded bool
}

// IDs returns the asset and reissuance token ids of the issuance.
func (i Issuance) IDs() elements.IssuanceIDs {
	return elements.NewIssuanceIDs(i.Entropy, i.Blinded)
}

// Entry is a stored output together with everything the store knows about
// it. An entry built from an explicit output carries no secrets. An entry
// built from a confidential output always carries the secrets that open it.
//
// Entries are values: the With methods return a modified copy and never
// change the receiver.
type Entry struct {
	outPoint  wire.OutPoint
	txOut     elements.TxOut
	secrets   fn.Option[elements.TxOutSecrets]
	program   fn.Option[*contract.Program]
	arguments fn.Option[contract.Arguments]
	issuance  fn.Option[Issuance]
	label     fn.Option[string]
}

// NewExplicitEntry returns an entry for an output with explicit asset and
// value.
func NewExplicitEntry(outPoint wire.OutPoint, txOut *elements.TxOut) Entry {
	return Entry{
		outPoint: outPoint,
		txOut:    *txOut.Copy(),
	}
}

// NewConfidentialEntry returns an entry for a confidential output opened by
// secrets.
func NewConfidentialEntry(outPoint wire.OutPoint, txOut *elements.TxOut,
	secrets elements.TxOutSecrets) Entry {

	return Entry{
		outPoint: outPoint,
		txOut:    *txOut.Copy(),
		secrets:  fn.Some(secrets),
	}
}

// WithContract returns a copy of the entry bound to program. The arguments
// of the program become the arguments of the entry.
func (e Entry) WithContract(program *contract.Program) Entry {
	e.program = fn.Some(program)
	e.arguments = fn.Some(program.Arguments())

	return e
}

// WithArguments returns a copy of the entry carrying args.
func (e Entry) WithArguments(args contract.Arguments) Entry {
	e.arguments = fn.Some(args.Clone())
	return e
}

// WithIssuance returns a copy of the entry recording the issuance it belongs
// to.
func (e Entry) WithIssuance(entropy elements.Entropy, blinded bool) Entry {
	e.issuance = fn.Some(Issuance{Entropy: entropy, Blinded: blinded})
	return e
}

// WithLabel returns a copy of the entry carrying a contract label.
func (e Entry) WithLabel(label string) Entry {
	e.label = fn.Some(label)
	return e
}

// OutPoint returns the outpoint of the entry.
func (e Entry) OutPoint() wire.OutPoint {
	return e.outPoint
}

// TxOut returns a deep copy of the stored output.
func (e Entry) TxOut() elements.TxOut {
	return *e.txOut.Copy()
}

// Secrets returns the opening of a confidential output.
func (e Entry) Secrets() fn.Option[elements.TxOutSecrets] {
	return e.secrets
}

// IsConfidential reports whether the entry was built from a confidential
// output.
func (e Entry) IsConfidential() bool {
	return e.secrets.IsSome()
}

// Asset returns the asset of the output, taken from the secrets when present
// and from the explicit field otherwise.
func (e Entry) Asset() fn.Option[elements.AssetID] {
	if e.secrets.IsSome() {
		return fn.Some(e.secrets.UnsafeFromSome().Asset)
	}

	return e.txOut.ExplicitAsset()
}

// Value returns the amount of the output, taken from the secrets when
// present and from the explicit field otherwise.
func (e Entry) Value() fn.Option[uint64] {
	if e.secrets.IsSome() {
		return fn.Some(e.secrets.UnsafeFromSome().Value)
	}

	return e.txOut.ExplicitValue()
}

// Contract returns the compiled program bound to the output.
func (e Entry) Contract() fn.Option[*contract.Program] {
	return e.program
}

// IsBound reports whether the output is bound to a contract program.
func (e Entry) IsBound() bool {
	return e.program.IsSome()
}

// Arguments returns a copy of the arguments bound to the output.
func (e Entry) Arguments() fn.Option[contract.Arguments] {
	if e.arguments.IsNone() {
		return e.arguments
	}

	return fn.Some(e.arguments.UnsafeFromSome().Clone())
}

// Issuance returns the issuance the output belongs to.
func (e Entry) Issuance() fn.Option[Issuance] {
	return e.issuance
}

// IssuanceIDs returns the asset and token ids of the issuance the output
// belongs to.
func (e Entry) IssuanceIDs() fn.Option[elements.IssuanceIDs] {
	if e.issuance.IsNone() {
		return fn.None[elements.IssuanceIDs]()
	}

	return fn.Some(e.issuance.UnsafeFromSome().IDs())
}

// Label returns the label of the contract the output is bound to.
func (e Entry) Label() fn.Option[string] {
	return e.label
}

// ResultKind classifies the outcome of evaluating a filter.
type ResultKind uint8

const (
	// ResultEmpty means no unspent output matched the filter.
	ResultEmpty ResultKind = iota

	// ResultInsufficientValue means outputs matched but their total is
	// below the required value.
	ResultInsufficientValue

	// ResultFound means outputs matched and cover any required value.
	ResultFound
)

// String returns the result kind as used in logs and metrics.
func (k ResultKind) String() string {
	switch k {
	case ResultEmpty:
		return "empty"
	case ResultInsufficientValue:
		return "insufficient_value"
	case ResultFound:
		return "found"
	default:
		return "unknown"
	}
}

// QueryResult is the outcome of a single filter. Entries is empty for
// ResultEmpty and holds the matching outputs, in tie-break order, for the
// other kinds.
type QueryResult struct {
	Kind    ResultKind
	Entries []Entry

	// Total is the sum of the values of Entries.
	Total uint64
}

// Found reports whether the filter was satisfied.
func (r QueryResult) Found() bool {
	return r.Kind == ResultFound
}

// classify builds the result of a filter from the outputs it matched,
// already capped by the filter limit.
func classify(entries []Entry, required fn.Option[uint64]) (QueryResult,
	error) {

	if len(entries) == 0 {
		return QueryResult{Kind: ResultEmpty}, nil
	}

	var total uint64
	for _, entry := range entries {
		value := entry.Value().UnwrapOr(0)
		if total+value < total {
			return QueryResult{}, storeError(
				ErrValueOverflow, "matched value overflows", nil,
			)
		}
		total += value
	}

	kind := ResultFound
	if required.IsSome() && total < required.UnsafeFromSome() {
		kind = ResultInsufficientValue
	}

	return QueryResult{Kind: kind, Entries: entries, Total: total}, nil
}
