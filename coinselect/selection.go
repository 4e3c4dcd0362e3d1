// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/dexkit/coinstore/coinstore"
	"github.com/dexkit/coinstore/elements"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrNoInput is wrapped by a MissingInputError when no unspent output
	// of the leg's asset exists.
	ErrNoInput = errors.New("no unspent output")

	// ErrInsufficientInput is wrapped by a MissingInputError when outputs
	// exist but none of them covers the leg's amount.
	ErrInsufficientInput = errors.New("insufficient unspent output value")
)

// Querier evaluates a batch of filters against a single snapshot.
// *coinstore.Store implements it.
type Querier interface {
	QueryUtxos(ctx context.Context,
		filters ...coinstore.Filter) ([]coinstore.QueryResult, error)
}

// Input is a selected output ready to be spent.
type Input struct {
	OutPoint wire.OutPoint
	TxOut    elements.TxOut
	Secrets  fn.Option[elements.TxOutSecrets]
	Asset    elements.AssetID
	Value    uint64
}

// inputFromEntry exports an entry as an Input.
func inputFromEntry(e coinstore.Entry) Input {
	return Input{
		OutPoint: e.OutPoint(),
		TxOut:    e.TxOut(),
		Secrets:  e.Secrets(),
		Asset:    e.Asset().UnwrapOr(elements.AssetID{}),
		Value:    e.Value().UnwrapOr(0),
	}
}

// Leg describes one input a transaction needs.
type Leg struct {
	// Name identifies the leg in errors, such as "filler token".
	Name string

	// Asset is the asset the input must carry.
	Asset elements.AssetID

	// ScriptPubKey is the script the input must be locked to.
	ScriptPubKey []byte

	// Amount is the minimum value of the input. Zero accepts any output.
	Amount uint64
}

// filter returns the store filter matching candidates for the leg.
func (l Leg) filter() coinstore.Filter {
	return coinstore.NewFilter().
		AssetID(l.Asset).
		ScriptPubKey(l.ScriptPubKey).
		RequiredValue(l.Amount)
}

// LegResult is the outcome of selecting a single leg.
type LegResult struct {
	Leg Leg

	// Kind is ResultFound when Input is set. Otherwise it tells whether
	// no candidate existed or none was large enough.
	Kind coinstore.ResultKind

	// Input is the selected output.
	Input fn.Option[Input]

	// Available is the total value of the unreserved candidates.
	Available uint64
}

// Session selects inputs for one transaction. Outputs picked by a session
// are reserved so that later legs of the same session never pick them
// again. A Session is not safe for concurrent use.
type Session struct {
	querier  Querier
	reserved map[wire.OutPoint]struct{}
}

// NewSession returns a session selecting from querier.
func NewSession(querier Querier) *Session {
	return &Session{
		querier:  querier,
		reserved: make(map[wire.OutPoint]struct{}),
	}
}

// Reserved reports whether op was picked by an earlier selection of the
// session.
func (s *Session) Reserved(op wire.OutPoint) bool {
	_, ok := s.reserved[op]
	return ok
}

// Select picks one input per leg. All legs are evaluated against one
// snapshot of the store and processed in order. For every leg the first
// unreserved candidate, in store order, whose value covers the leg amount is
// picked and reserved. Multiple outputs are never merged to reach an amount.
// The Kind of each LegResult is derived from the individual candidates of the
// leg, not taken from the store's classification of their total.
func (s *Session) Select(ctx context.Context, legs ...Leg) ([]LegResult,
	error) {

	filters := make([]coinstore.Filter, len(legs))
	for i, leg := range legs {
		filters[i] = leg.filter()
	}

	results, err := s.querier.QueryUtxos(ctx, filters...)
	if err != nil {
		return nil, err
	}
	if len(results) != len(legs) {
		return nil, fmt.Errorf("querier returned %d results for %d "+
			"filters", len(results), len(legs))
	}

	selected := make([]LegResult, len(legs))
	for i, leg := range legs {
		selected[i] = s.pick(leg, results[i])
	}

	return selected, nil
}

// pick applies the take-first policy to the candidates of one leg.
func (s *Session) pick(leg Leg, result coinstore.QueryResult) LegResult {
	res := LegResult{Leg: leg, Kind: coinstore.ResultEmpty}

	var candidates int
	for _, entry := range result.Entries {
		if s.Reserved(entry.OutPoint()) {
			continue
		}
		candidates++

		value := entry.Value().UnwrapOr(0)
		res.Available += value
		if res.Input.IsSome() || value < leg.Amount {
			continue
		}

		input := inputFromEntry(entry)
		s.reserved[input.OutPoint] = struct{}{}
		res.Input = fn.Some(input)
		res.Kind = coinstore.ResultFound
	}

	if res.Input.IsNone() && candidates > 0 {
		res.Kind = coinstore.ResultInsufficientValue
	}

	log.Debugf("Leg %q: %v (candidates=%d, available=%d, amount=%d)",
		leg.Name, res.Kind, candidates, res.Available, leg.Amount)

	return res
}

// FeeRequest describes the fee input of a transaction.
type FeeRequest struct {
	Asset        elements.AssetID
	ScriptPubKey []byte
	Amount       uint64
}

// SelectFee picks a single input paying at least the requested fee amount.
func (s *Session) SelectFee(ctx context.Context, req FeeRequest) (Input,
	error) {

	bundle, err := s.selectBundle(ctx, "fee", Leg{
		Name:         LegFee,
		Asset:        req.Asset,
		ScriptPubKey: req.ScriptPubKey,
		Amount:       req.Amount,
	})
	if err != nil {
		return Input{}, err
	}
	if err := bundle.Require(); err != nil {
		return Input{}, err
	}

	return bundle.Legs[0].Input.UnsafeFromSome(), nil
}
