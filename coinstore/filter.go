// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/elements"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Filter selects stored outputs. Every predicate is optional and predicates
// combine conjunctively. By default only unspent outputs match.
//
// Filters are built by chaining the setter methods on a zero Filter or on the
// result of NewFilter:
//
//	f := NewFilter().AssetID(asset).ScriptPubKey(script).Limit(1)
type Filter struct {
	assetID       fn.Option[elements.AssetID]
	scriptPubKey  fn.Option[[]byte]
	source        fn.Option[string]
	requiredValue fn.Option[uint64]
	limit         fn.Option[int64]
	includeSpent  bool
}

// NewFilter returns a filter matching every unspent output.
func NewFilter() Filter {
	return Filter{}
}

// AssetID restricts the filter to outputs of the given asset.
func (f Filter) AssetID(id elements.AssetID) Filter {
	f.assetID = fn.Some(id)
	return f
}

// ScriptPubKey restricts the filter to outputs locked to script.
func (f Filter) ScriptPubKey(script []byte) Filter {
	f.scriptPubKey = fn.Some(append([]byte{}, script...))
	return f
}

// Source restricts the filter to outputs bound to a contract compiled from
// source.
func (f Filter) Source(source string) Filter {
	f.source = fn.Some(source)
	return f
}

// RequiredValue sets the total value the matched outputs must reach for the
// filter to be satisfied.
func (f Filter) RequiredValue(value uint64) Filter {
	f.requiredValue = fn.Some(value)
	return f
}

// Limit caps the number of matched outputs. The cap is applied before the
// matched value is summed. A zero limit removes any cap, so Empty always
// means that no output matched the predicates.
func (f Filter) Limit(n uint32) Filter {
	if n == 0 {
		f.limit = fn.None[int64]()
		return f
	}

	f.limit = fn.Some(int64(n))
	return f
}

// IncludeSpent makes the filter also match spent outputs.
func (f Filter) IncludeSpent() Filter {
	f.includeSpent = true
	return f
}

// Required returns the required value of the filter.
func (f Filter) Required() fn.Option[uint64] {
	return f.requiredValue
}

// String returns a compact description of the filter for logging.
func (f Filter) String() string {
	var parts []string
	f.assetID.WhenSome(func(id elements.AssetID) {
		parts = append(parts, "asset="+id.String())
	})
	f.scriptPubKey.WhenSome(func(script []byte) {
		parts = append(parts, "script="+hex.EncodeToString(script))
	})
	f.source.WhenSome(func(source string) {
		tag := contract.SourceTag(source)
		parts = append(parts, "source="+hex.EncodeToString(tag[:8]))
	})
	f.requiredValue.WhenSome(func(v uint64) {
		parts = append(parts, fmt.Sprintf("required=%d", v))
	})
	f.limit.WhenSome(func(n int64) {
		parts = append(parts, fmt.Sprintf("limit=%d", n))
	})
	if f.includeSpent {
		parts = append(parts, "spent=true")
	}

	return "{" + strings.Join(parts, " ") + "}"
}

// utxoColumns are the columns scanned by scanEntry.
const utxoColumns = `u.txid, u.vout, u.txout, u.txout_witness, u.secrets,
	u.issuance_entropy, u.issuance_blinded, c.id, c.source, c.arguments,
	c.label`

// query returns the statement evaluating the filter and its arguments.
// Outputs are returned in insertion order.
func (f Filter) query() (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	addCond := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !f.includeSpent {
		conds = append(conds, "u.spent = FALSE")
	}
	f.assetID.WhenSome(func(id elements.AssetID) {
		addCond("u.asset_id = $%d", id[:])
	})
	f.scriptPubKey.WhenSome(func(script []byte) {
		addCond("u.script_pubkey = $%d", script)
	})
	f.source.WhenSome(func(source string) {
		tag := contract.SourceTag(source)
		addCond("c.source_tag = $%d", tag[:])
	})

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(utxoColumns)
	b.WriteString(" FROM utxos u LEFT JOIN contracts c " +
		"ON c.script_pubkey = u.script_pubkey")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY u.id ASC")
	f.limit.WhenSome(func(n int64) {
		args = append(args, n)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	})

	return b.String(), args
}
