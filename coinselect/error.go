// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"fmt"

	"github.com/dexkit/coinstore/coinstore"
	"github.com/dexkit/coinstore/elements"
)

// MissingInputError reports the first leg of a bundle that could not be
// funded.
type MissingInputError struct {
	// Operation names the transaction being built, such as "taker fund".
	Operation string

	// Leg names the unfunded input, such as "filler token".
	Leg string

	// Asset is the asset the leg needed.
	Asset elements.AssetID

	// Kind tells whether no candidate existed or none was large enough.
	Kind coinstore.ResultKind

	// Required is the amount the leg needed.
	Required uint64

	// Available is the unreserved value that was found.
	Available uint64
}

// Error returns a message naming the missing leg.
func (e *MissingInputError) Error() string {
	if e.Kind == coinstore.ResultInsufficientValue {
		return fmt.Sprintf("%s: no single unspent %s covers %d for "+
			"this contract instance (available %d)", e.Operation,
			e.Leg, e.Required, e.Available)
	}

	return fmt.Sprintf("%s: no unspent %s found for this contract "+
		"instance", e.Operation, e.Leg)
}

// Unwrap returns ErrInsufficientInput or ErrNoInput.
func (e *MissingInputError) Unwrap() error {
	if e.Kind == coinstore.ResultInsufficientValue {
		return ErrInsufficientInput
	}

	return ErrNoInput
}
