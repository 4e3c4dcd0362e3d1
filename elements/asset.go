// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elements

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// AssetIDSize is the size of an asset identifier in bytes.
const AssetIDSize = 32

// AssetID identifies an issued asset. Like transaction ids, asset ids are
// displayed in reversed byte order.
type AssetID [AssetIDSize]byte

// String returns the asset id as the byte reversed hex string used by block
// explorers and the Elements RPC interface.
func (a AssetID) String() string {
	return chainhash.Hash(a).String()
}

// IsZero reports whether the asset id is all zero bytes.
func (a AssetID) IsZero() bool {
	return a == AssetID{}
}

// NewAssetIDFromStr parses the byte reversed hex representation of an asset
// id.
func NewAssetIDFromStr(s string) (AssetID, error) {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return AssetID{}, fmt.Errorf("invalid asset id %q: %w", s, err)
	}
	if len(s) != 2*AssetIDSize {
		return AssetID{}, fmt.Errorf("invalid asset id %q: want %d hex "+
			"characters, got %d", s, 2*AssetIDSize, len(s))
	}

	return AssetID(*h), nil
}

// Entropy is the 32 byte issuance entropy an asset id and its reissuance
// token are derived from.
type Entropy [32]byte

// String returns the hex encoding of the entropy in internal byte order.
func (e Entropy) String() string {
	return hex.EncodeToString(e[:])
}

// NewEntropyFromStr parses a hex encoded entropy in internal byte order.
func NewEntropyFromStr(s string) (Entropy, error) {
	var e Entropy

	b, err := hex.DecodeString(s)
	if err != nil {
		return e, fmt.Errorf("invalid entropy %q: %w", s, err)
	}
	if len(b) != len(e) {
		return e, fmt.Errorf("invalid entropy %q: want %d bytes, got %d",
			s, len(e), len(b))
	}
	copy(e[:], b)

	return e, nil
}
