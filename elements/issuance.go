// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elements

import (
	"crypto/sha256"
	"encoding"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// sha256StateMagic prefixes the marshaled state of a crypto/sha256 digest.
const sha256StateMagic = "sha\x03"

// midstate returns the SHA-256 chaining value after compressing exactly one
// 64 byte block, with no padding applied. Elements uses this as the node hash
// of its fast merkle tree.
func midstate(left, right [32]byte) [32]byte {
	h := sha256.New()
	_, _ = h.Write(left[:])
	_, _ = h.Write(right[:])

	// The marshaled state is the magic prefix followed by the eight state
	// words in big endian order. With a full block consumed there is no
	// pending data, so the words are the midstate.
	state, err := h.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil || len(state) < len(sha256StateMagic)+32 ||
		string(state[:len(sha256StateMagic)]) != sha256StateMagic {

		panic("elements: unexpected sha256 state encoding")
	}

	var out [32]byte
	copy(out[:], state[len(sha256StateMagic):len(sha256StateMagic)+32])

	return out
}

// AssetIDFromEntropy derives the asset id issued with the given entropy.
func AssetIDFromEntropy(entropy Entropy) AssetID {
	return AssetID(midstate(entropy, [32]byte{}))
}

// ReissuanceTokenFromEntropy derives the reissuance token id for the given
// entropy. The token id depends on whether the issuance amounts were blinded.
func ReissuanceTokenFromEntropy(entropy Entropy, confidential bool) AssetID {
	var leaf [32]byte
	leaf[0] = 1
	if confidential {
		leaf[0] = 2
	}

	return AssetID(midstate(entropy, leaf))
}

// GenerateAssetEntropy computes the entropy of a new issuance from the
// outpoint spent by the issuing input and the issuer's contract hash.
func GenerateAssetEntropy(prevOut wire.OutPoint,
	contractHash chainhash.Hash) Entropy {

	var ser [chainhash.HashSize + 4]byte
	copy(ser[:], prevOut.Hash[:])
	binary.LittleEndian.PutUint32(ser[chainhash.HashSize:], prevOut.Index)

	return Entropy(midstate(chainhash.DoubleHashH(ser[:]), contractHash))
}

// IssuanceIDs holds the identifiers derived from an issuance entropy.
type IssuanceIDs struct {
	// Asset is the id of the issued asset.
	Asset AssetID

	// Token is the id of the reissuance token.
	Token AssetID
}

// NewIssuanceIDs derives the asset and reissuance token ids of an issuance.
func NewIssuanceIDs(entropy Entropy, confidential bool) IssuanceIDs {
	return IssuanceIDs{
		Asset: AssetIDFromEntropy(entropy),
		Token: ReissuanceTokenFromEntropy(entropy, confidential),
	}
}
