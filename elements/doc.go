// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package elements provides the subset of the Elements confidential transaction
model needed to track spendable outputs.

An Elements output carries an asset tag, a value and a nonce, each of which is
either explicit or replaced by a Pedersen commitment. Confidential outputs also
carry a witness holding the surjection and range proofs. The fields are kept in
their consensus encoding, including the one byte prefix that tells explicit and
committed forms apart:

	asset:  0x00 (null) | 0x01 + 32 bytes | 0x0a/0x0b + 32 bytes
	value:  0x00 (null) | 0x01 + 8 bytes big endian | 0x08/0x09 + 32 bytes
	nonce:  0x00 (null) | 0x01 + 32 bytes | 0x02/0x03 + 32 bytes

The package also implements the issuance derivations used to compute asset
identifiers and reissuance tokens from an issuance entropy.
*/
package elements
