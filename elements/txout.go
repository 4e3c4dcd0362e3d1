// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elements

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// nullPrefix marks an absent confidential field.
	nullPrefix = 0x00

	// explicitPrefix marks an explicit asset, value or nonce.
	explicitPrefix = 0x01

	// commitmentSize is the encoded size of any commitment, prefix
	// included.
	commitmentSize = 33

	// explicitValueSize is the encoded size of an explicit value.
	explicitValueSize = 9

	// maxScriptSize bounds the script length accepted while decoding.
	maxScriptSize = 10000

	// maxProofSize bounds the proof lengths accepted while decoding.
	maxProofSize = 1 << 20
)

var (
	// ErrInvalidCommitment is returned when a confidential field carries
	// an unknown prefix or an encoding of the wrong length.
	ErrInvalidCommitment = errors.New("invalid confidential field")
)

// TxOut is an Elements transaction output. Asset, Value and Nonce hold the
// consensus encoding of the respective confidential field.
type TxOut struct {
	Asset        []byte
	Value        []byte
	Nonce        []byte
	ScriptPubKey []byte
}

// Copy returns a deep copy of the output.
func (t *TxOut) Copy() *TxOut {
	return &TxOut{
		Asset:        bytes.Clone(t.Asset),
		Value:        bytes.Clone(t.Value),
		Nonce:        bytes.Clone(t.Nonce),
		ScriptPubKey: bytes.Clone(t.ScriptPubKey),
	}
}

// TxOutWitness holds the proofs attached to a confidential output.
type TxOutWitness struct {
	SurjectionProof []byte
	RangeProof      []byte
}

// IsEmpty reports whether the witness carries no proofs.
func (w *TxOutWitness) IsEmpty() bool {
	return len(w.SurjectionProof) == 0 && len(w.RangeProof) == 0
}

// TxOutSecrets are the opening of a confidential output: the unblinded asset
// and value together with the blinding factors of their commitments.
type TxOutSecrets struct {
	Asset               AssetID
	Value               uint64
	AssetBlindingFactor [32]byte
	ValueBlindingFactor [32]byte
}

// NewExplicitTxOut returns an output with explicit asset and value and a null
// nonce.
func NewExplicitTxOut(asset AssetID, value uint64, pkScript []byte) *TxOut {
	assetField := make([]byte, 1+AssetIDSize)
	assetField[0] = explicitPrefix
	copy(assetField[1:], asset[:])

	valueField := make([]byte, explicitValueSize)
	valueField[0] = explicitPrefix
	binary.BigEndian.PutUint64(valueField[1:], value)

	return &TxOut{
		Asset:        assetField,
		Value:        valueField,
		Nonce:        []byte{nullPrefix},
		ScriptPubKey: pkScript,
	}
}

// NewConfidentialTxOut returns an output with committed asset and value. The
// nonce is the sender's ephemeral public key commitment.
func NewConfidentialTxOut(assetCommitment, valueCommitment, nonce,
	pkScript []byte) (*TxOut, error) {

	out := &TxOut{
		Asset:        assetCommitment,
		Value:        valueCommitment,
		Nonce:        nonce,
		ScriptPubKey: pkScript,
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	if !isCommitment(out.Asset, 0x0a, 0x0b) ||
		!isCommitment(out.Value, 0x08, 0x09) {

		return nil, fmt.Errorf("%w: asset and value must be committed",
			ErrInvalidCommitment)
	}

	return out, nil
}

func isCommitment(field []byte, even, odd byte) bool {
	return len(field) == commitmentSize &&
		(field[0] == even || field[0] == odd)
}

// validate checks every confidential field against its allowed encodings.
func (t *TxOut) validate() error {
	switch {
	case !validField(t.Asset, 1+AssetIDSize, 0x0a, 0x0b):
		return fmt.Errorf("%w: asset", ErrInvalidCommitment)

	case !validField(t.Value, explicitValueSize, 0x08, 0x09):
		return fmt.Errorf("%w: value", ErrInvalidCommitment)

	case !validField(t.Nonce, 1+32, 0x02, 0x03):
		return fmt.Errorf("%w: nonce", ErrInvalidCommitment)
	}

	return nil
}

func validField(field []byte, explicitSize int, even, odd byte) bool {
	if len(field) == 0 {
		return false
	}

	switch field[0] {
	case nullPrefix:
		return len(field) == 1
	case explicitPrefix:
		return len(field) == explicitSize
	case even, odd:
		return len(field) == commitmentSize
	default:
		return false
	}
}

// ExplicitAsset returns the asset id when the asset is explicit.
func (t *TxOut) ExplicitAsset() fn.Option[AssetID] {
	if len(t.Asset) != 1+AssetIDSize || t.Asset[0] != explicitPrefix {
		return fn.None[AssetID]()
	}

	var id AssetID
	copy(id[:], t.Asset[1:])

	return fn.Some(id)
}

// ExplicitValue returns the amount when the value is explicit.
func (t *TxOut) ExplicitValue() fn.Option[uint64] {
	if len(t.Value) != explicitValueSize || t.Value[0] != explicitPrefix {
		return fn.None[uint64]()
	}

	return fn.Some(binary.BigEndian.Uint64(t.Value[1:]))
}

// IsConfidential reports whether either the asset or the value is hidden
// behind a commitment.
func (t *TxOut) IsConfidential() bool {
	return isCommitment(t.Asset, 0x0a, 0x0b) ||
		isCommitment(t.Value, 0x08, 0x09)
}

// IsFee reports whether the output is an explicit fee output, which Elements
// encodes with an empty script.
func (t *TxOut) IsFee() bool {
	return len(t.ScriptPubKey) == 0 && t.ExplicitAsset().IsSome() &&
		t.ExplicitValue().IsSome()
}

// Serialize writes the consensus encoding of the output to w.
func (t *TxOut) Serialize(w io.Writer) error {
	if err := t.validate(); err != nil {
		return err
	}

	for _, field := range [][]byte{t.Asset, t.Value, t.Nonce} {
		if _, err := w.Write(field); err != nil {
			return err
		}
	}

	return wire.WriteVarBytes(w, 0, t.ScriptPubKey)
}

// Deserialize reads the consensus encoding of an output from r.
func (t *TxOut) Deserialize(r io.Reader) error {
	var err error

	t.Asset, err = readConfidentialField(r, 1+AssetIDSize, 0x0a, 0x0b)
	if err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	t.Value, err = readConfidentialField(r, explicitValueSize, 0x08, 0x09)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	t.Nonce, err = readConfidentialField(r, 1+32, 0x02, 0x03)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	t.ScriptPubKey, err = wire.ReadVarBytes(
		r, 0, maxScriptSize, "ScriptPubKey",
	)

	return err
}

func readConfidentialField(r io.Reader, explicitSize int, even,
	odd byte) ([]byte, error) {

	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	var size int
	switch prefix[0] {
	case nullPrefix:
		size = 1
	case explicitPrefix:
		size = explicitSize
	case even, odd:
		size = commitmentSize
	default:
		return nil, fmt.Errorf("%w: unknown prefix 0x%02x",
			ErrInvalidCommitment, prefix[0])
	}

	field := make([]byte, size)
	field[0] = prefix[0]
	if _, err := io.ReadFull(r, field[1:]); err != nil {
		return nil, err
	}

	return field, nil
}

// Bytes returns the consensus encoding of the output.
func (t *TxOut) Bytes() ([]byte, error) {
	var b bytes.Buffer
	if err := t.Serialize(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// TxOutFromBytes decodes an output from its consensus encoding. Trailing data
// is rejected.
func TxOutFromBytes(b []byte) (*TxOut, error) {
	r := bytes.NewReader(b)

	var t TxOut
	if err := t.Deserialize(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after output", r.Len())
	}

	return &t, nil
}

// Serialize writes the witness to w as two length prefixed proofs.
func (w *TxOutWitness) Serialize(wr io.Writer) error {
	if err := wire.WriteVarBytes(wr, 0, w.SurjectionProof); err != nil {
		return err
	}

	return wire.WriteVarBytes(wr, 0, w.RangeProof)
}

// Deserialize reads a witness written by Serialize.
func (w *TxOutWitness) Deserialize(r io.Reader) error {
	var err error

	w.SurjectionProof, err = wire.ReadVarBytes(
		r, 0, maxProofSize, "SurjectionProof",
	)
	if err != nil {
		return err
	}
	w.RangeProof, err = wire.ReadVarBytes(r, 0, maxProofSize, "RangeProof")

	return err
}

// Bytes returns the serialized witness.
func (w *TxOutWitness) Bytes() ([]byte, error) {
	var b bytes.Buffer
	if err := w.Serialize(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// TxOutWitnessFromBytes decodes a witness written by Serialize.
func TxOutWitnessFromBytes(b []byte) (*TxOutWitness, error) {
	r := bytes.NewReader(b)

	var w TxOutWitness
	if err := w.Deserialize(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after witness", r.Len())
	}

	return &w, nil
}
