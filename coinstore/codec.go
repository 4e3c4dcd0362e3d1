// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dexkit/coinstore/elements"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/tlv"
)

const (
	secretsAssetType         tlv.Type = 1
	secretsValueType         tlv.Type = 2
	secretsAssetBlindingType tlv.Type = 3
	secretsValueBlindingType tlv.Type = 4
	historyActionType        tlv.Type = 1
	historyTxidType          tlv.Type = 2
	historyTimestampType     tlv.Type = 3
)

// encodeSecrets serializes the opening of a confidential output.
func encodeSecrets(s *elements.TxOutSecrets) ([]byte, error) {
	asset := [32]byte(s.Asset)
	value := s.Value
	abf := s.AssetBlindingFactor
	vbf := s.ValueBlindingFactor

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(secretsAssetType, &asset),
		tlv.MakePrimitiveRecord(secretsValueType, &value),
		tlv.MakePrimitiveRecord(secretsAssetBlindingType, &abf),
		tlv.MakePrimitiveRecord(secretsValueBlindingType, &vbf),
	)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	if err := stream.Encode(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// decodeSecrets parses secrets written by encodeSecrets. All four fields are
// mandatory.
func decodeSecrets(b []byte) (elements.TxOutSecrets, error) {
	var (
		asset    [32]byte
		value    uint64
		abf, vbf [32]byte
	)
	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(secretsAssetType, &asset),
		tlv.MakePrimitiveRecord(secretsValueType, &value),
		tlv.MakePrimitiveRecord(secretsAssetBlindingType, &abf),
		tlv.MakePrimitiveRecord(secretsValueBlindingType, &vbf),
	)
	if err != nil {
		return elements.TxOutSecrets{}, err
	}

	parsed, err := stream.DecodeWithParsedTypes(bytes.NewReader(b))
	if err != nil {
		return elements.TxOutSecrets{}, err
	}
	for _, typ := range []tlv.Type{
		secretsAssetType, secretsValueType, secretsAssetBlindingType,
		secretsValueBlindingType,
	} {
		if _, ok := parsed[typ]; !ok {
			return elements.TxOutSecrets{}, fmt.Errorf("secrets "+
				"record %d missing", typ)
		}
	}

	return elements.TxOutSecrets{
		Asset:               elements.AssetID(asset),
		Value:               value,
		AssetBlindingFactor: abf,
		ValueBlindingFactor: vbf,
	}, nil
}

// HistoryEntry is one event in the life of a registered contract.
type HistoryEntry struct {
	// Action names the event, such as "funded" or "settled".
	Action string

	// TxID is the transaction that performed the action, if any.
	TxID fn.Option[chainhash.Hash]

	// Timestamp records when the action happened, with second precision.
	Timestamp time.Time
}

// encodeHistory serializes a contract history as a sequence of length
// prefixed TLV streams.
func encodeHistory(history []HistoryEntry) ([]byte, error) {
	var (
		b   bytes.Buffer
		buf [8]byte
	)
	for _, entry := range history {
		action := []byte(entry.Action)
		timestamp := uint64(entry.Timestamp.Unix())

		records := []tlv.Record{
			tlv.MakePrimitiveRecord(historyActionType, &action),
		}
		if entry.TxID.IsSome() {
			txid := [32]byte(entry.TxID.UnsafeFromSome())
			records = append(records, tlv.MakePrimitiveRecord(
				historyTxidType, &txid,
			))
		}
		records = append(records, tlv.MakePrimitiveRecord(
			historyTimestampType, &timestamp,
		))

		stream, err := tlv.NewStream(records...)
		if err != nil {
			return nil, err
		}

		var inner bytes.Buffer
		if err := stream.Encode(&inner); err != nil {
			return nil, err
		}

		err = tlv.WriteVarInt(&b, uint64(inner.Len()), &buf)
		if err != nil {
			return nil, err
		}
		if _, err := b.Write(inner.Bytes()); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}

// decodeHistory parses a history written by encodeHistory.
func decodeHistory(b []byte) ([]HistoryEntry, error) {
	var (
		r       = bytes.NewReader(b)
		buf     [8]byte
		history []HistoryEntry
	)
	for i := 0; r.Len() > 0; i++ {
		innerLen, err := tlv.ReadVarInt(r, &buf)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		if innerLen > uint64(r.Len()) {
			return nil, fmt.Errorf("history entry %d: length %d "+
				"exceeds remaining %d bytes", i, innerLen, r.Len())
		}

		var (
			action    []byte
			txid      [32]byte
			timestamp uint64
		)
		stream, err := tlv.NewStream(
			tlv.MakePrimitiveRecord(historyActionType, &action),
			tlv.MakePrimitiveRecord(historyTxidType, &txid),
			tlv.MakePrimitiveRecord(historyTimestampType, &timestamp),
		)
		if err != nil {
			return nil, err
		}

		innerReader := &io.LimitedReader{R: r, N: int64(innerLen)}
		parsed, err := stream.DecodeWithParsedTypes(innerReader)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		if innerReader.N != 0 {
			return nil, fmt.Errorf("history entry %d: %d unread "+
				"bytes", i, innerReader.N)
		}

		entry := HistoryEntry{
			Action:    string(action),
			Timestamp: time.Unix(int64(timestamp), 0).UTC(),
		}
		if _, ok := parsed[historyTxidType]; ok {
			entry.TxID = fn.Some(chainhash.Hash(txid))
		}
		history = append(history, entry)
	}

	return history, nil
}
