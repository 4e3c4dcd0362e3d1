package coinstore

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dexkit/coinstore/elements"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestSecretsEncoding checks that every secrets field is mandatory.
func TestSecretsEncoding(t *testing.T) {
	t.Parallel()

	secrets := elements.TxOutSecrets{
		Asset:               elements.AssetID{0x01},
		Value:               1 << 40,
		AssetBlindingFactor: [32]byte{0x02},
		ValueBlindingFactor: [32]byte{0x03},
	}
	b, err := encodeSecrets(&secrets)
	require.NoError(t, err)

	decoded, err := decodeSecrets(b)
	require.NoError(t, err)
	require.Equal(t, secrets, decoded)

	// Drop the trailing value blinding factor record.
	_, err = decodeSecrets(b[:len(b)-34])
	require.Error(t, err)

	_, err = decodeSecrets(b[:10])
	require.Error(t, err)
}

// TestHistoryEncoding checks entries with and without a transaction id.
func TestHistoryEncoding(t *testing.T) {
	t.Parallel()

	history := []HistoryEntry{
		{
			Action:    "funded",
			TxID:      fn.Some(chainhash.Hash{0x01}),
			Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		},
		{
			Action:    "",
			Timestamp: time.Unix(0, 0).UTC(),
		},
	}
	b, err := encodeHistory(history)
	require.NoError(t, err)

	decoded, err := decodeHistory(b)
	require.NoError(t, err)
	require.Equal(t, history, decoded)

	empty, err := decodeHistory(nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = decodeHistory(b[:len(b)-1])
	require.Error(t, err)
}
