package elements

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// TestIssuanceDerivations checks the relations between an entropy and the
// ids derived from it.
func TestIssuanceDerivations(t *testing.T) {
	t.Parallel()

	prevOut := wire.OutPoint{Hash: chainhash.Hash{0x05, 0xa0}, Index: 1}
	entropy := GenerateAssetEntropy(prevOut, chainhash.Hash{})

	// Derivations are deterministic.
	require.Equal(t, entropy, GenerateAssetEntropy(prevOut, chainhash.Hash{}))

	// The spent outpoint and the contract hash both feed the entropy.
	other := prevOut
	other.Index = 0
	require.NotEqual(t, entropy, GenerateAssetEntropy(other, chainhash.Hash{}))
	require.NotEqual(t, entropy, GenerateAssetEntropy(
		prevOut, chainhash.Hash{0x01},
	))

	asset := AssetIDFromEntropy(entropy)
	token := ReissuanceTokenFromEntropy(entropy, false)
	blindedToken := ReissuanceTokenFromEntropy(entropy, true)

	require.NotEqual(t, asset, token)
	require.NotEqual(t, token, blindedToken)
	require.False(t, asset.IsZero())

	ids := NewIssuanceIDs(entropy, true)
	require.Equal(t, asset, ids.Asset)
	require.Equal(t, blindedToken, ids.Token)
}

// TestMidstateIsNotDigest makes sure the node hash is the raw compression
// output and not a padded digest.
func TestMidstateIsNotDigest(t *testing.T) {
	t.Parallel()

	var left, right [32]byte
	left[0] = 0xaa
	right[31] = 0xbb

	data := append(left[:], right[:]...)
	require.NotEqual(t, [32]byte(chainhash.HashH(data)), midstate(left, right))
	require.Equal(t, midstate(left, right), midstate(left, right))
	require.NotEqual(t, midstate(left, right), midstate(right, left))
}

// TestAssetIDString checks that asset ids are displayed byte reversed.
func TestAssetIDString(t *testing.T) {
	t.Parallel()

	var id AssetID
	id[0] = 0x6f
	id[31] = 0x01

	s := id.String()
	require.Equal(t, "01", s[:2])
	require.Equal(t, "6f", s[62:])

	parsed, err := NewAssetIDFromStr(s)
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = NewAssetIDFromStr("abcd")
	require.Error(t, err)
}

// TestEntropyString checks hex round trips of entropies.
func TestEntropyString(t *testing.T) {
	t.Parallel()

	e := Entropy{0x01, 0x02}
	parsed, err := NewEntropyFromStr(e.String())
	require.NoError(t, err)
	require.Equal(t, e, parsed)

	_, err = NewEntropyFromStr("0102")
	require.Error(t, err)

	_, err = NewEntropyFromStr("zz")
	require.Error(t, err)
}
