package coinstore

import (
	"testing"

	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/elements"
	"github.com/stretchr/testify/require"
)

// TestEntryAccessors checks that secrets take precedence over explicit
// fields and that With methods leave the receiver untouched.
func TestEntryAccessors(t *testing.T) {
	t.Parallel()

	op := testOutPoint(1, 2)
	txOut := elements.NewExplicitTxOut(testAsset, 10, testScript)

	explicit := NewExplicitEntry(op, txOut)
	require.Equal(t, op, explicit.OutPoint())
	require.False(t, explicit.IsConfidential())
	require.Equal(t, uint64(10), explicit.Value().UnwrapOr(0))

	secrets := elements.TxOutSecrets{Asset: testAsset2, Value: 99}
	confidential := NewConfidentialEntry(op, txOut, secrets)
	require.True(t, confidential.IsConfidential())
	require.Equal(t, testAsset2, confidential.Asset().UnwrapOr(
		elements.AssetID{},
	))
	require.Equal(t, uint64(99), confidential.Value().UnwrapOr(0))

	labeled := explicit.WithLabel("l").WithIssuance(elements.Entropy{1}, false)
	require.True(t, explicit.Label().IsNone())
	require.True(t, explicit.Issuance().IsNone())
	require.Equal(t, "l", labeled.Label().UnwrapOr(""))
	require.Equal(t,
		elements.NewIssuanceIDs(elements.Entropy{1}, false),
		labeled.IssuanceIDs().UnwrapOr(elements.IssuanceIDs{}),
	)

	args := contract.Arguments{"X": {0x01}}
	withArgs := explicit.WithArguments(args)
	args["X"][0] = 0x02
	require.Equal(t, []byte{0x01}, withArgs.Arguments().UnwrapOr(nil)["X"])
	require.False(t, withArgs.IsBound())

	program, err := contract.NewContext(testCompiler).Add("src", args)
	require.NoError(t, err)
	bound := explicit.WithContract(program)
	require.True(t, bound.IsBound())
	require.Same(t, program, bound.Contract().UnwrapOr(nil))
	require.True(t, args.Equal(bound.Arguments().UnwrapOr(nil)))
}

// TestEntryOwnsTxOut checks that neither the caller's output nor a returned
// copy shares memory with the entry.
func TestEntryOwnsTxOut(t *testing.T) {
	t.Parallel()

	script := []byte{0x00, 0x14, 0x0a}
	txOut := elements.NewExplicitTxOut(testAsset, 10, script)
	entry := NewExplicitEntry(testOutPoint(1, 0), txOut)

	txOut.ScriptPubKey[0] = 0xff
	txOut.Value[1] = 0xff

	got := entry.TxOut()
	require.Equal(t, []byte{0x00, 0x14, 0x0a}, got.ScriptPubKey)
	require.Equal(t, uint64(10), entry.Value().UnwrapOr(0))

	got.ScriptPubKey[0] = 0xee
	got.Asset[1] = 0xee

	again := entry.TxOut()
	require.Equal(t, byte(0x00), again.ScriptPubKey[0])
	require.Equal(t, testAsset, entry.Asset().UnwrapOr(elements.AssetID{}))
}

// TestResultKindString checks the metric labels of result kinds.
func TestResultKindString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "empty", ResultEmpty.String())
	require.Equal(t, "insufficient_value", ResultInsufficientValue.String())
	require.Equal(t, "found", ResultFound.String())
	require.Equal(t, "unknown", ResultKind(9).String())
}
