package coinstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/internal/sqltest"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	optionSource = "fn main() { option_offer() }"
	swapSource   = "fn main() { swap() }"
)

// TestContractBinding checks that outputs locked to a registered script come
// back bound to the cached program.
func TestContractBinding(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T,
		newLocation sqltest.LocationFactory) {

		ctx := context.Background()
		store := newTestStore(t, newLocation(t), nil)

		args := contract.Arguments{"STRIKE": {0x00, 0x64}}
		optionScript := []byte{0x51, 0x20, 0x01}
		require.NoError(t, store.AddContract(ctx, &ContractParams{
			Source:       optionSource,
			Arguments:    args,
			ScriptPubKey: optionScript,
			Label:        "option-1",
		}))

		// Registering the same contract again is a no-op.
		require.NoError(t, store.AddContract(ctx, &ContractParams{
			Source:       optionSource,
			Arguments:    args.Clone(),
			ScriptPubKey: optionScript,
			Label:        "option-1",
		}))

		// A different contract for the same script conflicts.
		err := store.AddContract(ctx, &ContractParams{
			Source:       optionSource,
			Arguments:    contract.Arguments{"STRIKE": {0x01}},
			ScriptPubKey: optionScript,
		})
		require.True(t, IsError(err, ErrContractConflict), err)

		err = store.AddContract(ctx, &ContractParams{
			Source:       "invalid source",
			Arguments:    args,
			ScriptPubKey: []byte{0x52},
		})
		require.True(t, IsError(err, ErrCompilation), err)

		require.NoError(t, store.Insert(ctx, explicitParams(
			testOutPoint(1, 0), testAsset, 5_000, optionScript,
		)))
		require.NoError(t, store.Insert(ctx, explicitParams(
			testOutPoint(1, 1), testAsset, 6_000, testScript,
		)))

		results, err := store.QueryUtxos(ctx,
			NewFilter().Source(optionSource),
			NewFilter().Source(swapSource),
			NewFilter().AssetID(testAsset),
		)
		require.NoError(t, err)

		require.Equal(t, ResultFound, results[0].Kind)
		require.Len(t, results[0].Entries, 1)
		bound := results[0].Entries[0]
		require.True(t, bound.IsBound())
		require.Equal(t, "option-1", bound.Label().UnwrapOr(""))
		require.True(t, args.Equal(bound.Arguments().UnwrapOr(nil)))

		cached, err := store.Contracts().Get(optionSource, args)
		require.NoError(t, err)
		require.Same(t, cached.UnwrapOr(nil), bound.Contract().UnwrapOr(nil))

		require.Equal(t, ResultEmpty, results[1].Kind)

		require.Len(t, results[2].Entries, 2)
		require.True(t, results[2].Entries[0].IsBound())
		require.False(t, results[2].Entries[1].IsBound())
		require.True(t, results[2].Entries[1].Arguments().IsNone())
	})
}

// TestContractBindingAcrossStores checks that stores sharing a contract
// context hand out the same program instance.
func TestContractBindingAcrossStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := sqltest.NewSQLiteLocation(t).Path
	cfg := testConfig(nil)

	store, err := Create(ctx, path, cfg)
	require.NoError(t, err)

	args := contract.Arguments{"PUBKEY": {0x02}}
	require.NoError(t, store.AddContract(ctx, &ContractParams{
		Source:       swapSource,
		Arguments:    args,
		ScriptPubKey: testScript,
	}))
	require.NoError(t, store.Insert(ctx, explicitParams(
		testOutPoint(3, 0), testAsset, 1, testScript,
	)))

	first, err := store.QueryUtxos(ctx, NewFilter().Source(swapSource))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Connect(ctx, path, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	second, err := reopened.QueryUtxos(ctx, NewFilter().Source(swapSource))
	require.NoError(t, err)

	require.Same(t,
		first[0].Entries[0].Contract().UnwrapOr(nil),
		second[0].Entries[0].Contract().UnwrapOr(nil),
	)
}

// TestContractLookups checks the registry lookups and history.
func TestContractLookups(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T,
		newLocation sqltest.LocationFactory) {

		ctx := context.Background()
		store := newTestStore(t, newLocation(t), nil)

		scripts := [][]byte{{0x51, 0x01}, {0x51, 0x02}, {0x51, 0x03}}
		sources := []string{optionSource, optionSource, swapSource}
		for i, script := range scripts {
			require.NoError(t, store.AddContract(ctx, &ContractParams{
				Source: sources[i],
				Arguments: contract.Arguments{
					"INDEX": {byte(i)},
				},
				ScriptPubKey: script,
				Label:        "batch",
			}))
		}

		info, err := store.ContractByScriptPubKey(ctx, scripts[2])
		require.NoError(t, err)
		require.Equal(t, swapSource, info.Program.Source())
		require.Equal(t, "batch", info.Label)
		require.Empty(t, info.History)

		_, err = store.ContractByScriptPubKey(ctx, []byte{0x00})
		require.True(t, IsError(err, ErrContractNotFound), err)

		options, err := store.ContractsBySource(ctx, optionSource)
		require.NoError(t, err)
		require.Len(t, options, 2)
		require.Equal(t, scripts[0], options[0].ScriptPubKey)
		require.Equal(t, scripts[1], options[1].ScriptPubKey)

		labeled, err := store.ContractsByLabel(ctx, "batch")
		require.NoError(t, err)
		require.Len(t, labeled, 3)

		none, err := store.ContractsByLabel(ctx, "missing")
		require.NoError(t, err)
		require.Empty(t, none)

		funded := time.Unix(1_700_000_000, 0).UTC()
		txid := chainhash.Hash{0xaa}
		require.NoError(t, store.AppendContractHistory(
			ctx, scripts[0], "funded", fn.Some(txid), funded,
		))
		require.NoError(t, store.AppendContractHistory(
			ctx, scripts[0], "expired", fn.None[chainhash.Hash](),
			funded.Add(time.Hour),
		))

		err = store.AppendContractHistory(
			ctx, []byte{0x00}, "funded", fn.None[chainhash.Hash](), funded,
		)
		require.True(t, IsError(err, ErrContractNotFound), err)

		info, err = store.ContractByScriptPubKey(ctx, scripts[0])
		require.NoError(t, err)
		require.Len(t, info.History, 2)
		require.Equal(t, "funded", info.History[0].Action)
		require.Equal(t, txid, info.History[0].TxID.UnwrapOr(
			chainhash.Hash{},
		))
		require.True(t, funded.Equal(info.History[0].Timestamp))
		require.True(t, info.History[1].TxID.IsNone())
	})
}

// TestCorruptContractRow checks that a contract row that cannot be decoded
// fails the query instead of reading as unbound.
func TestCorruptContractRow(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T,
		newLocation sqltest.LocationFactory) {

		ctx := context.Background()
		store := newTestStore(t, newLocation(t), nil)

		require.NoError(t, store.AddContract(ctx, &ContractParams{
			Source:       swapSource,
			Arguments:    contract.Arguments{"A": {0x01}},
			ScriptPubKey: testScript,
		}))
		require.NoError(t, store.Insert(ctx, explicitParams(
			testOutPoint(1, 0), testAsset, 1, testScript,
		)))

		_, err := store.db.ExecContext(ctx,
			"UPDATE contracts SET arguments = $1", []byte{0x09, 0x01},
		)
		require.NoError(t, err)

		_, err = store.QueryUtxos(ctx, NewFilter().AssetID(testAsset))
		require.True(t, IsError(err, ErrDecode), err)

		_, err = store.ContractByScriptPubKey(ctx, testScript)
		require.True(t, IsError(err, ErrDecode), err)
	})
}

// TestConcurrentContractRegistration checks that racing registrations of one
// script resolve to a single winner, with identical registrations succeeding
// and different ones conflicting.
func TestConcurrentContractRegistration(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T,
		newLocation sqltest.LocationFactory) {

		ctx := context.Background()
		store := newTestStore(t, newLocation(t), nil)

		const workers = 8
		script := []byte{0x51, 0x20, 0x07}
		argSets := []contract.Arguments{
			{"STRIKE": {0x01}},
			{"STRIKE": {0x02}},
		}

		var (
			wg   sync.WaitGroup
			errs = make([]error, workers)
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				errs[i] = store.AddContract(ctx, &ContractParams{
					Source:       optionSource,
					Arguments:    argSets[i%2],
					ScriptPubKey: script,
				})
			}(i)
		}
		wg.Wait()

		info, err := store.ContractByScriptPubKey(ctx, script)
		require.NoError(t, err)

		for i, err := range errs {
			if argSets[i%2].Equal(info.Program.Arguments()) {
				require.NoError(t, err, "worker %d", i)
				continue
			}
			require.True(t, IsError(err, ErrContractConflict),
				"worker %d: %v", i, err)
		}

		all, err := store.ContractsBySource(ctx, optionSource)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})
}

// TestConcurrentContractHistory checks that concurrent history appends on
// one contract are all kept.
func TestConcurrentContractHistory(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T,
		newLocation sqltest.LocationFactory) {

		ctx := context.Background()
		store := newTestStore(t, newLocation(t), nil)

		require.NoError(t, store.AddContract(ctx, &ContractParams{
			Source:       swapSource,
			Arguments:    contract.Arguments{"A": {0x01}},
			ScriptPubKey: testScript,
		}))

		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				err := store.AppendContractHistory(
					ctx, testScript, fmt.Sprintf("action-%d", i),
					fn.None[chainhash.Hash](),
					time.Unix(int64(i), 0),
				)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		info, err := store.ContractByScriptPubKey(ctx, testScript)
		require.NoError(t, err)
		require.Len(t, info.History, workers)

		seen := make(map[string]bool)
		for _, h := range info.History {
			seen[h.Action] = true
		}
		require.Len(t, seen, workers)
	})
}
