package coinstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/elements"
	"github.com/dexkit/coinstore/internal/sqltest"
	"github.com/stretchr/testify/require"
)

type testArtifact [32]byte

func (a testArtifact) CommitmentRoot() [32]byte {
	return a
}

// testCompiler accepts every source except those starting with "invalid".
var testCompiler = contract.CompilerFunc(func(source string,
	args contract.Arguments) (contract.Artifact, error) {

	if bytes.HasPrefix([]byte(source), []byte("invalid")) {
		return nil, errors.New("parse error")
	}

	key, err := contract.NewKey(source, args)
	if err != nil {
		return nil, err
	}

	return testArtifact(sha256.Sum256(key[:])), nil
})

// testUnblinder opens confidential outputs by looking up their value
// commitment.
type testUnblinder map[string]elements.TxOutSecrets

func (u testUnblinder) Unblind(txOut *elements.TxOut,
	_ *elements.TxOutWitness,
	_ *btcec.PrivateKey) (elements.TxOutSecrets, error) {

	secrets, ok := u[string(txOut.Value)]
	if !ok {
		return elements.TxOutSecrets{}, errors.New("range proof " +
			"rewind failed")
	}

	return secrets, nil
}

func testConfig(unblinder Unblinder) *Config {
	return &Config{
		Contracts: contract.NewContext(testCompiler),
		Unblinder: unblinder,
	}
}

// newTestStore creates a store at a fresh location of the given engine.
func newTestStore(t *testing.T, loc sqltest.Location,
	unblinder Unblinder) *Store {

	t.Helper()

	var (
		ctx   = context.Background()
		cfg   = testConfig(unblinder)
		store *Store
		err   error
	)
	switch loc.Engine {
	case sqltest.SQLite:
		store, err = Create(ctx, loc.Path, cfg)
	case sqltest.Postgres:
		store, err = OpenPostgres(ctx, loc.DSN, cfg)
	default:
		t.Fatalf("unknown engine %v", loc.Engine)
	}
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func testOutPoint(i byte, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: chainhash.Hash{i}, Index: index}
}

var (
	testAsset  = elements.AssetID{0x6f, 0x02}
	testAsset2 = elements.AssetID{0x6f, 0x03}
	testScript = []byte{0x00, 0x14, 0x01, 0x02}
)

func explicitParams(op wire.OutPoint, asset elements.AssetID, value uint64,
	script []byte) *InsertParams {

	return &InsertParams{
		OutPoint: op,
		TxOut:    elements.NewExplicitTxOut(asset, value, script),
	}
}

// TestCreateConnect checks the lifecycle of a SQLite store file.
func TestCreateConnect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "coins.sqlite")
	cfg := testConfig(nil)

	require.False(t, Exists(path))

	_, err := Connect(ctx, path, cfg)
	require.True(t, IsError(err, ErrStoreNotFound), err)
	require.False(t, Exists(path))

	store, err := Create(ctx, path, cfg)
	require.NoError(t, err)
	require.Equal(t, EngineSQLite, store.Engine())
	require.NoError(t, store.Healthcheck(ctx))
	require.NoError(t, store.Insert(
		ctx, explicitParams(testOutPoint(1, 0), testAsset, 1, testScript),
	))
	require.NoError(t, store.Close())
	require.True(t, Exists(path))

	_, err = Create(ctx, path, cfg)
	require.True(t, IsError(err, ErrStoreAlreadyExists), err)

	store, err = Connect(ctx, path, cfg)
	require.NoError(t, err)
	defer store.Close()

	results, err := store.QueryUtxos(ctx, NewFilter())
	require.NoError(t, err)
	require.Equal(t, ResultFound, results[0].Kind)
}

// TestConnectNotInitialized checks that files holding no store are rejected.
func TestConnectNotInitialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.sqlite")
	require.NoError(t, os.WriteFile(empty, nil, 0600))

	_, err := Connect(ctx, empty, testConfig(nil))
	require.True(t, IsError(err, ErrStoreNotInitialized), err)

	foreign := filepath.Join(dir, "foreign.sqlite")
	db, err := sql.Open("sqlite", foreign)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE other (id INTEGER)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Connect(ctx, foreign, testConfig(nil))
	require.True(t, IsError(err, ErrStoreNotInitialized), err)

	_, err = Create(ctx, foreign, testConfig(nil))
	require.True(t, IsError(err, ErrStoreAlreadyExists), err)
}

// TestInvalidConfig checks that a contract context is mandatory.
func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coins.sqlite")
	_, err := Create(context.Background(), path, &Config{})
	require.True(t, IsError(err, ErrInvalidConfig), err)
	require.False(t, Exists(path))
}

// TestMigrationVersion checks that a new store is at the latest version and
// that reconnecting applies nothing.
func TestMigrationVersion(t *testing.T) {
	sqltest.RunDatabaseTest(t, func(t *testing.T,
		newLocation sqltest.LocationFactory) {

		ctx := context.Background()
		store := newTestStore(t, newLocation(t), nil)

		version, err := currentVersion(ctx, store.db)
		require.NoError(t, err)
		require.Equal(t, getLatestDBVersion(), version)

		require.NoError(t, migrate(ctx, store.db, store.dialect))
		version, err = currentVersion(ctx, store.db)
		require.NoError(t, err)
		require.Equal(t, getLatestDBVersion(), version)

		require.Len(t, getMigrationsToApply(0), len(dbVersions))
		require.Empty(t, getMigrationsToApply(getLatestDBVersion()))
	})
}

// TestErrorCodeString checks the names of error codes.
func TestErrorCodeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ErrUtxoAlreadySpent", ErrUtxoAlreadySpent.String())
	require.Equal(t, "Unknown ErrorCode (999)", ErrorCode(999).String())

	err := storeError(ErrDatabase, "insert output", errors.New("disk full"))
	require.Equal(t, "insert output: disk full", err.Error())
	require.True(t, IsError(err, ErrDatabase))
	require.False(t, IsError(err, ErrDecode))
	require.False(t, IsError(errors.New("plain"), ErrDatabase))

	for code := range errorCodeStrings {
		require.NotContains(t, code.String(), "Unknown")
	}
}
