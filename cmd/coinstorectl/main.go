// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/dexkit/coinstore/coinstore"
	"github.com/dexkit/coinstore/contract"
	"github.com/jessevdk/go-flags"
)

var (
	dataDirectory   = btcutil.AppDataDir("coinstore", false)
	defaultDatabase = filepath.Join(dataDirectory, "coins.sqlite")
)

// Flags shared by every command.
var opts = struct {
	Database    string `short:"d" long:"db" description:"Path to the SQLite store"`
	PostgresDSN string `long:"postgres" description:"Use the Postgres database at this DSN instead of a SQLite file"`
	DebugLevel  string `long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	Dump        bool   `long:"dump" description:"Dump full records instead of summaries"`
}{
	Database:   defaultDatabase,
	DebugLevel: "info",
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// inspectionArtifact identifies a contract by the hash of its source and
// arguments. The tool only inspects stored contracts and never builds
// transactions, so no compiled program is needed.
type inspectionArtifact contract.Key

func (a inspectionArtifact) CommitmentRoot() [32]byte {
	return sha256.Sum256(a[:])
}

var inspectionCompiler = contract.CompilerFunc(func(source string,
	args contract.Arguments) (contract.Artifact, error) {

	if source == "" {
		return nil, fmt.Errorf("empty contract source")
	}

	key, err := contract.NewKey(source, args)
	if err != nil {
		return nil, err
	}

	return inspectionArtifact(key), nil
})

func storeConfig() *coinstore.Config {
	return &coinstore.Config{
		Contracts: contract.NewContext(inspectionCompiler),
	}
}

// openStore connects to the configured store. The SQLite file must have
// been created with the create command.
func openStore(ctx context.Context) (*coinstore.Store, error) {
	if opts.PostgresDSN != "" {
		return coinstore.OpenPostgres(ctx, opts.PostgresDSN, storeConfig())
	}

	return coinstore.Connect(ctx, opts.Database, storeConfig())
}

// withStore runs f against an open store and closes it afterwards.
func withStore(f func(context.Context, *coinstore.Store) error) error {
	if err := setLogLevels(opts.DebugLevel); err != nil {
		return err
	}

	ctx := context.Background()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Unable to close store: %v", err)
		}
	}()

	return f(ctx, store)
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	addCommands(parser)

	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
