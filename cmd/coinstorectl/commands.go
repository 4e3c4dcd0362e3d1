// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/dexkit/coinstore/coinselect"
	"github.com/dexkit/coinstore/coinstore"
	"github.com/dexkit/coinstore/elements"
	"github.com/dexkit/coinstore/internal/cfgutil"
	"github.com/jessevdk/go-flags"
)

func addCommands(parser *flags.Parser) {
	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"create", "Create a new store", "Create an empty store at " +
			"the configured location.", &createCommand{}},
		{"info", "Show store summary", "Show the engine and the " +
			"number of unspent outputs and registered entropies.",
			&infoCommand{}},
		{"list", "List outputs", "List outputs matching a filter in " +
			"insertion order.", &listCommand{}},
		{"spend", "Mark outputs as spent", "Mark each TXID:VOUT " +
			"argument as spent in a single transaction.",
			&spendCommand{}},
		{"entropy", "Show asset entropies", "Show the entropies " +
			"registered under the given names, or all of them.",
			&entropyCommand{}},
		{"addentropy", "Register an asset entropy", "Register " +
			"NAME ENTROPY where ENTROPY is 32 hex encoded bytes.",
			&addEntropyCommand{}},
		{"contracts", "Show bound contracts", "Show contracts by " +
			"script, label or source.", &contractsCommand{}},
		{"selectfee", "Select a fee input", "Pick the output a fee " +
			"of the given amount would spend.", &selectFeeCommand{}},
	}

	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long,
			c.data); err != nil {

			fatalf("Unable to add command %s: %v", c.name, err)
		}
	}
}

func parseOutPoint(s string) (wire.OutPoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return wire.OutPoint{}, fmt.Errorf("outpoint %q is not "+
			"TXID:VOUT", s)
	}

	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return wire.OutPoint{}, err
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return wire.OutPoint{}, err
	}

	return *wire.NewOutPoint(hash, uint32(index)), nil
}

func printEntry(e coinstore.Entry) {
	if opts.Dump {
		spew.Dump(e)
		return
	}

	asset := "unknown"
	e.Asset().WhenSome(func(id elements.AssetID) {
		asset = id.String()
	})
	value := "unknown"
	e.Value().WhenSome(func(v uint64) {
		value = strconv.FormatUint(v, 10)
	})

	line := fmt.Sprintf("%v asset=%s value=%s", e.OutPoint(), asset,
		value)
	if e.IsConfidential() {
		line += " confidential"
	}
	if e.IsBound() {
		line += " bound"
	}
	e.Label().WhenSome(func(label string) {
		line += " label=" + label
	})
	e.IssuanceIDs().WhenSome(func(ids elements.IssuanceIDs) {
		line += fmt.Sprintf(" issued=%v token=%v", ids.Asset,
			ids.Token)
	})

	fmt.Println(line)
}

func printContract(info *coinstore.ContractInfo) {
	if opts.Dump {
		spew.Dump(info)
		return
	}

	key := info.Program.Key()
	fmt.Printf("%x label=%q key=%x root=%x\n", info.ScriptPubKey,
		info.Label, key[:], info.Program.Artifact().CommitmentRoot())
	for _, h := range info.History {
		txid := "-"
		h.TxID.WhenSome(func(hash chainhash.Hash) {
			txid = hash.String()
		})
		fmt.Printf("  %s %s %s\n", h.Timestamp.UTC().Format(
			"2006-01-02 15:04:05"), h.Action, txid)
	}
}

type createCommand struct{}

func (c *createCommand) Execute([]string) error {
	if err := setLogLevels(opts.DebugLevel); err != nil {
		return err
	}

	ctx := context.Background()

	var (
		store *coinstore.Store
		err   error
	)
	if opts.PostgresDSN != "" {
		store, err = coinstore.OpenPostgres(
			ctx, opts.PostgresDSN, storeConfig(),
		)
	} else {
		if err := cfgutil.EnsureParentDir(opts.Database); err != nil {
			return err
		}
		store, err = coinstore.Create(ctx, opts.Database, storeConfig())
	}
	if err != nil {
		return err
	}

	log.Infof("Created %v store", store.Engine())

	return store.Close()
}

type infoCommand struct{}

func (c *infoCommand) Execute([]string) error {
	return withStore(func(ctx context.Context, s *coinstore.Store) error {
		if err := s.Healthcheck(ctx); err != nil {
			return err
		}

		results, err := s.QueryUtxos(ctx, coinstore.NewFilter())
		if err != nil {
			return err
		}
		entropies, err := s.ListAssetEntropies(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("engine:     %v\n", s.Engine())
		fmt.Printf("unspent:    %d\n", len(results[0].Entries))
		fmt.Printf("entropies:  %d\n", len(entropies))

		return nil
	})
}

type listCommand struct {
	Asset    string              `long:"asset" description:"Only list outputs of this asset id"`
	Script   cfgutil.HexFlag     `long:"script" description:"Only list outputs locked to this hex encoded script"`
	Source   string              `long:"source" description:"Only list outputs bound to contracts compiled from this source"`
	Required *cfgutil.AmountFlag `long:"required" description:"Classify the result against this value"`
	Limit    uint32              `long:"limit" description:"Return at most this many outputs"`
	Spent    bool                `long:"spent" description:"Include spent outputs"`
}

func (c *listCommand) filter() (coinstore.Filter, error) {
	f := coinstore.NewFilter()

	if c.Asset != "" {
		asset, err := elements.NewAssetIDFromStr(c.Asset)
		if err != nil {
			return f, err
		}
		f = f.AssetID(asset)
	}
	if c.Script.ExplicitlySet() {
		f = f.ScriptPubKey(c.Script.Bytes)
	}
	if c.Source != "" {
		f = f.Source(c.Source)
	}
	if c.Required != nil {
		f = f.RequiredValue(c.Required.Value)
	}
	if c.Limit != 0 {
		f = f.Limit(c.Limit)
	}
	if c.Spent {
		f = f.IncludeSpent()
	}

	return f, nil
}

func (c *listCommand) Execute([]string) error {
	f, err := c.filter()
	if err != nil {
		return err
	}

	return withStore(func(ctx context.Context, s *coinstore.Store) error {
		results, err := s.QueryUtxos(ctx, f)
		if err != nil {
			return err
		}

		result := results[0]
		for _, e := range result.Entries {
			printEntry(e)
		}
		fmt.Printf("%v: %d outputs, total %d\n", result.Kind,
			len(result.Entries), result.Total)

		return nil
	})
}

type spendCommand struct{}

func (c *spendCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no outpoints given")
	}

	spends := make([]wire.OutPoint, 0, len(args))
	for _, arg := range args {
		op, err := parseOutPoint(arg)
		if err != nil {
			return err
		}
		spends = append(spends, op)
	}

	return withStore(func(ctx context.Context, s *coinstore.Store) error {
		if err := s.ApplyTransaction(ctx, spends, nil); err != nil {
			return err
		}

		log.Infof("Marked %d outputs as spent", len(spends))

		return nil
	})
}

type entropyCommand struct{}

func (c *entropyCommand) Execute(args []string) error {
	return withStore(func(ctx context.Context, s *coinstore.Store) error {
		if len(args) == 0 {
			entries, err := s.ListAssetEntropies(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s %v\n", e.Name, e.Entropy)
			}

			return nil
		}

		results, err := s.QueryAssetEntropies(ctx, args...)
		if err != nil {
			return err
		}
		for i, r := range results {
			entropy := "not found"
			r.WhenSome(func(e coinstore.AssetEntropy) {
				entropy = fmt.Sprintf("%v asset=%v", e.Entropy,
					elements.AssetIDFromEntropy(e.Entropy))
			})
			fmt.Printf("%s %s\n", args[i], entropy)
		}

		return nil
	})
}

type addEntropyCommand struct{}

func (c *addEntropyCommand) Execute(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected NAME ENTROPY")
	}

	raw, err := hex.DecodeString(args[1])
	if err != nil {
		return err
	}
	if len(raw) != len(elements.Entropy{}) {
		return fmt.Errorf("entropy must be %d bytes, got %d",
			len(elements.Entropy{}), len(raw))
	}

	var entropy elements.Entropy
	copy(entropy[:], raw)

	return withStore(func(ctx context.Context, s *coinstore.Store) error {
		return s.InsertAssetEntropy(ctx, args[0], entropy)
	})
}

type contractsCommand struct {
	Script cfgutil.HexFlag `long:"script" description:"Show the contract bound to this hex encoded script"`
	Label  string          `long:"label" description:"Show contracts registered under this label"`
	Source string          `long:"source" description:"Show contracts compiled from this source"`
}

func (c *contractsCommand) Execute([]string) error {
	return withStore(func(ctx context.Context, s *coinstore.Store) error {
		var (
			infos []*coinstore.ContractInfo
			err   error
		)
		switch {
		case c.Script.ExplicitlySet():
			var info *coinstore.ContractInfo
			info, err = s.ContractByScriptPubKey(ctx, c.Script.Bytes)
			infos = []*coinstore.ContractInfo{info}

		case c.Label != "":
			infos, err = s.ContractsByLabel(ctx, c.Label)

		case c.Source != "":
			infos, err = s.ContractsBySource(ctx, c.Source)

		default:
			return fmt.Errorf("one of --script, --label or " +
				"--source is required")
		}
		if err != nil {
			return err
		}

		for _, info := range infos {
			printContract(info)
		}

		return nil
	})
}

type selectFeeCommand struct {
	Asset  string              `long:"asset" required:"true" description:"Fee asset id"`
	Script cfgutil.HexFlag     `long:"script" required:"true" description:"Hex encoded script of the fee wallet"`
	Amount *cfgutil.AmountFlag `long:"amount" required:"true" description:"Fee amount"`
}

func (c *selectFeeCommand) Execute([]string) error {
	asset, err := elements.NewAssetIDFromStr(c.Asset)
	if err != nil {
		return err
	}

	return withStore(func(ctx context.Context, s *coinstore.Store) error {
		input, err := coinselect.NewSession(s).SelectFee(
			ctx, coinselect.FeeRequest{
				Asset:        asset,
				ScriptPubKey: c.Script.Bytes,
				Amount:       c.Amount.Value,
			},
		)
		if err != nil {
			return err
		}

		if opts.Dump {
			spew.Dump(input)
			return nil
		}
		fmt.Printf("%v value=%d\n", input.OutPoint, input.Value)

		return nil
	})
}
