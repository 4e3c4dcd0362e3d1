// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/dexkit/coinstore/contract"
	"github.com/dexkit/coinstore/internal/cfgutil"
	"github.com/stretchr/testify/require"
)

func TestParseOutPoint(t *testing.T) {
	t.Parallel()

	const txid = "0000000000000000000000000000000000000000000000000000000000000001"

	op, err := parseOutPoint(txid + ":7")
	require.NoError(t, err)
	require.Equal(t, txid, op.Hash.String())
	require.EqualValues(t, 7, op.Index)

	for _, bad := range []string{txid, txid + ":x", "zz:1", txid + ":1:2"} {
		_, err := parseOutPoint(bad)
		require.Error(t, err, bad)
	}
}

func TestInspectionCompiler(t *testing.T) {
	t.Parallel()

	args := contract.Arguments{"strike": {0x01}}

	a, err := inspectionCompiler.Compile("fn main() {}", args)
	require.NoError(t, err)
	b, err := inspectionCompiler.Compile("fn main() {}", args.Clone())
	require.NoError(t, err)
	require.Equal(t, a.CommitmentRoot(), b.CommitmentRoot())

	_, err = inspectionCompiler.Compile("", args)
	require.Error(t, err)
}

func TestListFilter(t *testing.T) {
	t.Parallel()

	cmd := &listCommand{Asset: "not hex"}
	_, err := cmd.filter()
	require.Error(t, err)

	cmd = &listCommand{
		Required: cfgutil.NewAmountFlag(500),
		Limit:    1,
	}
	require.NoError(t, cmd.Script.UnmarshalFlag("0014aa"))

	f, err := cmd.filter()
	require.NoError(t, err)
	require.EqualValues(t, 500, f.Required().UnwrapOr(0))
	require.True(t, f.Required().IsSome())
}
