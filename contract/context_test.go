package contract

import (
	"crypto/sha256"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type testArtifact [32]byte

func (a testArtifact) CommitmentRoot() [32]byte {
	return a
}

// countingCompiler compiles every source except "bad" and counts how often
// it was invoked.
type countingCompiler struct {
	calls atomic.Int32
}

func (c *countingCompiler) Compile(source string, args Arguments) (Artifact,
	error) {

	c.calls.Add(1)
	if source == "bad" {
		return nil, errors.New("syntax error")
	}

	key, err := NewKey(source, args)
	if err != nil {
		return nil, err
	}

	return testArtifact(sha256.Sum256(key[:])), nil
}

const testSource = "fn main() { assert!(true) }"

// TestContextFirstWriterWins checks that re-adding the same pair returns the
// first cached program even though the compiler runs again.
func TestContextFirstWriterWins(t *testing.T) {
	t.Parallel()

	compiler := &countingCompiler{}
	ctx := NewContext(compiler)
	args := Arguments{"STRIKE": {0x01}}

	missing, err := ctx.Get(testSource, args)
	require.NoError(t, err)
	require.True(t, missing.IsNone())

	first, err := ctx.Add(testSource, args)
	require.NoError(t, err)

	second, err := ctx.Add(testSource, args.Clone())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.EqualValues(t, 2, compiler.calls.Load())
	require.Equal(t, 1, ctx.Len())

	cached, err := ctx.Get(testSource, args)
	require.NoError(t, err)
	require.Same(t, first, cached.UnwrapOr(nil))
	require.EqualValues(t, 2, compiler.calls.Load())

	// A different argument set is a different program.
	other, err := ctx.Add(testSource, Arguments{"STRIKE": {0x02}})
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.Equal(t, 2, ctx.Len())

	// The program hands out copies of its arguments.
	got := first.Arguments()
	got["STRIKE"][0] = 0xff
	require.Equal(t, []byte{0x01}, first.Arguments()["STRIKE"])
	require.Equal(t, testSource, first.Source())
}

// TestContextCompileFailure checks that a failed compilation does not touch
// the cache.
func TestContextCompileFailure(t *testing.T) {
	t.Parallel()

	ctx := NewContext(&countingCompiler{})

	_, err := ctx.Add("bad", Arguments{})
	require.ErrorIs(t, err, ErrCompile)
	require.Zero(t, ctx.Len())

	cached, err := ctx.Get("bad", Arguments{})
	require.NoError(t, err)
	require.True(t, cached.IsNone())
}

// TestContextConcurrentAdd checks that concurrent additions of one pair all
// observe the same program.
func TestContextConcurrentAdd(t *testing.T) {
	t.Parallel()

	ctx := NewContext(&countingCompiler{})
	args := Arguments{"A": {0x01}, "B": {0x02}}

	const workers = 16
	programs := make([]*Program, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			p, err := ctx.Add(testSource, args)
			if err == nil {
				programs[i] = p
			}
		}(i)
	}
	wg.Wait()

	for _, p := range programs {
		require.Same(t, programs[0], p)
	}
	require.Equal(t, 1, ctx.Len())
}

// TestContextRows checks the row bound variants.
func TestContextRows(t *testing.T) {
	t.Parallel()

	ctx := NewContext(&countingCompiler{})
	args := Arguments{"PUBKEY": {0x02, 0x03}}
	encoded, err := args.Encode()
	require.NoError(t, err)

	tests := []struct {
		name    string
		row     Row
		wantErr error
		bound   bool
	}{
		{
			name: "unbound",
			row:  Row{},
		},
		{
			name: "missing arguments",
			row:  Row{Source: []byte(testSource)},
		},
		{
			name: "bound",
			row: Row{
				Source:    []byte(testSource),
				Arguments: encoded,
			},
			bound: true,
		},
		{
			name: "invalid source",
			row: Row{
				Source:    []byte{0xff, 0xfe},
				Arguments: encoded,
			},
			wantErr: ErrDecodeSource,
		},
		{
			name: "corrupt arguments",
			row: Row{
				Source:    []byte(testSource),
				Arguments: []byte{0x05, 0x01},
			},
			wantErr: ErrDecodeArguments,
		},
	}

	for _, test := range tests {
		got, err := ctx.AddFromRow(test.row)
		if test.wantErr != nil {
			require.ErrorIs(t, err, test.wantErr, test.name)
			require.True(t, got.IsNone(), test.name)

			_, err = ctx.GetFromRow(test.row)
			require.ErrorIs(t, err, test.wantErr, test.name)

			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.bound, got.IsSome(), test.name)
	}

	direct, err := ctx.Add(testSource, args)
	require.NoError(t, err)

	fromRow, err := ctx.GetFromRow(Row{
		Source:    []byte(testSource),
		Arguments: encoded,
	})
	require.NoError(t, err)
	require.Same(t, direct, fromRow.UnwrapOr(nil))

	bound, err := ctx.Bind(Row{Source: []byte(testSource), Arguments: encoded})
	require.NoError(t, err)
	require.Same(t, direct, bound.UnwrapOr(nil))
}
