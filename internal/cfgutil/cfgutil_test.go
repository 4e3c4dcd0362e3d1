package cfgutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAmountFlag checks the accepted amount notations.
func TestAmountFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "10000", want: 10000},
		{in: "0.0001", want: 10000},
		{in: "1.5 L-BTC", want: 150_000_000},
		{in: "-1", wantErr: true},
		{in: "-0.1", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, test := range tests {
		var a AmountFlag
		err := a.UnmarshalFlag(test.in)
		if test.wantErr {
			require.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		require.Equal(t, test.want, a.Value, test.in)
	}

	s, err := NewAmountFlag(42).MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "42", s)
}

// TestHexFlag checks hex decoding and explicit set tracking.
func TestHexFlag(t *testing.T) {
	var h HexFlag
	require.False(t, h.ExplicitlySet())

	require.NoError(t, h.UnmarshalFlag(""))
	require.True(t, h.ExplicitlySet())
	require.Empty(t, h.Bytes)

	require.NoError(t, h.UnmarshalFlag("0014ab"))
	require.Equal(t, []byte{0x00, 0x14, 0xab}, h.Bytes)

	s, err := h.MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "0014ab", s)

	require.Error(t, h.UnmarshalFlag("zz"))
}

// TestFileHelpers checks FileExists and EnsureParentDir.
func TestFileHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "store.db")

	exists, err := FileExists(path)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, EnsureParentDir(path))
	require.NoError(t, os.WriteFile(path, nil, 0600))

	exists, err = FileExists(path)
	require.NoError(t, err)
	require.True(t, exists)
}
