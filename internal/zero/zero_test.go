package zero

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytea32(t *testing.T) {
	var b [32]byte
	for i := range b {
		b[i] = byte(i + 1)
	}
	Bytea32(&b)
	require.Equal(t, [32]byte{}, b)
}
