package noderef

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassTagging(t *testing.T) {
	s := Stored(0x123, 0x456)
	require.True(t, s.IsStored())

	h := Heap(42)
	require.True(t, h.IsHeap())
	require.Equal(t, uint64(42), h.HeapID())

	sp := Sparse(0x42, 1000)
	require.True(t, sp.IsSparse())
	require.Equal(t, byte(0x42), sp.SparseValue())
	require.Equal(t, uint64(1000), sp.SparseLength())
}

func TestStringRoundTrip(t *testing.T) {
	ref := Heap(7)
	s := ref.String()
	parsed, err := Parse(s)
	require.NoError(t, err)
	require.Equal(t, ref, parsed)
}

func TestParseLenientCase(t *testing.T) {
	ref := Stored(0xAB, 0xCD)
	lower := ref.String()
	upper := ""
	for _, c := range lower {
		if c >= 'a' && c <= 'f' {
			upper += string(c - 32)
		} else {
			upper += string(c)
		}
	}
	parsed, err := Parse(upper)
	require.NoError(t, err)
	require.Equal(t, ref, parsed)
}

func TestHashDiffersForDifferentRefs(t *testing.T) {
	a := Heap(1)
	b := Heap(2)
	require.NotEqual(t, a.Hash(), b.Hash())
}
