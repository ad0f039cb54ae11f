package keys

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeadTailOrdering(t *testing.T) {
	k := New(5, 7, 2)
	require.True(t, HEAD.Less(k))
	require.True(t, k.Less(TAIL))
	require.True(t, HEAD.Compare(HEAD) == 0)
	require.True(t, TAIL.Compare(TAIL) == 0)
}

func TestKeyOrderingScenarioS6(t *testing.T) {
	in := []Key{New(5, 7, 2), TAIL, HEAD, New(5, 7, 1), New(5, 6, 9)}
	sort.Slice(in, func(i, j int) bool { return in[i].Less(in[j]) })

	want := []Key{HEAD, New(5, 6, 9), New(5, 7, 1), New(5, 7, 2), TAIL}
	require.Equal(t, want, in)
}

func TestEncodedValues(t *testing.T) {
	k := New(10, -3, 99)
	require.Equal(t, int64(10)<<32|int64(uint32(-3)), k.EncodedValue1())
	require.Equal(t, int64(99), k.EncodedValue2())
}

func TestNewPanicsOnSentinelType(t *testing.T) {
	require.Panics(t, func() { New(sentinelType, 0, 0) })
}
