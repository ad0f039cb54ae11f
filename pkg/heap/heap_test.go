package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/tnode"
)

func TestCreateFetchDelete(t *testing.T) {
	h := New(Config{})
	k := keys.New(1, 0, 100)
	leaf := h.CreateEmptyLeaf(1, k, 64)
	require.Equal(t, 1, h.Count())

	got, ok := h.Fetch(leaf.Reference())
	require.True(t, ok)
	require.Same(t, leaf, got)

	h.Delete(leaf.Reference())
	require.Equal(t, 0, h.Count())
	_, ok = h.Fetch(leaf.Reference())
	require.False(t, ok)
}

func TestDeleteUnknownRefPanics(t *testing.T) {
	h := New(Config{})
	require.Panics(t, func() {
		h.Delete(noderef.Heap(999))
	})
}

func TestFetchDoesNotPromote(t *testing.T) {
	h := New(Config{MaxMemoryLimit: 1 << 62})
	k := keys.New(1, 0, 1)
	oldest := h.CreateEmptyLeaf(1, k, 8)
	h.CreateEmptyLeaf(1, keys.New(1, 0, 2), 8)
	h.CreateEmptyLeaf(1, keys.New(1, 0, 3), 8)

	// Fetching the oldest entry must not move it off the LRU tail.
	_, ok := h.Fetch(oldest.Reference())
	require.True(t, ok)

	require.Same(t, oldest, h.mruTail.node)
}

type recordingFlusher struct {
	flushed [][]noderef.NodeReference
}

func (f *recordingFlusher) FlushNodesToStore(refs []noderef.NodeReference) error {
	cp := make([]noderef.NodeReference, len(refs))
	copy(cp, refs)
	f.flushed = append(f.flushed, cp)
	return nil
}

func TestManageCacheEvictsLRUGroupedByOwner(t *testing.T) {
	h := New(Config{MaxMemoryLimit: 1})
	ownerA := &recordingFlusher{}
	ownerB := &recordingFlusher{}
	h.RegisterOwner(1, ownerA)
	h.RegisterOwner(2, ownerB)

	for i := 0; i < 10; i++ {
		owner := uint64(1)
		if i%2 == 0 {
			owner = 2
		}
		h.CreateEmptyLeaf(owner, keys.New(1, 0, int64(i)), 8)
	}
	require.Equal(t, 10, h.Count())

	require.NoError(t, h.ManageCache())

	var totalFlushed int
	for _, batch := range ownerA.flushed {
		totalFlushed += len(batch)
	}
	for _, batch := range ownerB.flushed {
		totalFlushed += len(batch)
	}
	require.Equal(t, 3, totalFlushed) // ceil(30% of 10) == 3
}

func TestManageCacheNoopUnderLimit(t *testing.T) {
	h := New(Config{MaxMemoryLimit: 1 << 62})
	h.CreateEmptyLeaf(1, keys.New(1, 0, 1), 8)
	require.NoError(t, h.ManageCache())
	require.Equal(t, 1, h.Count())
}

func TestCopyLeafIsIndependent(t *testing.T) {
	h := New(Config{})
	k := keys.New(1, 0, 1)
	original := h.CreateEmptyLeaf(1, k, 8)
	require.NoError(t, original.Put(0, []byte("ab")))

	copied := h.Copy(original, 1).(*tnode.Leaf)
	require.NotEqual(t, original.Reference(), copied.Reference())

	require.NoError(t, original.Put(0, []byte("zz")))
	buf := make([]byte, 2)
	require.NoError(t, copied.GetRange(0, buf))
	require.Equal(t, "ab", string(buf))
}
