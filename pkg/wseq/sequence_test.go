package wseq

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/tnode"
)

func TestSequenceIDsDisjoint(t *testing.T) {
	s := New()
	leaf := tnode.NewHeapLeaf(noderef.Heap(1), keys.New(1, 0, 1), 64)
	branch := tnode.NewHeapBranch(noderef.Heap(2), 4)

	leafID := s.SequenceNodeWrite(leaf)
	branchID := s.SequenceNodeWrite(branch)

	require.Less(t, leafID, BPoint)
	require.GreaterOrEqual(t, branchID, BPoint)
}

func TestLookupRefCombinedOrder(t *testing.T) {
	s := New()
	b0 := tnode.NewHeapBranch(noderef.Heap(1), 4)
	b1 := tnode.NewHeapBranch(noderef.Heap(2), 4)
	l0 := tnode.NewHeapLeaf(noderef.Heap(3), keys.New(1, 0, 1), 64)

	bID0 := s.SequenceNodeWrite(b0)
	bID1 := s.SequenceNodeWrite(b1)
	lID0 := s.SequenceNodeWrite(l0)

	require.Equal(t, 0, s.LookupRef(bID0))
	require.Equal(t, 1, s.LookupRef(bID1))
	require.Equal(t, 2, s.LookupRef(lID0))
	require.Same(t, b0, s.CombinedNode(0).(*tnode.Branch))
	require.Same(t, l0, s.CombinedNode(2).(*tnode.Leaf))
}
