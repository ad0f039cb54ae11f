// Package wseq implements TreeWriteSequence, the dependency-ordered walk
// that assigns a single-pass write order to a closure of heap nodes being
// flushed to the backing store.
package wseq

import "github.com/ssargent/freyjatree/pkg/tnode"

// BPoint biases branch-sequence ids into the upper half of a single int32
// space, keeping branch and leaf id spaces disjoint.
const BPoint = 1 << 30

// Link records a pending parent-branch rewrite: parent's slot child
// currently points at ChildSeqID (in combined-list order).
type Link struct {
	ParentSeqID int
	Slot        int
	ChildSeqID  int
}

// Sequence accumulates the nodes to flush, in the order the caller
// sequences them, serialized as all branches then all leaves, with
// branches referencing children by position in that combined list.
type Sequence struct {
	leaves   []tnode.Node
	branches []tnode.Node
	links    []Link
}

// New returns an empty write sequence.
func New() *Sequence {
	return &Sequence{}
}

// SequenceNodeWrite appends n to the sequence and returns its id: leaf ids
// start at 0, branch ids are biased by BPoint so the two id spaces never
// collide within a single int32.
func (s *Sequence) SequenceNodeWrite(n tnode.Node) int {
	if n.IsLeaf() {
		id := len(s.leaves)
		s.leaves = append(s.leaves, n)
		return id
	}
	id := BPoint + len(s.branches)
	s.branches = append(s.branches, n)
	return id
}

// SequenceBranchLink records that, at write time, parent's child slot
// currently resolves to childSeqID and must be rewritten to the store
// address minted when that child is actually written.
func (s *Sequence) SequenceBranchLink(parentSeqID, slot, childSeqID int) {
	s.links = append(s.links, Link{ParentSeqID: parentSeqID, Slot: slot, ChildSeqID: childSeqID})
}

// Branches returns the branches in the order they were sequenced.
func (s *Sequence) Branches() []tnode.Node { return s.branches }

// Leaves returns the leaves in the order they were sequenced.
func (s *Sequence) Leaves() []tnode.Node { return s.leaves }

// Links returns the pending parent/slot rewrites accumulated so far.
func (s *Sequence) Links() []Link { return s.links }

// LookupRef resolves a sequence id produced by SequenceNodeWrite to its
// index in the combined write order: all branches first (index 0..len(
// branches)-1), then all leaves (index len(branches)..).
func (s *Sequence) LookupRef(seqID int) int {
	if seqID >= BPoint {
		return seqID - BPoint
	}
	return len(s.branches) + seqID
}

// CombinedLen returns the total number of nodes (branches + leaves) in
// write order.
func (s *Sequence) CombinedLen() int {
	return len(s.branches) + len(s.leaves)
}

// CombinedNode returns the node at the given combined-order index, per the
// branches-then-leaves layout LookupRef resolves against.
func (s *Sequence) CombinedNode(index int) tnode.Node {
	if index < len(s.branches) {
		return s.branches[index]
	}
	return s.leaves[index-len(s.branches)]
}
