package tnode

import (
	"sort"

	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/txerr"
)

// Branch is an internal node with between 2 and MaxChildren children.
// childKey[0] is unused (child 0 has no left-key, bounded implicitly by
// HEAD); childKey[i] for i>0 holds the smallest key contained in child i.
type Branch struct {
	ref         noderef.NodeReference
	maxChildren int
	childRef    []noderef.NodeReference
	childExtent []uint64
	childKey    []keys.Key
}

// NewHeapBranch creates a fresh, empty, heap-mutable branch.
func NewHeapBranch(ref noderef.NodeReference, maxChildren int) *Branch {
	if !ref.IsHeap() {
		panic("tnode: NewHeapBranch requires a heap-class reference")
	}
	return &Branch{
		ref:         ref,
		maxChildren: maxChildren,
		childRef:    make([]noderef.NodeReference, 0, maxChildren),
		childExtent: make([]uint64, 0, maxChildren),
		childKey:    make([]keys.Key, 0, maxChildren),
	}
}

// NewStoredBranch wraps arrays already read back from the backing store as
// an immutable branch.
func NewStoredBranch(ref noderef.NodeReference, maxChildren int, refs []noderef.NodeReference, extents []uint64, childKeys []keys.Key) *Branch {
	if !ref.IsStored() {
		panic("tnode: NewStoredBranch requires a stored-class reference")
	}
	return &Branch{ref: ref, maxChildren: maxChildren, childRef: refs, childExtent: extents, childKey: childKeys}
}

func (b *Branch) Reference() noderef.NodeReference     { return b.ref }
func (b *Branch) SetReference(r noderef.NodeReference) { b.ref = r }
func (b *Branch) IsLeaf() bool                         { return false }
func (b *Branch) MaxChildren() int                     { return b.maxChildren }
func (b *Branch) ChildCount() int                      { return len(b.childRef) }
func (b *Branch) mutable() bool                        { return b.ref.IsHeap() }

func (b *Branch) HeapSizeEstimate() int {
	return 48 + len(b.childRef)*(16+8+14)
}

func (b *Branch) ChildRef(i int) noderef.NodeReference { return b.childRef[i] }
func (b *Branch) ChildExtent(i int) uint64             { return b.childExtent[i] }

// ChildKey returns the left-separator key for child i. Slot 0 has no
// separator of its own; ChildKey(0) always reports keys.HEAD.
func (b *Branch) ChildKey(i int) keys.Key {
	if i == 0 {
		return keys.HEAD
	}
	return b.childKey[i]
}

// TotalExtent sums every child's extent, i.e. the subtree's byte count.
func (b *Branch) TotalExtent() uint64 {
	var total uint64
	for _, e := range b.childExtent {
		total += e
	}
	return total
}

// SetChild overwrites slot i's reference, extent, and (for i>0) separator
// key. Heap-only.
func (b *Branch) SetChild(i int, ref noderef.NodeReference, extent uint64, key keys.Key) error {
	if !b.mutable() {
		return txerr.ErrWriteViolation
	}
	b.childRef[i] = ref
	b.childExtent[i] = extent
	if i > 0 {
		b.childKey[i] = key
	}
	return nil
}

// InsertChild inserts a new child at slot i, shifting subsequent children
// right. Heap-only.
func (b *Branch) InsertChild(i int, ref noderef.NodeReference, extent uint64, key keys.Key) error {
	if !b.mutable() {
		return txerr.ErrWriteViolation
	}
	b.childRef = append(b.childRef, noderef.NodeReference{})
	copy(b.childRef[i+1:], b.childRef[i:])
	b.childRef[i] = ref

	b.childExtent = append(b.childExtent, 0)
	copy(b.childExtent[i+1:], b.childExtent[i:])
	b.childExtent[i] = extent

	b.childKey = append(b.childKey, keys.Key{})
	copy(b.childKey[i+1:], b.childKey[i:])
	if i > 0 {
		b.childKey[i] = key
	}
	return nil
}

// RemoveChild deletes the child at slot i, shifting subsequent children
// left. Heap-only.
func (b *Branch) RemoveChild(i int) error {
	if !b.mutable() {
		return txerr.ErrWriteViolation
	}
	b.childRef = append(b.childRef[:i], b.childRef[i+1:]...)
	b.childExtent = append(b.childExtent[:i], b.childExtent[i+1:]...)
	b.childKey = append(b.childKey[:i], b.childKey[i+1:]...)
	return nil
}

// SearchChild returns the index of the largest i with ChildKey(i) <= key.
// Child 0's implicit key is HEAD, so SearchChild always returns a valid
// index for a non-empty branch.
func (b *Branch) SearchChild(key keys.Key) int {
	// childKey[0] is the implicit HEAD bound; search 1..n-1 for the last
	// index whose separator is <= key.
	n := len(b.childRef)
	idx := sort.Search(n-1, func(i int) bool {
		return key.Less(b.childKey[i+1])
	})
	return idx
}

// SearchPosition resolves a logical byte offset within this subtree to a
// (childIndex, localOffset) pair by prefix-summing ChildExtent.
func (b *Branch) SearchPosition(offset uint64) (childIndex int, localOffset uint64) {
	var acc uint64
	for i, e := range b.childExtent {
		if offset < acc+e || i == len(b.childExtent)-1 {
			return i, offset - acc
		}
		acc += e
	}
	return len(b.childExtent) - 1, 0
}

// CheckExtentInvariant verifies sum(childExtent) equals the independently
// computed actual, returning an error describing the mismatch if any.
func (b *Branch) CheckExtentInvariant(actual uint64) error {
	if b.TotalExtent() != actual {
		return txerr.NewCriticalStop(errExtentMismatch(b.TotalExtent(), actual))
	}
	return nil
}

type extentMismatchError struct {
	want, got uint64
}

func (e *extentMismatchError) Error() string {
	return "tnode: branch extent invariant violated"
}

func errExtentMismatch(want, got uint64) error {
	return &extentMismatchError{want: want, got: got}
}
