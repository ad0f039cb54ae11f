// Package tnode implements the two TreeNode shapes, leaves and branches, as
// a small tagged-variant hierarchy over noderef.NodeReference classes,
// rather than an object-oriented Node base type.
package tnode

import (
	"io"

	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/txerr"
)

// Node is implemented by *Leaf and *Branch. Callers type-switch on it
// rather than relying on virtual dispatch, matching the sum-type design
// called out for this component.
type Node interface {
	Reference() noderef.NodeReference
	SetReference(noderef.NodeReference)
	IsLeaf() bool
	HeapSizeEstimate() int
}

// Leaf represents a contiguous run of bytes belonging to exactly one key.
// A Leaf is mutable only while its Reference is heap-class; stored and
// sparse leaves are immutable and reject every mutator with
// txerr.ErrWriteViolation.
type Leaf struct {
	ref      noderef.NodeReference
	key      keys.Key
	size     uint32
	capacity uint32
	data     []byte // nil for sparse leaves, whose bytes are synthesized
}

// NewHeapLeaf creates a fresh, empty, heap-mutable leaf with the given
// capacity for key k.
func NewHeapLeaf(ref noderef.NodeReference, k keys.Key, capacity uint32) *Leaf {
	if !ref.IsHeap() {
		panic("tnode: NewHeapLeaf requires a heap-class reference")
	}
	return &Leaf{ref: ref, key: k, capacity: capacity, data: make([]byte, 0, capacity)}
}

// NewStoredLeaf wraps payload already read back from the backing store as
// an immutable leaf.
func NewStoredLeaf(ref noderef.NodeReference, k keys.Key, payload []byte, capacity uint32) *Leaf {
	if !ref.IsStored() {
		panic("tnode: NewStoredLeaf requires a stored-class reference")
	}
	return &Leaf{ref: ref, key: k, capacity: capacity, size: uint32(len(payload)), data: payload}
}

// NewSparseLeaf builds the synthetic immutable leaf encoded entirely in a
// sparse NodeReference: length bytes, each equal to value.
func NewSparseLeaf(ref noderef.NodeReference, k keys.Key) *Leaf {
	if !ref.IsSparse() {
		panic("tnode: NewSparseLeaf requires a sparse-class reference")
	}
	length := ref.SparseLength()
	return &Leaf{ref: ref, key: k, size: uint32(length), capacity: uint32(length), data: nil}
}

func (l *Leaf) Reference() noderef.NodeReference        { return l.ref }
func (l *Leaf) SetReference(r noderef.NodeReference)    { l.ref = r }
func (l *Leaf) IsLeaf() bool                            { return true }
func (l *Leaf) Key() keys.Key                           { return l.key }
func (l *Leaf) Size() uint32                            { return l.size }
func (l *Leaf) Capacity() uint32                        { return l.capacity }
func (l *Leaf) mutable() bool                           { return l.ref.IsHeap() }
func (l *Leaf) HeapSizeEstimate() int                   { return 64 + int(l.capacity) }

// Get reads a single byte at pos.
func (l *Leaf) Get(pos uint32) (byte, error) {
	if pos >= l.size {
		return 0, txerr.ErrDataPositionOutOfBounds
	}
	if l.ref.IsSparse() {
		return l.ref.SparseValue(), nil
	}
	return l.data[pos], nil
}

// GetRange reads len(buf) bytes starting at pos into buf.
func (l *Leaf) GetRange(pos uint32, buf []byte) error {
	if uint64(pos)+uint64(len(buf)) > uint64(l.size) {
		return txerr.ErrDataPositionOutOfBounds
	}
	if l.ref.IsSparse() {
		v := l.ref.SparseValue()
		for i := range buf {
			buf[i] = v
		}
		return nil
	}
	copy(buf, l.data[pos:pos+uint32(len(buf))])
	return nil
}

// Shift moves bytes [pos, size) by offset, growing or shrinking size by
// offset. The resulting size must not exceed capacity nor go negative.
func (l *Leaf) Shift(pos uint32, offset int32) error {
	if !l.mutable() {
		return txerr.ErrWriteViolation
	}
	if pos > l.size {
		return txerr.ErrDataPositionOutOfBounds
	}
	newSize := int64(l.size) + int64(offset)
	if newSize < 0 || newSize > int64(l.capacity) {
		return txerr.ErrDataPositionOutOfBounds
	}
	if offset > 0 {
		l.data = append(l.data, make([]byte, offset)...)
		copy(l.data[int64(pos)+int64(offset):newSize], l.data[pos:l.size])
		for i := pos; i < pos+uint32(offset) && i < uint32(newSize); i++ {
			l.data[i] = 0
		}
	} else if offset < 0 {
		copy(l.data[pos:], l.data[uint32(int64(pos)-int64(offset)):l.size])
		l.data = l.data[:newSize]
	}
	l.size = uint32(newSize)
	return nil
}

// Put overwrites or extends the leaf starting at pos with buf, growing size
// if the write reaches past the current size. Capacity bounds the write.
func (l *Leaf) Put(pos uint32, buf []byte) error {
	if !l.mutable() {
		return txerr.ErrWriteViolation
	}
	end := uint64(pos) + uint64(len(buf))
	if end > uint64(l.capacity) {
		return txerr.ErrDataPositionOutOfBounds
	}
	if end > uint64(l.size) {
		if grow := int(end) - len(l.data); grow > 0 {
			l.data = append(l.data, make([]byte, grow)...)
		}
		l.size = uint32(end)
	}
	copy(l.data[pos:end], buf)
	return nil
}

// SetSize truncates or zero-fill-extends the leaf to exactly n bytes.
func (l *Leaf) SetSize(n uint32) error {
	if !l.mutable() {
		return txerr.ErrWriteViolation
	}
	if n > l.capacity {
		return txerr.ErrDataPositionOutOfBounds
	}
	if n > uint32(len(l.data)) {
		l.data = append(l.data, make([]byte, n-uint32(len(l.data)))...)
	} else {
		l.data = l.data[:n]
	}
	l.size = n
	return nil
}

// WriteDataTo serializes the leaf's payload bytes (not its header) to w.
func (l *Leaf) WriteDataTo(w io.Writer) error {
	if l.ref.IsSparse() {
		v := l.ref.SparseValue()
		buf := make([]byte, 4096)
		for i := range buf {
			buf[i] = v
		}
		remaining := int64(l.size)
		for remaining > 0 {
			n := int64(len(buf))
			if remaining < n {
				n = remaining
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			remaining -= n
		}
		return nil
	}
	_, err := w.Write(l.data[:l.size])
	return err
}
