package txn

import (
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/tnode"
	"github.com/ssargent/freyjatree/pkg/txerr"
)

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// driveManageCache runs the heap's over-budget eviction pass after a
// mutation has fully linked its new nodes into the tree. Calling it only
// at the end of a top-level mutator, never from the helpers below, keeps
// it out of the middle of a still-in-flight split or unshare chain where
// a node a caller holds a live reference to could otherwise be evicted
// and flushed out from under it before the caller finishes mutating it.
func (tx *Transaction) driveManageCache() error {
	return tx.heap.ManageCache()
}

// ensureChainExists creates a single empty leaf for key if no chain exists
// yet, inserting it at the correct sorted position in the leaf-level
// branch. It returns the refreshed descent path.
func (tx *Transaction) ensureChainExists(key keys.Key) ([]chainFrame, int, error) {
	path, predSlot, exists, err := tx.locateChain(key)
	if err != nil {
		return nil, 0, err
	}
	if exists {
		return path, predSlot, nil
	}

	parent := path[len(path)-1]
	newLeaf := tx.heap.CreateEmptyLeaf(tx.id, key, tx.cfg.MaxLeafByteSize)
	insertSlot := predSlot + 1
	if err := parent.branch.InsertChild(insertSlot, newLeaf.Reference(), 0, key); err != nil {
		return nil, 0, err
	}
	if err := tx.afterStructuralChange(path); err != nil {
		return nil, 0, err
	}

	// The insert (and any resulting split) may have moved the chain's
	// branch or slot; re-resolve from scratch.
	path, predSlot, _, err = tx.locateChain(key)
	return path, predSlot, err
}

// growChainTo extends key's leaf chain so its total size is at least
// neededSize, first filling spare capacity in the chain's last leaf, then
// appending new fixed-capacity leaves.
func (tx *Transaction) growChainTo(key keys.Key, neededSize uint64) error {
	path, firstSlot, err := tx.ensureChainExists(key)
	if err != nil {
		return err
	}
	parent := path[len(path)-1]
	count, total := chainExtent(parent.branch, firstSlot, key)
	if total >= neededSize {
		return nil
	}
	remaining := neededSize - total

	lastSlot := firstSlot + count - 1
	lastNode, err := tx.resolveNode(parent.branch.ChildRef(lastSlot), key)
	if err != nil {
		return err
	}
	lastLeaf := tx.unshare(lastNode).(*tnode.Leaf)
	room := uint64(lastLeaf.Capacity() - lastLeaf.Size())
	if grow := minU64(room, remaining); grow > 0 {
		if err := lastLeaf.SetSize(lastLeaf.Size() + uint32(grow)); err != nil {
			return err
		}
		remaining -= grow
	}
	if err := parent.branch.SetChild(lastSlot, lastLeaf.Reference(), uint64(lastLeaf.Size()), key); err != nil {
		return err
	}

	for remaining > 0 {
		capHint := tx.cfg.MaxLeafByteSize
		newLeaf := tx.heap.CreateEmptyLeaf(tx.id, key, capHint)
		fill := minU64(uint64(capHint), remaining)
		if err := newLeaf.SetSize(uint32(fill)); err != nil {
			return err
		}
		count++
		insertSlot := firstSlot + count - 1
		if err := parent.branch.InsertChild(insertSlot, newLeaf.Reference(), fill, key); err != nil {
			return err
		}
		remaining -= fill
	}

	return tx.afterStructuralChange(path)
}

// shrinkChainTo truncates key's leaf chain to exactly newSize bytes,
// dropping now-empty trailing leaves.
func (tx *Transaction) shrinkChainTo(key keys.Key, newSize uint64) error {
	path, firstSlot, exists, err := tx.locateChain(key)
	if err != nil {
		return err
	}
	if !exists {
		if newSize == 0 {
			return nil
		}
		return txerr.ErrKeyNotFound
	}
	parent := path[len(path)-1]
	count, total := chainExtent(parent.branch, firstSlot, key)
	if total <= newSize {
		return nil
	}

	remove := total - newSize
	for remove > 0 && count > 0 {
		lastSlot := firstSlot + count - 1
		node, err := tx.resolveNode(parent.branch.ChildRef(lastSlot), key)
		if err != nil {
			return err
		}
		leaf := tx.unshare(node).(*tnode.Leaf)
		if uint64(leaf.Size()) <= remove {
			remove -= uint64(leaf.Size())
			if err := parent.branch.RemoveChild(lastSlot); err != nil {
				return err
			}
			count--
			continue
		}
		newLeafSize := uint64(leaf.Size()) - remove
		if err := leaf.SetSize(uint32(newLeafSize)); err != nil {
			return err
		}
		if err := parent.branch.SetChild(lastSlot, leaf.Reference(), newLeafSize, key); err != nil {
			return err
		}
		remove = 0
	}

	if count == 0 {
		// The whole chain for key vanished; nothing left to rebalance for
		// this key, but the branch must still keep its minimum of 2
		// children (the HEAD/TAIL sentinels guarantee that).
	}

	return tx.afterStructuralChange(path)
}

// chainPut scatters buf across key's leaf chain starting at pos, assuming
// the chain already has enough capacity (callers must growChainTo first).
func (tx *Transaction) chainPut(key keys.Key, pos uint32, buf []byte) error {
	path, firstSlot, exists, err := tx.locateChain(key)
	if err != nil {
		return err
	}
	if !exists {
		return txerr.ErrKeyNotFound
	}
	parent := path[len(path)-1]
	count, _ := chainExtent(parent.branch, firstSlot, key)

	offset := uint64(pos)
	remaining := buf
	for i := 0; i < count && len(remaining) > 0; i++ {
		slot := firstSlot + i
		leafSize := uint64(parent.branch.ChildExtent(slot))
		if offset >= leafSize {
			offset -= leafSize
			continue
		}
		node, err := tx.resolveNode(parent.branch.ChildRef(slot), key)
		if err != nil {
			return err
		}
		leaf := tx.unshare(node).(*tnode.Leaf)
		n := leafSize - offset
		if n > uint64(len(remaining)) {
			n = uint64(len(remaining))
		}
		if err := leaf.Put(uint32(offset), remaining[:n]); err != nil {
			return err
		}
		if err := parent.branch.SetChild(slot, leaf.Reference(), leafSize, key); err != nil {
			return err
		}
		remaining = remaining[n:]
		offset = 0
	}
	if len(remaining) > 0 {
		return txerr.ErrDataPositionOutOfBounds
	}
	return tx.afterStructuralChange(path)
}

// Put writes buf at pos under key, creating the key and growing its
// backing leaves as needed.
func (tx *Transaction) Put(key keys.Key, pos uint32, buf []byte) error {
	needed := uint64(pos) + uint64(len(buf))
	if err := tx.growChainTo(key, needed); err != nil {
		return err
	}
	if err := tx.chainPut(key, pos, buf); err != nil {
		return err
	}
	return tx.driveManageCache()
}

// SetSize truncates or zero-extends key's data to exactly n bytes.
func (tx *Transaction) SetSize(key keys.Key, n uint64) error {
	cur, err := tx.Size(key)
	if err != nil {
		return err
	}
	if n > cur {
		if err := tx.growChainTo(key, n); err != nil {
			return err
		}
	} else if err := tx.shrinkChainTo(key, n); err != nil {
		return err
	}
	return tx.driveManageCache()
}

// Delete removes all data under key.
func (tx *Transaction) Delete(key keys.Key) error {
	if err := tx.shrinkChainTo(key, 0); err != nil {
		return err
	}
	return tx.driveManageCache()
}

// Shift moves the bytes in [pos, size) by offset, growing or shrinking
// key's total size by offset, preserving everything before pos and
// everything originally at [pos, size) (now at [pos+offset, size+offset)).
func (tx *Transaction) Shift(key keys.Key, pos uint32, offset int32) error {
	size, err := tx.Size(key)
	if err != nil {
		return err
	}
	if uint64(pos) > size {
		return txerr.ErrDataPositionOutOfBounds
	}
	newSize := int64(size) + int64(offset)
	if newSize < 0 {
		return txerr.ErrDataPositionOutOfBounds
	}

	if offset > 0 {
		tail := make([]byte, size-uint64(pos))
		if len(tail) > 0 {
			if err := tx.GetRange(key, pos, tail); err != nil {
				return err
			}
		}
		if err := tx.growChainTo(key, uint64(newSize)); err != nil {
			return err
		}
		if len(tail) > 0 {
			if err := tx.chainPut(key, pos+uint32(offset), tail); err != nil {
				return err
			}
		}
		zeros := make([]byte, offset)
		if err := tx.chainPut(key, pos, zeros); err != nil {
			return err
		}
	} else if offset < 0 {
		tail := make([]byte, size-uint64(int64(pos)-int64(offset)))
		if len(tail) > 0 {
			if err := tx.GetRange(key, uint32(int64(pos)-int64(offset)), tail); err != nil {
				return err
			}
			if err := tx.chainPut(key, pos, tail); err != nil {
				return err
			}
		}
		if err := tx.shrinkChainTo(key, uint64(newSize)); err != nil {
			return err
		}
	}

	return tx.driveManageCache()
}
