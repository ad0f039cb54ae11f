package txn

import (
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/tnode"
	"github.com/ssargent/freyjatree/pkg/txerr"
)

// Exists reports whether key has any data associated with it.
func (tx *Transaction) Exists(key keys.Key) (bool, error) {
	_, _, exists, err := tx.locateChain(key)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Size returns the total byte length addressed under key, 0 if absent.
func (tx *Transaction) Size(key keys.Key) (uint64, error) {
	path, firstSlot, exists, err := tx.locateChain(key)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	parent := path[len(path)-1]
	_, total := chainExtent(parent.branch, firstSlot, key)
	return total, nil
}

// leavesInChain resolves every leaf in the chain starting at firstSlot in
// parent.branch that shares key, in order.
func (tx *Transaction) leavesInChain(parent chainFrame, firstSlot int, key keys.Key) ([]*tnode.Leaf, error) {
	count, _ := chainExtent(parent.branch, firstSlot, key)
	leaves := make([]*tnode.Leaf, 0, count)
	for i := 0; i < count; i++ {
		node, err := tx.resolveNode(parent.branch.ChildRef(firstSlot+i), key)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, node.(*tnode.Leaf))
	}
	return leaves, nil
}

// GetRange reads len(buf) bytes starting at pos into buf, concatenating
// across the key's leaf chain as needed.
func (tx *Transaction) GetRange(key keys.Key, pos uint32, buf []byte) error {
	path, firstSlot, exists, err := tx.locateChain(key)
	if err != nil {
		return err
	}
	if !exists {
		if len(buf) == 0 {
			return nil
		}
		return txerr.ErrDataPositionOutOfBounds
	}
	parent := path[len(path)-1]
	leaves, err := tx.leavesInChain(parent, firstSlot, key)
	if err != nil {
		return err
	}

	remaining := buf
	offset := uint64(pos)
	for _, leaf := range leaves {
		leafSize := uint64(leaf.Size())
		if offset >= leafSize {
			offset -= leafSize
			continue
		}
		n := leafSize - offset
		if n > uint64(len(remaining)) {
			n = uint64(len(remaining))
		}
		if n > 0 {
			chunk := make([]byte, n)
			if err := leaf.GetRange(uint32(offset), chunk); err != nil {
				return err
			}
			copy(remaining, chunk)
			remaining = remaining[n:]
		}
		offset = 0
		if len(remaining) == 0 {
			return nil
		}
	}
	if len(remaining) > 0 {
		return txerr.ErrDataPositionOutOfBounds
	}
	return nil
}

// Get reads a single byte at pos.
func (tx *Transaction) Get(key keys.Key, pos uint32) (byte, error) {
	var b [1]byte
	if err := tx.GetRange(key, pos, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
