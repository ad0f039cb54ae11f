// Package txn implements TreeSystemTransaction: the copy-on-write descent,
// unshare, split, and merge engine that turns byte-range operations on a
// single Key into mutations of a snapshot of the tree, without disturbing
// any node visible from another transaction's root.
package txn

import (
	"sort"
	"sync/atomic"

	"github.com/ssargent/freyjatree/pkg/heap"
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/storeio"
	"github.com/ssargent/freyjatree/pkg/tnode"
	"github.com/ssargent/freyjatree/pkg/txerr"
	"github.com/ssargent/freyjatree/pkg/txlog"
)

// Config bounds the size of nodes this transaction creates.
type Config struct {
	MaxBranchChildren int
	MaxLeafByteSize   uint32
}

// Transaction is a single-owner, single-goroutine handle onto one snapshot
// of the tree. Every mutator unshares (copies onto the heap) every node on
// the path from the affected leaf up to the root before changing it, so a
// concurrent transaction still holding the old root observes no change.
type Transaction struct {
	id     uint64
	heap   *heap.Heap
	store  storeio.Store
	cfg    Config
	logger txlog.Logger

	root noderef.NodeReference

	poisoned *atomic.Bool
}

// New opens a transaction against root, owned by id. root may be the
// zero-value NodeReference, meaning "bootstrap a brand-new empty tree".
func New(id uint64, h *heap.Heap, store storeio.Store, root noderef.NodeReference, cfg Config, logger txlog.Logger, poisoned *atomic.Bool) (*Transaction, error) {
	if cfg.MaxBranchChildren < 2 {
		cfg.MaxBranchChildren = 64
	}
	if cfg.MaxLeafByteSize == 0 {
		cfg.MaxLeafByteSize = 4096
	}
	tx := &Transaction{id: id, heap: h, store: store, cfg: cfg, logger: logger, poisoned: poisoned}
	h.RegisterOwner(id, tx)

	if root == (noderef.NodeReference{}) {
		b := h.CreateEmptyBranch(id, cfg.MaxBranchChildren)
		headLeaf := h.CreateEmptyLeaf(id, keys.HEAD, 0)
		tailLeaf := h.CreateEmptyLeaf(id, keys.TAIL, 0)
		if err := b.InsertChild(0, headLeaf.Reference(), 0, keys.HEAD); err != nil {
			return nil, err
		}
		if err := b.InsertChild(1, tailLeaf.Reference(), 0, keys.TAIL); err != nil {
			return nil, err
		}
		tx.root = b.Reference()
		return tx, nil
	}

	node, err := tx.resolveNode(root, keys.HEAD)
	if err != nil {
		return nil, err
	}
	if node.IsLeaf() {
		return nil, tx.fail(txerr.NewCriticalStop(txerr.ErrPathNotAvailable))
	}
	tx.root = root
	return tx, nil
}

// Root returns the transaction's current root reference, the value a
// commit records as the new durable snapshot root.
func (tx *Transaction) Root() noderef.NodeReference { return tx.root }

// Discard releases this transaction's heap ownership without flushing.
func (tx *Transaction) Discard() {
	tx.heap.UnregisterOwner(tx.id)
}

func (tx *Transaction) fail(err error) error {
	if tx.poisoned != nil {
		tx.poisoned.Store(true)
	}
	tx.logger.CriticalStop(err, "txn: invariant violation")
	return err
}

func (tx *Transaction) resolveNode(ref noderef.NodeReference, key keys.Key) (tnode.Node, error) {
	switch {
	case ref.IsHeap():
		n, ok := tx.heap.Fetch(ref)
		if !ok {
			return nil, tx.fail(txerr.NewCriticalStop(txerr.ErrKeyNotFound))
		}
		return n, nil
	case ref.IsSparse():
		return tnode.NewSparseLeaf(ref, key), nil
	default:
		r, err := tx.store.ReadArea(ref)
		if err != nil {
			return nil, err
		}
		payload, err := r.ReadAll()
		if err != nil {
			return nil, err
		}
		return tnode.Decode(ref, payload)
	}
}

// unshare returns node itself if it is resident in the heap, and otherwise
// a heap-mutable copy of it owned by this transaction. Stored and sparse
// nodes are always copied. A heap-resident node is returned unchanged
// whichever transaction owns it; no ownership check is made.
func (tx *Transaction) unshare(node tnode.Node) tnode.Node {
	if node.Reference().IsHeap() {
		if n, ok := tx.heap.Fetch(node.Reference()); ok && n == node {
			return node
		}
	}
	return tx.heap.Copy(node, tx.id)
}

// chainFrame is one level of ancestry visited while locating a key's leaf
// chain: the unshared (heap-mutable) branch, and the slot of the child
// currently being descended into.
type chainFrame struct {
	branch *tnode.Branch
	slot   int
}

// lowerBound returns the first index in [0, b.ChildCount()) whose
// ChildKey is >= key. Unlike Branch.SearchChild (which finds the
// predecessor slot for point lookups), this finds the first slot of a
// same-key run, which multi-leaf chains require.
func lowerBound(b *tnode.Branch, key keys.Key) int {
	n := b.ChildCount()
	return sort.Search(n, func(i int) bool {
		return !b.ChildKey(i).Less(key)
	})
}

// locateChain walks from the root down to the leaf level for key,
// unsharing every branch along the path. It returns the path of ancestor
// frames (root first), the index of the first leaf slot belonging to key
// within the deepest branch, and whether that slot actually holds key (as
// opposed to just being its insertion point).
func (tx *Transaction) locateChain(key keys.Key) (path []chainFrame, firstSlot int, exists bool, err error) {
	ref := tx.root
	for {
		node, rerr := tx.resolveNode(ref, key)
		if rerr != nil {
			return nil, 0, false, rerr
		}
		branch := tx.unshare(node).(*tnode.Branch)
		if len(path) == 0 {
			tx.root = branch.Reference()
		} else {
			parent := path[len(path)-1]
			if err := parent.branch.SetChild(parent.slot, branch.Reference(), parent.branch.ChildExtent(parent.slot), parent.branch.ChildKey(parent.slot)); err != nil {
				return nil, 0, false, err
			}
		}

		idx := lowerBound(branch, key)
		if idx >= branch.ChildCount() || (idx > 0 && branch.ChildKey(idx).Compare(key) != 0) {
			idx--
		}

		childRef := branch.ChildRef(idx)
		childNode, perr := tx.peekKind(childRef)
		if perr != nil {
			return nil, 0, false, perr
		}
		path = append(path, chainFrame{branch: branch, slot: idx})
		if childNode.IsLeaf() {
			found := idx > 0 && branch.ChildKey(idx).Compare(key) == 0
			if idx <= 1 {
				// Slot 0 carries no separator key; the leaf itself says
				// whether key's chain starts there.
				first, ferr := tx.peekKind(branch.ChildRef(0))
				if ferr != nil {
					return nil, 0, false, ferr
				}
				if leaf, ok := first.(*tnode.Leaf); ok && leaf.Key() == key {
					idx, found = 0, true
					path[len(path)-1].slot = 0
				}
			}
			return path, idx, found, nil
		}
		ref = childRef
	}
}

// peekKind resolves just enough of ref to learn IsLeaf(); for sparse refs
// this never touches the store.
func (tx *Transaction) peekKind(ref noderef.NodeReference) (tnode.Node, error) {
	return tx.resolveNode(ref, keys.HEAD)
}

// chainExtent returns the number of leaf slots and total byte length of
// the consecutive run of children at and after firstSlot that share key.
func chainExtent(b *tnode.Branch, firstSlot int, key keys.Key) (count int, total uint64) {
	for i := firstSlot; i < b.ChildCount(); i++ {
		if i > firstSlot && b.ChildKey(i).Compare(key) != 0 {
			break
		}
		count++
		total += b.ChildExtent(i)
	}
	return
}
