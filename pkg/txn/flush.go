package txn

import (
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/tnode"
	"github.com/ssargent/freyjatree/pkg/wseq"
)

// FlushNodesToStore implements heap.Flusher. roots names the nodes
// Heap.ManageCache (or Commit) picked to evict; it first grows that set
// downward to a full closure (a stored node may never reference a
// heap-class child, so every heap descendant of a flushed node must be
// flushed too), writes every node of the closure once in the write
// sequence's order, rewrites each flushed branch with its flushed
// children's final addresses (children before parents), then walks the
// remainder of the live heap-resident tree once to repoint any surviving
// ancestor that referenced a now-flushed node.
func (tx *Transaction) FlushNodesToStore(roots []noderef.NodeReference) error {
	seq := wseq.New()
	ids := make(map[noderef.NodeReference]int)
	var order []noderef.NodeReference

	var walkDown func(ref noderef.NodeReference)
	walkDown = func(ref noderef.NodeReference) {
		if !ref.IsHeap() {
			return
		}
		if _, seen := ids[ref]; seen {
			return
		}
		node, ok := tx.heap.Fetch(ref)
		if !ok {
			return
		}
		ids[ref] = seq.SequenceNodeWrite(node)
		if branch, isBranch := node.(*tnode.Branch); isBranch {
			for i := 0; i < branch.ChildCount(); i++ {
				childRef := branch.ChildRef(i)
				walkDown(childRef)
				if childID, ok := ids[childRef]; ok {
					seq.SequenceBranchLink(ids[ref], i, childID)
				}
			}
		}
		order = append(order, ref)
	}
	for _, r := range roots {
		walkDown(r)
	}
	if len(order) == 0 {
		return nil
	}

	writtenRefs := make([]noderef.NodeReference, seq.CombinedLen())
	for i := 0; i < seq.CombinedLen(); i++ {
		ref, err := tx.writeNodeImage(seq.CombinedNode(i))
		if err != nil {
			return err
		}
		writtenRefs[i] = ref
	}

	// order is child-before-parent (post-order, also across several
	// roots, since a node already walked from an earlier root is skipped):
	// walking it forward visits every node only after all of its
	// descendants are finalized, which is exactly the order in which a
	// branch can safely learn its children's real addresses and be
	// rewritten with them.
	for _, ref := range order {
		node, _ := tx.heap.Fetch(ref)
		branch, isBranch := node.(*tnode.Branch)
		if !isBranch {
			continue
		}
		changed := false
		for c := 0; c < branch.ChildCount(); c++ {
			oldChild := branch.ChildRef(c)
			childID, ok := ids[oldChild]
			if !ok {
				continue
			}
			newChild := writtenRefs[seq.LookupRef(childID)]
			if err := branch.SetChild(c, newChild, branch.ChildExtent(c), branch.ChildKey(c)); err != nil {
				return err
			}
			changed = true
		}
		if !changed {
			continue
		}
		newRef, err := tx.writeNodeImage(branch)
		if err != nil {
			return err
		}
		writtenRefs[seq.LookupRef(ids[ref])] = newRef
	}

	oldToNew := make(map[noderef.NodeReference]noderef.NodeReference, len(ids))
	for ref, id := range ids {
		oldToNew[ref] = writtenRefs[seq.LookupRef(id)]
	}
	tx.patchLiveTree(oldToNew)

	for ref := range ids {
		tx.heap.Delete(ref)
	}
	return nil
}

// patchLiveTree repoints every surviving heap-resident branch's child
// slots that still reference a now-flushed old reference. It walks from
// the root rather than relying on parent pointers, since tree nodes carry
// none.
func (tx *Transaction) patchLiveTree(oldToNew map[noderef.NodeReference]noderef.NodeReference) {
	if newRoot, ok := oldToNew[tx.root]; ok {
		tx.root = newRoot
	}

	visited := make(map[noderef.NodeReference]bool)
	var walk func(ref noderef.NodeReference)
	walk = func(ref noderef.NodeReference) {
		if !ref.IsHeap() || visited[ref] {
			return
		}
		visited[ref] = true
		node, ok := tx.heap.Fetch(ref)
		if !ok {
			return
		}
		branch, isBranch := node.(*tnode.Branch)
		if !isBranch {
			return
		}
		for i := 0; i < branch.ChildCount(); i++ {
			child := branch.ChildRef(i)
			if newChild, ok := oldToNew[child]; ok {
				branch.SetChild(i, newChild, branch.ChildExtent(i), branch.ChildKey(i))
				continue
			}
			walk(child)
		}
	}
	walk(tx.root)
}

func (tx *Transaction) writeNodeImage(node tnode.Node) (noderef.NodeReference, error) {
	var payload []byte
	switch n := node.(type) {
	case *tnode.Leaf:
		payload = tnode.EncodeLeaf(n)
	case *tnode.Branch:
		payload = tnode.EncodeBranch(n)
	}
	w, err := tx.store.CreateArea(len(payload))
	if err != nil {
		return noderef.NodeReference{}, err
	}
	if err := w.Put(payload); err != nil {
		return noderef.NodeReference{}, err
	}
	return w.Finish()
}

// Commit flushes every heap node this transaction still owns, leaving
// Root() pointing at a fully durable snapshot, and releases this
// transaction's heap ownership.
func (tx *Transaction) Commit() (noderef.NodeReference, error) {
	refs := tx.ownedHeapRefs()
	if len(refs) > 0 {
		if err := tx.FlushNodesToStore(refs); err != nil {
			return noderef.NodeReference{}, err
		}
	}
	tx.heap.UnregisterOwner(tx.id)
	return tx.root, nil
}

// ownedHeapRefs walks from the root collecting every still-heap-resident
// reference reachable from it.
func (tx *Transaction) ownedHeapRefs() []noderef.NodeReference {
	var refs []noderef.NodeReference
	seen := map[noderef.NodeReference]bool{}

	var walk func(ref noderef.NodeReference)
	walk = func(ref noderef.NodeReference) {
		if !ref.IsHeap() || seen[ref] {
			return
		}
		seen[ref] = true
		node, ok := tx.heap.Fetch(ref)
		if !ok {
			return
		}
		refs = append(refs, ref)
		if branch, ok := node.(*tnode.Branch); ok {
			for i := 0; i < branch.ChildCount(); i++ {
				walk(branch.ChildRef(i))
			}
		}
	}
	walk(tx.root)
	return refs
}
