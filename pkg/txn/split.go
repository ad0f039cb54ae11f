package txn

import (
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/tnode"
)

// afterStructuralChange runs bottom-up over path (deepest branch first),
// splitting any branch that now exceeds MaxBranchChildren and bubbling
// every child's extent up to its parent slot. Growing or shrinking a leaf
// chain, or inserting/removing a chain's first leaf, must always be
// followed by this call.
func (tx *Transaction) afterStructuralChange(path []chainFrame) error {
	for i := len(path) - 1; i >= 0; i-- {
		branch := path[i].branch

		if branch.ChildCount() > tx.cfg.MaxBranchChildren {
			right, rightFirstKey, err := tx.splitBranchInPlace(branch)
			if err != nil {
				return err
			}
			if i == 0 {
				newRoot := tx.heap.CreateEmptyBranch(tx.id, tx.cfg.MaxBranchChildren)
				if err := newRoot.InsertChild(0, branch.Reference(), branch.TotalExtent(), keys.HEAD); err != nil {
					return err
				}
				if err := newRoot.InsertChild(1, right.Reference(), right.TotalExtent(), rightFirstKey); err != nil {
					return err
				}
				tx.root = newRoot.Reference()
				continue
			}
			parent := path[i-1]
			if err := parent.branch.SetChild(parent.slot, branch.Reference(), branch.TotalExtent(), parent.branch.ChildKey(parent.slot)); err != nil {
				return err
			}
			if err := parent.branch.InsertChild(parent.slot+1, right.Reference(), right.TotalExtent(), rightFirstKey); err != nil {
				return err
			}
			continue
		}

		if i > 0 {
			parent := path[i-1]
			if err := parent.branch.SetChild(parent.slot, branch.Reference(), branch.TotalExtent(), parent.branch.ChildKey(parent.slot)); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitBranchInPlace splits branch at a near-median index chosen not to
// fall inside a run of children sharing one key (a key's leaf chain must
// stay within a single parent branch). Slot 0 reports no key of its own,
// so a run that also continues into slot 0 is still split at slot 1.
// branch is truncated in place to
// become the left half; the returned branch is the new right half, whose
// first child's key is also returned as the separator to promote.
func (tx *Transaction) splitBranchInPlace(branch *tnode.Branch) (*tnode.Branch, keys.Key, error) {
	count := branch.ChildCount()
	mid := count / 2
	if mid < 2 {
		mid = 2
	}
	for mid < count-1 && branch.ChildKey(mid) == branch.ChildKey(mid-1) {
		mid++
	}
	for mid > 1 && branch.ChildKey(mid) == branch.ChildKey(mid-1) {
		mid--
	}
	if mid < 1 {
		mid = 1
	}

	rightFirstKey := branch.ChildKey(mid)
	right := tx.heap.CreateEmptyBranch(tx.id, tx.cfg.MaxBranchChildren)
	for i := mid; i < count; i++ {
		if err := right.InsertChild(i-mid, branch.ChildRef(i), branch.ChildExtent(i), branch.ChildKey(i)); err != nil {
			return nil, keys.Key{}, err
		}
	}
	for i := count - 1; i >= mid; i-- {
		if err := branch.RemoveChild(i); err != nil {
			return nil, keys.Key{}, err
		}
	}
	return right, rightFirstKey, nil
}
