package txn

import "github.com/ssargent/freyjatree/pkg/keys"

// ChainShape reports the number of leaves and total byte length backing
// key, for diagnostics (pkg/datafile.AddressableDataFile,
// pkg/httpapi's read-only inspection endpoint).
func (tx *Transaction) ChainShape(key keys.Key) (leafCount int, totalBytes uint64, err error) {
	path, firstSlot, exists, err := tx.locateChain(key)
	if err != nil {
		return 0, 0, err
	}
	if !exists {
		return 0, 0, nil
	}
	parent := path[len(path)-1]
	count, total := chainExtent(parent.branch, firstSlot, key)
	return count, total, nil
}
