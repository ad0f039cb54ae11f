// Package heap implements TreeNodeHeap: the hash-indexed, LRU-ordered
// mutable staging area for heap nodes, bounded by a soft memory cap and
// backed by a chained hash table rather than Go's built-in map.
package heap

import (
	"sync/atomic"

	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/tnode"
)

// heapIDMask keeps the monotonic counter inside 60 bits; the counter wraps
// around on overflow rather than erroring.
const heapIDMask = (uint64(1) << 60) - 1

// Flusher is implemented by the owner (a transaction) of heap nodes
// selected for eviction. ManageCache groups evicted nodes by owner and
// calls FlushNodesToStore once per owner with that owner's refs, sorted
// LRU-to-MRU among themselves.
type Flusher interface {
	FlushNodesToStore(sortedRefs []noderef.NodeReference) error
}

// entry is one hash-chain + LRU-list node.
type entry struct {
	ref     noderef.NodeReference
	node    tnode.Node
	ownerID uint64
	size    int

	bucketNext *entry

	mruPrev, mruNext *entry
}

// Heap is a per-database staging area; many transactions may share one
// Heap instance, distinguished by ownerID. Callers must not share a Heap
// across goroutines without external synchronization.
type Heap struct {
	buckets []*entry
	count   int

	mruHead, mruTail *entry

	memoryUsed   int64
	maxMemory    int64
	idCounter    uint64
	owners       map[uint64]Flusher
	maxBranch    int
	maxLeaf      uint32
}

// Config configures a Heap.
type Config struct {
	// HashBuckets sizes the chained lookup table.
	HashBuckets int
	// MaxMemoryLimit triggers ManageCache once MemoryUsed exceeds it.
	MaxMemoryLimit int64
	// MaxBranchChildren and MaxLeafByteSize are recorded on the Heap but
	// not consulted: CreateEmptyBranch and CreateEmptyLeaf take their
	// bounds from their own arguments.
	MaxBranchChildren int
	MaxLeafByteSize   uint32
}

// New creates an empty heap.
func New(cfg Config) *Heap {
	if cfg.HashBuckets <= 0 {
		cfg.HashBuckets = 1024
	}
	return &Heap{
		buckets:   make([]*entry, cfg.HashBuckets),
		maxMemory: cfg.MaxMemoryLimit,
		owners:    make(map[uint64]Flusher),
		maxBranch: cfg.MaxBranchChildren,
		maxLeaf:   cfg.MaxLeafByteSize,
	}
}

// RegisterOwner associates ownerID (a transaction identity) with the
// Flusher ManageCache calls back into when that owner's nodes are evicted.
func (h *Heap) RegisterOwner(ownerID uint64, f Flusher) {
	h.owners[ownerID] = f
}

// UnregisterOwner drops the owner association, e.g. on transaction discard
// or commit.
func (h *Heap) UnregisterOwner(ownerID uint64) {
	delete(h.owners, ownerID)
}

// NewHeapID allocates a fresh, monotonically increasing 60-bit heap id,
// wrapped into a heap-class NodeReference.
func (h *Heap) NewHeapID() noderef.NodeReference {
	id := atomic.AddUint64(&h.idCounter, 1) - 1
	return noderef.Heap(id & heapIDMask)
}

func (h *Heap) bucketFor(ref noderef.NodeReference) int {
	return int(ref.Hash() % uint64(len(h.buckets)))
}

// Fetch returns the node for ref, or (nil, false) if absent. Fetch does
// not promote the entry to MRU; this is a deliberate, tested policy.
func (h *Heap) Fetch(ref noderef.NodeReference) (tnode.Node, bool) {
	e := h.find(ref)
	if e == nil {
		return nil, false
	}
	return e.node, true
}

func (h *Heap) find(ref noderef.NodeReference) *entry {
	for e := h.buckets[h.bucketFor(ref)]; e != nil; e = e.bucketNext {
		if e.ref == ref {
			return e
		}
	}
	return nil
}

// CreateEmptyLeaf allocates a fresh heap-mutable leaf for key k, owned by
// ownerID, and inserts it into the heap at MRU.
func (h *Heap) CreateEmptyLeaf(ownerID uint64, k keys.Key, maxCap uint32) *tnode.Leaf {
	ref := h.NewHeapID()
	leaf := tnode.NewHeapLeaf(ref, k, maxCap)
	h.insert(ownerID, leaf)
	return leaf
}

// CreateEmptyBranch allocates a fresh heap-mutable branch owned by
// ownerID, and inserts it into the heap at MRU.
func (h *Heap) CreateEmptyBranch(ownerID uint64, maxChildren int) *tnode.Branch {
	ref := h.NewHeapID()
	branch := tnode.NewHeapBranch(ref, maxChildren)
	h.insert(ownerID, branch)
	return branch
}

// Copy produces a heap-mutable copy of node (which may itself be stored,
// sparse, or already heap-mutable) under a fresh heap id, owned by
// ownerID.
func (h *Heap) Copy(node tnode.Node, ownerID uint64) tnode.Node {
	ref := h.NewHeapID()
	var copied tnode.Node
	switch n := node.(type) {
	case *tnode.Leaf:
		nl := tnode.NewHeapLeaf(ref, n.Key(), n.Capacity())
		buf := make([]byte, n.Size())
		if err := n.GetRange(0, buf); err != nil {
			panic("heap: copy source leaf is inconsistent: " + err.Error())
		}
		if err := nl.Put(0, buf); err != nil {
			panic("heap: copy of leaf payload failed: " + err.Error())
		}
		copied = nl
	case *tnode.Branch:
		nb := tnode.NewHeapBranch(ref, n.MaxChildren())
		for i := 0; i < n.ChildCount(); i++ {
			if err := nb.InsertChild(i, n.ChildRef(i), n.ChildExtent(i), n.ChildKey(i)); err != nil {
				panic("heap: copy of branch child failed: " + err.Error())
			}
		}
		copied = nb
	default:
		panic("heap: unknown node kind")
	}
	h.insert(ownerID, copied)
	return copied
}

func (h *Heap) insert(ownerID uint64, node tnode.Node) {
	ref := node.Reference()
	e := &entry{ref: ref, node: node, ownerID: ownerID, size: node.HeapSizeEstimate()}

	b := h.bucketFor(ref)
	e.bucketNext = h.buckets[b]
	h.buckets[b] = e

	h.pushMRU(e)
	h.memoryUsed += int64(e.size)
	h.count++
}

func (h *Heap) pushMRU(e *entry) {
	e.mruPrev = nil
	e.mruNext = h.mruHead
	if h.mruHead != nil {
		h.mruHead.mruPrev = e
	}
	h.mruHead = e
	if h.mruTail == nil {
		h.mruTail = e
	}
}

func (h *Heap) unlinkMRU(e *entry) {
	if e.mruPrev != nil {
		e.mruPrev.mruNext = e.mruNext
	} else {
		h.mruHead = e.mruNext
	}
	if e.mruNext != nil {
		e.mruNext.mruPrev = e.mruPrev
	} else {
		h.mruTail = e.mruPrev
	}
}

// Delete unlinks and frees ref. It panics if ref is absent: the caller is
// expected to know which refs it owns.
func (h *Heap) Delete(ref noderef.NodeReference) {
	b := h.bucketFor(ref)
	var prev *entry
	for e := h.buckets[b]; e != nil; e = e.bucketNext {
		if e.ref == ref {
			if prev == nil {
				h.buckets[b] = e.bucketNext
			} else {
				prev.bucketNext = e.bucketNext
			}
			h.unlinkMRU(e)
			h.memoryUsed -= int64(e.size)
			h.count--
			return
		}
		prev = e
	}
	panic("heap: delete of unknown reference " + ref.String())
}

// MemoryUsed returns the running sum of resident nodes' heap size
// estimates.
func (h *Heap) MemoryUsed() int64 { return h.memoryUsed }

// Count returns the number of resident nodes.
func (h *Heap) Count() int { return h.count }

// ManageCache evicts roughly 30% of the least-recently-used nodes when
// MemoryUsed exceeds the configured limit, grouping them by owner and
// flushing each group through that owner's Flusher.
func (h *Heap) ManageCache() error {
	if h.maxMemory <= 0 || h.memoryUsed <= h.maxMemory {
		return nil
	}

	target := (h.count*3 + 9) / 10 // ceil(30% of count), at least 1 if count>0
	if target == 0 && h.count > 0 {
		target = 1
	}

	byOwner := make(map[uint64][]noderef.NodeReference)
	var order []uint64

	for e, n := h.mruTail, 0; e != nil && n < target; e, n = e.mruPrev, n+1 {
		if _, ok := byOwner[e.ownerID]; !ok {
			order = append(order, e.ownerID)
		}
		byOwner[e.ownerID] = append(byOwner[e.ownerID], e.ref)
	}

	for _, ownerID := range order {
		f, ok := h.owners[ownerID]
		if !ok {
			continue
		}
		if err := f.FlushNodesToStore(byOwner[ownerID]); err != nil {
			return err
		}
	}
	return nil
}
