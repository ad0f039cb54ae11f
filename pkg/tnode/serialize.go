package tnode

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
)

// Node image kind tags, the first byte of every encoded node.
const (
	kindLeaf   byte = 0
	kindBranch byte = 1
)

func encodeKey(k keys.Key) []byte {
	buf := make([]byte, 14)
	binary.BigEndian.PutUint16(buf[0:2], k.Type)
	binary.BigEndian.PutUint32(buf[2:6], uint32(k.Secondary))
	binary.BigEndian.PutUint64(buf[6:14], uint64(k.Primary))
	return buf
}

func decodeKey(buf []byte) keys.Key {
	return keys.Key{
		Type:      binary.BigEndian.Uint16(buf[0:2]),
		Secondary: int32(binary.BigEndian.Uint32(buf[2:6])),
		Primary:   int64(binary.BigEndian.Uint64(buf[6:14])),
	}
}

// EncodeLeaf serializes a heap leaf's full node image (key, size,
// capacity, payload) for writing to a backing-store area. Only ever
// called on heap leaves: stored leaves are already persisted, and sparse
// leaves carry no payload at all.
func EncodeLeaf(l *Leaf) []byte {
	buf := make([]byte, 0, 1+14+4+4+len(l.data))
	buf = append(buf, kindLeaf)
	buf = append(buf, encodeKey(l.key)...)

	var sizeCap [8]byte
	binary.BigEndian.PutUint32(sizeCap[0:4], l.size)
	binary.BigEndian.PutUint32(sizeCap[4:8], l.capacity)
	buf = append(buf, sizeCap[:]...)

	buf = append(buf, l.data[:l.size]...)
	return buf
}

// EncodeBranch serializes a branch's full node image. Children must
// already be rewritten to store-class references (the write sequence's
// job) before this is called.
func EncodeBranch(b *Branch) []byte {
	n := b.ChildCount()
	buf := make([]byte, 0, 1+4+n*(16+8+14))
	buf = append(buf, kindBranch)

	var header [4]byte
	binary.BigEndian.PutUint16(header[0:2], uint16(b.maxChildren))
	binary.BigEndian.PutUint16(header[2:4], uint16(n))
	buf = append(buf, header[:]...)

	for i := 0; i < n; i++ {
		var refBuf [16]byte
		binary.BigEndian.PutUint64(refBuf[0:8], b.childRef[i].High)
		binary.BigEndian.PutUint64(refBuf[8:16], b.childRef[i].Low)
		buf = append(buf, refBuf[:]...)

		var extentBuf [8]byte
		binary.BigEndian.PutUint64(extentBuf[:], b.childExtent[i])
		buf = append(buf, extentBuf[:]...)

		if i > 0 {
			buf = append(buf, encodeKey(b.childKey[i])...)
		} else {
			buf = append(buf, make([]byte, 14)...)
		}
	}
	return buf
}

// Decode reconstructs a Node from a previously encoded image, tagging the
// result as belonging to the stored node ref.
func Decode(ref noderef.NodeReference, payload []byte) (Node, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("tnode: empty node image")
	}
	switch payload[0] {
	case kindLeaf:
		if len(payload) < 1+14+8 {
			return nil, fmt.Errorf("tnode: truncated leaf image")
		}
		k := decodeKey(payload[1:15])
		size := binary.BigEndian.Uint32(payload[15:19])
		capacity := binary.BigEndian.Uint32(payload[19:23])
		data := make([]byte, size)
		copy(data, payload[23:23+int(size)])
		return NewStoredLeaf(ref, k, data, capacity), nil

	case kindBranch:
		if len(payload) < 1+4 {
			return nil, fmt.Errorf("tnode: truncated branch image")
		}
		maxChildren := int(binary.BigEndian.Uint16(payload[1:3]))
		count := int(binary.BigEndian.Uint16(payload[3:5]))
		refs := make([]noderef.NodeReference, count)
		extents := make([]uint64, count)
		childKeys := make([]keys.Key, count)

		off := 5
		const entrySize = 16 + 8 + 14
		for i := 0; i < count; i++ {
			if off+entrySize > len(payload) {
				return nil, fmt.Errorf("tnode: truncated branch child %d", i)
			}
			high := binary.BigEndian.Uint64(payload[off : off+8])
			low := binary.BigEndian.Uint64(payload[off+8 : off+16])
			refs[i] = noderef.NodeReference{High: high, Low: low}
			extents[i] = binary.BigEndian.Uint64(payload[off+16 : off+24])
			if i > 0 {
				childKeys[i] = decodeKey(payload[off+24 : off+38])
			} else {
				// Slot 0's key is never written (see EncodeBranch); it is
				// always keys.HEAD, matching what Branch.ChildKey(0)
				// reports for a heap-resident branch.
				childKeys[i] = keys.HEAD
			}
			off += entrySize
		}
		return NewStoredBranch(ref, maxChildren, refs, extents, childKeys), nil

	default:
		return nil, fmt.Errorf("tnode: unknown node image kind %d", payload[0])
	}
}
