// Package storeio defines the backing-store interface consumed by the
// tree engine. The core never knows how areas are laid out on disk; it
// only allocates, writes, and reads opaque areas through this interface.
package storeio

import "github.com/ssargent/freyjatree/pkg/noderef"

// AreaWriter accumulates a node image before it is committed to the store.
// Finish mints the store-class NodeReference for the area.
type AreaWriter interface {
	PutByte(b byte) error
	Put(buf []byte) error
	PutUint16(v uint16) error
	PutUint32(v uint32) error
	PutUint64(v uint64) error
	Finish() (noderef.NodeReference, error)
}

// AreaReader mirrors AreaWriter's primitive reads over a previously
// written area.
type AreaReader interface {
	ReadByte() (byte, error)
	Read(buf []byte) error
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadUint64() (uint64, error)
	// ReadAll returns every byte remaining in the area, for callers (the
	// node codec) that treat the area as one opaque blob rather than a
	// sequence of typed primitives.
	ReadAll() ([]byte, error)
}

// Store is the backing-store interface the core depends on. FreeArea is
// called by the commit manager / GC, never by the core itself.
type Store interface {
	CreateArea(sizeHint int) (AreaWriter, error)
	ReadArea(ref noderef.NodeReference) (AreaReader, error)
	FreeArea(ref noderef.NodeReference) error
}
