// Package datafile implements DataFile: the logical byte-stream view a
// caller addresses a single key's data through, layered thinly over
// pkg/txn's byte-level transaction API.
package datafile

import (
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/txerr"
)

// Transaction is the subset of *txn.Transaction a DataFile needs. Depending
// on this narrow interface, rather than the concrete type, keeps the
// dependency one-directional (datafile -> txn, never back).
type Transaction interface {
	Exists(key keys.Key) (bool, error)
	Size(key keys.Key) (uint64, error)
	Get(key keys.Key, pos uint32) (byte, error)
	GetRange(key keys.Key, pos uint32, buf []byte) error
	Put(key keys.Key, pos uint32, buf []byte) error
	SetSize(key keys.Key, n uint64) error
	Delete(key keys.Key) error
	Shift(key keys.Key, pos uint32, offset int32) error
}

// DataFile is a logical byte-stream view over one key in a transaction. It
// carries no bytes of its own; every call delegates straight through to the
// owning transaction.
type DataFile struct {
	tx  Transaction
	key keys.Key
	pos uint32
}

// Open returns the DataFile view of key within tx. A DataFile may be opened
// for a key that does not yet exist; Size and GetByte behave as zero-size
// until the first Put.
func Open(tx Transaction, key keys.Key) *DataFile {
	return &DataFile{tx: tx, key: key}
}

// Key returns the key this DataFile addresses.
func (f *DataFile) Key() keys.Key { return f.key }

// Exists reports whether any data has ever been written under this key.
func (f *DataFile) Exists() (bool, error) { return f.tx.Exists(f.key) }

// Size returns the total byte length addressed under this key.
func (f *DataFile) Size() (uint64, error) { return f.tx.Size(f.key) }

// Position returns the view's current cursor, as last left by
// Read/Write/Seek.
func (f *DataFile) Position() uint32 { return f.pos }

// Seek repositions the view's cursor for subsequent Read calls, clamping
// pos to [0, size].
func (f *DataFile) Seek(pos uint32) error {
	size, err := f.tx.Size(f.key)
	if err != nil {
		return err
	}
	if uint64(pos) > size {
		pos = uint32(size)
	}
	f.pos = pos
	return nil
}

// GetByte reads a single byte at pos without moving the cursor.
func (f *DataFile) GetByte(pos uint32) (byte, error) { return f.tx.Get(f.key, pos) }

// GetRange reads len(buf) bytes starting at pos into buf without moving the
// cursor.
func (f *DataFile) GetRange(pos uint32, buf []byte) error { return f.tx.GetRange(f.key, pos, buf) }

// Read fills buf starting at the cursor, then advances the cursor by
// len(buf).
func (f *DataFile) Read(buf []byte) error {
	if err := f.tx.GetRange(f.key, f.pos, buf); err != nil {
		return err
	}
	f.pos += uint32(len(buf))
	return nil
}

// PutAt writes buf at pos, extending the key's size when pos == size. A pos
// beyond the current size would leave a gap and is rejected. The cursor is
// unaffected.
func (f *DataFile) PutAt(pos uint32, buf []byte) error {
	if err := f.checkWriteStart(pos); err != nil {
		return err
	}
	return f.tx.Put(f.key, pos, buf)
}

// Write writes buf at the cursor, then advances the cursor by len(buf).
func (f *DataFile) Write(buf []byte) error {
	if err := f.checkWriteStart(f.pos); err != nil {
		return err
	}
	if err := f.tx.Put(f.key, f.pos, buf); err != nil {
		return err
	}
	f.pos += uint32(len(buf))
	return nil
}

// checkWriteStart rejects a write whose start offset lies past the key's
// current size; writing exactly at size is the normal extension case.
func (f *DataFile) checkWriteStart(pos uint32) error {
	size, err := f.tx.Size(f.key)
	if err != nil {
		return err
	}
	if uint64(pos) > size {
		return txerr.ErrDataPositionOutOfBounds
	}
	return nil
}

// SetSize truncates or zero-fill-extends the key's data to exactly n bytes.
func (f *DataFile) SetSize(n uint64) error { return f.tx.SetSize(f.key, n) }

// Delete removes all data under this key, equivalent to SetSize(0).
func (f *DataFile) Delete() error { return f.tx.Delete(f.key) }

// Shift moves the bytes from pos to the end of the file by offset bytes,
// growing or shrinking the file's total size by offset.
func (f *DataFile) Shift(pos uint32, offset int32) error { return f.tx.Shift(f.key, pos, offset) }

// CopyFrom overwrites this file's full contents with src's, reading src's
// full size into memory first. For very large files, prefer streaming with
// Read/Write in chunks instead.
func (f *DataFile) CopyFrom(src *DataFile) error {
	size, err := src.Size()
	if err != nil {
		return err
	}
	if err := f.SetSize(size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	buf := make([]byte, size)
	if err := src.GetRange(0, buf); err != nil {
		return err
	}
	return f.PutAt(0, buf)
}

// ReplicateTo is CopyFrom from the reverse perspective: dst becomes a full
// copy of this file's contents.
func (f *DataFile) ReplicateTo(dst *DataFile) error { return dst.CopyFrom(f) }

// CopyTo is an alias of ReplicateTo.
func (f *DataFile) CopyTo(dst *DataFile) error { return f.ReplicateTo(dst) }

// ReplicateFrom is an alias of CopyFrom.
func (f *DataFile) ReplicateFrom(src *DataFile) error { return f.CopyFrom(src) }

// BlockLocationMeta is the opaque location summary GetBlockLocationMeta
// returns: enough for diagnostics, never a raw address a caller outside
// pkg/storeio could dereference.
type BlockLocationMeta struct {
	ChainLength int
	TotalBytes  uint64
}

// AddressableDataFile is the subset of Transaction needed to report a
// key's on-disk layout without exposing raw storeio addresses.
type AddressableDataFile struct {
	*DataFile
}

// Addressable wraps f, adding GetBlockLocationMeta.
func Addressable(f *DataFile) *AddressableDataFile {
	return &AddressableDataFile{DataFile: f}
}

// blockLocator is implemented by transactions that can report a key's leaf
// chain shape. pkg/txn.Transaction satisfies it via its unexported chain
// walk; engine wires the concrete type in.
type blockLocator interface {
	ChainShape(key keys.Key) (leafCount int, totalBytes uint64, err error)
}

// GetBlockLocationMeta reports the shape of this key's leaf chain, if the
// underlying transaction supports introspection; otherwise it falls back to
// a single logical block spanning the whole size.
func (a *AddressableDataFile) GetBlockLocationMeta() (BlockLocationMeta, error) {
	if bl, ok := a.tx.(blockLocator); ok {
		count, total, err := bl.ChainShape(a.key)
		if err != nil {
			return BlockLocationMeta{}, err
		}
		return BlockLocationMeta{ChainLength: count, TotalBytes: total}, nil
	}
	size, err := a.Size()
	if err != nil {
		return BlockLocationMeta{}, err
	}
	chain := 0
	if size > 0 {
		chain = 1
	}
	return BlockLocationMeta{ChainLength: chain, TotalBytes: size}, nil
}
