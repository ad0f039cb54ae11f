// Package pebblestore is a backing-store implementation over
// github.com/cockroachdb/pebble, giving the tree engine a real persistent
// KV engine instead of the single-file log as an alternative area
// allocator. Each area becomes one pebble key, addressed by a
// monotonically increasing area id.
package pebblestore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/ssargent/freyjatree/pkg/codec"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/storeio"
)

var (
	_ storeio.Store      = (*Store)(nil)
	_ storeio.AreaWriter = (*AreaWriter)(nil)
	_ storeio.AreaReader = (*AreaReader)(nil)
)

// Config configures a Store.
type Config struct {
	// Dir is the pebble database directory.
	Dir string
	// Compression selects the SSTable block compressor; zero value
	// defaults to pebble's own default (Snappy).
	Compression pebble.Compression
}

// Store adapts a pebble.DB to the storeio.Store contract. Area id 0 is
// never assigned: noderef.Stored(0, 0) is byte-identical to the zero-value
// NodeReference that signals an empty, not-yet-bootstrapped tree, so ids
// start at 1.
type Store struct {
	db     *pebble.DB
	nextID uint64
}

// Open opens (creating if absent) the pebble database at cfg.Dir.
func Open(cfg Config) (*Store, error) {
	opts := &pebble.Options{}
	if cfg.Compression != 0 {
		opts.Levels = []pebble.LevelOptions{{Compression: cfg.Compression}}
	}
	db, err := pebble.Open(cfg.Dir, opts)
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open: %w", err)
	}

	s := &Store{db: db, nextID: 1}
	if id, err := s.maxExistingID(); err == nil && id > s.nextID {
		s.nextID = id
	}
	return s, nil
}

// Close closes the underlying pebble database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) maxExistingID() (uint64, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer it.Close()
	if !it.Last() {
		return 0, nil
	}
	key := it.Key()
	if len(key) != 8 {
		return 0, fmt.Errorf("pebblestore: unexpected key length %d", len(key))
	}
	return binary.BigEndian.Uint64(key) + 1, nil
}

func areaKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// CreateArea returns an AreaWriter buffering payload in memory; Finish
// allocates the next area id and writes the framed payload.
func (s *Store) CreateArea(sizeHint int) (storeio.AreaWriter, error) {
	return &AreaWriter{store: s, buf: make([]byte, 0, sizeHint)}, nil
}

// ReadArea reads and validates the frame stored at ref's area id.
func (s *Store) ReadArea(ref noderef.NodeReference) (storeio.AreaReader, error) {
	if !ref.IsStored() {
		return nil, fmt.Errorf("pebblestore: ReadArea requires a stored reference, got %s", ref)
	}
	_, id := ref.StoredAddress()

	raw, closer, err := s.db.Get(areaKey(id))
	if err != nil {
		return nil, fmt.Errorf("pebblestore: get area %d: %w", id, err)
	}
	defer closer.Close()

	buf := make([]byte, len(raw))
	copy(buf, raw)
	frame, err := codec.ReadFrom(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("pebblestore: decode area %d: %w", id, err)
	}
	return newAreaReader(frame.Payload), nil
}

// FreeArea deletes the area's pebble entry. Called only by the commit
// manager/GC, never by the core.
func (s *Store) FreeArea(ref noderef.NodeReference) error {
	if !ref.IsStored() {
		return fmt.Errorf("pebblestore: FreeArea requires a stored reference")
	}
	_, id := ref.StoredAddress()
	return s.db.Delete(areaKey(id), pebble.Sync)
}

func (s *Store) append(framed []byte) (noderef.NodeReference, error) {
	id := atomic.AddUint64(&s.nextID, 1) - 1
	if err := s.db.Set(areaKey(id), framed, pebble.Sync); err != nil {
		return noderef.NodeReference{}, fmt.Errorf("pebblestore: set area %d: %w", id, err)
	}
	return noderef.Stored(0, id), nil
}
