package pebblestore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/freyjatree/pkg/codec"
	"github.com/ssargent/freyjatree/pkg/noderef"
)

// AreaWriter accumulates a node image in memory until Finish writes it as
// one pebble entry.
type AreaWriter struct {
	store *Store
	buf   []byte
}

func (w *AreaWriter) PutByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *AreaWriter) Put(buf []byte) error {
	w.buf = append(w.buf, buf...)
	return nil
}

func (w *AreaWriter) PutUint16(v uint16) error {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *AreaWriter) PutUint32(v uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *AreaWriter) PutUint64(v uint64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *AreaWriter) Finish() (noderef.NodeReference, error) {
	framed := codec.Encode(w.buf)
	return w.store.append(framed)
}

// AreaReader reads back the primitives written by an AreaWriter, in order.
type AreaReader struct {
	r *bytes.Reader
}

func newAreaReader(payload []byte) *AreaReader {
	return &AreaReader{r: bytes.NewReader(payload)}
}

func (r *AreaReader) ReadByte() (byte, error) {
	return r.r.ReadByte()
}

func (r *AreaReader) Read(buf []byte) error {
	n, err := r.r.Read(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("pebblestore: short read: wanted %d got %d", len(buf), n)
	}
	return nil
}

func (r *AreaReader) ReadUint16() (uint16, error) {
	var tmp [2]byte
	if err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(tmp[:]), nil
}

func (r *AreaReader) ReadUint32() (uint32, error) {
	var tmp [4]byte
	if err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func (r *AreaReader) ReadUint64() (uint64, error) {
	var tmp [8]byte
	if err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func (r *AreaReader) ReadAll() ([]byte, error) {
	rest := make([]byte, r.r.Len())
	if len(rest) == 0 {
		return rest, nil
	}
	if _, err := r.r.Read(rest); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rest, nil
}
