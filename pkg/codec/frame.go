// Package codec implements the binary framing used to persist an opaque
// node image as a single backing-store area: a CRC32-checked
// length-prefixed payload.
//
// Frame format: [CRC32(4)][Length(4)][Payload(Length)], all little-endian.
// The frame carries a single opaque payload (an already-serialized node
// image); it has no key, value, or timestamp fields of its own.
package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// HeaderSize is the fixed size of a frame header in bytes.
const HeaderSize = 8

// Frame is a decoded area payload plus its recorded checksum.
type Frame struct {
	CRC32   uint32
	Payload []byte
}

// Encode serializes payload into a checksummed frame.
func Encode(payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	crc := crc32.ChecksumIEEE(payload)
	binary.LittleEndian.PutUint32(buf[0:4], crc)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// WriteTo writes an encoded frame for payload directly to w, avoiding an
// intermediate full-frame allocation for large payloads.
func WriteTo(w io.Writer, payload []byte) (int64, error) {
	var header [HeaderSize]byte
	crc := crc32.ChecksumIEEE(payload)
	binary.LittleEndian.PutUint32(header[0:4], crc)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return 0, err
	}
	n, err := w.Write(payload)
	return int64(HeaderSize + n), err
}

// ReadFrom reads and validates one frame from r.
func ReadFrom(r io.Reader) (*Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	crc := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("codec: short read of %d-byte payload: %w", length, err)
	}

	f := &Frame{CRC32: crc, Payload: payload}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate reports whether the frame's recorded checksum matches its
// payload.
func (f *Frame) Validate() error {
	if crc32.ChecksumIEEE(f.Payload) != f.CRC32 {
		return fmt.Errorf("codec: checksum mismatch, frame corrupted")
	}
	return nil
}

// EncodedSize returns the on-disk size of a frame carrying payloadLen
// bytes.
func EncodedSize(payloadLen int) int64 {
	return int64(HeaderSize + payloadLen)
}
