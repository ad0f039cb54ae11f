// Package filestore is a backing-store implementation over a single
// append-only file: every area becomes one CRC-framed record appended to
// the log, addressed by its byte offset.
package filestore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ssargent/freyjatree/pkg/codec"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/storeio"
)

var (
	_ storeio.Store      = (*Store)(nil)
	_ storeio.AreaWriter = (*AreaWriter)(nil)
	_ storeio.AreaReader = (*AreaReader)(nil)
)

// logHeader is written once at byte offset 0 of a freshly created log file.
// Its only purpose is to push every real record's offset to at least
// len(logHeader), so noderef.Stored(0, offset) can never produce the
// zero-value NodeReference that signals an empty, not-yet-bootstrapped tree.
var logHeader = []byte("FREYJATREE-AREALOG-V1\n")

// Config configures a Store.
type Config struct {
	// FilePath is the single append-only area log.
	FilePath string
	// BufferSize sizes the write buffer.
	BufferSize int
}

// Store is an append-only, single-file backing store. FreeArea is a no-op:
// area reclamation in a log-structured layout is the commit manager/GC's
// concern, never the core's, per the backing-store contract.
type Store struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	offset int64
}

// Open creates or reopens the area log at cfg.FilePath, positioned for
// append.
func Open(cfg Config) (*Store, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64 * 1024
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o750); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("filestore: open: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("filestore: stat: %w", err)
	}
	size := stat.Size()
	if size == 0 {
		if _, err := f.Write(logHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("filestore: write header: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("filestore: sync header: %w", err)
		}
		size = int64(len(logHeader))
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("filestore: seek: %w", err)
	}
	return &Store{
		file:   f,
		writer: bufio.NewWriterSize(f, cfg.BufferSize),
		offset: size,
	}, nil
}

// Close flushes and closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

// CreateArea returns an AreaWriter that buffers the payload in memory and
// appends one CRC-framed record to the log on Finish.
func (s *Store) CreateArea(sizeHint int) (storeio.AreaWriter, error) {
	return &AreaWriter{store: s, buf: make([]byte, 0, sizeHint)}, nil
}

// ReadArea reads back the frame at ref's offset and validates its
// checksum.
func (s *Store) ReadArea(ref noderef.NodeReference) (storeio.AreaReader, error) {
	if !ref.IsStored() {
		return nil, fmt.Errorf("filestore: ReadArea requires a stored reference, got %s", ref)
	}
	_, offset := ref.StoredAddress()

	s.mu.Lock()
	if err := s.writer.Flush(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	f, err := os.Open(s.file.Name())
	if err != nil {
		return nil, fmt.Errorf("filestore: reopen: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(offset), 0); err != nil {
		return nil, fmt.Errorf("filestore: seek to %d: %w", offset, err)
	}
	frame, err := codec.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("filestore: read area at %d: %w", offset, err)
	}
	return newAreaReader(frame.Payload), nil
}

// FreeArea is a deliberate no-op; see Store's doc comment.
func (s *Store) FreeArea(noderef.NodeReference) error {
	return nil
}

// append writes an already-framed record and returns the store reference
// that addresses it.
func (s *Store) append(framed []byte) (noderef.NodeReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordOffset := s.offset
	n, err := s.writer.Write(framed)
	if err != nil {
		return noderef.NodeReference{}, err
	}
	s.offset += int64(n)
	if err := s.writer.Flush(); err != nil {
		return noderef.NodeReference{}, err
	}
	if err := s.file.Sync(); err != nil {
		return noderef.NodeReference{}, err
	}
	return noderef.Stored(0, uint64(recordOffset)), nil
}
