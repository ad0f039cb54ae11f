package datafile

import "unicode/utf8"

// StringDataFile is a thin UTF-8 convenience wrapper over a DataFile: it
// never stores bytes itself, only offers string-shaped Read/Write built on
// DataFile's byte primitives.
type StringDataFile struct {
	*DataFile
}

// String wraps f as a StringDataFile.
func String(f *DataFile) *StringDataFile { return &StringDataFile{DataFile: f} }

// WriteString encodes s as UTF-8 and writes it at the cursor.
func (s *StringDataFile) WriteString(str string) error {
	return s.Write([]byte(str))
}

// ReadString reads n bytes from the cursor and returns them as a string.
// The bytes are not validated: an invalid UTF-8 sequence is kept as is.
func (s *StringDataFile) ReadString(n uint32) (string, error) {
	buf := make([]byte, n)
	if err := s.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// StringReader is a forward-only cursor over a StringDataFile with mark/
// reset support. Reset returns to the last mark, or to 0 if none was ever
// set.
type StringReader struct {
	file *StringDataFile
	pos  uint32
	mark uint32
}

// NewStringReader returns a StringReader positioned at 0 over f.
func NewStringReader(f *StringDataFile) *StringReader {
	return &StringReader{file: f}
}

// Mark records the current position as the reset target.
func (r *StringReader) Mark() { r.mark = r.pos }

// Reset returns the cursor to the last Mark, or 0 if Mark was never called.
func (r *StringReader) Reset() { r.pos = r.mark }

// ReadRune reads and decodes one UTF-8 rune starting at the cursor,
// advancing the cursor by the rune's encoded width.
func (r *StringReader) ReadRune() (rune, error) {
	head := make([]byte, utf8.UTFMax)
	size, err := r.file.Size()
	if err != nil {
		return 0, err
	}
	remaining := size - uint64(r.pos)
	if remaining < uint64(len(head)) {
		head = head[:remaining]
	}
	if len(head) == 0 {
		return 0, nil
	}
	if err := r.file.GetRange(r.pos, head); err != nil {
		return 0, err
	}
	ru, width := utf8.DecodeRune(head)
	r.pos += uint32(width)
	return ru, nil
}
