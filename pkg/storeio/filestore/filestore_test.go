package filestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjatree/pkg/noderef"
)

func TestCreateAreaReadBack(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{FilePath: filepath.Join(dir, "areas.log")})
	require.NoError(t, err)
	defer s.Close()

	w, err := s.CreateArea(16)
	require.NoError(t, err)
	require.NoError(t, w.PutByte(0xAB))
	require.NoError(t, w.PutUint32(42))
	require.NoError(t, w.Put([]byte("hello")))

	ref, err := w.Finish()
	require.NoError(t, err)
	require.True(t, ref.IsStored())

	r, err := s.ReadArea(ref)
	require.NoError(t, err)

	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), b)

	v, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)

	buf := make([]byte, 5)
	require.NoError(t, r.Read(buf))
	require.Equal(t, "hello", string(buf))
}

func TestMultipleAreasDistinctOffsets(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{FilePath: filepath.Join(dir, "areas.log")})
	require.NoError(t, err)
	defer s.Close()

	w1, _ := s.CreateArea(4)
	w1.Put([]byte("aaaa"))
	ref1, err := w1.Finish()
	require.NoError(t, err)

	w2, _ := s.CreateArea(4)
	w2.Put([]byte("bbbb"))
	ref2, err := w2.Finish()
	require.NoError(t, err)

	require.NotEqual(t, ref1, ref2)

	r1, err := s.ReadArea(ref1)
	require.NoError(t, err)
	buf := make([]byte, 4)
	require.NoError(t, r1.Read(buf))
	require.Equal(t, "aaaa", string(buf))

	r2, err := s.ReadArea(ref2)
	require.NoError(t, err)
	require.NoError(t, r2.Read(buf))
	require.Equal(t, "bbbb", string(buf))
}

func TestFirstAreaNeverCollidesWithEmptyTreeSentinel(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{FilePath: filepath.Join(dir, "areas.log")})
	require.NoError(t, err)
	defer s.Close()

	w, _ := s.CreateArea(4)
	w.Put([]byte("aaaa"))
	ref, err := w.Finish()
	require.NoError(t, err)

	require.NotEqual(t, noderef.NodeReference{}, ref, "the first stored record must not land at offset 0")
}
