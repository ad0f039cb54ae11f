package datafile_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjatree/pkg/datafile"
	"github.com/ssargent/freyjatree/pkg/heap"
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/storeio/filestore"
	"github.com/ssargent/freyjatree/pkg/txerr"
	"github.com/ssargent/freyjatree/pkg/txlog"
	"github.com/ssargent/freyjatree/pkg/txn"
)

func newTx(t *testing.T) *txn.Transaction {
	t.Helper()
	h := heap.New(heap.Config{})
	store, err := filestore.Open(filestore.Config{FilePath: t.TempDir() + "/areas.log"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	var poisoned atomic.Bool
	tx, err := txn.New(1, h, store, noderef.NodeReference{}, txn.Config{MaxBranchChildren: 4, MaxLeafByteSize: 16}, txlog.Nop(), &poisoned)
	require.NoError(t, err)
	return tx
}

func TestDataFileReadWriteCursor(t *testing.T) {
	tx := newTx(t)
	f := datafile.Open(tx, keys.New(1, 0, 1))

	require.NoError(t, f.Write([]byte("hello ")))
	require.NoError(t, f.Write([]byte("world")))

	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, uint64(11), size)

	require.NoError(t, f.Seek(0))
	buf := make([]byte, 11)
	require.NoError(t, f.Read(buf))
	require.Equal(t, "hello world", string(buf))
	require.Equal(t, uint32(11), f.Position())
}

func TestDataFileCopyBetweenKeys(t *testing.T) {
	tx := newTx(t)
	src := datafile.Open(tx, keys.New(1, 0, 1))
	dst := datafile.Open(tx, keys.New(1, 0, 2))

	require.NoError(t, src.Write([]byte("payload")))
	require.NoError(t, dst.CopyFrom(src))

	size, err := dst.Size()
	require.NoError(t, err)
	buf := make([]byte, size)
	require.NoError(t, dst.GetRange(0, buf))
	require.Equal(t, "payload", string(buf))
}

func TestStringDataFileRoundTrip(t *testing.T) {
	tx := newTx(t)
	sf := datafile.String(datafile.Open(tx, keys.New(1, 0, 1)))
	require.NoError(t, sf.WriteString("café"))

	size, err := sf.Size()
	require.NoError(t, err)
	str, err := sf.ReadString(0)
	require.NoError(t, err)
	require.Equal(t, "", str)

	require.NoError(t, sf.Seek(0))
	str, err = sf.ReadString(uint32(size))
	require.NoError(t, err)
	require.Equal(t, "café", str)
}

func TestDataFileSeekClampsToSize(t *testing.T) {
	tx := newTx(t)
	f := datafile.Open(tx, keys.New(1, 0, 1))
	require.NoError(t, f.Write([]byte("hello")))

	require.NoError(t, f.Seek(9999))
	require.Equal(t, uint32(5), f.Position())

	require.NoError(t, f.Seek(0))
	require.Equal(t, uint32(0), f.Position())
}

func TestDataFileWritePastSizeIsRejected(t *testing.T) {
	tx := newTx(t)
	f := datafile.Open(tx, keys.New(1, 0, 1))
	require.NoError(t, f.Write([]byte("hello")))

	err := f.PutAt(100, []byte("x"))
	require.ErrorIs(t, err, txerr.ErrDataPositionOutOfBounds)

	// Writing exactly at size still extends normally.
	require.NoError(t, f.PutAt(5, []byte(" world")))
	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, uint64(11), size)
}

func TestAddressableDataFileBlockLocationMeta(t *testing.T) {
	tx := newTx(t)
	k := keys.New(1, 0, 1)
	for i := 0; i < 40; i++ {
		require.NoError(t, tx.Put(k, uint32(i), []byte{'x'}))
	}

	meta, err := datafile.Addressable(datafile.Open(tx, k)).GetBlockLocationMeta()
	require.NoError(t, err)
	require.Equal(t, uint64(40), meta.TotalBytes)
	require.GreaterOrEqual(t, meta.ChainLength, 1)
}
