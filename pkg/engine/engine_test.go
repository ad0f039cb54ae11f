package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjatree/pkg/config"
	"github.com/ssargent/freyjatree/pkg/engine"
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/txerr"
)

func newDB(t *testing.T) *engine.Database {
	t.Helper()
	cfg := *config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.MaxBranchChildren = 4
	cfg.MaxLeafByteSize = 16
	db, err := engine.Open(cfg, engine.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDatabasePutGetDelete(t *testing.T) {
	db := newDB(t)
	k := keys.New(1, 0, 1)

	_, err := db.Get(k)
	require.ErrorIs(t, err, txerr.ErrKeyNotFound)

	require.NoError(t, db.Put(k, []byte("value one")))
	got, err := db.Get(k)
	require.NoError(t, err)
	require.Equal(t, "value one", string(got))

	require.NoError(t, db.Put(k, []byte("short")))
	got, err = db.Get(k)
	require.NoError(t, err)
	require.Equal(t, "short", string(got))

	require.NoError(t, db.Delete(k))
	_, err = db.Get(k)
	require.ErrorIs(t, err, txerr.ErrKeyNotFound)
}

func TestDatabasePersistsRootAcrossKeys(t *testing.T) {
	db := newDB(t)
	for i := int64(0); i < 10; i++ {
		k := keys.New(1, 0, i)
		require.NoError(t, db.Put(k, []byte("v")))
	}
	for i := int64(0); i < 10; i++ {
		k := keys.New(1, 0, i)
		got, err := db.Get(k)
		require.NoError(t, err)
		require.Equal(t, "v", string(got))
	}
}

func TestDatabasePebbleBackend(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.MaxBranchChildren = 4
	cfg.MaxLeafByteSize = 16
	cfg.StoreBackend = config.BackendPebble

	db, err := engine.Open(cfg, engine.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	k := keys.New(1, 0, 1)
	require.NoError(t, db.Put(k, []byte("pebble value")))
	got, err := db.Get(k)
	require.NoError(t, err)
	require.Equal(t, "pebble value", string(got))
}

func TestDatabaseUnknownBackend(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.StoreBackend = "bogus"

	_, err := engine.Open(cfg, engine.Options{})
	require.Error(t, err)
}
