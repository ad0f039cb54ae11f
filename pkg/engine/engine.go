// Package engine provides Database, the top-level embeddable facade wiring
// the node heap, the transaction engine, a backing store, configuration,
// metrics, and logging into one unit.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/freyjatree/pkg/commitmgr"
	"github.com/ssargent/freyjatree/pkg/config"
	"github.com/ssargent/freyjatree/pkg/datafile"
	"github.com/ssargent/freyjatree/pkg/heap"
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/metrics"
	"github.com/ssargent/freyjatree/pkg/noderef"
	"github.com/ssargent/freyjatree/pkg/storeio"
	"github.com/ssargent/freyjatree/pkg/storeio/filestore"
	"github.com/ssargent/freyjatree/pkg/storeio/pebblestore"
	"github.com/ssargent/freyjatree/pkg/txerr"
	"github.com/ssargent/freyjatree/pkg/txlog"
	"github.com/ssargent/freyjatree/pkg/txn"
)

// Database is the embeddable tree engine. It is safe for use by one
// goroutine at a time per the single-owner transaction model; callers
// needing concurrent access must serialize through their own lock.
type Database struct {
	mu sync.Mutex

	cfg     config.Config
	store   storeio.Store
	heap    *heap.Heap
	logger  txlog.Logger
	metrics *metrics.Metrics
	commits commitmgr.Manager

	root     noderef.NodeReference
	txnIDGen uint64
	poisoned atomic.Bool

	token string // commitmgr token this instance commits under
}

// Options configures Open, beyond what comes from config.Config.
type Options struct {
	Metrics *metrics.Metrics
	Commits commitmgr.Manager
	Logger  *txlog.Logger
}

// Open creates the data directory if needed, opens the store named by
// cfg.StoreBackend inside it (see openStore), and returns a ready Database positioned at an empty tree (or
// the most recent commit recorded for this instance's token, if any commit
// manager history exists).
func Open(cfg config.Config, opts Options) (*Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("engine: create data dir: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: open store: %w", err)
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	commits := opts.Commits
	if commits == nil {
		commits = commitmgr.NewInMemory()
	}
	logger := txlog.New(os.Stderr, cfg.Logging.Level)
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	token := cfg.InstanceKey
	if token == "" || token == "auto" {
		token = ksuid.New().String()
	}

	db := &Database{
		cfg:     cfg,
		store:   store,
		heap:    heap.New(heap.Config{HashBuckets: cfg.HeapHashBuckets, MaxMemoryLimit: cfg.HeapMemoryLimit}),
		logger:  logger,
		metrics: m,
		commits: commits,
		token:   token,
	}

	if root, ok := commits.Resolve(token); ok {
		db.root = root
	}

	return db, nil
}

// openStore picks the area allocator named by cfg.StoreBackend, defaulting
// to the file-backed log when unset.
func openStore(cfg config.Config) (storeio.Store, error) {
	switch cfg.StoreBackend {
	case "", config.BackendFile:
		return filestore.Open(filestore.Config{FilePath: filepath.Join(cfg.DataDir, "areas.log")})
	case config.BackendPebble:
		return pebblestore.Open(pebblestore.Config{Dir: filepath.Join(cfg.DataDir, "pebble")})
	default:
		return nil, fmt.Errorf("engine: unknown store_backend %q", cfg.StoreBackend)
	}
}

// Close releases the backing store. Any in-flight transaction must be
// committed or discarded first.
func (db *Database) Close() error {
	if closer, ok := db.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// checkPoisoned returns a CriticalStop wrapping txerr.ErrPathNotAvailable once
// a prior operation poisoned this instance, rejecting everything further.
func (db *Database) checkPoisoned() error {
	if db.poisoned.Load() {
		return txerr.NewCriticalStop(txerr.ErrPathNotAvailable)
	}
	return nil
}

// begin opens a fresh transaction against the database's current root.
func (db *Database) begin() (*txn.Transaction, error) {
	if err := db.checkPoisoned(); err != nil {
		return nil, err
	}
	id := atomic.AddUint64(&db.txnIDGen, 1)
	return txn.New(id, db.heap, db.store, db.root, txn.Config{
		MaxBranchChildren: db.cfg.MaxBranchChildren,
		MaxLeafByteSize:   db.cfg.MaxLeafByteSize,
	}, db.logger, &db.poisoned)
}

// commit flushes tx and advances the database's durable root, recording it
// with the commit manager under this instance's token.
func (db *Database) commit(tx *txn.Transaction) error {
	root, err := tx.Commit()
	if err != nil {
		db.metrics.TxnCommitTotal.WithLabelValues("error").Inc()
		return err
	}
	db.root = root
	db.metrics.TxnCommitTotal.WithLabelValues("success").Inc()
	return db.commits.Record(db.token, root)
}

func (db *Database) observeHeap() {
	db.metrics.HeapResidentNodes.Set(float64(db.heap.Count()))
	db.metrics.HeapMemoryUsed.Set(float64(db.heap.MemoryUsed()))
}

// Get reads the full byte stream stored under key. It returns
// txerr.ErrKeyNotFound if key has never been written.
func (db *Database) Get(key keys.Key) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Discard()
	defer db.observeHeap()

	exists, err := tx.Exists(key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, txerr.ErrKeyNotFound
	}
	size, err := tx.Size(key)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if size > 0 {
		if err := tx.GetRange(key, 0, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Put writes value as the full contents of key, replacing whatever was
// there before, and commits immediately.
func (db *Database) Put(key keys.Key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.begin()
	if err != nil {
		return err
	}
	defer db.observeHeap()

	if err := tx.SetSize(key, uint64(len(value))); err != nil {
		tx.Discard()
		return err
	}
	if len(value) > 0 {
		if err := tx.Put(key, 0, value); err != nil {
			tx.Discard()
			return err
		}
	}
	return db.commit(tx)
}

// Delete removes all data under key and commits immediately.
func (db *Database) Delete(key keys.Key) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.begin()
	if err != nil {
		return err
	}
	defer db.observeHeap()

	if err := tx.Delete(key); err != nil {
		tx.Discard()
		return err
	}
	return db.commit(tx)
}

// OpenDataFile returns a DataFile view over key in a fresh, uncommitted
// transaction, for callers that want to perform several byte-range
// operations (Shift, partial Put) atomically before committing. The caller
// must call Commit or Discard on the returned transaction.
func (db *Database) OpenDataFile(key keys.Key) (*datafile.DataFile, *txn.Transaction, error) {
	tx, err := db.begin()
	if err != nil {
		return nil, nil, err
	}
	return datafile.Open(tx, key), tx, nil
}

// Commit flushes an explicitly opened transaction (see OpenDataFile) and
// advances the database's durable root.
func (db *Database) Commit(tx *txn.Transaction) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.observeHeap()
	return db.commit(tx)
}

// Root returns the database's current durable snapshot root.
func (db *Database) Root() noderef.NodeReference { return db.root }
