package lstore

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/edqs/lib/codec"
	"github.com/ValentinKolb/edqs/lib/db"
	"github.com/ValentinKolb/edqs/lib/store"
	"github.com/cespare/xxhash/v2"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
)

var log = logger.GetLogger("snapshot")

// Options configures a local store.
type Options struct {
	// Workers is the number of goroutines encoding and writing rows during
	// Sync (0 = GOMAXPROCS).
	Workers int
}

type storeImpl struct {
	db      db.SnapshotDB
	codec   codec.ObjectCodec
	workers int

	// lifecycle calls must not overlap with Sync or Load
	mutex sync.Mutex
	open  atomic.Bool

	// xxhash of the last value written (or found) per row key
	written *xsync.MapOf[string, uint64]
}

// NewLocalStore creates a store that keeps the snapshot in the db created
// by factory and encodes rows with c.
func NewLocalStore(factory store.DBFactory, c codec.ObjectCodec, opts Options) store.IStore {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &storeImpl{
		db:      factory(),
		codec:   c,
		workers: opts.Workers,
		written: xsync.NewMapOf[string, uint64](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Open() (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.open.Load() {
		return false, store.NewError(store.RetCInternalError, "store is already open", nil)
	}
	fresh, err := s.db.Init()
	if err != nil {
		return false, store.NewError(store.RetCStorageError, "cannot open snapshot db", err)
	}

	// remember what is already there, so the first Sync can remove stale rows
	s.written.Clear()
	if !fresh {
		err = s.db.ForEach(func(key string, value []byte) error {
			s.written.Store(key, xxhash.Sum64(value))
			return nil
		})
		if err != nil {
			return false, multierr.Append(
				store.NewError(store.RetCStorageError, "cannot scan snapshot db", err),
				s.db.Close(),
			)
		}
	}

	s.open.Store(true)
	log.Infof("snapshot store opened (fresh=%t, rows=%d)", fresh, s.written.Size())
	return fresh, nil
}

func (s *storeImpl) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.open.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return store.NewError(store.RetCStorageError, "cannot close snapshot db", err)
	}
	return nil
}

func (s *storeImpl) Sync(rows []store.Row) (store.SyncStats, error) {
	var stats store.SyncStats
	if !s.open.Load() {
		return stats, store.NewError(store.RetCNotOpen, "sync on a closed store", nil)
	}

	var written, unchanged atomic.Int64
	current := make(map[string]struct{}, len(rows))
	p := pool.New().WithErrors().WithMaxGoroutines(s.workers)
	for _, row := range rows {
		key := row.Key()
		current[key] = struct{}{}
		p.Go(func() error {
			data, err := s.codec.Serialize(row.Object.ObjectType(), row.Object)
			if err != nil {
				return store.NewError(store.RetCEncodeError, fmt.Sprintf("cannot encode %s", key), err)
			}
			sum := xxhash.Sum64(data)
			if prev, ok := s.written.Load(key); ok && prev == sum {
				unchanged.Add(1)
				return nil
			}
			if err := s.db.Put(key, data); err != nil {
				return store.NewError(store.RetCStorageError, fmt.Sprintf("cannot write %s", key), err)
			}
			s.written.Store(key, sum)
			written.Add(1)
			return nil
		})
	}
	err := p.Wait()
	stats.Written = int(written.Load())
	stats.Unchanged = int(unchanged.Load())
	if err != nil {
		return stats, err
	}

	var stale []string
	s.written.Range(func(key string, _ uint64) bool {
		if _, ok := current[key]; !ok {
			stale = append(stale, key)
		}
		return true
	})
	var errs error
	for _, key := range stale {
		if err := s.db.Delete(key); err != nil {
			// keep the key, the next sync retries the delete
			errs = multierr.Append(errs, store.NewError(store.RetCStorageError, fmt.Sprintf("cannot delete %s", key), err))
			continue
		}
		s.written.Delete(key)
		stats.Deleted++
	}
	return stats, errs
}

func (s *storeImpl) Load(visit func(row store.Row) error) (store.LoadStats, error) {
	var stats store.LoadStats
	if !s.open.Load() {
		return stats, store.NewError(store.RetCNotOpen, "load on a closed store", nil)
	}

	err := s.db.ForEach(func(key string, value []byte) error {
		// the slice is only valid during the callback
		data := bytes.Clone(value)
		s.written.Store(key, xxhash.Sum64(data))

		tenantID, t, err := store.ParseKey(key)
		if err != nil {
			log.Errorf("skipping snapshot row %q: %v", key, err)
			stats.Skipped++
			return nil
		}
		obj, err := s.codec.Deserialize(t, data, false)
		if err != nil {
			log.Errorf("skipping snapshot row %q: %v", key, err)
			stats.Skipped++
			return nil
		}
		stats.Loaded++
		return visit(store.Row{TenantID: tenantID, Object: obj})
	})
	return stats, err
}

func (s *storeImpl) GetDBInfo() db.DatabaseInfo {
	return s.db.GetInfo()
}
