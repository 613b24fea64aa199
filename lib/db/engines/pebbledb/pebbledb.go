package pebbledb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/edqs/lib/db"
	"github.com/ValentinKolb/edqs/lib/db/util"
	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("pebbledb")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures the pebble engine.
type Options struct {
	// Path of the store directory. Missing parent directories are created by Init.
	Path string
	// Sync forces an fsync on every write. Without it writes are durable
	// after Close, or once pebble flushes its WAL.
	Sync bool
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// pebbleImpl stores snapshot rows in a pebble LSM tree
type pebbleImpl struct {
	path      string
	writeOpts *pebble.WriteOptions
	handle    *pebble.DB
	sizes     *util.SizeHistogram
}

// NewPebbleDB creates a pebble backed SnapshotDB. The store is not opened
// until Init is called.
//
// Thread-safety: Put, Delete and ForEach are safe for concurrent use once
// Init returned. Init and Close must not overlap with other calls.
func NewPebbleDB(opts Options) db.SnapshotDB {
	writeOpts := pebble.NoSync
	if opts.Sync {
		writeOpts = pebble.Sync
	}
	return &pebbleImpl{
		path:      opts.Path,
		writeOpts: writeOpts,
		sizes:     util.NewSizeHistogram(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.SnapshotDB)
// --------------------------------------------------------------------------

func (p *pebbleImpl) Init() (bool, error) {
	if p.handle != nil {
		return false, db.NewStorageError("open", "", fmt.Errorf("%s is already open", p.path))
	}
	if p.path == "" {
		return false, db.NewStorageError("open", "", fmt.Errorf("no path configured"))
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return false, db.NewStorageError("open", "", err)
	}

	fresh, err := isEmptyDir(p.path)
	if err != nil {
		return false, db.NewStorageError("open", "", err)
	}

	handle, err := pebble.Open(p.path, &pebble.Options{Logger: pebbleLogger{}})
	if err != nil {
		return false, db.NewStorageError("open", "", err)
	}
	p.handle = handle

	if fresh {
		log.Infof("created new snapshot store at %s", p.path)
	} else {
		log.Infof("opened existing snapshot store at %s", p.path)
	}
	return fresh, nil
}

func (p *pebbleImpl) Close() error {
	if p.handle == nil {
		return nil
	}
	handle := p.handle
	p.handle = nil
	if err := handle.Close(); err != nil {
		return db.NewStorageError("close", "", err)
	}
	log.Debugf("closed snapshot store at %s", p.path)
	return nil
}

func (p *pebbleImpl) Put(key string, value []byte) error {
	handle := p.handle
	if handle == nil {
		return db.ErrNotOpen
	}
	if err := handle.Set([]byte(key), value, p.writeOpts); err != nil {
		return db.NewStorageError("put", key, err)
	}
	p.sizes.AddSample(len(value))
	return nil
}

func (p *pebbleImpl) Delete(key string) error {
	handle := p.handle
	if handle == nil {
		return db.ErrNotOpen
	}
	if err := handle.Delete([]byte(key), p.writeOpts); err != nil {
		return db.NewStorageError("delete", key, err)
	}
	return nil
}

func (p *pebbleImpl) ForEach(visit func(key string, value []byte) error) (err error) {
	handle := p.handle
	if handle == nil {
		return db.ErrNotOpen
	}

	iter := handle.NewIter(nil)
	defer func() {
		if closeErr := iter.Close(); closeErr != nil && err == nil {
			err = db.NewStorageError("scan", "", closeErr)
		}
	}()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := visit(string(iter.Key()), iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return db.NewStorageError("scan", "", err)
	}
	return nil
}

func (p *pebbleImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureDurable | db.FeatureOrderedScan | db.FeatureFreshnessTag
	return feature&supported == feature
}

func (p *pebbleImpl) GetInfo() db.DatabaseInfo {
	return db.DatabaseInfo{
		Path:              p.path,
		DbType:            db.ImplPebble,
		SupportedFeatures: []db.Feature{db.FeatureDurable, db.FeatureOrderedScan, db.FeatureFreshnessTag},
		Metadata: map[string]any{
			"open":        p.handle != nil,
			"sync":        p.writeOpts == pebble.Sync,
			"value_sizes": p.sizes.Summary(),
		},
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// isEmptyDir reports whether dir is missing or has no entries
func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// pebbleLogger routes pebble's internal log output to the dragonboat logger
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Panicf(format, args...)
}
