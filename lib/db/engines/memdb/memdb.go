package memdb

import (
	"bytes"
	"sync"

	"github.com/ValentinKolb/edqs/lib/db"
	"github.com/ValentinKolb/edqs/lib/db/util"
	"github.com/google/btree"
)

const btreeDegree = 32

// row is one key-value pair, ordered by key
type row struct {
	key   string
	value []byte
}

func (r row) Less(than btree.Item) bool {
	return r.key < than.(row).key
}

// memImpl keeps the snapshot rows in an in-memory b-tree. Rows survive
// Close and Init on the same instance but not the process.
type memImpl struct {
	mutex sync.RWMutex
	tree  *btree.BTree
	open  bool
	sizes *util.SizeHistogram
}

// NewMemDB creates an in-memory SnapshotDB. It is used in tests and when
// no data directory is configured.
//
// Thread-safety: all methods are safe for concurrent use.
func NewMemDB() db.SnapshotDB {
	return &memImpl{
		tree:  btree.New(btreeDegree),
		sizes: util.NewSizeHistogram(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.SnapshotDB)
// --------------------------------------------------------------------------

func (m *memImpl) Init() (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.open = true
	return m.tree.Len() == 0, nil
}

func (m *memImpl) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.open = false
	return nil
}

func (m *memImpl) Put(key string, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.open {
		return db.ErrNotOpen
	}
	m.tree.ReplaceOrInsert(row{key: key, value: bytes.Clone(value)})
	m.sizes.AddSample(len(value))
	return nil
}

func (m *memImpl) Delete(key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.open {
		return db.ErrNotOpen
	}
	m.tree.Delete(row{key: key})
	return nil
}

// ForEach visits a copy of the rows taken under the read lock, so visit may
// call Put or Delete without deadlocking.
func (m *memImpl) ForEach(visit func(key string, value []byte) error) error {
	m.mutex.RLock()
	if !m.open {
		m.mutex.RUnlock()
		return db.ErrNotOpen
	}
	rows := make([]row, 0, m.tree.Len())
	m.tree.Ascend(func(i btree.Item) bool {
		rows = append(rows, i.(row))
		return true
	})
	m.mutex.RUnlock()

	for _, r := range rows {
		if err := visit(r.key, r.value); err != nil {
			return err
		}
	}
	return nil
}

func (m *memImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureOrderedScan | db.FeatureFreshnessTag
	return feature&supported == feature
}

func (m *memImpl) GetInfo() db.DatabaseInfo {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return db.DatabaseInfo{
		DbType:            db.ImplMemory,
		SupportedFeatures: []db.Feature{db.FeatureOrderedScan, db.FeatureFreshnessTag},
		Metadata: map[string]any{
			"open":        m.open,
			"rows":        m.tree.Len(),
			"value_sizes": m.sizes.Summary(),
		},
	}
}
