package repo

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/edqs/lib/db"
	"github.com/ValentinKolb/edqs/lib/db/engines/memdb"
	"github.com/ValentinKolb/edqs/lib/db/engines/pebbledb"
	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
	"github.com/ValentinKolb/edqs/lib/store"
	"github.com/ValentinKolb/edqs/lib/store/lstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, r *Repo, factory store.DBFactory) store.IStore {
	t.Helper()
	s := lstore.NewLocalStore(factory, r.Codec(), lstore.Options{})
	_, err := s.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// populate fills r with a tenant holding every object category and returns
// the tenant and a query over its devices.
func populate(t *testing.T, r *Repo) (uuid.UUID, *query.EntityDataQuery) {
	t.Helper()
	f := newRelationFixture(t, r)
	customer := uuid.New()
	update(t, r, f.tenant, edqs.NewEntity(edqs.Customer{ID: customer, Title: "Customer", Version: 1}))
	update(t, r, f.tenant, device("Owned", "thermometer", 4, customer))
	update(t, r, f.tenant, latest(f.d1, "temperature", 1, edqs.NewDoubleDataPoint(100, 21.5)))
	update(t, r, f.tenant, latest(f.d2, "status", 1, edqs.NewStringDataPoint(200, strings.Repeat("ok ", 250))))
	update(t, r, f.tenant, attribute(f.d1, edqs.ScopeShared, "threshold", 1, edqs.NewLongDataPoint(300, 25)))
	dashboard := edqs.NewEntity(edqs.Dashboard{ID: uuid.New(), Title: "Overview", Version: 1})
	update(t, r, f.tenant, dashboard)
	update(t, r, f.tenant, &edqs.EntityRelation{
		From:      edqs.NewEntityID(edqs.EntityTypeCustomer, customer),
		To:        dashboard.EntityID(),
		TypeGroup: edqs.RelationTypeGroupDashboard,
		Type:      edqs.RelationTypeContains,
	})

	q := typeQuery(edqs.EntityTypeDevice, 10, 0)
	q.LatestValues = []query.EntityKey{
		{Type: query.KeyTypeTimeSeries, Key: "temperature"},
		{Type: query.KeyTypeTimeSeries, Key: "status"},
		{Type: query.KeyTypeSharedAttribute, Key: "threshold"},
	}
	return f.tenant, q
}

func assertSameResults(t *testing.T, expected, actual *Repo, tenant uuid.UUID, q *query.EntityDataQuery) {
	t.Helper()
	want, err := expected.FindEntityDataByQuery(query.QueryContext{TenantID: tenant}, q)
	require.NoError(t, err)
	got, err := actual.FindEntityDataByQuery(query.QueryContext{TenantID: tenant}, q)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, expected.Stats(), actual.Stats())
}

func TestSnapshotRestoreMemDB(t *testing.T) {
	r := newTestRepo(t)
	tenant, q := populate(t, r)
	database := memdb.NewMemDB()
	s := openStore(t, r, func() db.SnapshotDB { return database })

	stats, err := r.Snapshot(s)
	require.NoError(t, err)
	// 7 entities, 4 relations, 2 latest values, 1 attribute
	assert.Equal(t, 14, stats.Written)
	assert.Zero(t, stats.Deleted)

	restored := newTestRepo(t)
	loaded, err := restored.Restore(s)
	require.NoError(t, err)
	assert.Equal(t, 14, loaded.Loaded)
	assert.Zero(t, loaded.Skipped)
	assertSameResults(t, r, restored, tenant, q)

	// the dashboard assignment survives the round trip
	customers := typeQuery(edqs.EntityTypeCustomer, 10, 0)
	page, err := restored.FindEntityDataByQuery(query.QueryContext{TenantID: tenant}, customers)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	ctx := query.QueryContext{TenantID: tenant, CustomerID: page.Data[0].EntityID.ID}
	assert.Equal(t, []string{"Overview"}, find(t, restored, ctx, typeQuery(edqs.EntityTypeDashboard, 10, 0)))
}

func TestSnapshotOnlyWritesChanges(t *testing.T) {
	r := newTestRepo(t)
	tenant, _ := populate(t, r)
	s := openStore(t, r, func() db.SnapshotDB { return memdb.NewMemDB() })

	_, err := r.Snapshot(s)
	require.NoError(t, err)

	stats, err := r.Snapshot(s)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStats{Unchanged: 14}, stats)

	d := device("New", "thermometer", 10, uuid.Nil)
	update(t, r, tenant, d)
	remove(t, r, tenant, d)
	removed := device("Removed", "thermometer", 11, uuid.Nil)
	update(t, r, tenant, removed)
	stats, err = r.Snapshot(s)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStats{Written: 1, Unchanged: 14}, stats)

	remove(t, r, tenant, removed)
	stats, err = r.Snapshot(s)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStats{Unchanged: 14, Deleted: 1}, stats)
	assert.Equal(t, uint64(1), r.metrics.snapshotDeleted.Get())
}

func TestSnapshotRestorePebble(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot")
	factory := func() db.SnapshotDB { return pebbledb.NewPebbleDB(pebbledb.Options{Path: path}) }

	r := newTestRepo(t)
	tenant, q := populate(t, r)
	s := lstore.NewLocalStore(factory, r.Codec(), lstore.Options{})
	fresh, err := s.Open()
	require.NoError(t, err)
	assert.True(t, fresh)
	_, err = r.Snapshot(s)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	restored := newTestRepo(t)
	reopened := lstore.NewLocalStore(factory, restored.Codec(), lstore.Options{})
	fresh, err = reopened.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	assert.False(t, fresh)

	stats, err := restored.Restore(reopened)
	require.NoError(t, err)
	assert.Equal(t, 14, stats.Loaded)
	assertSameResults(t, r, restored, tenant, q)

	// a restored repo snapshots into the store it came from without changes
	sync, err := restored.Snapshot(reopened)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStats{Unchanged: 14}, sync)
}

func TestSnapshotClosedStore(t *testing.T) {
	r := newTestRepo(t)
	populate(t, r)
	s := lstore.NewLocalStore(func() db.SnapshotDB { return memdb.NewMemDB() }, r.Codec(), lstore.Options{})

	_, err := r.Snapshot(s)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCNotOpen, storeErr.Code)

	_, err = r.Restore(s)
	assert.Error(t, err)
}

func TestScheduler(t *testing.T) {
	r := newTestRepo(t)
	populate(t, r)
	database := memdb.NewMemDB()
	s := openStore(t, r, func() db.SnapshotDB { return database })

	sch, err := NewScheduler(r, s, 20*time.Millisecond)
	require.NoError(t, err)
	sch.Start()

	require.Eventually(t, func() bool {
		return r.metrics.snapshotTimer.Count() > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, sch.Shutdown())
	require.NoError(t, sch.Shutdown())

	rows := 0
	require.NoError(t, database.ForEach(func(string, []byte) error {
		rows++
		return nil
	}))
	assert.Equal(t, 14, rows)
}
