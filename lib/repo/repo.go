package repo

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/edqs/lib/codec"
	"github.com/ValentinKolb/edqs/lib/compress"
	"github.com/ValentinKolb/edqs/lib/dict"
	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
	"github.com/ValentinKolb/edqs/lib/store"
	"github.com/ValentinKolb/edqs/lib/version"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("repo")

// ErrInvalidQuery is returned for queries that cannot be executed.
var ErrInvalidQuery = errors.New("invalid query")

// Options configures a Repo.
type Options struct {
	// CompressionThreshold in characters (0 = codec.DefaultCompressionThreshold).
	CompressionThreshold int
	// VersionTTL after which the version of an untouched object is forgotten (0 = version.DefaultTTL).
	VersionTTL time.Duration
	// StringInterning deduplicates strings of restored entities.
	StringInterning bool
	// Clock is used for version expiry and result timestamps (nil = time.Now).
	Clock func() time.Time
	// Metrics receives the counters of the repo (nil = private set).
	Metrics *metrics.Set
}

// Repo is the in-memory working set of all tenants. It applies change events,
// answers entity data queries and can be snapshotted to and restored from an
// embedded store.
//
// Objects passed to Apply are retained and must not be modified afterwards.
//
// Thread-safety: all methods are safe for concurrent use. Events of one
// tenant are serialized, queries run concurrently with each other.
type Repo struct {
	keys       *dict.KeyDictionary
	codec      codec.ObjectCodec
	gate       *version.Gate[edqs.ObjectKey]
	evaluator  *query.Evaluator
	translator *query.Translator
	clock      func() time.Time

	tenants *xsync.MapOf[uuid.UUID, *tenantRepo]
	metrics *repoMetrics
	closed  atomic.Bool
}

// New creates an empty repo.
func New(opts Options) (*Repo, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewSet()
	}

	compressor, err := compress.NewZstdCompressor()
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	keys := dict.NewKeyDictionary()
	var pool codec.Interner
	if opts.StringInterning {
		pool = dict.NewStringPool()
	}
	c, err := codec.New(codec.Options{
		CompressionThreshold: opts.CompressionThreshold,
		Compressor:           compressor,
		Stats:                compress.NewMetrics(opts.Metrics),
		Keys:                 keys,
		Pool:                 pool,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	return &Repo{
		keys:       keys,
		codec:      c,
		gate:       version.New[edqs.ObjectKey](version.Options{TTL: opts.VersionTTL, Clock: opts.Clock}),
		evaluator:  query.NewEvaluator(c.Decompressor()),
		translator: query.NewTranslator(keys, opts.Metrics),
		clock:      opts.Clock,
		tenants:    xsync.NewMapOf[uuid.UUID, *tenantRepo](),
		metrics:    newRepoMetrics(opts.Metrics),
	}, nil
}

// Codec returns the codec used for snapshots. Stores that snapshot this repo
// must be created with it.
func (r *Repo) Codec() codec.ObjectCodec { return r.codec }

// Keys returns the key dictionary of the repo.
func (r *Repo) Keys() *dict.KeyDictionary { return r.keys }

// Close stops the version gate. It is idempotent.
func (r *Repo) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.gate.Shutdown()
	return nil
}

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

// Apply applies a change event and reports whether it changed the working
// set. Versioned objects older than the last applied version of the same
// object are rejected. Entities of unknown type are ignored. Large string
// values are compressed on the way in.
func (r *Repo) Apply(e Event) bool {
	if e.Object == nil || e.Object.ObjectType() == edqs.ObjectTypeUnknown {
		log.Debugf("ignoring %s event without a supported object", e.Type)
		r.metrics.ignored.Inc()
		return false
	}
	if e.Type != EventUpdated && e.Type != EventDeleted {
		log.Warningf("ignoring event of unknown type %s", e.Type)
		r.metrics.ignored.Inc()
		return false
	}

	obj := r.compact(e.Object)
	key := r.codec.Key(obj)
	if v, ok := obj.(edqs.Versioned); ok && !r.gate.IsNew(key, v.GetVersion()) {
		log.Debugf("[%s] skipping outdated %s", e.TenantID, e)
		r.metrics.outdated.Inc()
		return false
	}

	if entity, ok := obj.(*edqs.Entity); ok && e.Type == EventDeleted &&
		entity.EntityType == edqs.EntityTypeTenant && entity.ID == e.TenantID {
		if _, loaded := r.tenants.LoadAndDelete(e.TenantID); loaded {
			log.Infof("[%s] tenant deleted, dropping its working set", e.TenantID)
		}
		return true
	}

	t, _ := r.tenants.LoadOrCompute(e.TenantID, func() *tenantRepo {
		log.Infof("[%s] creating tenant working set", e.TenantID)
		return newTenantRepo(e.TenantID, r.metrics)
	})
	t.apply(e.Type, obj, key)
	return true
}

// compact returns obj with its value compressed if needed. The passed object
// is not modified.
func (r *Repo) compact(obj edqs.Object) edqs.Object {
	switch o := obj.(type) {
	case *edqs.AttributeKv:
		if o.Value != nil {
			cp := *o
			v := r.codec.Compact(*o.Value)
			cp.Value = &v
			return &cp
		}
	case *edqs.LatestTsKv:
		if o.Value != nil {
			cp := *o
			v := r.codec.Compact(*o.Value)
			cp.Value = &v
			return &cp
		}
	}
	return obj
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// FindEntityDataByQuery returns one page of the entities matching q as seen
// by the caller of ctx. Customer users asking for tenant level entities get
// an empty page.
func (r *Repo) FindEntityDataByQuery(ctx query.QueryContext, q *query.EntityDataQuery) (query.PageData[query.QueryResult], error) {
	defer r.metrics.findTimer.UpdateSince(time.Now())

	if q == nil || q.EntityFilter == nil {
		return query.PageData[query.QueryResult]{}, fmt.Errorf("%w: missing entity filter", ErrInvalidQuery)
	}
	if q.PageLink.PageSize <= 0 || q.PageLink.Page < 0 {
		return query.PageData[query.QueryResult]{}, fmt.Errorf("%w: page %d of size %d",
			ErrInvalidQuery, q.PageLink.Page, q.PageLink.PageSize)
	}
	if query.CustomerUserIsTryingToAccessTenantEntity(ctx, q.EntityFilter) {
		return query.EmptyPage[query.QueryResult](), nil
	}
	t, ok := r.tenants.Load(ctx.TenantID)
	if !ok {
		return query.EmptyPage[query.QueryResult](), nil
	}
	return t.find(ctx, r.evaluator, r.translator.ToDataQuery(q), r.clock().UnixMilli()), nil
}

// CountEntitiesByQuery returns the number of entities matching q as seen by
// the caller of ctx.
func (r *Repo) CountEntitiesByQuery(ctx query.QueryContext, q *query.EntityCountQuery) (int, error) {
	defer r.metrics.countTimer.UpdateSince(time.Now())

	if q == nil || q.EntityFilter == nil {
		return 0, fmt.Errorf("%w: missing entity filter", ErrInvalidQuery)
	}
	if query.CustomerUserIsTryingToAccessTenantEntity(ctx, q.EntityFilter) {
		return 0, nil
	}
	t, ok := r.tenants.Load(ctx.TenantID)
	if !ok {
		return 0, nil
	}
	return t.count(ctx, r.evaluator, r.translator.ToCountQuery(q)), nil
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

// Snapshot writes the whole working set to s. Rows that did not change since
// the last snapshot are not rewritten, rows of removed objects are deleted.
// Each tenant is captured under its own lock, so a snapshot taken while
// events are applied is consistent per tenant only.
func (r *Repo) Snapshot(s store.IStore) (store.SyncStats, error) {
	start := time.Now()

	var rows []store.Row
	r.tenants.Range(func(id uuid.UUID, t *tenantRepo) bool {
		for _, obj := range t.objects(nil) {
			rows = append(rows, store.Row{TenantID: id, Object: obj})
		}
		return true
	})

	stats, err := s.Sync(rows)
	r.metrics.snapshotTimer.UpdateSince(start)
	r.metrics.snapshotWritten.Add(stats.Written)
	r.metrics.snapshotDeleted.Add(stats.Deleted)
	if err != nil {
		return stats, fmt.Errorf("snapshot failed: %w", err)
	}
	log.Infof("snapshot of %d rows took %s (written: %d, unchanged: %d, deleted: %d)",
		len(rows), time.Since(start), stats.Written, stats.Unchanged, stats.Deleted)
	return stats, nil
}

// Restore applies every row of s as an update. Rows that cannot be decoded
// are skipped.
func (r *Repo) Restore(s store.IStore) (store.LoadStats, error) {
	start := time.Now()

	stats, err := s.Load(func(row store.Row) error {
		r.Apply(Event{TenantID: row.TenantID, Type: EventUpdated, Object: row.Object})
		return nil
	})
	r.metrics.restoreTimer.UpdateSince(start)
	r.metrics.restoreLoaded.Add(stats.Loaded)
	r.metrics.restoreSkipped.Add(stats.Skipped)
	if err != nil {
		return stats, fmt.Errorf("restore failed: %w", err)
	}
	log.Infof("restored %d rows in %s (skipped: %d)", stats.Loaded, time.Since(start), stats.Skipped)
	return stats, nil
}
