package repo

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	gometrics "github.com/rcrowley/go-metrics"
)

// repoMetrics holds the counters and timers of a Repo. Counters live in a
// VictoriaMetrics set, durations in a go-metrics registry.
type repoMetrics struct {
	set      *metrics.Set
	registry gometrics.Registry

	added    [edqs.NumObjectTypes]*metrics.Counter
	removed  [edqs.NumObjectTypes]*metrics.Counter
	outdated *metrics.Counter
	ignored  *metrics.Counter

	snapshotWritten *metrics.Counter
	snapshotDeleted *metrics.Counter
	restoreLoaded   *metrics.Counter
	restoreSkipped  *metrics.Counter

	findTimer     gometrics.Timer
	countTimer    gometrics.Timer
	snapshotTimer gometrics.Timer
	restoreTimer  gometrics.Timer
}

func newRepoMetrics(set *metrics.Set) *repoMetrics {
	registry := gometrics.NewRegistry()
	m := &repoMetrics{
		set:             set,
		registry:        registry,
		outdated:        set.GetOrCreateCounter("edqs_events_outdated_total"),
		ignored:         set.GetOrCreateCounter("edqs_events_ignored_total"),
		snapshotWritten: set.GetOrCreateCounter("edqs_snapshot_rows_written_total"),
		snapshotDeleted: set.GetOrCreateCounter("edqs_snapshot_rows_deleted_total"),
		restoreLoaded:   set.GetOrCreateCounter("edqs_restore_rows_loaded_total"),
		restoreSkipped:  set.GetOrCreateCounter("edqs_restore_rows_skipped_total"),
		findTimer:       gometrics.GetOrRegisterTimer("repo.query.find", registry),
		countTimer:      gometrics.GetOrRegisterTimer("repo.query.count", registry),
		snapshotTimer:   gometrics.GetOrRegisterTimer("repo.snapshot", registry),
		restoreTimer:    gometrics.GetOrRegisterTimer("repo.restore", registry),
	}
	for i := 0; i < edqs.NumObjectTypes; i++ {
		t := edqs.ObjectType(i)
		m.added[i] = set.GetOrCreateCounter(fmt.Sprintf(`edqs_objects_added_total{type=%q}`, t))
		m.removed[i] = set.GetOrCreateCounter(fmt.Sprintf(`edqs_objects_removed_total{type=%q}`, t))
	}
	return m
}

func (m *repoMetrics) reportAdded(t edqs.ObjectType) {
	if int(t) < len(m.added) {
		m.added[t].Inc()
	}
}

func (m *repoMetrics) reportRemoved(t edqs.ObjectType) {
	if int(t) < len(m.removed) {
		m.removed[t].Inc()
	}
}

// --------------------------------------------------------------------------
// Stats
// --------------------------------------------------------------------------

// Stats is a point in time view of the working set.
type Stats struct {
	Tenants         int
	Entities        map[edqs.EntityType]int
	Attributes      int
	LatestValues    int
	Relations       int
	Keys            int
	TrackedVersions int
}

// Stats counts the content of the working set. It takes every tenant lock
// once, the numbers of different tenants are not taken at the same instant.
func (r *Repo) Stats() Stats {
	s := Stats{
		Entities:        make(map[edqs.EntityType]int),
		Keys:            r.keys.Size(),
		TrackedVersions: r.gate.Size(),
	}
	r.tenants.Range(func(_ uuid.UUID, t *tenantRepo) bool {
		s.Tenants++
		t.mutex.RLock()
		defer t.mutex.RUnlock()
		for entityType, byID := range t.entities {
			for _, ed := range byID {
				if ed.HasFields() {
					s.Entities[entityType]++
				}
				s.Attributes += len(ed.attributes)
				s.LatestValues += len(ed.latest)
			}
		}
		s.Relations += t.relations.size
		return true
	})
	return s
}

// WriteMetrics writes all counters in the Prometheus text format followed by
// the timer summaries.
func (r *Repo) WriteMetrics(w io.Writer) {
	r.metrics.set.WritePrometheus(w)
	gometrics.WriteOnce(r.metrics.registry, w)
}
