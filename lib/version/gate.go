package version

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("version")

// --------------------------------------------------------------------------
// Constants & Options
// --------------------------------------------------------------------------

const DefaultTTL = time.Hour

// Clock returns the current time. It exists so tests can control expiry.
type Clock func() time.Time

// Options configures a Gate.
type Options struct {
	// TTL after which untouched entries are forgotten; also the sweep period (0 = DefaultTTL).
	TTL time.Duration
	// Clock used for touch timestamps (nil = time.Now).
	Clock Clock
	// DisableSweep skips the background sweep goroutine. Sweep can still be
	// called manually.
	DisableSweep bool
}

// entry is the last admitted version of a key and when it was admitted
type entry struct {
	version     int64
	lastTouched int64 // unix nanos
}

// --------------------------------------------------------------------------
// Gate
// --------------------------------------------------------------------------

// Gate remembers the last applied version per identity key and rejects
// updates that are older. It is a best-effort freshness cache: entries that
// are not touched for longer than the TTL are swept and the key is treated
// as never seen afterwards.
//
// Thread-safety: all methods are safe for concurrent use.
type Gate[K comparable] struct {
	versions *xsync.MapOf[K, entry]
	ttl      time.Duration
	clock    Clock

	sweepIsRunning atomic.Bool
	stop           chan struct{}
	wg             sync.WaitGroup
}

// New creates a gate and starts its sweep goroutine.
func New[K comparable](opts Options) *Gate[K] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	g := &Gate[K]{
		versions: xsync.NewMapOf[K, entry](),
		ttl:      opts.TTL,
		clock:    opts.Clock,
		stop:     make(chan struct{}),
	}
	if !opts.DisableSweep {
		g.startSweep()
	}
	return g
}

// IsNew reports whether version is at least as new as the last admitted
// version of key. If so, version is recorded and the entry is touched.
// Equal versions are admitted so that redelivered updates can be re-applied.
// An older version leaves the entry untouched.
func (g *Gate[K]) IsNew(key K, version int64) bool {
	now := g.clock().UnixNano()
	admitted := false
	g.versions.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded && old.version > version {
			return old, false
		}
		admitted = true
		return entry{version: version, lastTouched: now}, false
	})
	return admitted
}

// Forget removes the entry of key.
func (g *Gate[K]) Forget(key K) {
	g.versions.Delete(key)
}

// Size returns the number of tracked keys.
func (g *Gate[K]) Size() int {
	return g.versions.Size()
}

// Sweep removes all entries not touched within the TTL and returns how many were removed.
func (g *Gate[K]) Sweep() int {
	deadline := g.clock().Add(-g.ttl).UnixNano()
	removed := 0
	g.versions.Range(func(key K, e entry) bool {
		if e.lastTouched >= deadline {
			return true
		}
		// re-check under the bucket lock, the entry may have been touched meanwhile
		g.versions.Compute(key, func(old entry, loaded bool) (entry, bool) {
			if !loaded || old.lastTouched >= deadline {
				return old, !loaded
			}
			removed++
			return old, true
		})
		return true
	})
	return removed
}

// Shutdown stops the sweep goroutine and waits for it to exit. Calling it
// more than once has no effect.
func (g *Gate[K]) Shutdown() {
	if g.sweepIsRunning.CompareAndSwap(true, false) {
		close(g.stop)
		g.wg.Wait()
	}
}

// --------------------------------------------------------------------------
// Background Sweep
// --------------------------------------------------------------------------

// startSweep starts the sweep goroutine. If it is already running, this function does nothing.
func (g *Gate[K]) startSweep() {
	if g.sweepIsRunning.CompareAndSwap(false, true) {
		g.wg.Add(1)
		go g.sweeper()
	}
}

// sweeper runs Sweep once per TTL until Shutdown is called
// WARNING: this method should never be called directly, use startSweep() and Shutdown()
func (g *Gate[K]) sweeper() {
	defer g.wg.Done()

	timer := time.NewTimer(g.ttl)
	defer timer.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-timer.C:
			if removed := g.Sweep(); removed > 0 {
				log.Debugf("swept %d expired version entries, %d remaining", removed, g.Size())
			}
			timer.Reset(g.ttl)
		}
	}
}
