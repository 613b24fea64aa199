package version

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a clock that only moves when told to
type manualClock struct {
	now atomic.Int64
}

func newManualClock() *manualClock {
	c := &manualClock{}
	c.now.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *manualClock) Now() time.Time          { return time.Unix(0, c.now.Load()) }
func (c *manualClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func TestIsNewMonotonicity(t *testing.T) {
	g := New[string](Options{TTL: time.Minute, DisableSweep: true})
	defer g.Shutdown()

	assert.True(t, g.IsNew("k", 10), "first observation is always new")
	assert.False(t, g.IsNew("k", 9), "older version is rejected")
	assert.True(t, g.IsNew("k", 10), "equal version is accepted")
	assert.True(t, g.IsNew("k", 11))
	assert.False(t, g.IsNew("k", 10))
	assert.True(t, g.IsNew("other", 1), "keys are independent")
	assert.Equal(t, 2, g.Size())
}

func TestRejectedUpdateDoesNotTouch(t *testing.T) {
	clock := newManualClock()
	g := New[string](Options{TTL: time.Minute, Clock: clock.Now, DisableSweep: true})
	defer g.Shutdown()

	require.True(t, g.IsNew("k", 5))
	clock.Advance(50 * time.Second)
	require.False(t, g.IsNew("k", 4))
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, g.Sweep(), "a rejected call must not refresh the entry")
	assert.True(t, g.IsNew("k", 1))
}

func TestSweepForgetsExpiredEntries(t *testing.T) {
	clock := newManualClock()
	g := New[int](Options{TTL: time.Minute, Clock: clock.Now, DisableSweep: true})
	defer g.Shutdown()

	require.True(t, g.IsNew(1, 5))
	clock.Advance(30 * time.Second)
	require.True(t, g.IsNew(2, 5))

	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, g.Sweep())
	assert.Equal(t, 1, g.Size())

	assert.True(t, g.IsNew(1, 1), "a swept key behaves like a never seen key")
	assert.False(t, g.IsNew(2, 1), "a fresh entry survives the sweep")
}

func TestBackgroundSweep(t *testing.T) {
	g := New[string](Options{TTL: 20 * time.Millisecond})
	defer g.Shutdown()

	require.True(t, g.IsNew("k", 5))
	assert.Eventually(t, func() bool {
		return g.Size() == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, g.IsNew("k", 1))
}

func TestShutdownIsIdempotent(t *testing.T) {
	g := New[string](Options{TTL: time.Second})
	g.Shutdown()
	g.Shutdown()
	assert.True(t, g.IsNew("k", 1), "the gate keeps working without the sweep")
}

func TestConcurrentIsNew(t *testing.T) {
	g := New[string](Options{TTL: time.Minute, DisableSweep: true})
	defer g.Shutdown()

	const workers, versions = 8, 500
	var wg sync.WaitGroup
	var admitted atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for v := 0; v < versions; v++ {
				if g.IsNew("shared", int64(v*workers+w)) {
					admitted.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, admitted.Load(), int64(versions))
	assert.False(t, g.IsNew("shared", int64(versions*workers-2)), "the highest version must have won")
	assert.True(t, g.IsNew("shared", int64(versions*workers-1)))
}
