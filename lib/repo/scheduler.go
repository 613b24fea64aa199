package repo

import (
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/edqs/lib/store"
	"github.com/go-co-op/gocron/v2"
)

// DefaultSnapshotInterval is used when no interval is configured.
const DefaultSnapshotInterval = 5 * time.Minute

// Scheduler snapshots a repo to a store at a fixed interval. A snapshot that
// takes longer than the interval delays the next one instead of overlapping.
type Scheduler struct {
	repo     *Repo
	store    store.IStore
	interval time.Duration

	scheduler gocron.Scheduler
	once      sync.Once
}

// NewScheduler creates a scheduler, it does nothing until Start is called.
func NewScheduler(r *Repo, s store.IStore, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	sch := &Scheduler{repo: r, store: s, interval: interval, scheduler: scheduler}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sch.snapshot),
		gocron.WithName("snapshot"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule snapshot: %w", err)
	}
	return sch, nil
}

func (s *Scheduler) snapshot() {
	if _, err := s.repo.Snapshot(s.store); err != nil {
		log.Errorf("periodic snapshot failed: %v", err)
	}
}

// Start begins the periodic snapshots, the first one runs after one interval.
func (s *Scheduler) Start() {
	log.Infof("snapshotting every %s", s.interval)
	s.scheduler.Start()
}

// Shutdown stops the scheduler and takes a final snapshot. It waits for a
// running snapshot to finish and is idempotent.
func (s *Scheduler) Shutdown() error {
	var err error
	s.once.Do(func() {
		if err = s.scheduler.Shutdown(); err != nil {
			err = fmt.Errorf("failed to stop scheduler: %w", err)
			return
		}
		if _, err = s.repo.Snapshot(s.store); err != nil {
			err = fmt.Errorf("final snapshot failed: %w", err)
		}
	})
	return err
}
