package session

import (
	"context"
	"log"
	"sync"
	"time"
)

// SweepResult counts what one cleanup pass did.
type SweepResult struct {
	Deleted []string `json:"deleted"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// Sweeper deletes sessions that have not been updated within the
// retention period. Sessions with a turn in flight are skipped, never
// waited for.
type Sweeper struct {
	store     *Store
	locker    Locker
	archiver  Archiver
	retention time.Duration
	interval  time.Duration
	onEvict   func(sessionID string)
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SweeperOption func(*Sweeper)

// WithArchiver archives each snapshot before deletion.
func WithArchiver(a Archiver) SweeperOption {
	return func(s *Sweeper) { s.archiver = a }
}

// WithEvictHook is called after a session has been deleted.
func WithEvictHook(fn func(sessionID string)) SweeperOption {
	return func(s *Sweeper) { s.onEvict = fn }
}

func NewSweeper(store *Store, locker Locker, retention, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s := &Sweeper{
		store:     store,
		locker:    locker,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs a single cleanup pass. Running it again right away
// finds nothing left to do.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	cutoff := s.now().Add(-s.retention)
	ids, err := s.store.ListExpired(ctx, cutoff)
	if err != nil {
		return res, err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		switch s.sweep(ctx, id, cutoff) {
		case sweepDeleted:
			res.Deleted = append(res.Deleted, id)
		case sweepSkipped:
			res.Skipped = append(res.Skipped, id)
		default:
			res.Failed = append(res.Failed, id)
		}
	}
	if len(ids) > 0 {
		log.Printf("[Sweeper] pass done: %d deleted, %d skipped, %d failed", len(res.Deleted), len(res.Skipped), len(res.Failed))
	}
	return res, nil
}

type sweepOutcome int

const (
	sweepDeleted sweepOutcome = iota
	sweepSkipped
	sweepFailed
)

// sweep re-checks expiry under the session lock: a turn may have
// committed between listing and locking.
func (s *Sweeper) sweep(ctx context.Context, id string, cutoff time.Time) sweepOutcome {
	release, err := s.locker.Acquire(ctx, id, 0)
	if err != nil {
		log.Printf("[Sweeper] skipping %s: %v", id, err)
		return sweepSkipped
	}
	defer release()

	expired, err := s.store.Expired(ctx, id, cutoff)
	if err != nil {
		log.Printf("[Sweeper] %s: %v", id, err)
		return sweepFailed
	}
	if !expired {
		log.Printf("[Sweeper] %s became active, keeping it", id)
		return sweepSkipped
	}

	if s.archiver != nil {
		snap, err := s.store.Snapshot(ctx, id)
		if err != nil {
			log.Printf("[Sweeper] snapshot of %s failed, keeping it: %v", id, err)
			return sweepFailed
		}
		if err := s.archiver.Archive(ctx, id, snap); err != nil {
			log.Printf("[Archive] %s not archived, keeping it: %v", id, err)
			return sweepFailed
		}
	}
	deleted, err := s.store.DeleteExpired(ctx, id, cutoff)
	if err != nil {
		log.Printf("[Sweeper] delete %s failed: %v", id, err)
		return sweepFailed
	}
	if !deleted {
		return sweepSkipped
	}
	if s.onEvict != nil {
		s.onEvict(id)
	}
	return sweepDeleted
}

// Start runs RunOnce every interval until Stop is called.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		log.Printf("[Sweeper] started, interval %s, retention %s", s.interval, s.retention)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
					log.Printf("[Sweeper] pass failed: %v", err)
				}
			}
		}
	}(s.done)
}

// Stop halts the background loop and waits for a running pass to end.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Printf("[Sweeper] stopped")
}
