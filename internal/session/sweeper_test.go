package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebase/internal/apperr"
)

type memArchiver struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (a *memArchiver) Archive(_ context.Context, id string, snap []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.saved == nil {
		a.saved = map[string][]byte{}
	}
	a.saved[id] = snap
	return nil
}

func seedExpired(t *testing.T, s *Store, n int) []string {
	t.Helper()
	past := time.Now().Add(-60 * 24 * time.Hour)
	s.now = func() time.Time { return past }
	defer func() { s.now = time.Now }()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := s.CreateSession(context.Background(), "old", nil, "framework_migration")
		require.NoError(t, err)
		require.NoError(t, s.AddMessage(context.Background(), id, "user", "hello"))
		ids = append(ids, id)
	}
	return ids
}

func TestSweeper_DeletesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	expired := seedExpired(t, s, 2)
	fresh, err := s.CreateSession(ctx, "fresh", nil, "framework_migration")
	require.NoError(t, err)

	arch := &memArchiver{}
	var evicted []string
	sw := NewSweeper(s, NewLocalLocker(), 30*24*time.Hour, time.Hour,
		WithArchiver(arch),
		WithEvictHook(func(id string) { evicted = append(evicted, id) }),
	)

	res, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, expired, res.Deleted)
	assert.ElementsMatch(t, expired, evicted)
	assert.Len(t, arch.saved, 2)

	for _, id := range expired {
		_, err := s.GetContext(ctx, id)
		assert.True(t, apperr.Is(err, apperr.ErrNotFound))
	}
	_, err = s.GetContext(ctx, fresh)
	assert.NoError(t, err)

	again, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Deleted)
	assert.Empty(t, again.Failed)
}

func TestSweeper_SkipsLockedSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seedExpired(t, s, 2)

	locker := NewLocalLocker()
	release, err := locker.Acquire(ctx, ids[0], 0)
	require.NoError(t, err)
	defer release()

	sw := NewSweeper(s, locker, 30*24*time.Hour, time.Hour)
	res, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0]}, res.Skipped)
	assert.Equal(t, []string{ids[1]}, res.Deleted)

	_, err = s.GetContext(ctx, ids[0])
	assert.NoError(t, err)
}

func TestSweeper_ArchiveFailureKeepsSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seedExpired(t, s, 1)

	sw := NewSweeper(s, NewLocalLocker(), 30*24*time.Hour, time.Hour,
		WithArchiver(&memArchiver{err: errors.New("bucket unavailable")}))
	res, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, res.Failed)

	_, err = s.GetContext(ctx, ids[0])
	assert.NoError(t, err)
}

func TestSweeper_StartStop(t *testing.T) {
	s := newTestStore(t)
	ids := seedExpired(t, s, 1)

	deleted := make(chan string, 1)
	sw := NewSweeper(s, NewLocalLocker(), 30*24*time.Hour, 10*time.Millisecond,
		WithEvictHook(func(id string) { deleted <- id }))
	sw.Start()
	sw.Start()

	select {
	case id := <-deleted:
		assert.Equal(t, ids[0], id)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
	sw.Stop()
	sw.Stop()
}

// touchingArchiver simulates a user turn landing on the other session
// while the pass is busy archiving the first one.
type touchingArchiver struct {
	memArchiver
	store   *Store
	pair    [2]string
	touched string
	once    sync.Once
}

func (a *touchingArchiver) Archive(ctx context.Context, id string, snap []byte) error {
	a.once.Do(func() {
		other := a.pair[0]
		if other == id {
			other = a.pair[1]
		}
		a.touched = other
		_ = a.store.AddMessage(ctx, other, "user", "back again")
	})
	return a.memArchiver.Archive(ctx, id, snap)
}

func TestSweeper_KeepsSessionTouchedDuringPass(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seedExpired(t, s, 2)

	arch := &touchingArchiver{store: s, pair: [2]string{ids[0], ids[1]}}
	sw := NewSweeper(s, NewLocalLocker(), 30*24*time.Hour, time.Hour, WithArchiver(arch))
	res, err := sw.RunOnce(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, arch.touched)
	assert.Len(t, res.Deleted, 1)
	assert.NotContains(t, res.Deleted, arch.touched)
	assert.Equal(t, []string{arch.touched}, res.Skipped)
	assert.NotContains(t, arch.saved, arch.touched)

	sc, err := s.GetContext(ctx, arch.touched)
	require.NoError(t, err)
	assert.Len(t, sc.History, 2)
}

func TestStore_DeleteExpiredLeavesActiveSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seedExpired(t, s, 1)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	require.NoError(t, s.AddMessage(ctx, ids[0], "user", "still here"))
	deleted, err := s.DeleteExpired(ctx, ids[0], cutoff)
	require.NoError(t, err)
	assert.False(t, deleted)

	sc, err := s.GetContext(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, sc.History, 2)

	old := seedExpired(t, s, 1)
	deleted, err = s.DeleteExpired(ctx, old[0], cutoff)
	require.NoError(t, err)
	assert.True(t, deleted)
	var n int64
	require.NoError(t, s.db.Model(&Message{}).Where("session_id = ?", old[0]).Count(&n).Error)
	assert.Zero(t, n)
}
