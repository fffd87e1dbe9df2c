package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"codeauth/internal/entity"
	"codeauth/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCleanupJob_DeletesOnlyPastRetention(t *testing.T) {
	repo := memory.NewSessionRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	old := &entity.Session{UserID: uuid.New(), ExpiresAt: now.Add(-48 * time.Hour)}
	recent := &entity.Session{UserID: uuid.New(), ExpiresAt: now.Add(-time.Hour)}
	live := &entity.Session{UserID: uuid.New(), ExpiresAt: now.Add(time.Hour)}
	for _, s := range []*entity.Session{old, recent, live} {
		require.NoError(t, repo.Create(ctx, s))
	}

	j := &SessionCleanupJob{
		Sessions:  repo,
		Retention: 24 * time.Hour,
		Now:       func() time.Time { return now },
	}
	require.NoError(t, j.Run(ctx))

	got, err := repo.FindActiveByID(ctx, live.ID, now)
	require.NoError(t, err)
	assert.NotNil(t, got)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "only the recently expired session should remain")
}

type failingDeleter struct{}

func (failingDeleter) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestSessionCleanupJob_PropagatesError(t *testing.T) {
	j := &SessionCleanupJob{Sessions: failingDeleter{}}
	assert.Error(t, j.Run(context.Background()))
	assert.Equal(t, "session_cleanup", j.Name())
}

type countingJob struct {
	runs chan struct{}
}

func (c *countingJob) Name() string { return "counting" }

func (c *countingJob) Run(context.Context) error {
	c.runs <- struct{}{}
	return nil
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(nil)
	assert.Error(t, s.AddJob(&countingJob{}, "not a spec"))
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	s := NewScheduler(nil)
	started := make(chan struct{})
	block := make(chan struct{})
	var calls atomic.Int32
	fn := s.wrap(jobFunc(func(context.Context) error {
		calls.Add(1)
		close(started)
		<-block
		return nil
	}), s.logger)

	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	<-started

	fn()
	close(block)
	<-done
	assert.Equal(t, int32(1), calls.Load())
}

type jobFunc func(context.Context) error

func (f jobFunc) Name() string                  { return "func" }
func (f jobFunc) Run(ctx context.Context) error { return f(ctx) }
