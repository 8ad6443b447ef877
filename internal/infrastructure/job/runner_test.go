package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{Workers: 2, QueueSize: 10, MaxAttempts: 3, RetryDelay: time.Millisecond}
}

func TestRunner_RunSuccess(t *testing.T) {
	var succeeded *Job
	r := NewRunner(testConfig(), Hooks{
		OnSuccess: func(_ context.Context, j *Job) { succeeded = j },
	}, zap.NewNop())

	j := New("export", func(context.Context) error { return nil }, 0)
	require.NoError(t, r.Run(context.Background(), j))

	assert.Equal(t, StatusSuccess, j.Status)
	assert.Equal(t, 1, j.Attempts)
	assert.Equal(t, 3, j.MaxAttempts)
	assert.NotNil(t, j.StartedAt)
	assert.NotNil(t, j.CompletedAt)
	assert.Same(t, j, succeeded)
}

func TestRunner_RetriesUntilSuccess(t *testing.T) {
	var errorsSeen int
	r := NewRunner(testConfig(), Hooks{
		OnError: func(context.Context, *Job, error) { errorsSeen++ },
	}, nil)

	calls := 0
	j := New("export", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("storage unavailable")
		}
		return nil
	}, 0)

	require.NoError(t, r.Run(context.Background(), j))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, j.Attempts)
	assert.Equal(t, 2, errorsSeen)
	assert.Empty(t, j.Error)
}

func TestRunner_GivesUpAfterMaxAttempts(t *testing.T) {
	var failure error
	r := NewRunner(testConfig(), Hooks{
		OnFailure: func(_ context.Context, _ *Job, err error) { failure = err },
	}, nil)

	boom := errors.New("boom")
	j := New("import", func(context.Context) error { return boom }, 2)

	err := r.Run(context.Background(), j)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, failure, boom)
	assert.Equal(t, 2, j.Attempts)
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "boom", j.Error)
}

func TestRunner_PermanentErrorNotRetried(t *testing.T) {
	r := NewRunner(testConfig(), Hooks{}, nil)

	calls := 0
	invalid := errors.New("invalid file")
	j := New("import", func(context.Context) error {
		calls++
		return Permanent(invalid)
	}, 0)

	err := r.Run(context.Background(), j)
	assert.ErrorIs(t, err, invalid)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRunner_PanicBecomesPermanentError(t *testing.T) {
	r := NewRunner(testConfig(), Hooks{}, nil)

	j := New("export", func(context.Context) error { panic("nil table") }, 0)

	err := r.Run(context.Background(), j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil table")
	assert.Equal(t, 1, j.Attempts)
}

func TestRunner_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	cfg.Timeout = 10 * time.Millisecond
	r := NewRunner(cfg, Hooks{}, nil)

	j := New("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 0)

	err := r.Run(context.Background(), j)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_CancelledWhileWaitingForRetry(t *testing.T) {
	cfg := testConfig()
	cfg.RetryDelay = time.Hour
	r := NewRunner(cfg, Hooks{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	j := New("export", func(context.Context) error {
		cancel()
		return errors.New("temporary")
	}, 0)

	err := r.Run(ctx, j)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, j.Attempts)
}

func TestRunner_SubmitRequiresStart(t *testing.T) {
	r := NewRunner(testConfig(), Hooks{}, nil)
	err := r.Submit(New("x", func(context.Context) error { return nil }, 0))
	assert.ErrorIs(t, err, ErrRunnerNotRunning)
}

func TestRunner_WorkerPool(t *testing.T) {
	var wg sync.WaitGroup
	var done atomic.Int32
	r := NewRunner(testConfig(), Hooks{
		OnSuccess: func(context.Context, *Job) {
			done.Add(1)
			wg.Done()
		},
	}, nil)
	r.Start(context.Background())
	r.Start(context.Background())

	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, r.Submit(New("export", func(context.Context) error { return nil }, 0)))
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	require.NoError(t, r.Stop(ctx))

	assert.Equal(t, int32(5), done.Load())
	assert.ErrorIs(t, r.Submit(New("late", func(context.Context) error { return nil }, 0)), ErrRunnerNotRunning)
}

func TestRunner_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	r := NewRunner(cfg, Hooks{}, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	r.Start(context.Background())

	require.NoError(t, r.Submit(New("blocking", func(context.Context) error {
		close(started)
		<-release
		return nil
	}, 0)))
	<-started

	require.NoError(t, r.Submit(New("queued", func(context.Context) error { return nil }, 0)))
	assert.ErrorIs(t, r.Submit(New("overflow", func(context.Context) error { return nil }, 0)), ErrQueueFull)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("x")))
	base := errors.New("bad")
	assert.ErrorIs(t, Permanent(base), base)
}
