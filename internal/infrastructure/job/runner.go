package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/logger"
	"github.com/sac/membership/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Hooks are called around job execution. Every hook is optional.
type Hooks struct {
	// OnSuccess runs after a successful attempt
	OnSuccess func(ctx context.Context, j *Job)
	// OnError runs after every failed attempt
	OnError func(ctx context.Context, j *Job, err error)
	// OnFailure runs once when the job gives up
	OnFailure func(ctx context.Context, j *Job, err error)
}

// Config holds runner settings
type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// ConfigFrom builds the runner config from the job section
func ConfigFrom(cfg config.JobConfig) Config {
	return Config{
		Workers:     1,
		QueueSize:   100,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		Timeout:     cfg.Timeout,
	}
}

// Runner executes jobs either directly with Run or through a worker pool
// with Start and Submit
type Runner struct {
	config Config
	hooks  Hooks
	logger *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRunner creates a runner
func NewRunner(cfg Config, hooks Hooks, l *zap.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 100
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Runner{
		config: cfg,
		hooks:  hooks,
		logger: l,
		jobs:   make(chan *Job, cfg.QueueSize),
	}
}

// Run executes the job in the calling goroutine, retrying failed attempts
// after the retry delay. Returns the error of the last attempt.
func (r *Runner) Run(ctx context.Context, j *Job) error {
	if j.MaxAttempts < 1 {
		j.MaxAttempts = r.config.MaxAttempts
	}
	log := logger.WithLogger(ctx, r.logger).With(
		zap.String("job_id", j.ID.String()),
		zap.String("job", j.Name),
	)

	for {
		err := r.attempt(ctx, j)
		if err == nil {
			j.complete()
			log.Info("Job completed", zap.Int("attempts", j.Attempts))
			if r.hooks.OnSuccess != nil {
				r.hooks.OnSuccess(ctx, j)
			}
			return nil
		}

		log.Error("Job attempt failed", zap.Int("attempt", j.Attempts), zap.Error(err))
		if r.hooks.OnError != nil {
			r.hooks.OnError(ctx, j, err)
		}

		if !j.shouldRetry(err) {
			j.fail(err)
			if r.hooks.OnFailure != nil {
				r.hooks.OnFailure(ctx, j, err)
			}
			return err
		}

		j.Status = StatusPending
		select {
		case <-ctx.Done():
			j.fail(ctx.Err())
			if r.hooks.OnFailure != nil {
				r.hooks.OnFailure(ctx, j, ctx.Err())
			}
			return ctx.Err()
		case <-time.After(r.config.RetryDelay):
		}
		log.Info("Retrying job", zap.Int("attempt", j.Attempts+1), zap.Int("max_attempts", j.MaxAttempts))
	}
}

// attempt runs one try inside its own span and timeout
func (r *Runner) attempt(ctx context.Context, j *Job) (err error) {
	j.start()

	ctx, span := telemetry.StartSpan(ctx, "job."+j.Name,
		telemetry.AttrJob, j.Name,
		telemetry.AttrAttempt, j.Attempts,
	)
	defer span.End()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			err = Permanent(fmt.Errorf("job %s panicked: %v", j.Name, p))
		}
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
	}()

	return j.Run(ctx)
}

// Start starts the worker pool
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return
	}
	r.isRunning = true

	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	r.logger.Info("Job runner started", zap.Int("workers", r.config.Workers))
}

// Stop lets the workers finish queued jobs and waits for them, or returns
// when ctx expires
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	close(r.jobs)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		r.logger.Info("Job runner stopped")
		return nil
	case <-ctx.Done():
		r.cancel()
		r.logger.Warn("Job runner stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job for the worker pool
func (r *Runner) Submit(j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isRunning {
		return ErrRunnerNotRunning
	}

	select {
	case r.jobs <- j:
		r.logger.Debug("Job submitted", zap.String("job_id", j.ID.String()), zap.String("job", j.Name))
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for j := range r.jobs {
		if ctx.Err() != nil {
			return
		}
		r.logger.Debug("Processing job", zap.Int("worker_id", id), zap.String("job", j.Name))
		_ = r.Run(ctx, j)
	}
}
