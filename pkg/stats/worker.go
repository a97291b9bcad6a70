package stats

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"campusblog/pkg/logger"
	"campusblog/pkg/user"
)

type Recomputer interface {
	Recompute(context.Context, Job) (int, error)
}

type WorkerConfig struct {
	Workers     int
	MaxAttempts int
	// Backoff is the pause after the first failed attempt. It doubles on
	// every following one.
	Backoff    time.Duration
	JobTimeout time.Duration
}

// Worker takes jobs off the queue and runs them on Workers shards. A job
// goes to the shard picked by its user id, so jobs of one user run one
// after another in queue order.
type Worker struct {
	queue   Queue
	updater Recomputer
	cfg     WorkerConfig
}

func NewWorker(q Queue, r Recomputer, cfg WorkerConfig) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Worker{
		queue:   q,
		updater: r,
		cfg:     cfg,
	}
}

// Run dispatches jobs until ctx is done. An attempt in flight at that moment
// is finished; jobs still waiting in a shard are dropped, the reconciler
// repairs their counters.
func (w *Worker) Run(ctx context.Context) {
	shards := make([]chan Job, w.cfg.Workers)
	wg := sync.WaitGroup{}
	for i := range shards {
		shards[i] = make(chan Job, 16)
		wg.Add(1)
		go func(jobs <-chan Job) {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					logger.Log(ctx).Warnw("stats/worker: job dropped on shutdown", "user", j.UserId, "blogType", j.Type)
					continue
				}
				w.process(ctx, j)
			}
		}(shards[i])
	}

	w.dispatch(ctx, shards)

	for _, s := range shards {
		close(s)
	}
	wg.Wait()
	logger.Log(ctx).Infow("stats/worker: stopped")
}

func (w *Worker) dispatch(ctx context.Context, shards []chan Job) {
	for {
		j, err := w.queue.Dequeue(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrQueueEmpty) {
			continue
		}
		if err != nil {
			logger.Log(ctx).Errorw("stats/worker: dequeue failed", "error", err)
			if !sleep(ctx, w.cfg.Backoff) {
				return
			}
			continue
		}

		select {
		case shards[shardOf(j.UserId, len(shards))] <- j:
		case <-ctx.Done():
			logger.Log(ctx).Warnw("stats/worker: job dropped on shutdown", "user", j.UserId, "blogType", j.Type)
			return
		}
	}
}

// process runs j until it succeeds, fails permanently, runs out of attempts
// or ctx is done. Failures are logged and the job is dropped.
func (w *Worker) process(ctx context.Context, j Job) {
	backoff := w.cfg.Backoff
	for attempt := 1; ; attempt++ {
		n, err := w.attempt(ctx, j)
		if err == nil {
			logger.Log(ctx).Debugw("stats/worker: counter recomputed",
				"user", j.UserId, "counter", j.Counter(), "value", n)
			return
		}

		if errors.Is(err, user.ErrNotFound) || attempt >= w.cfg.MaxAttempts {
			logger.Log(ctx).Errorw("stats/worker: job dropped",
				"user", j.UserId, "blogType", j.Type, "attempts", attempt, "error", err)
			return
		}
		logger.Log(ctx).Warnw("stats/worker: attempt failed, retrying",
			"user", j.UserId, "blogType", j.Type, "attempt", attempt, "backoff", backoff, "error", err)
		if !sleep(ctx, backoff) {
			logger.Log(ctx).Warnw("stats/worker: job dropped on shutdown",
				"user", j.UserId, "blogType", j.Type, "attempts", attempt, "error", err)
			return
		}
		backoff *= 2
	}
}

// attempt isn't cut short by ctx being done, only by JobTimeout.
func (w *Worker) attempt(ctx context.Context, j Job) (int, error) {
	ctx = context.WithoutCancel(ctx)
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}
	return w.updater.Recompute(ctx, j)
}

func shardOf(userId string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userId))
	return int(h.Sum32() % uint32(n))
}

// sleep reports false if ctx was done first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
