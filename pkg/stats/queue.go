package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

var ErrQueueEmpty = errors.New("stats: queue is empty")

type Queue interface {
	Enqueue(context.Context, Job) error
	// Dequeue blocks until a job is available, ctx is done or the
	// implementation's poll timeout passes (ErrQueueEmpty).
	Dequeue(context.Context) (Job, error)
}

// MemoryQueue is used when no Redis is configured. Jobs don't survive a
// restart; the reconciler restores the counters.
type MemoryQueue struct {
	jobs chan Job
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan Job, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, j Job) error {
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case j := <-q.jobs:
		return j, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// ConnGetter is satisfied by *redis.Pool.
type ConnGetter interface {
	Get() redis.Conn
}

// RedisQueue keeps jobs as JSON in a Redis list: RPUSH to enqueue, BLPOP to
// dequeue.
type RedisQueue struct {
	pool    ConnGetter
	key     string
	timeout time.Duration
}

func NewRedisQueue(pool ConnGetter, key string) *RedisQueue {
	return &RedisQueue{
		pool:    pool,
		key:     key,
		timeout: time.Second,
	}
}

func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(addr)
		},
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, j Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("stats/queue: can't marshal job: %w", err)
	}
	conn := q.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("RPUSH", q.key, payload); err != nil {
		return fmt.Errorf("stats/queue: RPUSH failed: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	conn := q.pool.Get()
	defer conn.Close()

	// BLPOP replies [key, value], or nil after the timeout.
	reply, err := redis.ByteSlices(conn.Do("BLPOP", q.key, int(q.timeout.Seconds())))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return Job{}, ErrQueueEmpty
		}
		return Job{}, fmt.Errorf("stats/queue: BLPOP failed: %w", err)
	}
	if len(reply) != 2 {
		return Job{}, fmt.Errorf("stats/queue: unexpected BLPOP reply of %d items", len(reply))
	}

	var j Job
	if err := json.Unmarshal(reply[1], &j); err != nil {
		return Job{}, fmt.Errorf("stats/queue: bad job payload %q: %w", reply[1], err)
	}
	return j, nil
}
