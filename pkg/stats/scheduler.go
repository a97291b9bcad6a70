package stats

import (
	"context"
	"errors"

	"campusblog/pkg/blog"
)

// Scheduler puts recompute jobs on the queue for the blog pipeline.
type Scheduler struct {
	queue Queue
}

func NewScheduler(q Queue) *Scheduler {
	return &Scheduler{queue: q}
}

func (s *Scheduler) Schedule(ctx context.Context, ownerId string, t blog.Type) error {
	if ownerId == "" {
		return errors.New("stats/scheduler: empty owner id")
	}
	return s.queue.Enqueue(ctx, Job{UserId: ownerId, Type: t})
}
