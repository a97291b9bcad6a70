package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"campusblog/pkg/blog"
	"campusblog/pkg/logger"
)

type OwnerLister interface {
	Owners(context.Context) ([]string, error)
}

// Reconciler enqueues a recompute of both counters for every user owning a
// blog. It repairs counters whose jobs were lost or dropped.
type Reconciler struct {
	owners OwnerLister
	queue  Queue
}

func NewReconciler(owners OwnerLister, q Queue) *Reconciler {
	return &Reconciler{
		owners: owners,
		queue:  q,
	}
}

// Run returns the number of enqueued jobs.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	ids, err := r.owners.Owners(ctx)
	if err != nil {
		return 0, fmt.Errorf("stats/reconcile: can't list owners: %w", err)
	}
	n := 0
	for _, id := range ids {
		for _, t := range []blog.Type{blog.TypeArticle, blog.TypeComplaint} {
			if err := r.queue.Enqueue(ctx, Job{UserId: id, Type: t}); err != nil {
				return n, fmt.Errorf("stats/reconcile: can't enqueue %s of %s: %w", t, id, err)
			}
			n++
		}
	}
	return n, nil
}

// Schedule registers the reconciler on c. An empty spec disables it.
func (r *Reconciler) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	if spec == "" {
		return 0, nil
	}
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := r.Run(ctx)
		if err != nil {
			logger.Log(ctx).Errorw("stats/reconcile: run failed", "enqueued", n, "error", err)
			return
		}
		logger.Log(ctx).Infow("stats/reconcile: counters scheduled", "jobs", n)
	})
}
