package stats

import (
	"context"
	"fmt"

	"campusblog/pkg/blog"
	"campusblog/pkg/user"
)

type (
	BlogCounter interface {
		CountByOwnerAndType(ctx context.Context, ownerId string, t blog.Type) (int, error)
	}

	CounterStore interface {
		RecomputeCounter(ctx context.Context, uid string, c user.Counter, count func(context.Context) (int, error)) (int, error)
	}
)

// Updater sets a user's numberOfPosts or numberOfComplaints to the number of
// their stored blogs of the matching type.
type Updater struct {
	blogs BlogCounter
	users CounterStore
}

func NewUpdater(blogs BlogCounter, users CounterStore) *Updater {
	return &Updater{
		blogs: blogs,
		users: users,
	}
}

// Recompute is a pure count, running it again for the same job gives the
// same result.
func (u *Updater) Recompute(ctx context.Context, j Job) (int, error) {
	if j.UserId == "" {
		return 0, fmt.Errorf("stats/updater: job without user: %w", user.ErrNotFound)
	}
	n, err := u.users.RecomputeCounter(ctx, j.UserId, j.Counter(), func(ctx context.Context) (int, error) {
		return u.blogs.CountByOwnerAndType(ctx, j.UserId, j.Type)
	})
	if err != nil {
		return 0, fmt.Errorf("stats/updater: %s of user %s: %w", j.Counter(), j.UserId, err)
	}
	return n, nil
}
