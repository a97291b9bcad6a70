package blog

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"campusblog/pkg/user"
)

// OwnerCache is satisfied by *cache.Cache[*user.Owner].
type OwnerCache interface {
	Get(ctx context.Context, key any) (*user.Owner, error)
	Set(ctx context.Context, key any, object *user.Owner, options ...store.Option) error
}

// NewOwnerCache keeps owner projections in process memory for ttl.
func NewOwnerCache(ttl time.Duration) (*cache.Cache[*user.Owner], error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("blog/cache: can't create ristretto cache: %w", err)
	}
	s := ristretto_store.NewRistretto(client, store.WithExpiration(ttl), store.WithCost(1))
	return cache.New[*user.Owner](s), nil
}

func ownerKey(id string) string {
	return "owner#" + id
}
