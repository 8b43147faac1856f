// Package repository provides read-through caches with request coalescing in
// front of the game-data fetchers.
package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// store memoizes fetches by key. Concurrent misses for the same key share a
// single fetch. Failed fetches are not cached.
type store struct {
	cache *cache.Cache
	group singleflight.Group
}

// newStore creates a store whose entries live for ttl; ttl <= 0 keeps them
// for the lifetime of the process.
func newStore(ttl time.Duration) *store {
	if ttl <= 0 {
		return &store{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &store{cache: cache.New(ttl, 2*ttl)}
}

func (s *store) get(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	// The shared fetch must outlive any single caller giving up
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		v, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (s *store) flush() {
	s.cache.Flush()
}
