package repository

import (
	"context"
	"time"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// BuffFetcher lists the buffs of one buff system with their source data
type BuffFetcher interface {
	Buffs(ctx context.Context, system string) ([]*models.Buff, error)
	SyndicateBuffIDs(ctx context.Context) ([]int64, error)
}

// Buffs caches buff specs per system and serves them per modifier
type Buffs struct {
	fetcher BuffFetcher
	store   *store
}

func NewBuffs(fetcher BuffFetcher, ttl time.Duration) *Buffs {
	return &Buffs{fetcher: fetcher, store: newStore(ttl)}
}

// System returns every buff of a system
func (b *Buffs) System(ctx context.Context, system string) ([]*models.Buff, error) {
	v, err := b.store.get(ctx, "buffs/"+system, func(ctx context.Context) (any, error) {
		return b.fetcher.Buffs(ctx, system)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*models.Buff), nil
}

// Buffs returns the buffs of a system providing modifier
func (b *Buffs) Buffs(ctx context.Context, system string, modifier models.ModifierCode) ([]*models.Buff, error) {
	all, err := b.System(ctx, system)
	if err != nil {
		return nil, err
	}
	var out []*models.Buff
	for _, buff := range all {
		if buff.Modifier == modifier {
			out = append(out, buff)
		}
	}
	return out, nil
}

func (b *Buffs) SyndicateBuffIDs(ctx context.Context) ([]int64, error) {
	v, err := b.store.get(ctx, "syndicate", func(ctx context.Context) (any, error) {
		return b.fetcher.SyndicateBuffIDs(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]int64), nil
}

// Invalidate drops all cached buff data
func (b *Buffs) Invalidate() {
	b.store.flush()
}
