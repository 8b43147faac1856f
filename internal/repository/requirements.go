package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// MissingName is shown for entities without a translation
const MissingName = "Missing translation"

// EntityFetcher lists all entities of one requirement type, with names.
// Types without a data source yield no entities and no error.
type EntityFetcher interface {
	Entities(ctx context.Context, t models.RequirementType) ([]*models.Entity, error)
}

// Requirements caches entity data per requirement type
type Requirements struct {
	fetcher EntityFetcher
	store   *store
}

func NewRequirements(fetcher EntityFetcher, ttl time.Duration) *Requirements {
	return &Requirements{fetcher: fetcher, store: newStore(ttl)}
}

// Entities returns every entity of type t keyed by id
func (r *Requirements) Entities(ctx context.Context, t models.RequirementType) (map[int64]*models.Entity, error) {
	v, err := r.store.get(ctx, fmt.Sprintf("entities/%d", t), func(ctx context.Context) (any, error) {
		list, err := r.fetcher.Entities(ctx, t)
		if err != nil {
			return nil, err
		}
		byID := make(map[int64]*models.Entity, len(list))
		for _, e := range list {
			byID[e.ID] = e
		}
		return byID, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int64]*models.Entity), nil
}

// Entity returns one entity, or nil if it does not exist
func (r *Requirements) Entity(ctx context.Context, t models.RequirementType, id int64) (*models.Entity, error) {
	all, err := r.Entities(ctx, t)
	if err != nil {
		return nil, err
	}
	return all[id], nil
}

// Level returns the data of one level, or nil if the entity or level is unknown
func (r *Requirements) Level(ctx context.Context, req models.Requirement) (*models.Level, error) {
	e, err := r.Entity(ctx, req.Type, req.ID)
	if err != nil {
		return nil, err
	}
	return e.GetLevel(req.Level), nil
}

// Name returns the display name of an entity
func (r *Requirements) Name(ctx context.Context, t models.RequirementType, id int64) (string, error) {
	e, err := r.Entity(ctx, t, id)
	if err != nil {
		return "", err
	}
	if e == nil || e.Name == "" {
		return MissingName, nil
	}
	return e.Name, nil
}

// Invalidate drops all cached entity data
func (r *Requirements) Invalidate() {
	r.store.flush()
}
