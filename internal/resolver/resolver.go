// Package resolver expands target upgrades into prerequisite trees.
package resolver

import (
	"context"
	"errors"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// ErrNoRequirements is returned when Resolve is called without explicit targets
var ErrNoRequirements = errors.New("resolver: no requirements to resolve")

// DataSource supplies per-level prerequisite data.
//
// Level returns (nil, nil) when the entity or level is unknown. Any error is
// treated as a transport failure and returned to the caller unchanged.
type DataSource interface {
	Level(ctx context.Context, req models.Requirement) (*models.Level, error)
	Name(ctx context.Context, typ models.RequirementType, id int64) (string, error)
}

// Resolver builds prerequisite trees from a DataSource.
// It holds no per-call state, so one Resolver may serve concurrent calls.
type Resolver struct {
	source DataSource
}

// New creates a resolver reading from source
func New(source DataSource) *Resolver {
	return &Resolver{source: source}
}

// prerequisites returns the in-scope prerequisites declared for exactly req's level
func (r *Resolver) prerequisites(ctx context.Context, req models.Requirement) ([]models.Requirement, error) {
	if req.Level <= 0 || !req.Type.Expandable() {
		return nil, nil
	}
	lvl, err := r.source.Level(ctx, req)
	if err != nil {
		return nil, err
	}
	if lvl == nil {
		return nil, nil
	}
	out := make([]models.Requirement, 0, len(lvl.Requirements))
	for _, p := range lvl.Requirements {
		if p.Type.Expandable() {
			out = append(out, p)
		}
	}
	return out, nil
}

// Closure computes the full transitive prerequisite closure of target.
// Every entity reached at level N is recorded with levels 1..N.
func (r *Resolver) Closure(ctx context.Context, target models.Requirement) (SatisfiedSet, error) {
	highest := map[models.EntityKey]int{target.Entity(): target.Level}
	queue := []models.Requirement{target}

	for len(queue) > 0 {
		req := queue[0]
		queue = queue[1:]

		if !req.Type.Expandable() {
			continue
		}

		for i := req.Level; i > 0; i-- {
			prereqs, err := r.prerequisites(ctx, req.AtLevel(i))
			if err != nil {
				return nil, err
			}

			for _, p := range prereqs {
				level, seen := highest[p.Entity()]
				switch {
				case !seen:
					queue = append(queue, p)
				case level < p.Level:
					queue = replaceOrAppend(queue, p)
				default:
					continue
				}
				highest[p.Entity()] = p.Level
			}
		}
	}

	satisfied := NewSatisfiedSet()
	for key, level := range highest {
		satisfied.AddThrough(models.Requirement{Type: key.Type, ID: key.ID, Level: level})
	}
	return satisfied, nil
}

// replaceOrAppend swaps a pending entry for the same entity with req, or appends req
func replaceOrAppend(queue []models.Requirement, req models.Requirement) []models.Requirement {
	for i, q := range queue {
		if q.Entity() == req.Entity() {
			queue[i] = req
			return queue
		}
	}
	return append(queue, req)
}

// Resolve builds the prerequisite tree for an explicit chain of requirements.
// When baseline is non-nil its closure seeds the satisfied set, so anything it
// implies is pruned from the result.
func (r *Resolver) Resolve(ctx context.Context, requirements []models.Requirement, baseline *models.Requirement) (*Node, error) {
	satisfied := NewSatisfiedSet()
	if baseline != nil {
		closure, err := r.Closure(ctx, *baseline)
		if err != nil {
			return nil, err
		}
		satisfied = closure
	}
	return r.ResolveFrom(ctx, requirements, satisfied)
}

// ResolveFrom is Resolve with a caller supplied satisfied set, typically the
// player's completed upgrades. The set is copied, never mutated.
func (r *Resolver) ResolveFrom(ctx context.Context, requirements []models.Requirement, satisfied SatisfiedSet) (*Node, error) {
	if len(requirements) == 0 {
		return nil, ErrNoRequirements
	}

	w := newWorklist(satisfied.Clone())

	parent := -1
	for depth, req := range requirements {
		parent = w.add(req, depth, parent)
	}

	for {
		idx, ok := w.next()
		if !ok {
			break
		}
		cur := w.items[idx]

		if w.satisfied.Has(cur.req) {
			w.prune(idx)
			continue
		}

		prereqs, err := r.prerequisites(ctx, cur.req)
		if err != nil {
			return nil, err
		}

		for _, p := range prereqs {
			if w.pendingHas(p) || w.satisfied.Has(p) {
				continue
			}
			k := w.add(p, cur.depth+1, idx)

			// Fill intermediate levels as a straight chain under p
			for i, j := p.Level-1, 2; i > 0; i, j = i-1, j+1 {
				lower := p.AtLevel(i)
				if w.pendingHas(lower) || w.satisfied.Has(lower) {
					break
				}
				k = w.add(lower, cur.depth+j, k)
			}
		}

		w.satisfied.Add(cur.req)
	}

	return w.materialize(ctx, r.source)
}

// ResolveFast walks prerequisites breadth first, not deepening past any
// requirement on the same entity as target, and returns every in-scope
// requirement visited. Each exact requirement is visited at most once.
func (r *Resolver) ResolveFast(ctx context.Context, requirements []models.Requirement, target models.Requirement) ([]models.Requirement, error) {
	var result []models.Requirement
	queue := append([]models.Requirement(nil), requirements...)
	seen := make(map[models.Requirement]struct{}, len(queue))
	for _, q := range queue {
		seen[q] = struct{}{}
	}

	for len(queue) > 0 {
		req := queue[0]
		queue = queue[1:]

		if !req.Type.Expandable() {
			continue
		}
		result = append(result, req)

		if req.Entity() == target.Entity() {
			continue
		}

		lvl, err := r.levelOf(ctx, req)
		if err != nil {
			return nil, err
		}
		if lvl == nil {
			continue
		}
		for _, p := range lvl.Requirements {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return result, nil
}

func (r *Resolver) levelOf(ctx context.Context, req models.Requirement) (*models.Level, error) {
	if req.Level <= 0 {
		return nil, nil
	}
	return r.source.Level(ctx, req)
}
