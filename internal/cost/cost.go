// Package cost prices resolved requirement trees and sums their costs.
package cost

import (
	"context"

	"github.com/napolitain/upgrade-planner/internal/efficiency"
	"github.com/napolitain/upgrade-planner/internal/models"
	"github.com/napolitain/upgrade-planner/internal/resolver"
)

// LevelSource supplies per-level cost data
type LevelSource interface {
	Level(ctx context.Context, req models.Requirement) (*models.Level, error)
}

// Applier turns base costs into net costs
type Applier interface {
	Apply(cost models.Counter, ctx *efficiency.Context) models.Counter
}

// Owned reports requirements the player already has. Owned nodes are not summed.
type Owned func(models.Requirement) bool

// Aggregate is the summed cost of a set of nodes
type Aggregate struct {
	BaseCost models.Counter `json:"base_cost"`
	BaseTime models.Counter `json:"base_time"`
	NetCost  models.Counter `json:"net_cost,omitempty"`
	NetTime  models.Counter `json:"net_time,omitempty"`
}

func newAggregate(withNet bool) *Aggregate {
	a := &Aggregate{BaseCost: models.NewCounter(), BaseTime: models.NewCounter()}
	if withNet {
		a.NetCost = models.NewCounter()
		a.NetTime = models.NewCounter()
	}
	return a
}

func (a *Aggregate) extend(other *Aggregate) {
	a.BaseCost.IExtend(other.BaseCost)
	a.BaseTime.IExtend(other.BaseTime)
	if a.NetCost != nil {
		a.NetCost.IExtend(other.NetCost)
		a.NetTime.IExtend(other.NetTime)
	}
}

// Summary holds a grand total and one sub-aggregate per requirement type
type Summary struct {
	Total  *Aggregate                            `json:"total"`
	ByType map[models.RequirementType]*Aggregate `json:"by_type"`
}

// timeCategory returns the time resource category of a requirement type
func timeCategory(t models.RequirementType) (models.TimeCategory, bool) {
	switch t {
	case models.RequirementBuilding:
		return models.TimeBuilding, true
	case models.RequirementResearch:
		return models.TimeResearch, true
	}
	return "", false
}

// LevelCost returns the base cost and base time of one level.
// A nil level costs nothing.
func LevelCost(t models.RequirementType, lvl *models.Level) (models.Counter, models.Counter) {
	cost, time := models.NewCounter(), models.NewCounter()
	if lvl == nil {
		return cost, time
	}
	cost.IExtend(lvl.Costs)
	if cat, ok := timeCategory(t); ok && lvl.TimeSeconds > 0 {
		if id, ok := models.TimeResource(cat, lvl.TimeGeneration); ok {
			time.Increment(id, lvl.TimeSeconds)
		}
	}
	return cost, time
}

// Price fills BaseCost and BaseTime on every node of the tree
func Price(ctx context.Context, src LevelSource, root *resolver.Node) error {
	for _, n := range root.All() {
		var lvl *models.Level
		if n.Type.Expandable() && n.Level > 0 {
			var err error
			lvl, err = src.Level(ctx, n.Requirement)
			if err != nil {
				return err
			}
		}
		n.BaseCost, n.BaseTime = LevelCost(n.Type, lvl)
	}
	return nil
}

// Summarize sums base costs of every node not owned. When applier is non-nil
// each node's net cost and time are computed and summed as well.
func Summarize(root *resolver.Node, owned Owned, applier Applier) *Summary {
	withNet := applier != nil
	s := &Summary{
		Total:  newAggregate(withNet),
		ByType: make(map[models.RequirementType]*Aggregate),
	}

	for _, n := range root.All() {
		if owned != nil && owned(n.Requirement) {
			continue
		}
		if n.BaseCost == nil {
			n.BaseCost = models.NewCounter()
		}
		if n.BaseTime == nil {
			n.BaseTime = models.NewCounter()
		}

		agg, ok := s.ByType[n.Type]
		if !ok {
			agg = newAggregate(withNet)
			s.ByType[n.Type] = agg
		}
		agg.BaseCost.IExtend(n.BaseCost)
		agg.BaseTime.IExtend(n.BaseTime)

		if withNet {
			n.NetCost, n.NetTime = netOf(applier, n)
			agg.NetCost.IExtend(n.NetCost)
			agg.NetTime.IExtend(n.NetTime)
		}
	}

	for _, agg := range s.ByType {
		s.Total.extend(agg)
	}
	return s
}

func netOf(applier Applier, n *resolver.Node) (models.Counter, models.Counter) {
	costMod, timeMod, ok := efficiency.CostModifiers(n.Type)
	if !ok {
		return n.BaseCost.Clone(), n.BaseTime.Clone()
	}
	cost := applier.Apply(n.BaseCost, efficiency.ForCounter(costMod, n.BaseCost, nil))
	time := applier.Apply(n.BaseTime, efficiency.ForCounter(timeMod, n.BaseTime, nil))
	return cost, time
}

// Contexts returns the cost and time contexts covering every resource in the
// summary, one per modifier, ready for efficiency.Engine.Prepare. Every
// context carries exceptions.
func (s *Summary) Contexts(exceptions ...efficiency.Exception) []*efficiency.Context {
	var out []*efficiency.Context
	for _, t := range models.AllRequirementTypes() {
		agg, ok := s.ByType[t]
		if !ok {
			continue
		}
		costMod, timeMod, ok := efficiency.CostModifiers(t)
		if !ok {
			continue
		}
		out = append(out,
			efficiency.ForCounter(costMod, agg.BaseCost, nil, exceptions...),
			efficiency.ForCounter(timeMod, agg.BaseTime, nil, exceptions...))
	}
	return out
}

// Needed returns, per resource, how much of net is not yet on hand
func Needed(net, onHand models.Counter) models.Counter {
	out := models.NewCounter()
	for r, amount := range net {
		if missing := amount - onHand.Get(r); missing > 0 {
			out[r] = missing
		} else {
			out[r] = 0
		}
	}
	return out
}

// AuctionScore returns the material spend event score of a cost
func AuctionScore(net models.Counter, scores map[models.ResourceID]int64) int64 {
	var total int64
	for r, amount := range net {
		total += amount * scores[r]
	}
	return total
}

// DefaultAuctionScores returns material spend event scores per refined material
func DefaultAuctionScores() map[models.ResourceID]int64 {
	return map[models.ResourceID]int64{
		2453327618: 20, 2599869530: 20, 2367328925: 20,
		3337738024: 30, 3371789218: 30, 1787682553: 30,
		1904955588: 40, 3628066968: 40, 3909684597: 40,
		920308245: 60, 810120542: 60, 3965052272: 60,
		4027233615: 240, 2290570913: 240, 292446021: 240,
		2258174662: 90, 3329003172: 90, 1371250883: 90,
		4109746240: 180, 768674708: 180, 3053746170: 180,
		3491022712: 600, 2859248631: 600, 3939844739: 600,
		2315861452: 600, 283093647: 600, 923421495: 600,
		1781346845: 1200, 1967964279: 1200, 1586008427: 1200,
	}
}
