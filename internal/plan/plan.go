// Package plan ties the resolver, cost aggregation and the efficiency engine
// together for one upgrade request.
package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/napolitain/upgrade-planner/internal/cost"
	"github.com/napolitain/upgrade-planner/internal/efficiency"
	"github.com/napolitain/upgrade-planner/internal/models"
	"github.com/napolitain/upgrade-planner/internal/resolver"
)

// OperationsID is the id of the Operations building that gates everything else
const OperationsID int64 = 0

var ErrInvalidRange = errors.New("plan: target level must be above the current level")

// Request asks for the upgrade of one entity from level From to level To
type Request struct {
	Type models.RequirementType `json:"type"`
	ID   int64                  `json:"id"`
	From int                    `json:"from"`
	To   int                    `json:"to"`

	// Ops is the player's Operations level, used as baseline when From is 0
	Ops int `json:"ops"`

	// Drydock is the selected drydock module, efficiency.DefaultDrydock when 0
	Drydock int64 `json:"drydock,omitempty"`

	// Owned lists the highest level the player has of other entities. Owned
	// levels stay in the tree but are left out of the totals.
	Owned []models.Requirement `json:"owned,omitempty"`
}

func (r Request) Validate() error {
	if r.From < 0 || r.To <= r.From {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidRange, r.From, r.To)
	}
	return nil
}

// Chain returns the explicit levels To down to From+1 and the baseline the
// player is known to have
func (r Request) Chain() ([]models.Requirement, *models.Requirement) {
	chain := make([]models.Requirement, 0, r.To-r.From)
	for l := r.To; l > r.From; l-- {
		chain = append(chain, models.Requirement{Type: r.Type, ID: r.ID, Level: l})
	}

	var baseline *models.Requirement
	switch {
	case r.From > 0:
		baseline = &models.Requirement{Type: r.Type, ID: r.ID, Level: r.From}
	case r.Ops > 0:
		baseline = &models.Requirement{Type: models.RequirementBuilding, ID: OperationsID, Level: r.Ops}
	}
	return chain, baseline
}

// Owns reports whether req is at or below a level listed in Owned
func (r Request) Owns(req models.Requirement) bool {
	for _, o := range r.Owned {
		if o.Type == req.Type && o.ID == req.ID && req.Level <= o.Level {
			return true
		}
	}
	return false
}

func (r Request) owned() cost.Owned {
	if len(r.Owned) == 0 {
		return nil
	}
	return r.Owns
}

func (r Request) drydock() int64 {
	if r.Drydock == 0 {
		return efficiency.DefaultDrydock
	}
	return r.Drydock
}

// Source supplies prerequisites, names and level costs
type Source interface {
	resolver.DataSource
	cost.LevelSource
}

// Plan is a resolved and priced request
type Plan struct {
	Request  Request
	Root     *resolver.Node
	Base     *cost.Summary
	Contexts []*efficiency.Context
	Prepared efficiency.Prepared

	// Drydock is the drydock the contexts and inputs are built for
	Drydock int64
}

// Planner builds plans. The engine is optional; without one, plans carry base costs only.
type Planner struct {
	source   Source
	resolver *resolver.Resolver
	engine   *efficiency.Engine
}

func New(source Source, engine *efficiency.Engine) *Planner {
	return &Planner{source: source, resolver: resolver.New(source), engine: engine}
}

func (p *Planner) Engine() *efficiency.Engine { return p.engine }

// Build resolves, prices and prepares the bonuses of a request
func (p *Planner) Build(ctx context.Context, req Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	chain, baseline := req.Chain()
	root, err := p.resolver.Resolve(ctx, chain, baseline)
	if err != nil {
		return nil, err
	}
	if err := cost.Price(ctx, p.source, root); err != nil {
		return nil, err
	}

	pl := &Plan{Request: req, Root: root, Base: cost.Summarize(root, req.owned(), nil)}
	if err := p.prepare(pl, req.drydock()); err != nil {
		return nil, err
	}
	return pl, nil
}

// prepare builds the plan's contexts for a drydock and prepares their bonuses
func (p *Planner) prepare(pl *Plan, drydock int64) error {
	pl.Drydock = drydock
	pl.Contexts = pl.Base.Contexts(efficiency.SelectedModule(drydock))
	pl.Prepared = efficiency.Prepared{}
	if p.engine == nil || len(pl.Contexts) == 0 {
		return nil
	}
	prepared, err := p.engine.Prepare(pl.Contexts...)
	if err != nil {
		return err
	}
	pl.Prepared = prepared
	return nil
}

// SelectDrydock rebuilds the plan's contexts for another drydock. Inputs
// taken before the change must be taken again.
func (p *Planner) SelectDrydock(pl *Plan, drydock int64) error {
	if drydock == 0 {
		drydock = efficiency.DefaultDrydock
	}
	if drydock == pl.Drydock {
		return nil
	}
	return p.prepare(pl, drydock)
}

// Inputs returns default inputs for every buff in play for the plan
func (p *Planner) Inputs(pl *Plan) []efficiency.Input {
	if p.engine == nil {
		return nil
	}
	inputs := p.engine.Inputs(pl.Prepared.BuffIDs)
	efficiency.SelectDrydock(inputs, pl.Drydock)
	return inputs
}

// Recalculate applies the player's inputs and returns base and net costs.
// The plan's nodes are updated in place, so callers sharing a plan must
// serialize calls.
func (p *Planner) Recalculate(pl *Plan, inputs []efficiency.Input) (*cost.Summary, error) {
	if p.engine == nil {
		return cost.Summarize(pl.Root, pl.Request.owned(), nil), nil
	}
	if len(pl.Contexts) > 0 {
		if err := p.engine.Update(inputs, pl.Contexts...); err != nil {
			return nil, err
		}
	}
	p.engine.CalculateBonuses(inputs)
	return cost.Summarize(pl.Root, pl.Request.owned(), p.engine), nil
}

// Bonuses returns the displayed bonus per resource for each modifier of the plan
func (p *Planner) Bonuses(pl *Plan) map[models.ModifierCode]models.Bonus {
	out := make(map[models.ModifierCode]models.Bonus)
	if p.engine == nil {
		return out
	}
	for _, c := range pl.Contexts {
		b := models.Bonus{}
		for _, r := range c.Resources() {
			b[r] = p.engine.Bonus(c.Modifier(), r)
		}
		out[c.Modifier()] = b
	}
	return out
}
