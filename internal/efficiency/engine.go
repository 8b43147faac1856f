// Package efficiency collects discount buffs and turns base costs into net costs.
package efficiency

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/napolitain/upgrade-planner/internal/models"
)

var (
	ErrNoContexts        = errors.New("efficiency: no contexts given")
	ErrDuplicateModifier = errors.New("efficiency: multiple contexts for one modifier")
	ErrMixedTags         = errors.New("efficiency: contexts span multiple tags")
	ErrUnknownTag        = errors.New("efficiency: modifier has no tag")
)

// BuffSource supplies buff specs from the game data
type BuffSource interface {
	// Buffs returns every buff of system providing modifier
	Buffs(ctx context.Context, system string, modifier models.ModifierCode) ([]*models.Buff, error)
	// SyndicateBuffIDs returns the buff ids of enhanced syndicate rewards
	SyndicateBuffIDs(ctx context.Context) ([]int64, error)
}

// Bonuses holds the two composition stages of one modifier, per resource
type Bonuses struct {
	Standard models.Bonus `json:"standard"`
	True     models.Bonus `json:"true"`
}

func newBonuses(resources map[models.ResourceID]struct{}) *Bonuses {
	b := &Bonuses{Standard: make(models.Bonus, len(resources)), True: make(models.Bonus, len(resources))}
	for r := range resources {
		b.Standard[r] = 0
		b.True[r] = 0
	}
	return b
}

func (b *Bonuses) clone() Bonuses {
	out := Bonuses{Standard: make(models.Bonus, len(b.Standard)), True: make(models.Bonus, len(b.True))}
	for r, v := range b.Standard {
		out.Standard[r] = v
	}
	for r, v := range b.True {
		out.True[r] = v
	}
	return out
}

// Prepared is the outcome of PrepareBonuses
type Prepared struct {
	Bonuses map[models.ModifierCode]*Bonuses
	BuffIDs []int64
}

// Option configures an Engine
type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithSystems(systems []string) Option {
	return func(e *Engine) { e.systems = append([]string(nil), systems...) }
}

func WithRules(r BucketRules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithConcurrency caps parallel source requests during Load
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// Engine indexes buffs for a set of modifiers and composes the bonuses the
// player selected. It is safe for concurrent use.
type Engine struct {
	source      BuffSource
	modifiers   []models.ModifierCode
	systems     []string
	rules       BucketRules
	logger      *log.Logger
	concurrency int
	index       *BuffIndex

	mu       sync.RWMutex
	buffs    map[string]map[models.ModifierCode][]*models.Buff
	bucketOf map[int64]string
	contexts map[models.Tag]map[models.ModifierCode]*Context
	bonuses  map[models.Tag]map[models.ModifierCode]*Bonuses
}

// New creates an engine for modifiers
func New(source BuffSource, modifiers []models.ModifierCode, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		modifiers:   append([]models.ModifierCode(nil), modifiers...),
		systems:     DefaultSystems(),
		rules:       DefaultBucketRules(),
		logger:      log.Default(),
		concurrency: 4,
		index:       NewBuffIndex(),
		buffs:       make(map[string]map[models.ModifierCode][]*models.Buff),
		bucketOf:    make(map[int64]string),
		contexts:    make(map[models.Tag]map[models.ModifierCode]*Context),
		bonuses:     make(map[models.Tag]map[models.ModifierCode]*Bonuses),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ForRequirements returns the modifiers relevant to upgrading the given requirement types
func ForRequirements(types []models.RequirementType) []models.ModifierCode {
	var out []models.ModifierCode
	seen := make(map[models.ModifierCode]bool)
	add := func(mods ...models.ModifierCode) {
		for _, m := range mods {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	for _, t := range types {
		switch t {
		case models.RequirementBuilding:
			add(models.StarbaseModuleConstructionCost, models.StarbaseModuleConstructionSpeed)
		case models.RequirementResearch:
			add(models.ResearchCost, models.ResearchSpeed)
		case models.RequirementShipTier:
			add(models.ShipConstructionCost, models.ShipConstructionSpeed, models.ComponentCost, models.TierUpSpeed)
		}
	}
	return out
}

// CostModifiers returns the cost and time modifiers of a requirement type
func CostModifiers(t models.RequirementType) (cost, time models.ModifierCode, ok bool) {
	switch t {
	case models.RequirementBuilding:
		return models.StarbaseModuleConstructionCost, models.StarbaseModuleConstructionSpeed, true
	case models.RequirementResearch:
		return models.ResearchCost, models.ResearchSpeed, true
	case models.RequirementShipTier:
		return models.ShipConstructionCost, models.ShipConstructionSpeed, true
	}
	return 0, 0, false
}

// ResourceRestrictions returns the resources a buff is limited to. Speed buffs
// without an explicit list are limited to their time resources. An empty
// result means the buff applies to every resource.
func ResourceRestrictions(buff *models.Buff) []models.ResourceID {
	if buff.Attributes.Resources != nil {
		return append([]models.ResourceID(nil), buff.Attributes.Resources...)
	}
	if cat, ok := buff.Modifier.NaturalCategory(); ok {
		return models.TimeResources(cat)
	}
	return nil
}

func (e *Engine) Modifiers() []models.ModifierCode {
	return append([]models.ModifierCode(nil), e.modifiers...)
}

func (e *Engine) Index() *BuffIndex { return e.index }

// Load fetches the buffs of every configured system for every modifier.
// A failing system is logged and contributes no buffs.
func (e *Engine) Load(ctx context.Context) error {
	syndicate := make(map[int64]struct{})
	ids, err := e.source.SyndicateBuffIDs(ctx)
	if err != nil {
		e.logger.Printf("efficiency: enhanced syndicate list unavailable: %v", err)
	}
	for _, id := range ids {
		syndicate[id] = struct{}{}
	}

	type job struct {
		system   string
		modifier models.ModifierCode
		buffs    []*models.Buff
	}
	jobs := make([]job, 0, len(e.modifiers)*len(e.systems))
	for _, m := range e.modifiers {
		for _, s := range e.systems {
			jobs = append(jobs, job{system: s, modifier: m})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i := range jobs {
		j := &jobs[i]
		g.Go(func() error {
			buffs, err := e.source.Buffs(gctx, j.system, j.modifier)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Printf("efficiency: failed to load %s buffs for %v: %v", j.system, j.modifier, err)
				return nil
			}
			j.buffs = buffs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	buckets := make(map[string]map[models.ModifierCode][]*models.Buff)
	bucketOf := make(map[int64]string)
	var all []*models.Buff
	for _, j := range jobs {
		var matching []*models.Buff
		for _, b := range j.buffs {
			if b.Modifier == j.modifier {
				matching = append(matching, b)
			}
		}
		for bucket, bs := range e.rules.Classify(j.system, matching, syndicate) {
			if buckets[bucket] == nil {
				buckets[bucket] = make(map[models.ModifierCode][]*models.Buff)
			}
			buckets[bucket][j.modifier] = append(buckets[bucket][j.modifier], bs...)
			for _, b := range bs {
				bucketOf[b.ID] = bucket
				all = append(all, b)
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffs = buckets
	e.bucketOf = bucketOf
	e.index.Reset(all)
	return nil
}

// Buckets returns the names of all non-empty buckets in sorted order
func (e *Engine) Buckets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.buffs))
	for b := range e.buffs {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Buffs returns the buffs of one bucket for one modifier
func (e *Engine) Buffs(bucket string, modifier models.ModifierCode) []*models.Buff {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*models.Buff(nil), e.buffs[bucket][modifier]...)
}

// Bucket returns the bucket a buff was loaded into
func (e *Engine) Bucket(buffID int64) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bucketOf[buffID]
	return b, ok
}

// Tag returns the single tag shared by all contexts
func Tag(contexts []*Context) (models.Tag, error) {
	if len(contexts) == 0 {
		return "", ErrNoContexts
	}
	seen := make(map[models.ModifierCode]bool, len(contexts))
	var tag models.Tag
	for i, c := range contexts {
		if seen[c.Modifier()] {
			return "", fmt.Errorf("%w: %v", ErrDuplicateModifier, c.Modifier())
		}
		seen[c.Modifier()] = true

		t, ok := c.Modifier().Tag()
		if !ok {
			return "", fmt.Errorf("%w: %v", ErrUnknownTag, c.Modifier())
		}
		if i > 0 && t != tag {
			return "", fmt.Errorf("%w: %s and %s", ErrMixedTags, tag, t)
		}
		tag = t
	}
	return tag, nil
}

// PrepareBonuses determines, per context, which resources its modifier could
// apply to and which buffs are in play. It does not change engine state.
func (e *Engine) PrepareBonuses(contexts ...*Context) Prepared {
	e.mu.RLock()
	defer e.mu.RUnlock()

	prepared := Prepared{Bonuses: make(map[models.ModifierCode]*Bonuses, len(contexts))}
	active := make(map[int64]struct{})

	for _, c := range contexts {
		resources := make(map[models.ResourceID]struct{})
		for _, byModifier := range e.buffs {
			for _, b := range byModifier[c.Modifier()] {
				if !c.Applies(b) {
					continue
				}
				active[b.ID] = struct{}{}

				switch {
				case b.Attributes.Resources != nil:
					for _, r := range b.Attributes.Resources {
						resources[r] = struct{}{}
					}
				case len(c.resources) > 0:
					for r := range c.resources {
						resources[r] = struct{}{}
					}
				default:
					if cat, ok := c.Modifier().NaturalCategory(); ok {
						for _, r := range models.TimeResources(cat) {
							resources[r] = struct{}{}
						}
					}
				}
			}
		}
		prepared.Bonuses[c.Modifier()] = newBonuses(resources)
	}

	for id := range active {
		prepared.BuffIDs = append(prepared.BuffIDs, id)
	}
	sort.Slice(prepared.BuffIDs, func(i, j int) bool { return prepared.BuffIDs[i] < prepared.BuffIDs[j] })
	return prepared
}

// Prepare validates contexts, prepares their bonuses and keeps both for
// CalculateBonuses and Apply.
func (e *Engine) Prepare(contexts ...*Context) (Prepared, error) {
	tag, err := Tag(contexts)
	if err != nil {
		return Prepared{}, err
	}
	prepared := e.PrepareBonuses(contexts...)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.bonuses[tag] = prepared.Bonuses
	if e.contexts[tag] == nil {
		e.contexts[tag] = make(map[models.ModifierCode]*Context)
	}
	for _, c := range contexts {
		e.contexts[tag][c.Modifier()] = c
	}
	return prepared, nil
}

// Inputs returns a default, unselected input for each buff id. Drydock inputs
// start active for DefaultDrydock only.
func (e *Engine) Inputs(buffIDs []int64) []Input {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Input, 0, len(buffIDs))
	for _, id := range buffIDs {
		ref := e.index.Ref(id)
		b, err := e.index.Get(ref)
		if err != nil {
			e.logger.Printf("efficiency: no input for buff #%d: %v", id, err)
			continue
		}
		bucket := e.bucketOf[id]
		in := Input{
			Ref:         ref,
			Bucket:      bucket,
			Modifier:    b.Modifier,
			Op:          b.Op,
			Resources:   ResourceRestrictions(b),
			Bands:       Bands(b, bucket),
			Tier:        b.Source.Tier,
			SourceID:    b.SourceID,
			Group:       b.ParentID,
			Conditional: bucket == SystemOfficerAbilities || b.CommanderSkill() || b.Drydock(),
			Drydock:     b.Drydock(),
		}
		if c := b.Source.Commander; in.Conditional && c != nil {
			in.Commander = c.CommanderID
			in.Selectable = c.Type == models.SkillSelectable
		}
		if in.Drydock {
			in.Active = b.SourceID == DefaultDrydock
		}
		if len(in.Bands) == 1 {
			in.Checkbox = true
			in.Value = in.Bands[0].Value
		}
		out = append(out, in)
	}
	return out
}

// Update sets Disabled on every input of the contexts' tag: an input is
// disabled when no context has its modifier, its buff is missing, or the
// context rejects the buff. Update owns the flag and overwrites any earlier
// value, so inputs can be updated again after the contexts change.
func (e *Engine) Update(inputs []Input, contexts ...*Context) error {
	tag, err := Tag(contexts)
	if err != nil {
		return err
	}
	byModifier := make(map[models.ModifierCode]*Context, len(contexts))
	for _, c := range contexts {
		byModifier[c.Modifier()] = c
	}

	for i := range inputs {
		in := &inputs[i]
		if t, _ := in.Modifier.Tag(); t != tag {
			continue
		}
		c, ok := byModifier[in.Modifier]
		if !ok {
			in.Disabled = true
			continue
		}
		b, err := e.index.Get(in.Ref)
		if err != nil {
			e.logger.Printf("efficiency: missing buff data for buff #%d: %v", in.Ref.ID, err)
			in.Disabled = true
			continue
		}
		in.Disabled = !c.Applies(b)
	}
	return nil
}

// CalculateBonuses recomputes the stored bonuses of every prepared context
// from the player's inputs. Inputs whose buff reference no longer resolves
// are logged and contribute nothing.
func (e *Engine) CalculateBonuses(inputs []Input) {
	live := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		if _, err := e.index.Get(in.Ref); err != nil {
			e.logger.Printf("efficiency: ignoring input for buff #%d: %v", in.Ref.ID, err)
			continue
		}
		live = append(live, in)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for tag, byModifier := range e.contexts {
		if e.bonuses[tag] == nil {
			e.bonuses[tag] = make(map[models.ModifierCode]*Bonuses)
		}
		for modifier, c := range byModifier {
			b := e.bonuses[tag][modifier]
			if b == nil {
				b = newBonuses(nil)
				e.bonuses[tag][modifier] = b
			}

			resources := c.Resources()
			if len(resources) == 0 {
				resources = b.Standard.Keys()
			}

			for _, r := range resources {
				var std, tru float64
				for i := range live {
					in := &live[i]
					if in.Modifier != modifier || !in.covers(r) {
						continue
					}
					class, ok := in.Op.Class()
					if !ok {
						continue
					}
					if class == models.True {
						tru += in.Effective()
					} else {
						std += in.Effective()
					}
				}
				if math.IsNaN(std) || math.IsNaN(tru) {
					continue
				}
				b.Standard[r] = std
				b.True[r] = tru
			}
		}
	}
}

// Compose applies a standard and a true bonus to one amount. A stage whose
// divisor 1+bonus is not positive cannot be applied and leaves amount
// unchanged. The result is never negative.
func Compose(amount int64, standard, trueBonus float64) int64 {
	if standard <= 0 && trueBonus <= 0 {
		return amount
	}
	if 1+standard <= 0 || 1+trueBonus <= 0 {
		return amount
	}
	v := math.Round((float64(amount) / (1 + standard)) / (1 + trueBonus))
	switch {
	case v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(v)
}

// Apply turns a base cost into a net cost using the bonuses of ctx's modifier
func (e *Engine) Apply(cost models.Counter, ctx *Context) models.Counter {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b := e.bonusesFor(ctx.Modifier())
	if b == nil {
		return cost.Clone()
	}
	out := make(models.Counter, len(cost))
	for r, amount := range cost {
		out[r] = max(Compose(amount, b.Standard.Get(r), b.True.Get(r)), 0)
	}
	return out
}

// Bonus returns the combined bonus for display: standard * (1 + true)
func (e *Engine) Bonus(modifier models.ModifierCode, resource models.ResourceID) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b := e.bonusesFor(modifier)
	if b == nil {
		return 0
	}
	return b.Standard.Get(resource) * (1 + b.True.Get(resource))
}

// Bonuses returns a copy of the current bonuses of a modifier
func (e *Engine) Bonuses(modifier models.ModifierCode) (Bonuses, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b := e.bonusesFor(modifier)
	if b == nil {
		return Bonuses{}, false
	}
	return b.clone(), true
}

func (e *Engine) bonusesFor(modifier models.ModifierCode) *Bonuses {
	tag, ok := modifier.Tag()
	if !ok {
		return nil
	}
	return e.bonuses[tag][modifier]
}
