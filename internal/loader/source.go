package loader

import (
	"context"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// buffRoute locates the source entities and names of one buff system
type buffRoute struct {
	data        string
	translation string
	keyPrefix   string
	sourceType  string
}

var buffRoutes = map[string]buffRoute{
	"starbase":         {"building", "translations/en/buildings", "starbase_module", "building"},
	"research":         {"research", "translations/en/researches", "research_project_name", "research"},
	"consumables":      {"consumable", "translations/en/consumables", "consumable_name", "consumable"},
	"officerabilities": {"officer", "translations/en/officers", "officer_ability_name", "officerabilities"},
	"forbiddentech":    {"forbiddentech", "translations/en/forbidden_tech", "forbidden_tech_name", "forbiddentech"},
}

// Source serves entities and buffs from a RawSource
type Source struct {
	raw RawSource
}

func NewSource(raw RawSource) *Source {
	return &Source{raw: raw}
}

// fetchPair fetches a data route and its translation route concurrently
func (s *Source) fetchPair(ctx context.Context, data, translation string) ([]byte, []byte, error) {
	var body, names []byte
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		body, err = s.raw.Fetch(ctx, data)
		return err
	})
	g.Go(func() error {
		var err error
		names, err = s.raw.Fetch(ctx, translation)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return body, names, nil
}

// Entities lists every entity of type t with its display name.
// Types without a data route yield nothing.
func (s *Source) Entities(ctx context.Context, t models.RequirementType) ([]*models.Entity, error) {
	route, ok := entityRoutes[t]
	if !ok {
		return nil, nil
	}
	body, names, err := s.fetchPair(ctx, route.data, route.translation)
	if err != nil {
		return nil, err
	}

	entities, err := ParseEntities(t, body)
	if err != nil {
		return nil, err
	}
	byID := ParseTranslations(names, route.keyPrefix)
	locaIDs := make(map[int64]int64)
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		if loca := v.Get("loca_id"); loca.Exists() {
			locaIDs[v.Get("id").Int()] = loca.Int()
		}
		return true
	})
	for _, e := range entities {
		id := e.ID
		if loca, ok := locaIDs[id]; ok {
			id = loca
		}
		if name, ok := byID[id]; ok {
			e.Name = name
		} else if name, ok := byID[e.ID]; ok {
			e.Name = name
		}
	}
	return entities, nil
}

// Buffs lists the buff specs of a system, annotated with their source entity
func (s *Source) Buffs(ctx context.Context, system string) ([]*models.Buff, error) {
	data, err := s.raw.Fetch(ctx, "v1/buffspecs/"+system)
	if err != nil {
		return nil, err
	}
	buffs := ParseBuffSpecs(data)

	route, ok := buffRoutes[system]
	if !ok {
		return buffs, nil
	}
	sourceIDs := make(map[int64]bool)
	for _, b := range buffs {
		b.Source.Type = route.sourceType
		if b.SourceID != 0 {
			sourceIDs[b.SourceID] = true
		}
	}
	if len(sourceIDs) == 0 {
		return buffs, nil
	}

	body, names, err := s.fetchPair(ctx, route.data, route.translation)
	if err != nil {
		return nil, err
	}
	sources := ParseSources(body, sourceIDs)
	byID := ParseTranslations(names, route.keyPrefix)
	for _, b := range buffs {
		if src, ok := sources[b.SourceID]; ok {
			src.Type = route.sourceType
			b.Source = src
		}
		b.Source.Name = byID[b.SourceID]
	}
	return buffs, nil
}

// SyndicateBuffIDs lists the buffs granted by enhanced syndicate tiers
func (s *Source) SyndicateBuffIDs(ctx context.Context) ([]int64, error) {
	data, err := s.raw.Fetch(ctx, "v1/enhancedSyndicate")
	if err != nil {
		return nil, err
	}
	return ParseSyndicate(data), nil
}

// ParseBuffSpecs parses a buff spec list. Additional buffs listed under a
// buff follow it, sharing its source and module.
func ParseBuffSpecs(data []byte) []*models.Buff {
	var out []*models.Buff
	gjson.ParseBytes(data).ForEach(func(_, v gjson.Result) bool {
		b := parseBuff(v)
		out = append(out, b)
		v.Get("additional_buffs").ForEach(func(_, a gjson.Result) bool {
			extra := parseBuff(a)
			extra.ParentID = b.ID
			if extra.SourceID == 0 {
				extra.SourceID = b.SourceID
			}
			if extra.Attributes.ModuleID == nil {
				extra.Attributes.ModuleID = b.Attributes.ModuleID
			}
			out = append(out, extra)
			return true
		})
		return true
	})
	return out
}

func parseBuff(v gjson.Result) *models.Buff {
	b := &models.Buff{
		ID:          v.Get("buff_id").Int(),
		Name:        v.Get("buff_id_str").String(),
		Modifier:    models.ModifierCode(v.Get("modifier_code").Int()),
		Op:          models.Operation(v.Get("op").Int()),
		SourceID:    v.Get("source_id").Int(),
		ShowPercent: v.Get("show_percentage").Bool(),
	}
	v.Get("condition_codes").ForEach(func(_, c gjson.Result) bool {
		b.Conditions = append(b.Conditions, models.ConditionCode(c.Int()))
		return true
	})
	v.Get("ranked_values").ForEach(func(_, r gjson.Result) bool {
		b.RankedValues = append(b.RankedValues, r.Float())
		return true
	})
	if res := v.Get("attributes.resources"); res.IsArray() {
		b.Attributes.Resources = []models.ResourceID{}
		res.ForEach(func(_, r gjson.Result) bool {
			b.Attributes.Resources = append(b.Attributes.Resources, models.ResourceID(r.Int()))
			return true
		})
	}
	if m := v.Get("attributes.module_id"); m.Exists() && m.Type != gjson.Null {
		id := m.Int()
		b.Attributes.ModuleID = &id
	}
	return b
}

// ParseSources returns the source entities whose id is wanted
func ParseSources(data []byte, wanted map[int64]bool) map[int64]models.BuffSource {
	out := make(map[int64]models.BuffSource)
	gjson.ParseBytes(data).ForEach(func(_, v gjson.Result) bool {
		id := v.Get("id").Int()
		if !wanted[id] {
			return true
		}
		out[id] = models.BuffSource{
			ID:           id,
			Category:     v.Get("category").Int(),
			RequiresSlot: v.Get("requires_slot").Bool(),
			Tier:         int(v.Get("tier").Int()),
			Code:         v.Get("name").String(),
			Commander:    parseCommanderSkill(v.Get("tree.fleet_commander"), id),
		}
		return true
	})
	return out
}

// parseCommanderSkill finds the skill of research id in a fleet commander tree
func parseCommanderSkill(fc gjson.Result, id int64) *models.FleetCommanderSkill {
	if !fc.Exists() {
		return nil
	}
	var skill *models.FleetCommanderSkill
	fc.Get("skills").ForEach(func(_, s gjson.Result) bool {
		if s.Get("research_id").Int() != id {
			return true
		}
		skill = &models.FleetCommanderSkill{
			CommanderID: fc.Get("id").Int(),
			Type:        int(s.Get("type").Int()),
			Group:       s.Get("group").Int(),
		}
		return false
	})
	return skill
}
