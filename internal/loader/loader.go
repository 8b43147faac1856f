// Package loader parses game data exported by the game-data API and serves it
// to the repositories, either from a local data directory or any RawSource.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// RawSource returns the raw JSON document served at route
type RawSource interface {
	Fetch(ctx context.Context, route string) ([]byte, error)
}

// Dir serves routes from <dir>/<route>.json
type Dir string

func (d Dir) Fetch(_ context.Context, route string) ([]byte, error) {
	path := filepath.Join(string(d), filepath.FromSlash(route)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", route, err)
	}
	return data, nil
}

// entityRoute locates the data and names of one requirement type
type entityRoute struct {
	data        string
	translation string
	keyPrefix   string
}

var entityRoutes = map[models.RequirementType]entityRoute{
	models.RequirementBuilding:     {"building", "translations/en/buildings", "starbase_module"},
	models.RequirementResearch:     {"research", "translations/en/researches", "research_project_name"},
	models.RequirementFactionRank:  {"v1/factions", "translations/en/factions", "faction_name"},
	models.RequirementOfficerRank:  {"officer", "translations/en/officers", "officer_name_short"},
	models.RequirementOfficerLevel: {"officer", "translations/en/officers", "officer_name_short"},
	models.RequirementShipTier:     {"ship", "translations/en/ships", "ship_name"},
}

// apiTypeNames maps the symbolic requirement types some exports use
var apiTypeNames = map[string]models.RequirementType{
	"Building":               models.RequirementBuilding,
	"ModuleLevel":            models.RequirementBuilding,
	"BuildingLevel":          models.RequirementBuilding,
	"Research":               models.RequirementResearch,
	"ResearchLevel":          models.RequirementResearch,
	"FactionRank":            models.RequirementFactionRank,
	"AllianceLevel":          models.RequirementAllianceLevel,
	"OfficerRank":            models.RequirementOfficerRank,
	"OfficerLevel":           models.RequirementOfficerLevel,
	"TotalOfficerLevel":      models.RequirementTotalOfficerLevel,
	"ShipTier":               models.RequirementShipTier,
	"NumOfficerAtGivenTiers": models.RequirementNumOfficerAtGivenTiers,
}

// ParseTranslations returns the texts whose key starts with prefix, by id
func ParseTranslations(data []byte, prefix string) map[int64]string {
	out := make(map[int64]string)
	gjson.ParseBytes(data).ForEach(func(_, v gjson.Result) bool {
		if !strings.HasPrefix(v.Get("key").String(), prefix) {
			return true
		}
		// First match wins
		id := v.Get("id").Int()
		if _, ok := out[id]; !ok {
			out[id] = v.Get("text").String()
		}
		return true
	})
	return out
}

// ParseEntities parses a list of levelled entities of type t.
// Building levels list costs as [{resource_id, amount}] with a per-level
// generation; research levels use a resource_cost object and the entity
// generation.
func ParseEntities(t models.RequirementType, data []byte) ([]*models.Entity, error) {
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("failed to parse %s data: expected a list", t)
	}

	var out []*models.Entity
	doc.ForEach(func(_, v gjson.Result) bool {
		e := &models.Entity{
			Type:       t,
			ID:         v.Get("id").Int(),
			Generation: int(v.Get("generation").Int()),
			Levels:     make(map[int]*models.Level),
		}
		v.Get("levels").ForEach(func(_, l gjson.Result) bool {
			lvl := parseLevel(l, e.Generation)
			e.Levels[lvl.Level] = lvl
			return true
		})
		out = append(out, e)
		return true
	})
	return out, nil
}

func parseLevel(l gjson.Result, generation int) *models.Level {
	lvl := &models.Level{
		Level:          int(l.Get("id").Int()),
		Costs:          models.NewCounter(),
		TimeGeneration: generation,
	}
	if g := l.Get("generation"); g.Exists() {
		lvl.TimeGeneration = int(g.Int())
	}

	l.Get("requirements").ForEach(func(_, r gjson.Result) bool {
		req, ok := parseRequirement(r)
		if ok {
			lvl.Requirements = append(lvl.Requirements, req)
		}
		return true
	})

	l.Get("costs").ForEach(func(_, c gjson.Result) bool {
		lvl.Costs.Increment(models.ResourceID(c.Get("resource_id").Int()), c.Get("amount").Int())
		return true
	})
	l.Get("resource_cost").ForEach(func(k, amount gjson.Result) bool {
		lvl.Costs.Increment(models.ResourceID(k.Int()), amount.Int())
		return true
	})

	switch {
	case l.Get("build_time_in_seconds").Exists():
		lvl.TimeSeconds = l.Get("build_time_in_seconds").Int()
	case l.Get("research_time_in_seconds").Exists():
		lvl.TimeSeconds = l.Get("research_time_in_seconds").Int()
	}
	return lvl
}

func parseRequirement(r gjson.Result) (models.Requirement, bool) {
	req := models.Requirement{
		ID:    r.Get("requirement_id").Int(),
		Level: int(r.Get("requirement_level").Int()),
	}
	typ := r.Get("requirement_type")
	if typ.Type == gjson.Number || typ.Int() != 0 {
		req.Type = models.RequirementType(typ.Int())
		return req, req.Type != 0
	}
	t, ok := apiTypeNames[typ.String()]
	req.Type = t
	return req, ok
}

// ParseSyndicate returns the buff ids of every enhanced syndicate tier
func ParseSyndicate(data []byte) []int64 {
	var ids []int64
	gjson.ParseBytes(data).ForEach(func(_, tier gjson.Result) bool {
		tier.Get("buffs").ForEach(func(_, b gjson.Result) bool {
			ids = append(ids, b.Get("buffId").Int())
			return true
		})
		return true
	})
	return ids
}
