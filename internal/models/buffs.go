package models

import (
	"fmt"
	"sort"
	"strings"
)

// ModifierCode identifies what a buff modifies
type ModifierCode int

const (
	RepairCostsParsteel             ModifierCode = 51
	RepairCostsTritanium            ModifierCode = 52
	RepairCostsDilithium            ModifierCode = 53
	RepairCostAll                   ModifierCode = 54
	RepairTime                      ModifierCode = 55
	RepairCostsPost                 ModifierCode = 79
	RepairCosts                     ModifierCode = 107
	StarbaseModuleConstructionSpeed ModifierCode = 108
	StarbaseModuleConstructionCost  ModifierCode = 109
	ResearchSpeed                   ModifierCode = 110
	ResearchCost                    ModifierCode = 111
	ComponentCost                   ModifierCode = 116
	ShipConstructionSpeed           ModifierCode = 117
	ShipConstructionCost            ModifierCode = 118
	TierUpSpeed                     ModifierCode = 119
	OfficerLevelUpCost              ModifierCode = 122
	OfficerPromoteCost              ModifierCode = 123
	ShipScrapSpeed                  ModifierCode = 131
	ForbiddenTechTierUpCost         ModifierCode = 227
	ForbiddenTechLevelUpCost        ModifierCode = 228
	ChaosTechTierUpCost             ModifierCode = 72002
	ChaosTechLevelUpCost            ModifierCode = 72003
)

// Tag partitions modifiers into independent bonus spaces
type Tag string

const (
	TagUpgrade Tag = "upgrade"
	TagRepair  Tag = "repair"
)

var modifierTags = map[ModifierCode]Tag{
	StarbaseModuleConstructionSpeed: TagUpgrade,
	StarbaseModuleConstructionCost:  TagUpgrade,
	ResearchSpeed:                   TagUpgrade,
	ResearchCost:                    TagUpgrade,
	ComponentCost:                   TagUpgrade,
	ShipConstructionSpeed:           TagUpgrade,
	ShipConstructionCost:            TagUpgrade,
	TierUpSpeed:                     TagUpgrade,
	ForbiddenTechTierUpCost:         TagUpgrade,
	ForbiddenTechLevelUpCost:        TagUpgrade,
	ChaosTechTierUpCost:             TagUpgrade,
	ChaosTechLevelUpCost:            TagUpgrade,
	OfficerLevelUpCost:              TagUpgrade,
	OfficerPromoteCost:              TagUpgrade,

	RepairCostsParsteel:  TagRepair,
	RepairCostsTritanium: TagRepair,
	RepairCostsDilithium: TagRepair,
	RepairCostAll:        TagRepair,
	RepairCosts:          TagRepair,
	RepairTime:           TagRepair,
}

// Tag returns the bonus space of a modifier; ok is false for untagged modifiers
func (m ModifierCode) Tag() (Tag, bool) {
	t, ok := modifierTags[m]
	return t, ok
}

var modifierNames = map[ModifierCode]string{
	RepairCostsParsteel:             "Repair Costs (Parsteel)",
	RepairCostsTritanium:            "Repair Costs (Tritanium)",
	RepairCostsDilithium:            "Repair Costs (Dilithium)",
	RepairCostAll:                   "Repair Costs (All)",
	RepairTime:                      "Repair Speed",
	RepairCostsPost:                 "Repair Costs (Post)",
	RepairCosts:                     "Repair Costs",
	StarbaseModuleConstructionSpeed: "Construction Speed",
	StarbaseModuleConstructionCost:  "Construction Cost",
	ResearchSpeed:                   "Research Speed",
	ResearchCost:                    "Research Cost",
	ComponentCost:                   "Component Cost",
	ShipConstructionSpeed:           "Ship Construction Speed",
	ShipConstructionCost:            "Ship Construction Cost",
	TierUpSpeed:                     "Tier Up Speed",
	OfficerLevelUpCost:              "Officer Level Up Cost",
	OfficerPromoteCost:              "Officer Promote Cost",
	ShipScrapSpeed:                  "Ship Scrap Speed",
	ForbiddenTechTierUpCost:         "Forbidden Tech Tier Up Cost",
	ForbiddenTechLevelUpCost:        "Forbidden Tech Level Up Cost",
	ChaosTechTierUpCost:             "Chaos Tech Tier Up Cost",
	ChaosTechLevelUpCost:            "Chaos Tech Level Up Cost",
}

func (m ModifierCode) String() string {
	if name, ok := modifierNames[m]; ok {
		return name
	}
	return fmt.Sprintf("modifier(%d)", int(m))
}

// ModifiersForTag returns every modifier in a tag, sorted by code
func ModifiersForTag(tag Tag) []ModifierCode {
	var out []ModifierCode
	for m, t := range modifierTags {
		if t == tag {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Operation is the raw numeric composition code used by the game data.
// Only MultiplyAdd and ScalarAdd reach the cost engine.
type Operation int

const (
	OpSet             Operation = 0
	OpAdd             Operation = 1
	OpSub             Operation = 2
	OpMultiplyAdd     Operation = 3
	OpMultiplySub     Operation = 4
	OpMultiplyBaseAdd Operation = 5
	OpMultiplyBaseSub Operation = 6
	OpScalarAdd       Operation = 7
	OpScalarSub       Operation = 8
)

// BonusClass is the composition stage a buff contributes to
type BonusClass int

const (
	Standard BonusClass = iota
	True
)

func (c BonusClass) String() string {
	if c == True {
		return "true"
	}
	return "standard"
}

// Class maps a raw operation to its bonus stage; ok is false for operations
// the cost engine does not compose.
func (op Operation) Class() (BonusClass, bool) {
	switch op {
	case OpMultiplyAdd:
		return Standard, true
	case OpScalarAdd:
		return True, true
	}
	return 0, false
}

// Code returns the raw operation for a bonus stage
func (c BonusClass) Code() Operation {
	if c == True {
		return OpScalarAdd
	}
	return OpMultiplyAdd
}

// ConditionCode is a precondition declared on a buff
type ConditionCode int

const (
	CondResourceID   ConditionCode = 118
	CondSelfModuleID ConditionCode = 119
)

// BuffAttributes carries optional scope restrictions of a buff
type BuffAttributes struct {
	// Resources restricts the buff to these resource ids. Nil means unrestricted.
	Resources []ResourceID `json:"resources,omitempty"`

	// ModuleID is set on buffs bound to one starbase module
	ModuleID *int64 `json:"module_id,omitempty"`
}

// BuffSource describes the game entity a buff comes from
type BuffSource struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Category     int64  `json:"category,omitempty"`
	RequiresSlot bool   `json:"requires_slot,omitempty"`
	Tier         int    `json:"tier,omitempty"`

	// Code is the untranslated entity name, e.g. DRYDOCK_A
	Code      string               `json:"code,omitempty"`
	Commander *FleetCommanderSkill `json:"fleet_commander,omitempty"`
}

// Fleet commander skill types
const (
	SkillPassive    = 1
	SkillSlotted    = 2
	SkillSelectable = 3
)

// FleetCommanderSkill places a research project in a fleet commander's skill tree
type FleetCommanderSkill struct {
	CommanderID int64 `json:"commander_id"`
	Type        int   `json:"type"`
	Group       int64 `json:"group,omitempty"`
}

// Buff is one game entity's contribution to a modifier
type Buff struct {
	ID           int64           `json:"buff_id"`
	Name         string          `json:"buff_id_str,omitempty"`
	Modifier     ModifierCode    `json:"modifier_code"`
	Op           Operation       `json:"op"`
	SourceID     int64           `json:"source_id,omitempty"`
	Conditions   []ConditionCode `json:"condition_codes,omitempty"`
	RankedValues []float64       `json:"ranked_values"`
	ShowPercent  bool            `json:"show_percentage,omitempty"`
	Attributes   BuffAttributes  `json:"attributes"`
	Source       BuffSource      `json:"source_data"`

	// ParentID links an additional buff to the buff it is listed under
	ParentID int64 `json:"parent_id,omitempty"`
}

// ValueAt returns the ranked value for a 1-based level, 0 when out of range
func (b *Buff) ValueAt(level int) float64 {
	if level < 1 || level > len(b.RankedValues) {
		return 0
	}
	return b.RankedValues[level-1]
}

// Drydock reports whether the buff only counts while the ship is docked at
// its source drydock
func (b *Buff) Drydock() bool {
	return b.Attributes.ModuleID != nil && strings.HasPrefix(b.Source.Code, "DRYDOCK")
}

// CommanderSkill reports whether the buff counts only while its fleet
// commander is slotted, and for selectable skills, the skill selected
func (b *Buff) CommanderSkill() bool {
	c := b.Source.Commander
	return c != nil && (c.Type == SkillSlotted || c.Type == SkillSelectable)
}

// HasCondition reports whether the buff declares the condition
func (b *Buff) HasCondition(c ConditionCode) bool {
	for _, have := range b.Conditions {
		if have == c {
			return true
		}
	}
	return false
}

// TimeCategory groups the synthetic time resources by activity
type TimeCategory string

const (
	TimeBuilding         TimeCategory = "building"
	TimeResearch         TimeCategory = "research"
	TimeShipConstruction TimeCategory = "ship_construction"
	TimeShipTierUp       TimeCategory = "ship_tier_up"
	TimeShipRepair       TimeCategory = "ship_repair"
	TimeShipScrap        TimeCategory = "ship_scrap"
)

// timeResources lists time resource ids per category, indexed by generation
var timeResources = map[TimeCategory][]ResourceID{
	TimeBuilding:         {464174086, 970306389},
	TimeResearch:         {678208761, 1176288552, 52061878},
	TimeShipConstruction: {3082310861, 463772647},
	TimeShipTierUp:       {458793900, 38009378},
	TimeShipRepair:       {1280257028, 2632691675},
	TimeShipScrap:        {3975529500, 183509829},
}

// TimeResource returns the time resource for a category and generation.
// Generations beyond the known table fall back to generation 0.
func TimeResource(category TimeCategory, generation int) (ResourceID, bool) {
	ids, ok := timeResources[category]
	if !ok || len(ids) == 0 {
		return 0, false
	}
	if generation < 0 || generation >= len(ids) {
		generation = 0
	}
	return ids[generation], true
}

// TimeResources returns every time resource of a category
func TimeResources(category TimeCategory) []ResourceID {
	return append([]ResourceID(nil), timeResources[category]...)
}

// IsTimeResource reports whether id is one of the synthetic time resources
func IsTimeResource(id ResourceID) bool {
	for _, ids := range timeResources {
		for _, have := range ids {
			if have == id {
				return true
			}
		}
	}
	return false
}

var speedCategories = map[ModifierCode]TimeCategory{
	StarbaseModuleConstructionSpeed: TimeBuilding,
	ResearchSpeed:                   TimeResearch,
	ShipConstructionSpeed:           TimeShipConstruction,
	TierUpSpeed:                     TimeShipTierUp,
	RepairTime:                      TimeShipRepair,
	ShipScrapSpeed:                  TimeShipScrap,
}

// NaturalCategory returns the time category a speed modifier acts on
func (m ModifierCode) NaturalCategory() (TimeCategory, bool) {
	c, ok := speedCategories[m]
	return c, ok
}
