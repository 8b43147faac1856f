package models

import (
	"fmt"
	"sort"
)

// RequirementType identifies the kind of levelled entity a requirement refers to
type RequirementType int

const (
	RequirementBuilding               RequirementType = 1
	RequirementResearch               RequirementType = 2
	RequirementFactionRank            RequirementType = 3
	RequirementAllianceLevel          RequirementType = 4
	RequirementOfficerRank            RequirementType = 5
	RequirementOfficerLevel           RequirementType = 6
	RequirementTotalOfficerLevel      RequirementType = 7
	RequirementShipTier               RequirementType = 8
	RequirementNumOfficerAtGivenTiers RequirementType = 9
)

// AllRequirementTypes returns all requirement types in deterministic order
func AllRequirementTypes() []RequirementType {
	return []RequirementType{
		RequirementBuilding, RequirementResearch, RequirementFactionRank,
		RequirementAllianceLevel, RequirementOfficerRank, RequirementOfficerLevel,
		RequirementTotalOfficerLevel, RequirementShipTier, RequirementNumOfficerAtGivenTiers,
	}
}

// Expandable reports whether prerequisites of this type are followed during resolution.
// Only buildings and research are expanded; every other type is a dead end.
func (t RequirementType) Expandable() bool {
	return t == RequirementBuilding || t == RequirementResearch
}

func (t RequirementType) String() string {
	switch t {
	case RequirementBuilding:
		return "building"
	case RequirementResearch:
		return "research"
	case RequirementFactionRank:
		return "faction_rank"
	case RequirementAllianceLevel:
		return "alliance_level"
	case RequirementOfficerRank:
		return "officer_rank"
	case RequirementOfficerLevel:
		return "officer_level"
	case RequirementTotalOfficerLevel:
		return "total_officer_level"
	case RequirementShipTier:
		return "ship_tier"
	case RequirementNumOfficerAtGivenTiers:
		return "num_officer_at_given_tiers"
	}
	return fmt.Sprintf("requirement_type(%d)", int(t))
}

// ParseRequirementType converts a name as printed by String back into a type
func ParseRequirementType(s string) (RequirementType, error) {
	for _, t := range AllRequirementTypes() {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown requirement type %q", s)
}

// EntityKey identifies a levelled entity independent of level
type EntityKey struct {
	Type RequirementType
	ID   int64
}

// Requirement states that entity ID of kind Type must reach Level
type Requirement struct {
	Type  RequirementType `json:"requirement_type"`
	ID    int64           `json:"requirement_id"`
	Level int             `json:"requirement_level"`
}

// Entity returns the key of the entity this requirement refers to
func (r Requirement) Entity() EntityKey {
	return EntityKey{Type: r.Type, ID: r.ID}
}

// AtLevel returns a copy of the requirement targeting another level
func (r Requirement) AtLevel(level int) Requirement {
	r.Level = level
	return r
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s #%d L%d", r.Type, r.ID, r.Level)
}

// Level holds the prerequisites and cost of exactly one level of one entity
type Level struct {
	Level          int
	Requirements   []Requirement
	Costs          Counter
	TimeSeconds    int64
	TimeGeneration int
}

// Entity is a levelled game entity (building, research, ...) with all its levels
type Entity struct {
	Type       RequirementType
	ID         int64
	Name       string
	Generation int
	Levels     map[int]*Level
}

// GetLevel returns the data for a specific level, or nil if the level is unknown
func (e *Entity) GetLevel(level int) *Level {
	if e == nil {
		return nil
	}
	return e.Levels[level]
}

// MaxLevel returns the highest known level
func (e *Entity) MaxLevel() int {
	highest := 0
	for l := range e.Levels {
		if l > highest {
			highest = l
		}
	}
	return highest
}

// SortedLevels returns all known level numbers in ascending order
func (e *Entity) SortedLevels() []int {
	levels := make([]int, 0, len(e.Levels))
	for l := range e.Levels {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}
