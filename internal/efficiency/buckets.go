package efficiency

import (
	"strings"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// Buff systems queried for buff specs
const (
	SystemStarbase         = "starbase"
	SystemResearch         = "research"
	SystemConsumables      = "consumables"
	SystemForbiddenTech    = "forbiddentech"
	SystemOfficerAbilities = "officerabilities"
)

// Buckets the game data files under another system
const (
	BucketSyndicate         = "syndicate"
	BucketAllianceSyndicate = "alliance_syndicate"
	BucketExocomp           = "exocomp"
	BucketTerritoryService  = "territory_service"
)

// DefaultSystems are the buff systems loaded when none are configured
func DefaultSystems() []string {
	return []string{SystemStarbase, SystemResearch, SystemConsumables, SystemForbiddenTech}
}

// PrefixRule moves a system's buffs whose name starts with Prefix into Bucket
type PrefixRule struct {
	System string `yaml:"system"`
	Prefix string `yaml:"prefix"`
	Bucket string `yaml:"bucket"`
}

// BucketRules reclassify buffs the upstream data files under the wrong system.
// Category codes are data and may change between game updates.
type BucketRules struct {
	ConsumableSystem          string       `yaml:"consumable_system"`
	SyndicateCategory         int64        `yaml:"syndicate_category"`
	AllianceSyndicateCategory int64        `yaml:"alliance_syndicate_category"`
	SlotBucket                string       `yaml:"slot_bucket"`
	Prefixes                  []PrefixRule `yaml:"prefixes"`
}

// DefaultBucketRules returns the reclassification currently needed by the game data
func DefaultBucketRules() BucketRules {
	return BucketRules{
		ConsumableSystem:          SystemConsumables,
		SyndicateCategory:         3579973015,
		AllianceSyndicateCategory: 3425519913,
		SlotBucket:                BucketExocomp,
		Prefixes: []PrefixRule{
			{System: SystemResearch, Prefix: "Research_Service_", Bucket: BucketTerritoryService},
		},
	}
}

// Classify splits one system's buffs into buckets. syndicateIDs lists the
// buff ids of enhanced syndicate rewards.
func (r BucketRules) Classify(system string, buffs []*models.Buff, syndicateIDs map[int64]struct{}) map[string][]*models.Buff {
	out := make(map[string][]*models.Buff)
	remaining := buffs

	if system == r.ConsumableSystem {
		excluded := make(map[int64]struct{})
		var syndicate, alliance, slotted []*models.Buff

		for _, b := range buffs {
			if b.Source.Category == r.SyndicateCategory && r.SyndicateCategory != 0 {
				if _, ok := syndicateIDs[b.ID]; ok {
					syndicate = append(syndicate, b)
					excluded[b.SourceID] = struct{}{}
				}
			}
			if b.Source.Category == r.AllianceSyndicateCategory && r.AllianceSyndicateCategory != 0 {
				alliance = append(alliance, b)
				excluded[b.SourceID] = struct{}{}
			}
			if b.Source.RequiresSlot && r.SlotBucket != "" {
				slotted = append(slotted, b)
				excluded[b.SourceID] = struct{}{}
			}
		}

		addBucket(out, BucketSyndicate, syndicate)
		addBucket(out, BucketAllianceSyndicate, alliance)
		addBucket(out, r.SlotBucket, slotted)

		remaining = nil
		for _, b := range buffs {
			if _, ok := excluded[b.SourceID]; !ok {
				remaining = append(remaining, b)
			}
		}
	}

	for _, rule := range r.Prefixes {
		if rule.System != system {
			continue
		}
		var matched, rest []*models.Buff
		for _, b := range remaining {
			if strings.HasPrefix(b.Name, rule.Prefix) {
				matched = append(matched, b)
			} else {
				rest = append(rest, b)
			}
		}
		addBucket(out, rule.Bucket, matched)
		remaining = rest
	}

	addBucket(out, system, remaining)
	return out
}

func addBucket(out map[string][]*models.Buff, bucket string, buffs []*models.Buff) {
	if len(buffs) > 0 {
		out[bucket] = append(out[bucket], buffs...)
	}
}
