package resolver

import (
	"sort"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// SatisfiedSet records which levels of which entities are already covered
type SatisfiedSet map[models.EntityKey]map[int]struct{}

// NewSatisfiedSet returns an empty set
func NewSatisfiedSet() SatisfiedSet {
	return make(SatisfiedSet)
}

// Has reports whether the exact level of the requirement is satisfied
func (s SatisfiedSet) Has(req models.Requirement) bool {
	levels, ok := s[req.Entity()]
	if !ok {
		return false
	}
	_, ok = levels[req.Level]
	return ok
}

// Add marks a single level as satisfied
func (s SatisfiedSet) Add(req models.Requirement) {
	key := req.Entity()
	levels, ok := s[key]
	if !ok {
		levels = make(map[int]struct{})
		s[key] = levels
	}
	levels[req.Level] = struct{}{}
}

// AddThrough marks levels 1..req.Level as satisfied
func (s SatisfiedSet) AddThrough(req models.Requirement) {
	for l := 1; l <= req.Level; l++ {
		s.Add(req.AtLevel(l))
	}
}

// Levels returns the satisfied levels of an entity in ascending order
func (s SatisfiedSet) Levels(key models.EntityKey) []int {
	out := make([]int, 0, len(s[key]))
	for l := range s[key] {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Highest returns the highest satisfied level of an entity, 0 if none
func (s SatisfiedSet) Highest(key models.EntityKey) int {
	highest := 0
	for l := range s[key] {
		if l > highest {
			highest = l
		}
	}
	return highest
}

// Clone returns an independent copy
func (s SatisfiedSet) Clone() SatisfiedSet {
	out := make(SatisfiedSet, len(s))
	for key, levels := range s {
		cp := make(map[int]struct{}, len(levels))
		for l := range levels {
			cp[l] = struct{}{}
		}
		out[key] = cp
	}
	return out
}

// Merge adds every level of other into s
func (s SatisfiedSet) Merge(other SatisfiedSet) {
	for key, levels := range other {
		for l := range levels {
			s.Add(models.Requirement{Type: key.Type, ID: key.ID, Level: l})
		}
	}
}
