package efficiency

import (
	"sort"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// Exception can excuse conditions a context does not satisfy on its own,
// such as a buff that is only active while a specific drydock is selected.
type Exception func(ctx *Context, buff *models.Buff, unchecked map[models.ConditionCode]struct{}) bool

// Context asks for bonuses of one modifier, restricted to a set of resources,
// assuming a set of conditions holds. A Context is immutable.
type Context struct {
	modifier   models.ModifierCode
	conditions map[models.ConditionCode]struct{}
	resources  map[models.ResourceID]struct{}
	exceptions []Exception
}

// NewContext builds a context for modifier
func NewContext(modifier models.ModifierCode, conditions []models.ConditionCode, resources []models.ResourceID, exceptions ...Exception) *Context {
	c := &Context{
		modifier:   modifier,
		conditions: make(map[models.ConditionCode]struct{}, len(conditions)),
		resources:  make(map[models.ResourceID]struct{}, len(resources)),
		exceptions: append([]Exception(nil), exceptions...),
	}
	for _, cond := range conditions {
		c.conditions[cond] = struct{}{}
	}
	for _, r := range resources {
		c.resources[r] = struct{}{}
	}
	return c
}

// ForCounter builds a context scoped to the resources present in cost
func ForCounter(modifier models.ModifierCode, cost models.Counter, conditions []models.ConditionCode, exceptions ...Exception) *Context {
	return NewContext(modifier, conditions, cost.Keys(), exceptions...)
}

func (c *Context) Modifier() models.ModifierCode { return c.modifier }

// Resources returns the context's resources in ascending order
func (c *Context) Resources() []models.ResourceID {
	out := make([]models.ResourceID, 0, len(c.resources))
	for r := range c.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Context) HasResource(id models.ResourceID) bool {
	_, ok := c.resources[id]
	return ok
}

func (c *Context) HasCondition(cond models.ConditionCode) bool {
	_, ok := c.conditions[cond]
	return ok
}

// Applies reports whether buff contributes to this context.
//
// The modifier must match exactly. Every condition on the buff must be in the
// context's condition set, except CondResourceID which also holds when the
// buff is unrestricted or its resources overlap the context's. Anything left
// over may be excused by an exception.
func (c *Context) Applies(buff *models.Buff) bool {
	if buff == nil || buff.Modifier != c.modifier {
		return false
	}

	unchecked := make(map[models.ConditionCode]struct{})
	for _, cond := range buff.Conditions {
		if !c.HasCondition(cond) {
			unchecked[cond] = struct{}{}
		}
	}

	if _, ok := unchecked[models.CondResourceID]; ok && c.overlaps(buff.Attributes.Resources) {
		delete(unchecked, models.CondResourceID)
	}

	if len(unchecked) > 0 {
		for _, ex := range c.exceptions {
			if ex(c, buff, unchecked) {
				return true
			}
		}
	}
	return len(unchecked) == 0
}

func (c *Context) overlaps(resources []models.ResourceID) bool {
	if resources == nil {
		return true
	}
	for _, r := range resources {
		if c.HasResource(r) {
			return true
		}
	}
	return false
}

// SelectedModule returns an exception excusing CondSelfModuleID when the
// buff's source is the selected module, e.g. the active drydock.
func SelectedModule(moduleID int64) Exception {
	return func(_ *Context, buff *models.Buff, unchecked map[models.ConditionCode]struct{}) bool {
		if len(unchecked) != 1 {
			return false
		}
		if _, ok := unchecked[models.CondSelfModuleID]; !ok {
			return false
		}
		return buff.SourceID == moduleID
	}
}
