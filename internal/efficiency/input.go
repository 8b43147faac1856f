package efficiency

import (
	"github.com/napolitain/upgrade-planner/internal/models"
)

// Input is the player's current choice for one buff
type Input struct {
	Ref       BuffRef             `json:"ref"`
	Bucket    string              `json:"bucket"`
	Modifier  models.ModifierCode `json:"modifier"`
	Op        models.Operation    `json:"op"`
	Value     float64             `json:"value"`
	Resources []models.ResourceID `json:"resources,omitempty"`
	Bands     []Band              `json:"bands,omitempty"`
	Tier      int                 `json:"tier,omitempty"`
	SourceID  int64               `json:"source_id,omitempty"`

	// Group is the buff an additional buff is listed under
	Group int64 `json:"group,omitempty"`

	// Checkbox inputs have a single band and contribute only when Checked
	Checkbox bool `json:"checkbox,omitempty"`
	Checked  bool `json:"checked,omitempty"`

	// Conditional inputs contribute only while Active: a slotted officer or
	// fleet commander, or the selected drydock
	Conditional bool  `json:"conditional,omitempty"`
	Active      bool  `json:"active,omitempty"`
	Drydock     bool  `json:"drydock,omitempty"`
	Commander   int64 `json:"commander,omitempty"`
	Selectable  bool  `json:"selectable,omitempty"`

	Disabled bool `json:"disabled,omitempty"`
}

// Select picks the value for a 1-based level; 0 deselects
func (in *Input) Select(level int) {
	if level <= 0 {
		in.Value = 0
		in.Checked = false
		return
	}
	in.Value = ValueAtLevel(in.Bands, level)
	in.Checked = in.Value != 0
}

// Effective returns the value that counts toward bonuses right now
func (in *Input) Effective() float64 {
	if in.Disabled || (in.Conditional && !in.Active) || (in.Checkbox && !in.Checked) {
		return 0
	}
	return in.Value
}

// covers reports whether the input applies to resource
func (in *Input) covers(resource models.ResourceID) bool {
	if len(in.Resources) == 0 {
		return true
	}
	for _, r := range in.Resources {
		if r == resource {
			return true
		}
	}
	return false
}

// LimitSyndicate zeroes syndicate inputs whose tier is above the player's syndicate level
func LimitSyndicate(inputs []Input, syndicateLevel int) {
	for i := range inputs {
		in := &inputs[i]
		if in.Bucket != BucketSyndicate && in.Bucket != BucketAllianceSyndicate {
			continue
		}
		if in.Tier > syndicateLevel {
			in.Value = 0
			in.Checked = false
		}
	}
}

// DefaultDrydock is the drydock selected until the player picks another
const DefaultDrydock int64 = 17

// SelectDrydock activates the drydock inputs sourced from moduleID and
// deactivates every other drydock input
func SelectDrydock(inputs []Input, moduleID int64) {
	for i := range inputs {
		if inputs[i].Drydock {
			inputs[i].Active = inputs[i].SourceID == moduleID
		}
	}
}

// SlotCommander activates the conditional inputs of a fleet commander.
// Selectable skills also need their source research among selected.
func SlotCommander(inputs []Input, commanderID int64, selected ...int64) {
	for i := range inputs {
		in := &inputs[i]
		if in.Commander != commanderID || !in.Conditional {
			continue
		}
		in.Active = !in.Selectable || contains(selected, in.SourceID)
	}
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// SelectAll selects level on every input, the usual case for operations
// scaled buffs that follow the player's operations level
func SelectAll(inputs []Input, level int) {
	for i := range inputs {
		if opsScaled(inputs[i].Bucket) {
			inputs[i].Select(level)
		}
	}
}
