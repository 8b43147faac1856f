package efficiency

import (
	"github.com/napolitain/upgrade-planner/internal/models"
)

// MaxOpsLevel is the highest operations level a player can reach. Buffs that
// scale with operations level have ranked values beyond it in the data.
const MaxOpsLevel = 70

// Band is a contiguous level range sharing one ranked value
type Band struct {
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Value float64 `json:"value"`
}

// Contains reports whether level lies in the band
func (b Band) Contains(level int) bool {
	return b.Min <= level && level <= b.Max
}

// opsScaled reports whether a bucket's ranks are operations levels
func opsScaled(bucket string) bool {
	switch bucket {
	case "consumable", SystemConsumables, BucketExocomp, BucketTerritoryService, BucketSyndicate, BucketAllianceSyndicate:
		return true
	}
	return false
}

// Bands consolidates a buff's ranked values into contiguous runs, ordered by
// level. Operations scaled buckets only consider the first MaxOpsLevel ranks.
func Bands(buff *models.Buff, bucket string) []Band {
	values := buff.RankedValues
	if opsScaled(bucket) && len(values) > MaxOpsLevel {
		values = values[:MaxOpsLevel]
	}

	var bands []Band
	for i, v := range values {
		level := i + 1
		if n := len(bands); n > 0 && bands[n-1].Value == v {
			bands[n-1].Max = level
			continue
		}
		bands = append(bands, Band{Min: level, Max: level, Value: v})
	}
	return bands
}

// ValueAtLevel returns the value of the band containing level, 0 if none does
func ValueAtLevel(bands []Band, level int) float64 {
	for _, b := range bands {
		if b.Contains(level) {
			return b.Value
		}
	}
	return 0
}
