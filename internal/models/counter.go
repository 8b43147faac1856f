package models

import "sort"

// ResourceID identifies a game resource, including the synthetic time resources
type ResourceID int64

// Counter is a keyed, non-negative accumulator of resource amounts
type Counter map[ResourceID]int64

// NewCounter returns an empty counter
func NewCounter() Counter {
	return make(Counter)
}

// Get returns the amount for a resource, 0 if absent
func (c Counter) Get(id ResourceID) int64 {
	return c[id]
}

// Increment adds amount to the resource. Negative totals are clamped to 0.
func (c Counter) Increment(id ResourceID, amount int64) {
	v := c[id] + amount
	if v < 0 {
		v = 0
	}
	c[id] = v
}

// IExtend merges other into c in place, summing key-wise
func (c Counter) IExtend(other Counter) Counter {
	for id, amount := range other {
		c.Increment(id, amount)
	}
	return c
}

// Extend returns a new counter holding the key-wise sum of c and other
func (c Counter) Extend(other Counter) Counter {
	return c.Clone().IExtend(other)
}

// Clone returns an independent copy
func (c Counter) Clone() Counter {
	out := make(Counter, len(c))
	for id, amount := range c {
		out[id] = amount
	}
	return out
}

// Keys returns the resource ids in ascending order
func (c Counter) Keys() []ResourceID {
	keys := make([]ResourceID, 0, len(c))
	for id := range c {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Total returns the sum of all amounts
func (c Counter) Total() int64 {
	var sum int64
	for _, amount := range c {
		sum += amount
	}
	return sum
}

// Equal reports key-wise equality, treating absent keys as zero
func (c Counter) Equal(other Counter) bool {
	for id, amount := range c {
		if other[id] != amount {
			return false
		}
	}
	for id, amount := range other {
		if c[id] != amount {
			return false
		}
	}
	return true
}

// Bonus is a per-resource fractional bonus accumulator (0.25 means 25%)
type Bonus map[ResourceID]float64

// Get returns the bonus for a resource, 0 if absent
func (b Bonus) Get(id ResourceID) float64 {
	return b[id]
}

// Add accumulates value onto the resource
func (b Bonus) Add(id ResourceID, value float64) {
	b[id] += value
}

// Keys returns the resource ids in ascending order
func (b Bonus) Keys() []ResourceID {
	keys := make([]ResourceID, 0, len(b))
	for id := range b {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
