// Package memo holds the per-record derived-output cache.
//
// Each record owns one Cache with two independent slots: one for highlighted
// field text and one for trait summaries. A field is rendered by exactly one of
// the two, so the slots never compete for a key. Entries are written once and
// never cleared or overwritten for the lifetime of the record.
package memo

// Slot selects one of the two derived-output caches.
type Slot int

const (
	// Highlight caches span-merged field text.
	Highlight Slot = iota
	// Summary caches formatted trait summaries.
	Summary

	slotCount
)

// String returns the slot name used in logs and status output.
func (s Slot) String() string {
	switch s {
	case Highlight:
		return "highlight"
	case Summary:
		return "summary"
	default:
		return "unknown"
	}
}

// Cache is a two-slot, field-keyed cache. The zero value is ready to use.
// It is not safe for concurrent use; callers serialize access.
type Cache struct {
	slots [slotCount]map[string]string
}

// Get returns the cached value for field in slot, if present.
func (c *Cache) Get(slot Slot, field string) (string, bool) {
	if !valid(slot) {
		return "", false
	}
	v, ok := c.slots[slot][field]
	return v, ok
}

// Memoize returns the cached value for field in slot, calling compute and
// storing its result on the first request only. An empty result is cached
// like any other value.
func (c *Cache) Memoize(slot Slot, field string, compute func() string) string {
	if !valid(slot) {
		return compute()
	}
	if v, ok := c.slots[slot][field]; ok {
		return v
	}
	if c.slots[slot] == nil {
		c.slots[slot] = make(map[string]string)
	}
	v := compute()
	c.slots[slot][field] = v
	return v
}

// Len returns the number of cached fields in slot.
func (c *Cache) Len(slot Slot) int {
	if !valid(slot) {
		return 0
	}
	return len(c.slots[slot])
}

func valid(slot Slot) bool {
	return slot >= 0 && slot < slotCount
}
