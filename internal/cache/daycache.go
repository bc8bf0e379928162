// Package cache holds the read-through calendar cache. Only the current
// wall-clock day is ever cached; reads for any other date go straight to the
// store. Entries have no TTL and live until the next write invalidates them.
package cache

import (
	"sync"
	"time"
)

type Clock func() time.Time

// DayCache is a day-keyed map shared by every request-handling goroutine.
// The clock is injected so invalidation never depends on ambient time.
//
// Two invalidation modes exist because the behavior inherited from the
// original system always drops the entry for "today" on any write, even when
// the mutated appointment lives on another date. byEntityDate switches to
// keying invalidation on the appointment's own date instead; which one is
// correct is still an open product question (see DESIGN.md).
type DayCache[T any] struct {
	mu           sync.RWMutex
	entries      map[string]T
	clock        Clock
	byEntityDate bool
}

func New[T any](clock Clock, byEntityDate bool) *DayCache[T] {
	if clock == nil {
		clock = time.Now
	}
	return &DayCache[T]{
		entries:      make(map[string]T),
		clock:        clock,
		byEntityDate: byEntityDate,
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (c *DayCache[T]) isToday(day time.Time) bool {
	return dayKey(day) == dayKey(c.clock())
}

// Get returns the cached value for day. Any date other than today is always
// a miss, so callers fall through to the store without polluting the map.
func (c *DayCache[T]) Get(day time.Time) (T, bool) {
	var zero T
	if !c.isToday(day) {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[dayKey(day)]
	if !ok {
		return zero, false
	}
	return v, true
}

// Put stores a value for day, but only when day is today.
func (c *DayCache[T]) Put(day time.Time, v T) {
	if !c.isToday(day) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dayKey(day)] = v
}

// OnWrite invalidates after a create, update or delete. entityDay is the date
// of the appointment being mutated; whether it or "today" picks the dropped
// entry depends on the configured mode.
func (c *DayCache[T]) OnWrite(entityDay time.Time) {
	key := dayKey(c.clock())
	if c.byEntityDate {
		key = dayKey(entityDay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
