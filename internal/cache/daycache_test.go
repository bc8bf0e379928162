package cache

import (
	"testing"
	"time"
)

var now = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func TestGetOnlyServesToday(t *testing.T) {
	c := New[[]string](fixedClock, false)

	c.Put(now, []string{"a"})
	if v, ok := c.Get(now); !ok || len(v) != 1 || v[0] != "a" {
		t.Fatalf("Get(today) = %v, %t; want cached value", v, ok)
	}

	// A different wall-clock moment on the same date is still today
	laterToday := now.Add(5 * time.Hour)
	if _, ok := c.Get(laterToday); !ok {
		t.Error("Get(later today) missed, want hit")
	}

	tomorrow := now.AddDate(0, 0, 1)
	if _, ok := c.Get(tomorrow); ok {
		t.Error("Get(tomorrow) hit, want bypass")
	}
}

func TestPutIgnoresOtherDates(t *testing.T) {
	c := New[[]string](fixedClock, false)

	tomorrow := now.AddDate(0, 0, 1)
	c.Put(tomorrow, []string{"x"})

	if len(c.entries) != 0 {
		t.Fatalf("cache holds %d entries after non-today Put, want 0", len(c.entries))
	}
}

func TestOnWriteInvalidatesToday(t *testing.T) {
	c := New[[]string](fixedClock, false)
	c.Put(now, []string{"a"})

	// Source behavior: the mutated appointment lives next week, but the
	// entry dropped is still today's.
	c.OnWrite(now.AddDate(0, 0, 7))

	if _, ok := c.Get(now); ok {
		t.Error("today's entry survived a write, want invalidated")
	}
}

func TestOnWriteByEntityDate(t *testing.T) {
	c := New[[]string](fixedClock, true)
	c.Put(now, []string{"a"})

	// Entity-date mode: a write on another date leaves today's entry alone
	c.OnWrite(now.AddDate(0, 0, 7))
	if _, ok := c.Get(now); !ok {
		t.Error("today's entry dropped for an unrelated date, want kept")
	}

	// ...and a write dated today drops it
	c.OnWrite(now.Add(2 * time.Hour))
	if _, ok := c.Get(now); ok {
		t.Error("today's entry survived a same-date write, want invalidated")
	}
}

func TestClockIsInjected(t *testing.T) {
	day := now
	clock := func() time.Time { return day }
	c := New[[]string](clock, false)

	c.Put(day, []string{"a"})
	if _, ok := c.Get(day); !ok {
		t.Fatal("expected hit while the clock says today")
	}

	// Midnight rolls over: yesterday's entry is no longer reachable
	day = day.AddDate(0, 0, 1)
	if _, ok := c.Get(now); ok {
		t.Error("yesterday's entry still served after the clock moved on")
	}
}
