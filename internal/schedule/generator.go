package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// daySlots walks a cursor from the template's work start in duration-sized
// steps. A candidate [cursor, cursor+d) is dropped when it would end past the
// work end (no partial trailing slot) or when it overlaps the break window.
// The cursor always advances by the full duration, so a candidate swallowed
// by the break does not shift the grid of the remaining day.
func daySlots(tpl WorkTemplate, date time.Time, durationMin int) ([]Slot, error) {
	workStart, err := minuteOfDay(tpl.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
	}
	workEnd, err := minuteOfDay(tpl.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
	}

	hasBreak := tpl.BreakStart != nil && tpl.BreakEnd != nil
	var breakStart, breakEnd int
	if hasBreak {
		if breakStart, err = minuteOfDay(*tpl.BreakStart); err != nil {
			return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
		}
		if breakEnd, err = minuteOfDay(*tpl.BreakEnd); err != nil {
			return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
		}
	}

	var slots []Slot
	for cursor := workStart; cursor+durationMin <= workEnd; cursor += durationMin {
		if hasBreak && cursor < breakEnd && cursor+durationMin > breakStart {
			continue
		}
		slots = append(slots, Slot{
			ID:             uuid.New(),
			VeterinarianID: tpl.VeterinarianID,
			StartAt:        atMinute(date, cursor),
			EndAt:          atMinute(date, cursor+durationMin),
			State:          SlotAvailable,
		})
	}

	return slots, nil
}

// rangeSlots materializes slots for every date in [from, to] (inclusive) that
// has an active template for its weekday. Dates without a template are
// silently skipped; the caller decides whether zero templates overall is an
// error.
func rangeSlots(templates []WorkTemplate, from, to time.Time, durationMin int) ([]Slot, error) {
	byWeekday := make(map[time.Weekday]WorkTemplate, len(templates))
	for _, tpl := range templates {
		byWeekday[tpl.Weekday] = tpl
	}

	var all []Slot
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		tpl, ok := byWeekday[date.Weekday()]
		if !ok {
			continue
		}
		slots, err := daySlots(tpl, date, durationMin)
		if err != nil {
			return nil, err
		}
		all = append(all, slots...)
	}

	return all, nil
}
