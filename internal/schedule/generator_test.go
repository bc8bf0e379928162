package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestDaySlotsWithBreak(t *testing.T) {
	tpl := WorkTemplate{
		ID:             uuid.New(),
		VeterinarianID: uuid.New(),
		Weekday:        time.Monday,
		WorkStart:      "08:00",
		WorkEnd:        "12:00",
		BreakStart:     strPtr("10:00"),
		BreakEnd:       strPtr("10:30"),
	}
	date := mustDate(t, "2025-03-03") // a Monday

	slots, err := daySlots(tpl, date, 30)
	if err != nil {
		t.Fatalf("daySlots: %v", err)
	}

	want := []string{"08:00", "08:30", "09:00", "09:30", "10:30", "11:00", "11:30"}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(slots), len(want))
	}
	for i, s := range slots {
		if got := s.StartAt.Format("15:04"); got != want[i] {
			t.Errorf("slot %d starts at %s, want %s", i, got, want[i])
		}
		if s.EndAt.Sub(s.StartAt) != 30*time.Minute {
			t.Errorf("slot %d has duration %s, want 30m", i, s.EndAt.Sub(s.StartAt))
		}
		if s.State != SlotAvailable {
			t.Errorf("slot %d state = %s, want AVAILABLE", i, s.State)
		}
		breakStart := atMinute(date, 10*60)
		breakEnd := atMinute(date, 10*60+30)
		if Overlaps(s.StartAt, s.EndAt, breakStart, breakEnd) {
			t.Errorf("slot %d [%s, %s) overlaps the break", i, s.StartAt.Format("15:04"), s.EndAt.Format("15:04"))
		}
	}
}

func TestDaySlotsNoPartialTrailingSlot(t *testing.T) {
	tpl := WorkTemplate{
		VeterinarianID: uuid.New(),
		Weekday:        time.Tuesday,
		WorkStart:      "09:00",
		WorkEnd:        "10:45",
	}

	slots, err := daySlots(tpl, mustDate(t, "2025-03-04"), 30)
	if err != nil {
		t.Fatalf("daySlots: %v", err)
	}

	// 09:00, 09:30, 10:00 fit; 10:30 would end at 11:00, past the window
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	if got := slots[2].EndAt.Format("15:04"); got != "10:30" {
		t.Errorf("last slot ends at %s, want 10:30", got)
	}
}

func TestDaySlotsBreakSwallowsCandidateWithoutShiftingGrid(t *testing.T) {
	// Break 10:15-10:45 kills both the 10:00 and 10:30 candidates; the grid
	// resumes at 11:00, not at 10:45.
	tpl := WorkTemplate{
		VeterinarianID: uuid.New(),
		WorkStart:      "10:00",
		WorkEnd:        "12:00",
		BreakStart:     strPtr("10:15"),
		BreakEnd:       strPtr("10:45"),
	}

	slots, err := daySlots(tpl, mustDate(t, "2025-03-05"), 30)
	if err != nil {
		t.Fatalf("daySlots: %v", err)
	}

	want := []string{"11:00", "11:30"}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(slots), len(want))
	}
	for i, s := range slots {
		if got := s.StartAt.Format("15:04"); got != want[i] {
			t.Errorf("slot %d starts at %s, want %s", i, got, want[i])
		}
	}
}

func TestDaySlotsInvalidTimeOfDay(t *testing.T) {
	tpl := WorkTemplate{
		VeterinarianID: uuid.New(),
		WorkStart:      "25:00",
		WorkEnd:        "12:00",
	}

	if _, err := daySlots(tpl, mustDate(t, "2025-03-03"), 30); err == nil {
		t.Fatal("expected error for invalid work start")
	}
}

func TestRangeSlotsSkipsDaysWithoutTemplate(t *testing.T) {
	vetID := uuid.New()
	templates := []WorkTemplate{
		{
			VeterinarianID: vetID,
			Weekday:        time.Monday,
			WorkStart:      "08:00",
			WorkEnd:        "10:00",
		},
		{
			VeterinarianID: vetID,
			Weekday:        time.Wednesday,
			WorkStart:      "14:00",
			WorkEnd:        "16:00",
		},
	}

	// Mon 2025-03-03 through Sun 2025-03-09
	from := mustDate(t, "2025-03-03")
	to := mustDate(t, "2025-03-09")

	slots, err := rangeSlots(templates, from, to, 60)
	if err != nil {
		t.Fatalf("rangeSlots: %v", err)
	}

	// 2 one-hour slots on Monday plus 2 on Wednesday
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	for _, s := range slots {
		wd := s.StartAt.Weekday()
		if wd != time.Monday && wd != time.Wednesday {
			t.Errorf("slot generated on %s, want Monday or Wednesday only", wd)
		}
	}
}

func TestRangeSlotsEmptyWhenNoWeekdayMatches(t *testing.T) {
	templates := []WorkTemplate{
		{
			VeterinarianID: uuid.New(),
			Weekday:        time.Sunday,
			WorkStart:      "08:00",
			WorkEnd:        "12:00",
		},
	}

	// Mon through Fri only
	slots, err := rangeSlots(templates, mustDate(t, "2025-03-03"), mustDate(t, "2025-03-07"), 30)
	if err != nil {
		t.Fatalf("rangeSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %d slots, want 0", len(slots))
	}
}
