package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SlotState string

const (
	SlotAvailable SlotState = "AVAILABLE"
	SlotReserved  SlotState = "RESERVED"
	SlotBlocked   SlotState = "BLOCKED"
)

type OccupationKind string

const (
	KindAppointment OccupationKind = "APPOINTMENT"
	KindManualBlock OccupationKind = "MANUAL_BLOCK"
)

// WorkTemplate is the recurring weekly availability of one veterinarian on one
// weekday: a work window plus an optional break window inside it. At most one
// active template exists per (veterinarian, weekday); upserts replace in place
// and deactivation flips Active rather than deleting the row.
type WorkTemplate struct {
	ID             uuid.UUID
	VeterinarianID uuid.UUID
	Weekday        time.Weekday
	WorkStart      string // "HH:MM"
	WorkEnd        string
	BreakStart     *string
	BreakEnd       *string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Slot is a concrete bookable window materialized from a WorkTemplate.
// RESERVED implies a non-nil AppointmentRef; that state is reachable only
// through the reservation path, never through manual overrides.
type Slot struct {
	ID             uuid.UUID
	VeterinarianID uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	State          SlotState
	AppointmentRef *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Occupation is any calendar-blocking range for a vet: a booked appointment or
// a manual block. Ranges for one vet never overlap; adjacency is allowed.
// ExternalRef ties an occupation to its source appointment by id only.
type Occupation struct {
	ID             uuid.UUID
	VeterinarianID uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	Kind           OccupationKind
	ExternalRef    *uuid.UUID
	Note           string
	CreatedAt      time.Time
}

// Calendar is what a renderer needs for one vet: the weekly templates as the
// background grid and the occupations as overlay blocks.
type Calendar struct {
	Templates   []WorkTemplate
	Occupations []Occupation
}

// minuteOfDay parses "HH:MM" into minutes since midnight.
func minuteOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return h*60 + m, nil
}

// atMinute anchors a minutes-since-midnight offset onto a calendar date.
func atMinute(date time.Time, minute int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, date.Location())
}

// Overlaps reports open-interval overlap between [aStart,aEnd) and
// [bStart,bEnd). Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
