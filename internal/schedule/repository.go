package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTemplateNotFound   = errors.New("work template not found")
	ErrNoActiveTemplates  = errors.New("veterinarian has no active work templates")
	ErrSlotNotFound       = errors.New("slot not found")
	ErrSlotConflict       = errors.New("one or more slots no longer available")
	ErrOccupationConflict = errors.New("time range overlaps an existing occupation")

	ErrInvalidRange    = errors.New("date range start must not be after end")
	ErrInvalidDuration = errors.New("slot duration must be positive")
	ErrInvalidWindow   = errors.New("break window must lie inside the work window")
	ErrManualReserve   = errors.New("RESERVED cannot be set by a manual override")
)

// Repository contains all DB interactions needed by the scheduling service.
type Repository interface {
	UpsertTemplate(ctx context.Context, tpl WorkTemplate) (*WorkTemplate, error)
	GetActiveTemplates(ctx context.Context, vetID uuid.UUID) ([]WorkTemplate, error)

	// Slot generation persists whole batches; no dedup against prior runs.
	InsertSlots(ctx context.Context, slots []Slot) error
	ListSlotsByDay(ctx context.Context, vetID uuid.UUID, day time.Time, state *SlotState) ([]Slot, error)

	// ReserveSlots is the single compare-and-swap primitive: one conditional
	// bulk update inside one transaction, rolled back entirely when any
	// requested slot is no longer AVAILABLE.
	ReserveSlots(ctx context.Context, slotIDs []uuid.UUID, ref uuid.UUID) ([]Slot, error)
	ReleaseSlots(ctx context.Context, ref uuid.UUID) (int64, error)
	UpdateSlotState(ctx context.Context, id uuid.UUID, from, to SlotState) (*Slot, error)

	CreateOccupation(ctx context.Context, occ Occupation) (*Occupation, error)
	ListOccupations(ctx context.Context, vetID uuid.UUID, from, to time.Time) ([]Occupation, error)
	DeleteOccupationByRef(ctx context.Context, ref uuid.UUID, kind OccupationKind) (int64, error)
}
