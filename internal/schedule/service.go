package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/veterinarycue/scheduling-engine/internal/redis"
)

var (
	ErrGenerationBusy = errors.New("slot generation already running for this veterinarian, please retry")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
}

func NewService(repo Repository, locker redisclient.Locker) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
	}
}

// UpsertWorkTemplate validates the windows and stores the template as the
// single active one for (vet, weekday). Existing templates are replaced in
// place, never deleted.
func (s *Service) UpsertWorkTemplate(ctx context.Context, tpl WorkTemplate) (*WorkTemplate, error) {
	workStart, err := minuteOfDay(tpl.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, err)
	}
	workEnd, err := minuteOfDay(tpl.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, err)
	}
	if workStart >= workEnd {
		return nil, fmt.Errorf("%w: work start %s is not before work end %s", ErrInvalidWindow, tpl.WorkStart, tpl.WorkEnd)
	}

	if (tpl.BreakStart == nil) != (tpl.BreakEnd == nil) {
		return nil, fmt.Errorf("%w: break start and end must be given together", ErrInvalidWindow)
	}
	if tpl.BreakStart != nil {
		breakStart, err := minuteOfDay(*tpl.BreakStart)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, err)
		}
		breakEnd, err := minuteOfDay(*tpl.BreakEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, err)
		}
		if breakStart >= breakEnd || breakStart < workStart || breakEnd > workEnd {
			return nil, fmt.Errorf("%w: break [%s, %s) outside work [%s, %s)", ErrInvalidWindow,
				*tpl.BreakStart, *tpl.BreakEnd, tpl.WorkStart, tpl.WorkEnd)
		}
	}

	tpl.Active = true
	return s.repo.UpsertTemplate(ctx, tpl)
}

// GenerateSlots materializes AVAILABLE slots for every templated date in
// [from, to]. Dates without an active template are skipped; the call fails
// only when the vet has no active templates at all. Re-running over an
// already populated range inserts duplicate rows; there is deliberately no
// existence check here (see DESIGN.md). A per-vet lock keeps two concurrent
// runs for the same vet from interleaving their batches.
func (s *Service) GenerateSlots(ctx context.Context, vetID uuid.UUID, from, to time.Time, durationMin int) (int, error) {
	if durationMin <= 0 {
		return 0, ErrInvalidDuration
	}
	if from.After(to) {
		return 0, ErrInvalidRange
	}

	var inserted int
	err := s.locker.WithVetLock(ctx, vetID, func(lockCtx context.Context) error {
		templates, err := s.repo.GetActiveTemplates(lockCtx, vetID)
		if err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
		if len(templates) == 0 {
			return ErrNoActiveTemplates
		}

		slots, err := rangeSlots(templates, from, to, durationMin)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			log.Printf("generate vet=%s from=%s to=%s produced no slots", vetID, from.Format("2006-01-02"), to.Format("2006-01-02"))
			return nil
		}

		if err := s.repo.InsertSlots(lockCtx, slots); err != nil {
			return fmt.Errorf("insert slots: %w", err)
		}
		inserted = len(slots)
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return 0, ErrGenerationBusy
		}
		return 0, err
	}

	return inserted, nil
}

// AvailableSlots lists the AVAILABLE slots of one vet for one calendar day.
func (s *Service) AvailableSlots(ctx context.Context, vetID uuid.UUID, day time.Time) ([]Slot, error) {
	state := SlotAvailable
	return s.repo.ListSlotsByDay(ctx, vetID, day, &state)
}

// ReserveSlots atomically claims the given slots for a reference. Either
// every slot flips AVAILABLE -> RESERVED or none does.
func (s *Service) ReserveSlots(ctx context.Context, slotIDs []uuid.UUID, ref uuid.UUID) ([]Slot, error) {
	if len(slotIDs) == 0 {
		return nil, fmt.Errorf("%w: no slot ids given", ErrInvalidRange)
	}
	return s.repo.ReserveSlots(ctx, slotIDs, ref)
}

// ReleaseSlots resets every slot held by ref back to AVAILABLE. Idempotent:
// releasing a reference that holds nothing is a logged no-op.
func (s *Service) ReleaseSlots(ctx context.Context, ref uuid.UUID) error {
	n, err := s.repo.ReleaseSlots(ctx, ref)
	if err != nil {
		return fmt.Errorf("release slots: %w", err)
	}
	if n == 0 {
		log.Printf("release ref=%s matched no slots", ref)
	}
	return nil
}

// OverrideSlotState applies a manual block or unblock. RESERVED is never a
// legal target here; it is reachable only through ReserveSlots.
func (s *Service) OverrideSlotState(ctx context.Context, id uuid.UUID, to SlotState) (*Slot, error) {
	var from SlotState
	switch to {
	case SlotBlocked:
		from = SlotAvailable
	case SlotAvailable:
		from = SlotBlocked
	case SlotReserved:
		return nil, ErrManualReserve
	default:
		return nil, fmt.Errorf("%w: unknown slot state %q", ErrInvalidRange, to)
	}
	return s.repo.UpdateSlotState(ctx, id, from, to)
}

// CreateOccupation records a calendar-blocking range after the overlap check.
// Adjacent ranges are fine; any open-interval overlap for the same vet fails
// with ErrOccupationConflict.
func (s *Service) CreateOccupation(ctx context.Context, occ Occupation) (*Occupation, error) {
	if !occ.StartAt.Before(occ.EndAt) {
		return nil, fmt.Errorf("%w: occupation start %s is not before end %s", ErrInvalidRange, occ.StartAt, occ.EndAt)
	}
	switch occ.Kind {
	case KindAppointment, KindManualBlock:
	default:
		return nil, fmt.Errorf("%w: unknown occupation kind %q", ErrInvalidRange, occ.Kind)
	}
	if occ.ID == uuid.Nil {
		occ.ID = uuid.New()
	}
	return s.repo.CreateOccupation(ctx, occ)
}

// RemoveOccupationByRef deletes the occupation tied to a canceled or
// completed appointment. Idempotent no-op when nothing matches.
func (s *Service) RemoveOccupationByRef(ctx context.Context, ref uuid.UUID, kind OccupationKind) error {
	n, err := s.repo.DeleteOccupationByRef(ctx, ref, kind)
	if err != nil {
		return fmt.Errorf("delete occupation: %w", err)
	}
	if n == 0 {
		log.Printf("delete occupation ref=%s kind=%s matched nothing", ref, kind)
	}
	return nil
}

// Calendar returns the weekly templates plus the occupations intersecting
// [from, to) for one vet. The caller merges the two layers for rendering.
func (s *Service) Calendar(ctx context.Context, vetID uuid.UUID, from, to time.Time) (*Calendar, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	templates, err := s.repo.GetActiveTemplates(ctx, vetID)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	occupations, err := s.repo.ListOccupations(ctx, vetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load occupations: %w", err)
	}

	return &Calendar{Templates: templates, Occupations: occupations}, nil
}
