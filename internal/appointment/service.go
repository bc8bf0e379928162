package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/veterinarycue/scheduling-engine/internal/cache"
	redisclient "github.com/veterinarycue/scheduling-engine/internal/redis"
	"github.com/veterinarycue/scheduling-engine/internal/schedule"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentStarted   = "APPOINTMENT_STARTED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventAppointmentReminder  = "APPOINTMENT_REMINDER"
)

// Scheduler is the slice of the scheduling engine this service needs: claim
// and release slots, and keep the occupancy ledger in step with bookings.
type Scheduler interface {
	ReserveSlots(ctx context.Context, slotIDs []uuid.UUID, ref uuid.UUID) ([]schedule.Slot, error)
	ReleaseSlots(ctx context.Context, ref uuid.UUID) error
	CreateOccupation(ctx context.Context, occ schedule.Occupation) (*schedule.Occupation, error)
	RemoveOccupationByRef(ctx context.Context, ref uuid.UUID, kind schedule.OccupationKind) error
}

type BookRequest struct {
	PetID          uuid.UUID
	OwnerID        uuid.UUID
	VeterinarianID uuid.UUID
	ServiceID      uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	Reason         string
	SlotIDs        []uuid.UUID
}

type Service struct {
	repo      Repository
	scheduler Scheduler
	publisher redisclient.Publisher
	calendar  *cache.DayCache[[]Appointment]
}

func NewService(repo Repository, scheduler Scheduler, publisher redisclient.Publisher, calendar *cache.DayCache[[]Appointment]) *Service {
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		publisher: publisher,
		calendar:  calendar,
	}
}

// Book creates an appointment in ESPERA, then claims its slots and writes the
// occupancy ledger. There is no distributed transaction across those steps,
// so each later failure compensates the earlier ones: a failed reservation
// deletes the fresh appointment row, a failed ledger write releases the
// reservation too.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if !req.StartAt.Before(req.EndAt) {
		return nil, ErrInvalidTimes
	}
	if len(req.SlotIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one slot is required", ErrInvalidTimes)
	}

	appt, err := s.repo.Create(ctx, Appointment{
		PetID:          req.PetID,
		OwnerID:        req.OwnerID,
		VeterinarianID: req.VeterinarianID,
		ServiceID:      req.ServiceID,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Reason:         req.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if _, err := s.scheduler.ReserveSlots(ctx, req.SlotIDs, appt.ID); err != nil {
		if delErr := s.repo.Delete(ctx, appt.ID); delErr != nil {
			log.Printf("compensation failed: delete appointment %s: %v", appt.ID, delErr)
		}
		return nil, fmt.Errorf("reserve slots: %w", err)
	}

	ref := appt.ID
	_, err = s.scheduler.CreateOccupation(ctx, schedule.Occupation{
		VeterinarianID: req.VeterinarianID,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Kind:           schedule.KindAppointment,
		ExternalRef:    &ref,
		Note:           req.Reason,
	})
	if err != nil {
		if relErr := s.scheduler.ReleaseSlots(ctx, appt.ID); relErr != nil {
			log.Printf("compensation failed: release slots for %s: %v", appt.ID, relErr)
		}
		if delErr := s.repo.Delete(ctx, appt.ID); delErr != nil {
			log.Printf("compensation failed: delete appointment %s: %v", appt.ID, delErr)
		}
		return nil, fmt.Errorf("create occupation: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"veterinarian_id": req.VeterinarianID.String(),
		"start_at":        req.StartAt,
		"slot_count":      len(req.SlotIDs),
	})
	s.calendar.OnWrite(appt.StartAt)

	return appt, nil
}

// Transition drives an appointment through the lifecycle table. Entering
// FINALIZADA emits the completion event with the clinical payload; entering
// CANCELADA or NO_ASISTIO releases the slots and removes the ledger entry.
// Those cleanup calls are idempotent, so a failure is logged and left for a
// retry rather than undoing a committed transition.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action Action, rec *ClinicalRecord) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := Next(appt.Status, action)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, next)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row existed a moment ago; someone else moved it first.
			return nil, ErrStateChanged
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	switch next {
	case StatusFinalizada:
		if rec != nil {
			updated, err = s.repo.SetClinicalRecord(ctx, id, *rec)
			if err != nil {
				return nil, fmt.Errorf("set clinical record: %w", err)
			}
		}
		completed := AppointmentCompleted{
			AppointmentID:  updated.ID,
			PetID:          updated.PetID,
			OwnerID:        updated.OwnerID,
			VeterinarianID: updated.VeterinarianID,
			ServiceID:      updated.ServiceID,
			StartAt:        updated.StartAt,
			EndAt:          updated.EndAt,
			Reason:         updated.Reason,
			Diagnosis:      updated.Clinical.Diagnosis,
			Treatment:      updated.Clinical.Treatment,
			Notes:          updated.Clinical.Notes,
		}
		if err := s.publisher.Publish(ctx, EventAppointmentCompleted, completed); err != nil {
			log.Printf("publish completion for %s: %v", updated.ID, err)
		}

	case StatusCancelada, StatusNoAsistio:
		if err := s.scheduler.RemoveOccupationByRef(ctx, updated.ID, schedule.KindAppointment); err != nil {
			log.Printf("remove occupation for %s: %v", updated.ID, err)
		}
		if err := s.scheduler.ReleaseSlots(ctx, updated.ID); err != nil {
			log.Printf("release slots for %s: %v", updated.ID, err)
		}
	}

	s.logEvent(ctx, updated.ID, eventTypeFor(next), map[string]any{
		"from": string(appt.Status),
		"to":   string(next),
	})
	s.calendar.OnWrite(updated.StartAt)

	return updated, nil
}

// Get retrieves one appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForDay serves the day's appointment list through the calendar cache.
// Today is read-through cached; every other date hits the store directly.
func (s *Service) ListForDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	if cached, ok := s.calendar.Get(day); ok {
		return cached, nil
	}

	appts, err := s.repo.ListByDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	s.calendar.Put(day, appts)
	return appts, nil
}

// PublishReminders emits a reminder event for every CONFIRMADA appointment
// starting inside [from, to). Dispatching the actual notification is the
// consumer's job.
func (s *Service) PublishReminders(ctx context.Context, from, to time.Time) (int, error) {
	appts, err := s.repo.FindConfirmedBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("find upcoming appointments: %w", err)
	}

	sent := 0
	for _, appt := range appts {
		payload := map[string]any{
			"appointment_id": appt.ID.String(),
			"owner_id":       appt.OwnerID.String(),
			"pet_id":         appt.PetID.String(),
			"start_at":       appt.StartAt,
		}
		if err := s.publisher.Publish(ctx, EventAppointmentReminder, payload); err != nil {
			log.Printf("publish reminder for %s: %v", appt.ID, err)
			continue
		}
		sent++
	}

	return sent, nil
}

func eventTypeFor(next Status) string {
	switch next {
	case StatusConfirmada:
		return EventAppointmentConfirmed
	case StatusEnProgreso:
		return EventAppointmentStarted
	case StatusFinalizada:
		return EventAppointmentCompleted
	case StatusCancelada:
		return EventAppointmentCancelled
	case StatusNoAsistio:
		return EventAppointmentNoShow
	default:
		return "APPOINTMENT_UPDATED"
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
