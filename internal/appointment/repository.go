package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStateChanged        = errors.New("appointment state changed concurrently, please retry")
	ErrInvalidTimes        = errors.New("appointment start must be before end")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, appt Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus is a compare-and-swap: the row only moves when it is still
	// in the expected state.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	SetClinicalRecord(ctx context.Context, id uuid.UUID, rec ClinicalRecord) (*Appointment, error)

	// Compensation path for a booking whose reservation step failed.
	Delete(ctx context.Context, id uuid.UUID) error

	ListByDay(ctx context.Context, day time.Time) ([]Appointment, error)
	FindConfirmedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
