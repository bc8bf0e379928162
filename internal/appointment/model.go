package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusEspera     Status = "ESPERA"
	StatusConfirmada Status = "CONFIRMADA"
	StatusEnProgreso Status = "EN_PROGRESO"
	StatusFinalizada Status = "FINALIZADA"
	StatusCancelada  Status = "CANCELADA"
	StatusNoAsistio  Status = "NO_ASISTIO"
)

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionStart   Action = "start"
	ActionFinish  Action = "finish"
	ActionCancel  Action = "cancel"
	ActionNoShow  Action = "no_show"
)

// ClinicalRecord holds the medical outcome captured when a visit finishes.
type ClinicalRecord struct {
	Diagnosis string
	Treatment string
	Notes     string
}

type Appointment struct {
	ID             uuid.UUID
	PetID          uuid.UUID
	OwnerID        uuid.UUID
	VeterinarianID uuid.UUID
	ServiceID      uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	Status         Status
	Reason         string
	Clinical       ClinicalRecord
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// AppointmentCompleted is the payload handed to the medical-record
// collaborator when a visit reaches FINALIZADA.
type AppointmentCompleted struct {
	AppointmentID  uuid.UUID `json:"appointment_id"`
	PetID          uuid.UUID `json:"pet_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	VeterinarianID uuid.UUID `json:"veterinarian_id"`
	ServiceID      uuid.UUID `json:"service_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Reason         string    `json:"reason"`
	Diagnosis      string    `json:"diagnosis"`
	Treatment      string    `json:"treatment"`
	Notes          string    `json:"notes"`
}
