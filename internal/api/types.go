package api

import (
	"time"

	"github.com/google/uuid"
)

type UpsertTemplateRequest struct {
	Weekday    int     `json:"weekday"` // 0=Sunday .. 6=Saturday
	WorkStart  string  `json:"work_start"`
	WorkEnd    string  `json:"work_end"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
}

type TemplateResponse struct {
	ID             uuid.UUID `json:"id"`
	VeterinarianID uuid.UUID `json:"veterinarian_id"`
	Weekday        int       `json:"weekday"`
	WorkStart      string    `json:"work_start"`
	WorkEnd        string    `json:"work_end"`
	BreakStart     *string   `json:"break_start,omitempty"`
	BreakEnd       *string   `json:"break_end,omitempty"`
	Active         bool      `json:"active"`
}

type GenerateSlotsRequest struct {
	From            string `json:"from"` // YYYY-MM-DD
	To              string `json:"to"`
	DurationMinutes int    `json:"duration_minutes"`
}

type GenerateSlotsResponse struct {
	SlotsCreated int `json:"slots_created"`
}

type SlotResponse struct {
	ID             uuid.UUID  `json:"id"`
	VeterinarianID uuid.UUID  `json:"veterinarian_id"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          time.Time  `json:"end_at"`
	State          string     `json:"state"`
	AppointmentRef *uuid.UUID `json:"appointment_ref,omitempty"`
}

type ReserveSlotsRequest struct {
	SlotIDs     []string `json:"slot_ids"`
	ReferenceID string   `json:"reference_id"`
}

type ReleaseSlotsRequest struct {
	ReferenceID string `json:"reference_id"`
}

type CreateOccupationRequest struct {
	VeterinarianID string    `json:"veterinarian_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Kind           string    `json:"kind"`
	ReferenceID    *string   `json:"reference_id,omitempty"`
	Note           string    `json:"note,omitempty"`
}

type OccupationResponse struct {
	ID             uuid.UUID  `json:"id"`
	VeterinarianID uuid.UUID  `json:"veterinarian_id"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          time.Time  `json:"end_at"`
	Kind           string     `json:"kind"`
	ReferenceID    *uuid.UUID `json:"reference_id,omitempty"`
	Note           string     `json:"note,omitempty"`
}

type CalendarResponse struct {
	Templates   []TemplateResponse   `json:"templates"`
	Occupations []OccupationResponse `json:"occupations"`
}

type BookAppointmentRequest struct {
	PetID          string    `json:"pet_id"`
	OwnerID        string    `json:"owner_id"`
	VeterinarianID string    `json:"veterinarian_id"`
	ServiceID      string    `json:"service_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Reason         string    `json:"reason,omitempty"`
	SlotIDs        []string  `json:"slot_ids"`
}

type TransitionRequest struct {
	Diagnosis string `json:"diagnosis,omitempty"`
	Treatment string `json:"treatment,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PetID          uuid.UUID `json:"pet_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	VeterinarianID uuid.UUID `json:"veterinarian_id"`
	ServiceID      uuid.UUID `json:"service_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	Diagnosis      string    `json:"diagnosis,omitempty"`
	Treatment      string    `json:"treatment,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
