package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/veterinarycue/scheduling-engine/internal/appointment"
	"github.com/veterinarycue/scheduling-engine/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
// Conflict and invalid-transition outcomes are expected business results,
// not system faults; only unknown errors become a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var invalid *appointment.InvalidTransitionError

	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusConflict, "invalid_transition", invalid.Error())

	case errors.Is(err, schedule.ErrTemplateNotFound),
		errors.Is(err, schedule.ErrNoActiveTemplates),
		errors.Is(err, schedule.ErrSlotNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, schedule.ErrSlotConflict),
		errors.Is(err, schedule.ErrOccupationConflict),
		errors.Is(err, schedule.ErrGenerationBusy),
		errors.Is(err, appointment.ErrStateChanged):
		writeError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, schedule.ErrInvalidRange),
		errors.Is(err, schedule.ErrInvalidDuration),
		errors.Is(err, schedule.ErrInvalidWindow),
		errors.Is(err, schedule.ErrManualReserve),
		errors.Is(err, appointment.ErrInvalidTimes):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
