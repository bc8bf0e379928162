package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veterinarycue/scheduling-engine/internal/appointment"
)

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ids, err := parseBookIDs(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookRequest{
			PetID:          ids.pet,
			OwnerID:        ids.owner,
			VeterinarianID: ids.vet,
			ServiceID:      ids.service,
			StartAt:        req.StartAt,
			EndAt:          req.EndAt,
			Reason:         req.Reason,
			SlotIDs:        ids.slots,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appts, err := svc.ListForDay(r.Context(), day)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// transitionHandler serves every lifecycle action. Only finish carries a
// body: the clinical record captured during the visit.
func transitionHandler(svc *appointment.Service, action appointment.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var rec *appointment.ClinicalRecord
		if action == appointment.ActionFinish {
			var req TransitionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
			rec = &appointment.ClinicalRecord{
				Diagnosis: req.Diagnosis,
				Treatment: req.Treatment,
				Notes:     req.Notes,
			}
		}

		appt, err := svc.Transition(r.Context(), id, action, rec)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

type bookIDs struct {
	pet, owner, vet, service uuid.UUID
	slots                    []uuid.UUID
}

func parseBookIDs(req BookAppointmentRequest) (bookIDs, error) {
	var ids bookIDs
	var err error

	if ids.pet, err = uuid.Parse(req.PetID); err != nil {
		return ids, errors.New("pet_id must be a valid UUID")
	}
	if ids.owner, err = uuid.Parse(req.OwnerID); err != nil {
		return ids, errors.New("owner_id must be a valid UUID")
	}
	if ids.vet, err = uuid.Parse(req.VeterinarianID); err != nil {
		return ids, errors.New("veterinarian_id must be a valid UUID")
	}
	if ids.service, err = uuid.Parse(req.ServiceID); err != nil {
		return ids, errors.New("service_id must be a valid UUID")
	}

	ids.slots = make([]uuid.UUID, 0, len(req.SlotIDs))
	for _, raw := range req.SlotIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return ids, errors.New("slot_ids must be valid UUIDs")
		}
		ids.slots = append(ids.slots, id)
	}

	return ids, nil
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PetID:          a.PetID,
		OwnerID:        a.OwnerID,
		VeterinarianID: a.VeterinarianID,
		ServiceID:      a.ServiceID,
		StartAt:        a.StartAt,
		EndAt:          a.EndAt,
		Status:         string(a.Status),
		Reason:         a.Reason,
		Diagnosis:      a.Clinical.Diagnosis,
		Treatment:      a.Clinical.Treatment,
		Notes:          a.Clinical.Notes,
	}
}
