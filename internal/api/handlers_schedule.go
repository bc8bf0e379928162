package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veterinarycue/scheduling-engine/internal/schedule"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func upsertTemplateHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vet_id", "vetID must be a valid UUID")
			return
		}

		var req UpsertTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Weekday < 0 || req.Weekday > 6 {
			writeError(w, http.StatusBadRequest, "invalid_weekday", "weekday must be 0 (Sunday) through 6 (Saturday)")
			return
		}

		tpl, err := svc.UpsertWorkTemplate(r.Context(), schedule.WorkTemplate{
			VeterinarianID: vetID,
			Weekday:        time.Weekday(req.Weekday),
			WorkStart:      req.WorkStart,
			WorkEnd:        req.WorkEnd,
			BreakStart:     req.BreakStart,
			BreakEnd:       req.BreakEnd,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTemplateResponse(*tpl))
	}
}

func generateSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vet_id", "vetID must be a valid UUID")
			return
		}

		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		from, err := parseDate(req.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from_date", "from must be YYYY-MM-DD")
			return
		}
		to, err := parseDate(req.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to_date", "to must be YYYY-MM-DD")
			return
		}

		created, err := svc.GenerateSlots(r.Context(), vetID, from, to, req.DurationMinutes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, GenerateSlotsResponse{SlotsCreated: created})
	}
}

func listAvailableSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vet_id", "vetID must be a valid UUID")
			return
		}

		day, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), vetID, day)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func calendarHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vetID, err := uuid.Parse(chi.URLParam(r, "vetID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vet_id", "vetID must be a valid UUID")
			return
		}

		from, err := parseDate(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from_date", "from must be YYYY-MM-DD")
			return
		}
		to, err := parseDate(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to_date", "to must be YYYY-MM-DD")
			return
		}

		// Both dates are inclusive on the wire; the ledger query is half-open.
		cal, err := svc.Calendar(r.Context(), vetID, from, to.AddDate(0, 0, 1))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := CalendarResponse{
			Templates:   make([]TemplateResponse, 0, len(cal.Templates)),
			Occupations: make([]OccupationResponse, 0, len(cal.Occupations)),
		}
		for _, t := range cal.Templates {
			resp.Templates = append(resp.Templates, toTemplateResponse(t))
		}
		for _, o := range cal.Occupations {
			resp.Occupations = append(resp.Occupations, toOccupationResponse(o))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func reserveSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReserveSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ref, err := uuid.Parse(req.ReferenceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_reference_id", "reference_id must be a valid UUID")
			return
		}

		slotIDs := make([]uuid.UUID, 0, len(req.SlotIDs))
		for _, raw := range req.SlotIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_ids must be valid UUIDs")
				return
			}
			slotIDs = append(slotIDs, id)
		}

		slots, err := svc.ReserveSlots(r.Context(), slotIDs, ref)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func releaseSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReleaseSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ref, err := uuid.Parse(req.ReferenceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_reference_id", "reference_id must be a valid UUID")
			return
		}

		if err := svc.ReleaseSlots(r.Context(), ref); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func overrideSlotHandler(svc *schedule.Service, to schedule.SlotState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "slotID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slotID must be a valid UUID")
			return
		}

		slot, err := svc.OverrideSlotState(r.Context(), id, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func createOccupationHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateOccupationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		vetID, err := uuid.Parse(req.VeterinarianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vet_id", "veterinarian_id must be a valid UUID")
			return
		}

		var ref *uuid.UUID
		if req.ReferenceID != nil {
			parsed, err := uuid.Parse(*req.ReferenceID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_reference_id", "reference_id must be a valid UUID")
				return
			}
			ref = &parsed
		}

		occ, err := svc.CreateOccupation(r.Context(), schedule.Occupation{
			VeterinarianID: vetID,
			StartAt:        req.StartAt,
			EndAt:          req.EndAt,
			Kind:           schedule.OccupationKind(req.Kind),
			ExternalRef:    ref,
			Note:           req.Note,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toOccupationResponse(*occ))
	}
}

func deleteOccupationHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := uuid.Parse(chi.URLParam(r, "referenceID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_reference_id", "referenceID must be a valid UUID")
			return
		}

		kind := schedule.OccupationKind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = schedule.KindAppointment
		}

		if err := svc.RemoveOccupationByRef(r.Context(), ref, kind); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func toTemplateResponse(t schedule.WorkTemplate) TemplateResponse {
	return TemplateResponse{
		ID:             t.ID,
		VeterinarianID: t.VeterinarianID,
		Weekday:        int(t.Weekday),
		WorkStart:      t.WorkStart,
		WorkEnd:        t.WorkEnd,
		BreakStart:     t.BreakStart,
		BreakEnd:       t.BreakEnd,
		Active:         t.Active,
	}
}

func toSlotResponse(s schedule.Slot) SlotResponse {
	return SlotResponse{
		ID:             s.ID,
		VeterinarianID: s.VeterinarianID,
		StartAt:        s.StartAt,
		EndAt:          s.EndAt,
		State:          string(s.State),
		AppointmentRef: s.AppointmentRef,
	}
}

func toOccupationResponse(o schedule.Occupation) OccupationResponse {
	return OccupationResponse{
		ID:             o.ID,
		VeterinarianID: o.VeterinarianID,
		StartAt:        o.StartAt,
		EndAt:          o.EndAt,
		Kind:           string(o.Kind),
		ReferenceID:    o.ExternalRef,
		Note:           o.Note,
	}
}
