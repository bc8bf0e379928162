package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/veterinarycue/scheduling-engine/internal/appointment"
	"github.com/veterinarycue/scheduling-engine/internal/schedule"
)

type RouterConfig struct {
	Schedule     *schedule.Service
	Appointments *appointment.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
	Timeout      time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	if cfg.Timeout > 0 {
		r.Use(TimeoutMiddleware(cfg.Timeout))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability configuration and slot generation
	r.Put("/vets/{vetID}/templates", upsertTemplateHandler(cfg.Schedule))
	r.Post("/vets/{vetID}/slots/generate", generateSlotsHandler(cfg.Schedule))
	r.Get("/vets/{vetID}/slots", listAvailableSlotsHandler(cfg.Schedule))
	r.Get("/vets/{vetID}/calendar", calendarHandler(cfg.Schedule))

	// Reservation and manual overrides
	r.Post("/slots/reserve", reserveSlotsHandler(cfg.Schedule))
	r.Post("/slots/release", releaseSlotsHandler(cfg.Schedule))
	r.Post("/slots/{slotID}/block", overrideSlotHandler(cfg.Schedule, schedule.SlotBlocked))
	r.Post("/slots/{slotID}/unblock", overrideSlotHandler(cfg.Schedule, schedule.SlotAvailable))

	// Occupancy ledger
	r.Post("/occupations", createOccupationHandler(cfg.Schedule))
	r.Delete("/occupations/{referenceID}", deleteOccupationHandler(cfg.Schedule))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/confirm", transitionHandler(cfg.Appointments, appointment.ActionConfirm))
	r.Post("/appointments/{id}/start", transitionHandler(cfg.Appointments, appointment.ActionStart))
	r.Post("/appointments/{id}/finish", transitionHandler(cfg.Appointments, appointment.ActionFinish))
	r.Post("/appointments/{id}/cancel", transitionHandler(cfg.Appointments, appointment.ActionCancel))
	r.Post("/appointments/{id}/no-show", transitionHandler(cfg.Appointments, appointment.ActionNoShow))

	return r
}
