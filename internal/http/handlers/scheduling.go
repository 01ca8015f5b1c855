// Package handlers exposes the scheduling flows over HTTP. Every route is
// a thin JSON shell around the booking coordinator; no scheduling rule
// lives here.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fisioagenda/scheduling-platform/internal/booking"
	"github.com/fisioagenda/scheduling-platform/internal/schedule"
	"github.com/fisioagenda/scheduling-platform/internal/treatment"
	"github.com/fisioagenda/scheduling-platform/pkg/logging"
)

// SchedulingService is the coordinator surface the HTTP layer consumes.
type SchedulingService interface {
	Availability(ctx context.Context, date schedule.Date) (*booking.Snapshot, error)
	SelectableDays(ctx context.Context, from schedule.Date, days int) ([]booking.DayAvailability, error)
	Offerings(ctx context.Context) ([]treatment.Offering, error)
	Book(ctx context.Context, req booking.BookRequest) (*booking.BookResult, error)
	Reschedule(ctx context.Context, req booking.RescheduleRequest) (*schedule.Appointment, error)
	Complete(ctx context.Context, appointmentID, comment string) (*schedule.Appointment, error)
	ApproveEvaluation(ctx context.Context, accountID string) (*treatment.Account, error)
}

// SchedulingHandler serves availability reads and booking submissions.
type SchedulingHandler struct {
	svc    SchedulingService
	logger *logging.Logger
}

// NewSchedulingHandler creates the scheduling handler.
func NewSchedulingHandler(svc SchedulingService, logger *logging.Logger) *SchedulingHandler {
	if svc == nil {
		panic("handlers: scheduling service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulingHandler{svc: svc, logger: logger}
}

// Routes mounts the session-scoped scheduling routes.
func (h *SchedulingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/availability", h.GetAvailability)
	r.Get("/days", h.GetDays)
	r.Get("/treatments", h.GetTreatments)
	r.Post("/appointments", h.PostAppointment)
	return r
}

// AdminRoutes mounts the staff-only mutation routes.
func (h *SchedulingHandler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/appointments/{appointmentID}/reschedule", h.PostReschedule)
	r.Post("/appointments/{appointmentID}/complete", h.PostComplete)
	r.Post("/accounts/{accountID}/approve-evaluation", h.PostApproveEvaluation)
	return r
}

// GetAvailability returns the slot snapshot for one day.
// GET /availability?date=2026-09-07
// Omitting date yields the full catalog unoccupied, which the UI renders
// before the user picks a day. Clients re-request this endpoint to refresh.
func (h *SchedulingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	var date schedule.Date
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := schedule.ParseDate(raw)
		if err != nil {
			jsonError(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	snap, err := h.svc.Availability(r.Context(), date)
	if err != nil {
		h.writeBookingError(w, "availability", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetDays evaluates day selectability for a calendar window.
// GET /days?from=2026-09-01&count=30
func (h *SchedulingHandler) GetDays(w http.ResponseWriter, r *http.Request) {
	from, err := schedule.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		jsonError(w, "invalid from date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	count := 30
	if raw := r.URL.Query().Get("count"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 1 || count > 120 {
			jsonError(w, "count must be between 1 and 120", http.StatusBadRequest)
			return
		}
	}

	days, err := h.svc.SelectableDays(r.Context(), from, count)
	if err != nil {
		h.writeBookingError(w, "days", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// GetTreatments lists offerings open for booking.
// GET /treatments
func (h *SchedulingHandler) GetTreatments(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.svc.Offerings(r.Context())
	if err != nil {
		h.writeBookingError(w, "treatments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"treatments": offerings})
}

type bookPayload struct {
	TreatmentID string `json:"treatment_id"`
	Date        string `json:"date"`
	Slot        string `json:"slot"`
	OnBehalfOf  string `json:"on_behalf_of,omitempty"`
}

type bookResponse struct {
	Appointment       *appointmentPayload `json:"appointment,omitempty"`
	Account           *treatment.Account  `json:"account,omitempty"`
	PendingEvaluation bool                `json:"pending_evaluation"`
}

type appointmentPayload struct {
	ID            string `json:"id"`
	ScheduledAt   string `json:"scheduled_at"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func toAppointmentPayload(appt *schedule.Appointment) *appointmentPayload {
	if appt == nil {
		return nil
	}
	return &appointmentPayload{
		ID:            appt.ID,
		ScheduledAt:   appt.ScheduledAt.UTC().Format(time.RFC3339),
		Status:        string(appt.Status),
		PaymentStatus: string(appt.PaymentStatus),
	}
}

// PostAppointment books a new appointment, or opens a pending-evaluation
// account when the treatment requires staff review first.
// POST /appointments
func (h *SchedulingHandler) PostAppointment(w http.ResponseWriter, r *http.Request) {
	var payload bookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if payload.TreatmentID == "" {
		jsonError(w, "treatment_id is required", http.StatusBadRequest)
		return
	}
	var date schedule.Date
	if payload.Date != "" {
		parsed, err := schedule.ParseDate(payload.Date)
		if err != nil {
			jsonError(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	result, err := h.svc.Book(r.Context(), booking.BookRequest{
		TreatmentID: payload.TreatmentID,
		Date:        date,
		Slot:        payload.Slot,
		OnBehalfOf:  payload.OnBehalfOf,
	})
	if err != nil {
		h.writeBookingError(w, "book", err)
		return
	}
	writeJSON(w, http.StatusCreated, bookResponse{
		Appointment:       toAppointmentPayload(result.Appointment),
		Account:           result.Account,
		PendingEvaluation: result.PendingEvaluation,
	})
}

type reschedulePayload struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

// PostReschedule moves an appointment to a new day and slot.
// POST /appointments/{appointmentID}/reschedule
func (h *SchedulingHandler) PostReschedule(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")
	var payload reschedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	date, err := schedule.ParseDate(payload.Date)
	if err != nil {
		jsonError(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	moved, err := h.svc.Reschedule(r.Context(), booking.RescheduleRequest{
		AppointmentID: appointmentID,
		Date:          date,
		Slot:          payload.Slot,
	})
	if err != nil {
		h.writeBookingError(w, "reschedule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentPayload(moved)})
}

type completePayload struct {
	Comment string `json:"comment"`
}

// PostComplete closes an appointment with a staff comment.
// POST /appointments/{appointmentID}/complete
func (h *SchedulingHandler) PostComplete(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")
	var payload completePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	done, err := h.svc.Complete(r.Context(), appointmentID, payload.Comment)
	if err != nil {
		h.writeBookingError(w, "complete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": toAppointmentPayload(done)})
}

// PostApproveEvaluation moves a pending-evaluation account into progress
// after staff review.
// POST /accounts/{accountID}/approve-evaluation
func (h *SchedulingHandler) PostApproveEvaluation(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	updated, err := h.svc.ApproveEvaluation(r.Context(), accountID)
	if err != nil {
		h.writeBookingError(w, "approve_evaluation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": updated})
}

// writeBookingError maps the booking taxonomy onto HTTP statuses. A locked
// treatment is 423 so the UI can distinguish it from plain validation
// failures; a lost race is 409 and the client must refresh and re-pick.
func (h *SchedulingHandler) writeBookingError(w http.ResponseWriter, operation string, err error) {
	kind, ok := booking.KindOf(err)
	if !ok {
		h.logger.Error("unclassified scheduling failure", "operation", operation, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	status := http.StatusInternalServerError
	switch kind {
	case booking.KindAuth:
		status = http.StatusUnauthorized
	case booking.KindLocked:
		status = http.StatusLocked
	case booking.KindRejected:
		status = http.StatusUnprocessableEntity
	case booking.KindConflict:
		status = http.StatusConflict
	case booking.KindNetwork:
		status = http.StatusBadGateway
	}
	if kind == booking.KindNetwork {
		h.logger.Error("backend unavailable", "operation", operation, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
