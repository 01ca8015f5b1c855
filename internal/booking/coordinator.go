// Package booking orchestrates the whole scheduling flow: gate check,
// availability resolution, clinic-local conversion, and submission to the
// persistence backend. It is the only layer that maps transport failures
// into the booking error taxonomy.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fisioagenda/scheduling-platform/internal/backend"
	"github.com/fisioagenda/scheduling-platform/internal/clinic"
	"github.com/fisioagenda/scheduling-platform/internal/observability/metrics"
	"github.com/fisioagenda/scheduling-platform/internal/schedule"
	"github.com/fisioagenda/scheduling-platform/internal/session"
	"github.com/fisioagenda/scheduling-platform/internal/treatment"
	"github.com/fisioagenda/scheduling-platform/pkg/logging"
)

var bookingTracer trace.Tracer = otel.Tracer("scheduling.internal.booking")

// AppointmentStore is the remote appointment persistence collaborator.
type AppointmentStore interface {
	ListActive(ctx context.Context) ([]schedule.Appointment, error)
	Create(ctx context.Context, draft backend.AppointmentDraft) (*schedule.Appointment, error)
	UpdateSchedule(ctx context.Context, id string, instant time.Time) (*schedule.Appointment, error)
	MarkCompleted(ctx context.Context, id, comment string) (*schedule.Appointment, error)
}

// TreatmentDirectory exposes the backend's treatment catalog and accounts.
type TreatmentDirectory interface {
	ListActiveOfferings(ctx context.Context) ([]treatment.Offering, error)
	ListAccountsByOwner(ctx context.Context, ownerRef string) ([]treatment.Account, error)
	GetAccount(ctx context.Context, id string) (*treatment.Account, error)
	CreateAccount(ctx context.Context, acct treatment.Account) (*treatment.Account, error)
	UpdateAccount(ctx context.Context, acct treatment.Account) (*treatment.Account, error)
}

// SettingsSource yields the clinic's current scheduling settings.
type SettingsSource interface {
	Get(ctx context.Context) (*clinic.Settings, error)
}

// Deps wires the coordinator's collaborators.
type Deps struct {
	Appointments AppointmentStore
	Treatments   TreatmentDirectory
	Settings     SettingsSource
	Sessions     session.Provider
	Metrics      *metrics.BookingMetrics
	Logger       *logging.Logger
}

// Coordinator is the top-level scheduling orchestrator shared by the
// patient portal, the admin booking-for-patient screen, and the admin
// reschedule screen.
type Coordinator struct {
	appointments AppointmentStore
	treatments   TreatmentDirectory
	settings     SettingsSource
	sessions     session.Provider
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
}

// NewCoordinator constructs a booking coordinator.
func NewCoordinator(deps Deps) *Coordinator {
	if deps.Appointments == nil {
		panic("booking: appointment store required")
	}
	if deps.Treatments == nil {
		panic("booking: treatment directory required")
	}
	if deps.Settings == nil {
		panic("booking: settings source required")
	}
	if deps.Sessions == nil {
		panic("booking: session provider required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Coordinator{
		appointments: deps.Appointments,
		treatments:   deps.Treatments,
		settings:     deps.Settings,
		sessions:     deps.Sessions,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
	}
}

// engine bundles the schedule components built from the current settings.
type engine struct {
	clock   *schedule.Clock
	patient *schedule.Resolver
	admin   *schedule.Resolver
}

func (e *engine) resolverFor(role session.Role) *schedule.Resolver {
	if role == session.RoleAdmin {
		return e.admin
	}
	return e.patient
}

func (c *Coordinator) engine(ctx context.Context) (*engine, error) {
	settings, err := c.settings.Get(ctx)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "load scheduling settings", Err: err}
	}
	clock, err := settings.Clock()
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "bad scheduling settings", Err: err}
	}
	catalog, err := settings.Catalog()
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "bad scheduling settings", Err: err}
	}
	return &engine{
		clock:   clock,
		patient: schedule.NewResolver(catalog, clock, settings.PatientHorizonDays),
		admin:   schedule.NewResolver(catalog, clock, settings.AdminHorizonDays),
	}, nil
}

func (c *Coordinator) currentAccount(ctx context.Context) (*session.Account, error) {
	acct, err := c.sessions.CurrentAccount(ctx)
	if err != nil {
		return nil, &Error{Kind: KindAuth, Reason: "no verified session", Err: err}
	}
	return acct, nil
}

// submitErr maps a backend submission failure into the taxonomy: 409 is a
// race lost to another actor, everything else is transport.
func submitErr(reason string, err error) *Error {
	if backend.IsConflict(err) {
		return &Error{Kind: KindConflict, Reason: "slot no longer available", Err: err}
	}
	return &Error{Kind: KindNetwork, Reason: reason, Err: err}
}

// Snapshot is the availability picture for one day: every catalog slot in
// order with its occupancy, plus whether the day may be picked at all. It is
// derived state, recomputed on every refresh and never persisted.
type Snapshot struct {
	Date       schedule.Date               `json:"date,omitempty"`
	Selectable bool                        `json:"selectable"`
	Slots      []schedule.SlotAvailability `json:"slots"`
}

// Availability computes the slot snapshot for date under the acting
// account's horizon. A zero date returns the full catalog unoccupied. This
// is the explicit refresh capability: the UI calls it again whenever it
// wants fresher occupancy, there are no embedded timers.
func (c *Coordinator) Availability(ctx context.Context, date schedule.Date) (*Snapshot, error) {
	acct, err := c.currentAccount(ctx)
	if err != nil {
		return nil, err
	}
	eng, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}
	var appointments []schedule.Appointment
	if !date.IsZero() {
		appointments, err = c.appointments.ListActive(ctx)
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Reason: "fetch occupancy", Err: err}
		}
	}
	resolver := eng.resolverFor(acct.Role)
	c.metrics.ObserveAvailability()
	return &Snapshot{
		Date:       date,
		Selectable: resolver.IsDaySelectable(date),
		Slots:      resolver.SlotsFor(date, appointments),
	}, nil
}

// DayAvailability annotates a calendar day with its selectability.
type DayAvailability struct {
	Date       schedule.Date `json:"date"`
	Selectable bool          `json:"selectable"`
}

// SelectableDays evaluates the day predicate for each calendar cell in
// [from, from+days). Pure per-cell evaluation, no occupancy involved.
func (c *Coordinator) SelectableDays(ctx context.Context, from schedule.Date, days int) ([]DayAvailability, error) {
	acct, err := c.currentAccount(ctx)
	if err != nil {
		return nil, err
	}
	eng, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}
	resolver := eng.resolverFor(acct.Role)
	out := make([]DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDays(i)
		out = append(out, DayAvailability{Date: d, Selectable: resolver.IsDaySelectable(d)})
	}
	return out, nil
}

// Offerings lists the treatments currently open for booking.
func (c *Coordinator) Offerings(ctx context.Context) ([]treatment.Offering, error) {
	offerings, err := c.treatments.ListActiveOfferings(ctx)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "list offerings", Err: err}
	}
	return offerings, nil
}

// BookRequest asks for a new appointment.
type BookRequest struct {
	TreatmentID string
	Date        schedule.Date
	Slot        string
	// OnBehalfOf is the patient account staff are booking for. Ignored for
	// patient sessions.
	OnBehalfOf string
}

// BookResult is the outcome of a successful Book call. An
// evaluation-required treatment yields an account pending staff review and
// no appointment.
type BookResult struct {
	Appointment       *schedule.Appointment
	Account           *treatment.Account
	PendingEvaluation bool
}

// Book runs the full flow: gate check, availability validation at submit
// time, clinic-local conversion, and submission. On a backend-detected race
// it returns a conflict and the caller must re-fetch occupancy and let the
// user pick again; the slot is never silently reassigned.
func (c *Coordinator) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	start := time.Now()

	result, err := c.book(ctx, req)
	outcome := "accepted"
	if err != nil {
		span.RecordError(err)
		if kind, ok := KindOf(err); ok {
			outcome = string(kind)
		} else {
			outcome = "error"
		}
	} else if result.PendingEvaluation {
		outcome = "pending_evaluation"
	}
	span.SetAttributes(
		attribute.String("scheduling.treatment_id", req.TreatmentID),
		attribute.String("scheduling.outcome", outcome),
	)
	c.metrics.ObserveBooking("book", outcome)
	c.metrics.ObserveLatency("book", time.Since(start).Seconds())
	return result, err
}

func (c *Coordinator) book(ctx context.Context, req BookRequest) (*BookResult, error) {
	acct, err := c.currentAccount(ctx)
	if err != nil {
		return nil, err
	}

	ownerRef := acct.ID
	flow := treatment.FlowSelfService
	if acct.Role == session.RoleAdmin {
		flow = treatment.FlowAdmin
		if req.OnBehalfOf != "" {
			ownerRef = req.OnBehalfOf
		}
	}

	accounts, err := c.treatments.ListAccountsByOwner(ctx, ownerRef)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "list treatment accounts", Err: err}
	}

	// The gate short-circuits before any availability fetch.
	if decision := treatment.Check(accounts, flow); decision.Locked {
		c.logger.Info("booking gated",
			"owner_ref", ownerRef,
			"flow", string(flow),
			"reason", decision.Reason,
		)
		return nil, &Error{Kind: KindLocked, Reason: decision.Reason}
	}

	offering, err := c.findOffering(ctx, req.TreatmentID)
	if err != nil {
		return nil, err
	}

	if offering.RequiresEvaluation {
		created, err := c.treatments.CreateAccount(ctx, treatment.Account{
			OwnerRef:     ownerRef,
			TreatmentRef: offering.ID,
			Status:       treatment.StatusPendingEvaluation,
			TotalVisits:  offering.VisitsRequired,
		})
		if err != nil {
			return nil, submitErr("create evaluation account", err)
		}
		c.logger.Info("evaluation account created",
			"owner_ref", ownerRef,
			"treatment_id", offering.ID,
			"account_id", created.ID,
		)
		return &BookResult{Account: created, PendingEvaluation: true}, nil
	}

	eng, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}

	// Validation reruns here, at submit time: occupancy may have moved since
	// the user picked the slot.
	appointments, err := c.appointments.ListActive(ctx)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "fetch occupancy", Err: err}
	}
	resolver := eng.resolverFor(acct.Role)
	if err := resolver.Validate(req.Date, req.Slot, appointments, ""); err != nil {
		return nil, &Error{Kind: KindRejected, Reason: err.Error(), Err: err}
	}

	instant, err := eng.clock.FromClinicLocal(req.Date, req.Slot)
	if err != nil {
		return nil, &Error{Kind: KindRejected, Reason: "unusable day/slot pair", Err: err}
	}

	account, err := c.accountFor(ctx, accounts, ownerRef, offering)
	if err != nil {
		return nil, err
	}

	created, err := c.appointments.Create(ctx, backend.AppointmentDraft{
		TreatmentAccountRef: account.ID,
		ScheduledAt:         instant,
		ClientRef:           uuid.NewString(),
	})
	if err != nil {
		return nil, submitErr("create appointment", err)
	}

	c.logger.Info("appointment booked",
		"owner_ref", ownerRef,
		"treatment_id", offering.ID,
		"appointment_id", created.ID,
		"date", req.Date.String(),
		"slot", req.Slot,
	)
	return &BookResult{Appointment: created, Account: account}, nil
}

// accountFor reuses the owner's open account for this treatment or opens a
// fresh in-progress one on first booking.
func (c *Coordinator) accountFor(ctx context.Context, accounts []treatment.Account, ownerRef string, offering *treatment.Offering) (*treatment.Account, error) {
	for i := range accounts {
		if accounts[i].TreatmentRef == offering.ID && accounts[i].Open() {
			return &accounts[i], nil
		}
	}
	created, err := c.treatments.CreateAccount(ctx, treatment.Account{
		OwnerRef:     ownerRef,
		TreatmentRef: offering.ID,
		Status:       treatment.StatusInProgress,
		TotalVisits:  offering.VisitsRequired,
	})
	if err != nil {
		return nil, submitErr("create treatment account", err)
	}
	return created, nil
}

func (c *Coordinator) findOffering(ctx context.Context, treatmentID string) (*treatment.Offering, error) {
	offerings, err := c.treatments.ListActiveOfferings(ctx)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "list offerings", Err: err}
	}
	for i := range offerings {
		if offerings[i].ID == treatmentID {
			return &offerings[i], nil
		}
	}
	return nil, &Error{Kind: KindRejected, Reason: "unknown treatment " + treatmentID}
}

// RescheduleRequest moves an existing appointment to a new (day, slot).
type RescheduleRequest struct {
	AppointmentID string
	Date          schedule.Date
	Slot          string
}

// Reschedule validates the new pair, excluding the moving appointment's own
// slot from the conflict check, then submits the move.
func (c *Coordinator) Reschedule(ctx context.Context, req RescheduleRequest) (*schedule.Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reschedule")
	defer span.End()
	start := time.Now()

	moved, err := c.reschedule(ctx, req)
	outcome := "accepted"
	if err != nil {
		span.RecordError(err)
		if kind, ok := KindOf(err); ok {
			outcome = string(kind)
		} else {
			outcome = "error"
		}
	}
	span.SetAttributes(
		attribute.String("scheduling.appointment_id", req.AppointmentID),
		attribute.String("scheduling.outcome", outcome),
	)
	c.metrics.ObserveBooking("reschedule", outcome)
	c.metrics.ObserveLatency("reschedule", time.Since(start).Seconds())
	return moved, err
}

func (c *Coordinator) reschedule(ctx context.Context, req RescheduleRequest) (*schedule.Appointment, error) {
	acct, err := c.currentAccount(ctx)
	if err != nil {
		return nil, err
	}
	eng, err := c.engine(ctx)
	if err != nil {
		return nil, err
	}

	appointments, err := c.appointments.ListActive(ctx)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "fetch occupancy", Err: err}
	}
	resolver := eng.resolverFor(acct.Role)
	if err := resolver.Validate(req.Date, req.Slot, appointments, req.AppointmentID); err != nil {
		return nil, &Error{Kind: KindRejected, Reason: err.Error(), Err: err}
	}

	instant, err := eng.clock.FromClinicLocal(req.Date, req.Slot)
	if err != nil {
		return nil, &Error{Kind: KindRejected, Reason: "unusable day/slot pair", Err: err}
	}

	moved, err := c.appointments.UpdateSchedule(ctx, req.AppointmentID, instant)
	if err != nil {
		return nil, submitErr("update appointment schedule", err)
	}

	c.logger.Info("appointment rescheduled",
		"appointment_id", moved.ID,
		"date", req.Date.String(),
		"slot", req.Slot,
	)
	return moved, nil
}

// Complete closes an appointment with a staff comment and records the visit
// on the treatment account, completing the account when the last paid visit
// is used up. Staff only.
func (c *Coordinator) Complete(ctx context.Context, appointmentID, comment string) (*schedule.Appointment, error) {
	acct, err := c.currentAccount(ctx)
	if err != nil {
		return nil, err
	}
	if acct.Role != session.RoleAdmin {
		return nil, &Error{Kind: KindAuth, Reason: "staff session required"}
	}
	done, err := c.appointments.MarkCompleted(ctx, appointmentID, comment)
	if err != nil {
		return nil, submitErr("mark appointment completed", err)
	}

	if done.TreatmentAccountRef != "" {
		treatmentAcct, err := c.treatments.GetAccount(ctx, done.TreatmentAccountRef)
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Reason: "load treatment account", Err: err}
		}
		treatmentAcct.RecordAttendance()
		if _, err := c.treatments.UpdateAccount(ctx, *treatmentAcct); err != nil {
			return nil, submitErr("record attendance", err)
		}
		c.logger.Info("appointment completed",
			"appointment_id", done.ID,
			"account_id", treatmentAcct.ID,
			"attended_visits", treatmentAcct.AttendedVisits,
			"account_status", string(treatmentAcct.Status),
		)
		return done, nil
	}

	c.logger.Info("appointment completed", "appointment_id", done.ID)
	return done, nil
}

// ApproveEvaluation moves a pending-evaluation account into progress after
// staff review, unlocking patient self-service for it. Staff only.
func (c *Coordinator) ApproveEvaluation(ctx context.Context, accountID string) (*treatment.Account, error) {
	acct, err := c.currentAccount(ctx)
	if err != nil {
		return nil, err
	}
	if acct.Role != session.RoleAdmin {
		return nil, &Error{Kind: KindAuth, Reason: "staff session required"}
	}
	treatmentAcct, err := c.treatments.GetAccount(ctx, accountID)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Reason: "load treatment account", Err: err}
	}
	if treatmentAcct.Status != treatment.StatusPendingEvaluation {
		return nil, &Error{Kind: KindRejected, Reason: "account is not awaiting evaluation"}
	}
	treatmentAcct.PassEvaluation()
	updated, err := c.treatments.UpdateAccount(ctx, *treatmentAcct)
	if err != nil {
		return nil, submitErr("approve evaluation", err)
	}
	c.logger.Info("evaluation approved",
		"account_id", updated.ID,
		"owner_ref", updated.OwnerRef,
	)
	return updated, nil
}
