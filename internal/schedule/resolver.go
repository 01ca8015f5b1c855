package schedule

import (
	"fmt"
	"time"
)

// RejectReason classifies why a (day, slot) choice was refused. These are
// user-facing and recoverable by re-selecting.
type RejectReason string

const (
	ReasonDayNotBookable RejectReason = "day_not_bookable"
	ReasonUnknownSlot    RejectReason = "unknown_slot"
	ReasonSlotTaken      RejectReason = "slot_taken"
)

// RejectedError is returned when a chosen day or slot fails a business rule.
type RejectedError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("schedule: rejected (%s): %s", e.Reason, e.Detail)
}

// SlotAvailability annotates one catalog slot with its occupancy on a day.
type SlotAvailability struct {
	Slot     string `json:"slot"`
	Occupied bool   `json:"occupied"`
}

// Resolver answers which slots can be offered for a day and validates a
// chosen (day, slot) pair before submission. A resolver is configured with
// a booking horizon in days; patient self-scheduling and admin rescheduling
// use different horizons.
type Resolver struct {
	catalog     *Catalog
	clock       *Clock
	occupancy   *OccupancyIndex
	horizonDays int
	now         func() time.Time
}

// NewResolver builds a resolver over the catalog and clock with the given
// future-booking horizon.
func NewResolver(catalog *Catalog, clock *Clock, horizonDays int) *Resolver {
	return &Resolver{
		catalog:     catalog,
		clock:       clock,
		occupancy:   NewOccupancyIndex(catalog, clock),
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// today is the current clinic-local civil date.
func (r *Resolver) today() Date {
	return DateOf(r.now().In(r.clock.Location()))
}

// SlotsFor returns every catalog slot in order, annotated with whether it is
// already taken on date. A zero date yields the full catalog unoccupied,
// which renders the grid before a day is chosen.
func (r *Resolver) SlotsFor(date Date, appointments []Appointment) []SlotAvailability {
	occupied := r.occupancy.OccupiedSlots(date, appointments)
	slots := r.catalog.Slots()
	out := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		_, taken := occupied[slot]
		out = append(out, SlotAvailability{Slot: slot, Occupied: taken})
	}
	return out
}

// IsDaySelectable reports whether date may be offered at all: not in the
// past, not beyond the horizon, and on a bookable weekday. A date picker
// consults this independently for every calendar cell.
func (r *Resolver) IsDaySelectable(date Date) bool {
	if date.IsZero() {
		return false
	}
	today := r.today()
	if date.Before(today) {
		return false
	}
	if date.After(today.AddDays(r.horizonDays)) {
		return false
	}
	return r.catalog.IsBookableWeekday(date)
}

// Validate checks a chosen (date, slot) pair against the latest occupancy.
// excludeAppointmentID names an appointment whose own slot must not count as
// a conflict; a reschedule passes the appointment being moved so a no-op
// move is accepted. Callers must re-run Validate immediately before
// submission: occupancy can change between selection and submit, and the
// backend remains the authoritative conflict detector.
func (r *Resolver) Validate(date Date, slot string, appointments []Appointment, excludeAppointmentID string) error {
	if !r.IsDaySelectable(date) {
		return &RejectedError{Reason: ReasonDayNotBookable, Detail: date.String()}
	}
	canonical, err := CanonicalLabel(slot)
	if err != nil || !r.catalog.Contains(canonical) {
		return &RejectedError{Reason: ReasonUnknownSlot, Detail: slot}
	}
	considered := appointments
	if excludeAppointmentID != "" {
		considered = make([]Appointment, 0, len(appointments))
		for _, appt := range appointments {
			if appt.ID == excludeAppointmentID {
				continue
			}
			considered = append(considered, appt)
		}
	}
	if r.occupancy.OccupiedSlots(date, considered).Contains(canonical) {
		return &RejectedError{Reason: ReasonSlotTaken, Detail: canonical + " on " + date.String()}
	}
	return nil
}
