package schedule

import "time"

// AppointmentStatus is the backend lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Occupies reports whether an appointment in this status holds its slot.
// Completed and cancelled appointments no longer block the slot.
func (s AppointmentStatus) Occupies() bool {
	return s == StatusPending || s == StatusScheduled
}

// PaymentStatus tracks whether an appointment's visit has been paid.
type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentUnpaid PaymentStatus = "unpaid"
)

// Appointment is the read-only projection of a backend appointment the
// scheduling engine works with. ScheduledAt is an absolute UTC instant;
// clinic-local date and slot label are derived through a Clock.
type Appointment struct {
	ID                  string
	TreatmentAccountRef string
	ScheduledAt         time.Time
	Status              AppointmentStatus
	PaymentStatus       PaymentStatus
}
