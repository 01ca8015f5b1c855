package backend

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/fisioagenda/scheduling-platform/internal/schedule"
)

// appointmentDTO is the backend wire form of an appointment. ScheduledAt is
// an ISO-8601 UTC string.
type appointmentDTO struct {
	ID                  string `json:"id"`
	TreatmentAccountRef string `json:"treatment_account_ref"`
	ScheduledAt         string `json:"scheduled_at"`
	Status              string `json:"status"`
	PaymentStatus       string `json:"payment_status"`
}

func (d appointmentDTO) toDomain() (schedule.Appointment, error) {
	at, err := time.Parse(time.RFC3339, d.ScheduledAt)
	if err != nil {
		return schedule.Appointment{}, fmt.Errorf("backend: parse scheduled_at %q: %w", d.ScheduledAt, err)
	}
	return schedule.Appointment{
		ID:                  d.ID,
		TreatmentAccountRef: d.TreatmentAccountRef,
		ScheduledAt:         at.UTC(),
		Status:              schedule.AppointmentStatus(d.Status),
		PaymentStatus:       schedule.PaymentStatus(d.PaymentStatus),
	}, nil
}

// toDomainList converts wire appointments, silently dropping entries whose
// instant does not parse so one malformed row cannot break slot computation.
func toDomainList(dtos []appointmentDTO) []schedule.Appointment {
	out := make([]schedule.Appointment, 0, len(dtos))
	for _, dto := range dtos {
		appt, err := dto.toDomain()
		if err != nil {
			continue
		}
		out = append(out, appt)
	}
	return out
}

// AppointmentDraft is a newly constructed appointment the client submits.
type AppointmentDraft struct {
	TreatmentAccountRef string
	ScheduledAt         time.Time
	ClientRef           string // idempotency reference generated client-side
}

type appointmentDraftDTO struct {
	TreatmentAccountRef string `json:"treatment_account_ref"`
	ScheduledAt         string `json:"scheduled_at"`
	ClientRef           string `json:"client_ref,omitempty"`
}

// ListActive returns every non-terminal appointment in the clinic.
func (c *Client) ListActive(ctx context.Context) ([]schedule.Appointment, error) {
	var dtos []appointmentDTO
	if err := c.get(ctx, "/v1/appointments?active=true", &dtos); err != nil {
		return nil, fmt.Errorf("backend: list active appointments: %w", err)
	}
	return toDomainList(dtos), nil
}

// Create submits a new appointment draft. A 409 StatusError means another
// actor booked the slot first.
func (c *Client) Create(ctx context.Context, draft AppointmentDraft) (*schedule.Appointment, error) {
	body := appointmentDraftDTO{
		TreatmentAccountRef: draft.TreatmentAccountRef,
		ScheduledAt:         draft.ScheduledAt.UTC().Format(time.RFC3339),
		ClientRef:           draft.ClientRef,
	}
	var dto appointmentDTO
	if err := c.do(ctx, "POST", "/v1/appointments", body, &dto); err != nil {
		return nil, err
	}
	appt, err := dto.toDomain()
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// UpdateSchedule moves an existing appointment to a new instant.
func (c *Client) UpdateSchedule(ctx context.Context, id string, instant time.Time) (*schedule.Appointment, error) {
	body := struct {
		ScheduledAt string `json:"scheduled_at"`
	}{ScheduledAt: instant.UTC().Format(time.RFC3339)}
	var dto appointmentDTO
	if err := c.do(ctx, "PUT", "/v1/appointments/"+url.PathEscape(id)+"/schedule", body, &dto); err != nil {
		return nil, err
	}
	appt, err := dto.toDomain()
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// MarkCompleted closes an appointment with a staff comment.
func (c *Client) MarkCompleted(ctx context.Context, id, comment string) (*schedule.Appointment, error) {
	body := struct {
		Comment string `json:"comment,omitempty"`
	}{Comment: comment}
	var dto appointmentDTO
	if err := c.do(ctx, "POST", "/v1/appointments/"+url.PathEscape(id)+"/complete", body, &dto); err != nil {
		return nil, err
	}
	appt, err := dto.toDomain()
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
