// Package treatment models treatment accounts and the gate that decides
// whether an account may start a new booking at all.
package treatment

// Status is the lifecycle state of a treatment account. An account is
// created on first booking, moves to in_progress once evaluation (if the
// offering requires one) passes, and completes when every paid visit has
// been attended.
type Status string

const (
	StatusPendingEvaluation Status = "pending_evaluation"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
)

// Account ties a patient to a treatment offering and tracks visit progress.
type Account struct {
	ID             string `json:"id"`
	OwnerRef       string `json:"owner_ref"`
	TreatmentRef   string `json:"treatment_ref"`
	Status         Status `json:"status"`
	TotalVisits    int    `json:"total_visits"`
	AttendedVisits int    `json:"attended_visits"`
}

// Open reports whether the account still has visits ahead of it.
func (a Account) Open() bool {
	return a.Status == StatusPendingEvaluation || a.Status == StatusInProgress
}

// RecordAttendance marks one more visit attended and completes the account
// when the last visit is used up.
func (a *Account) RecordAttendance() {
	if a.Status != StatusInProgress {
		return
	}
	a.AttendedVisits++
	if a.TotalVisits > 0 && a.AttendedVisits >= a.TotalVisits {
		a.Status = StatusCompleted
	}
}

// PassEvaluation moves a pending account into progress after staff review.
func (a *Account) PassEvaluation() {
	if a.Status == StatusPendingEvaluation {
		a.Status = StatusInProgress
	}
}

// Offering is a bookable treatment from the clinic's active catalog.
type Offering struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RequiresEvaluation bool   `json:"requires_evaluation"`
	PriceCents         int    `json:"price_cents"`
	VisitsRequired     int    `json:"visits_required"`
}
