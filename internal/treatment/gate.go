package treatment

// Flow identifies who is driving the booking. The gate is stricter for
// patient self-service than for staff acting on a patient's behalf.
type Flow string

const (
	// FlowSelfService is a patient booking for themselves.
	FlowSelfService Flow = "self_service"
	// FlowAdmin is clinic staff booking or rescheduling on behalf of a patient.
	FlowAdmin Flow = "admin"
)

// Decision is the gate's answer for one account holder.
type Decision struct {
	Locked  bool
	Reason  string
	Account *Account // the account that caused the lock, when locked
}

// Check decides whether the holder of the given accounts may initiate a new
// booking. An in_progress account locks every flow. A pending_evaluation
// account locks patient self-service only: staff may still book while an
// evaluation is pending (deliberate asymmetry, kept from the portal's
// observed behavior).
func Check(accounts []Account, flow Flow) Decision {
	for i := range accounts {
		acct := accounts[i]
		switch acct.Status {
		case StatusInProgress:
			return Decision{
				Locked:  true,
				Reason:  "an active treatment is already in progress",
				Account: &acct,
			}
		case StatusPendingEvaluation:
			if flow == FlowSelfService {
				return Decision{
					Locked:  true,
					Reason:  "a treatment evaluation is pending review",
					Account: &acct,
				}
			}
		}
	}
	return Decision{}
}
