package booking

import (
	"errors"
	"fmt"
)

// Kind classifies booking failures. Every kind is scoped to a single
// attempt; nothing here is fatal to the process.
type Kind string

const (
	// KindAuth: no verified session; an auth problem, not a scheduling one.
	KindAuth Kind = "auth"
	// KindLocked: the treatment gate denied the booking. Not recoverable
	// without finishing the existing treatment.
	KindLocked Kind = "locked"
	// KindRejected: the chosen day/slot fails a business rule. Recoverable
	// by re-selecting.
	KindRejected Kind = "rejected"
	// KindConflict: the backend detected a race; another actor took the
	// slot. Recoverable by refresh-and-reselect.
	KindConflict Kind = "conflict"
	// KindNetwork: transport or backend failure. Recoverable by retry.
	KindNetwork Kind = "network"
)

// Error is a classified booking failure.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking: %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("booking: %s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the booking failure kind, if err carries one.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
