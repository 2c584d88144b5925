package booking

import (
	"errors"
	"fmt"
)

// Action is a lifecycle operation requested by a customer or owner flow.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var (
	// ErrInvalidTransition signals an action the current status does not
	// permit (for example completing a pending booking).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCancellationWindow signals a cancellation attempted after the
	// lockout window has started or after the appointment time has passed.
	ErrCancellationWindow = errors.New("cancellation window has passed")

	// ErrSlotTaken signals that the requested interval was booked by someone
	// else between the availability read and the write.
	ErrSlotTaken = errors.New("time slot already booked")

	// ErrInvalidInput covers malformed booking input: non-positive duration,
	// missing identifiers, zero start time.
	ErrInvalidInput = errors.New("invalid booking input")
)

// transitions is the single source of truth for the lifecycle:
// pending -> confirmed -> completed, with cancel allowed from pending and
// confirmed. completed and cancelled are terminal.
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionConfirm: StatusConfirmed,
		ActionCancel:  StatusCancelled,
	},
	StatusConfirmed: {
		ActionComplete: StatusCompleted,
		ActionCancel:   StatusCancelled,
	},
}

// Transition returns the status that applying action to from yields, or
// ErrInvalidTransition. It is consumed by every customer and owner flow so
// the rules live in exactly one place.
func Transition(from Status, action Action) (Status, error) {
	next, ok := transitions[from][action]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidTransition, action, from)
	}
	return next, nil
}
