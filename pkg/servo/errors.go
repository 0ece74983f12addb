package servo

import (
	"fmt"
	"time"
)

// Reason classifies terminal session failures.
type Reason string

const (
	ReasonTargetNotFound    Reason = "target_not_found"
	ReasonObjectLost        Reason = "object_lost"
	ReasonOutOfReach        Reason = "out_of_reach"
	ReasonInvalidTrajectory Reason = "invalid_trajectory"
	ReasonIO                Reason = "io_error"
	ReasonCancelled         Reason = "cancelled"
)

// Failure is a terminal session failure with enough context to diagnose it
// after the fact: the state the session was in, the underlying error and
// how stale the last detection was at the time.
type Failure struct {
	Reason       Reason
	State        State
	Err          error
	DetectionAge time.Duration
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("servo: %s in state %s: %v (detection age %s)",
			f.Reason, f.State, f.Err, f.DetectionAge.Round(time.Millisecond))
	}
	return fmt.Sprintf("servo: %s in state %s (detection age %s)",
		f.Reason, f.State, f.DetectionAge.Round(time.Millisecond))
}

// Unwrap exposes the underlying error for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}
