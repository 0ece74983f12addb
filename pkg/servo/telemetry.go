package servo

import "time"

// Telemetry is the controller's write-only instrument panel. Observers read
// snapshots; last write wins, no ordering guarantee beyond that.
type Telemetry struct {
	Mode             State      `json:"mode"`
	ActiveEngine     string     `json:"active_engine"`
	LastCorrection   float64    `json:"last_correction_deg"`
	LastDistance     float64    `json:"last_distance_cm"`
	PredictedTargets [3]float64 `json:"predicted_targets"`
}

// FailureInfo is the externally visible failure context.
type FailureInfo struct {
	Reason       Reason `json:"reason"`
	Message      string `json:"message"`
	State        State  `json:"state"`
	DetectionAge string `json:"detection_age"`
}

// Status is a point-in-time copy of the controller's externally visible
// state, safe to hand to any observer.
type Status struct {
	State     State        `json:"state"`
	Target    string       `json:"target,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Telemetry Telemetry    `json:"telemetry"`
	Failure   *FailureInfo `json:"failure,omitempty"`
}

// failureInfo converts a Failure for external consumption.
func failureInfo(f *Failure) *FailureInfo {
	if f == nil {
		return nil
	}
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return &FailureInfo{
		Reason:       f.Reason,
		Message:      msg,
		State:        f.State,
		DetectionAge: f.DetectionAge.Round(time.Millisecond).String(),
	}
}
