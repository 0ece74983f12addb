// Package safety holds the pure rules applied around every commanded step:
// angle clamping, pixel-error deadzone, adaptive gain, minimum-move shaping
// and the reachability check gating the blind reach.
package safety

import (
	"errors"
	"fmt"

	"github.com/dvelkov/go-grasp/pkg/arm"
)

// ErrOutOfReach is returned when the snapshot distance exceeds the
// mechanism's maximum physical extension.
var ErrOutOfReach = errors.New("safety: target out of reach")

// Limits carries the tuned safety thresholds. The zero value is unusable;
// construct via config or DefaultLimits.
type Limits struct {
	// DeadzonePx: pixel errors below this are treated as aligned.
	DeadzonePx float64
	// GainSwitchPx splits coarse approach from fine alignment.
	GainSwitchPx float64
	// HighGain scales corrections during coarse approach, LowGain during
	// fine alignment. One gain cannot be both responsive and stable.
	HighGain float64
	LowGain  float64
	// MinMoveDeg: smaller computed steps are suppressed as noise.
	MinMoveDeg float64
	// CommitMoveDeg: steps between MinMoveDeg and this are boosted up to it
	// so the actuator overcomes static friction.
	CommitMoveDeg float64
	// MaxStepDeg bounds any single commanded correction.
	MaxStepDeg float64
	// MaxReachCm is the maximum physical extension of the arm.
	MaxReachCm float64
}

// DefaultLimits returns the bench-calibrated thresholds.
func DefaultLimits() Limits {
	return Limits{
		DeadzonePx:    20,
		GainSwitchPx:  80,
		HighGain:      1.0,
		LowGain:       0.5,
		MinMoveDeg:    0.5,
		CommitMoveDeg: 1.0,
		MaxStepDeg:    30,
		MaxReachCm:    40,
	}
}

// InDeadzone reports whether a pixel error counts as already aligned.
func (l Limits) InDeadzone(errPx float64) bool {
	return abs(errPx) < l.DeadzonePx
}

// Gain returns the correction scaling for the given pixel error magnitude.
func (l Limits) Gain(errPx float64) float64 {
	if abs(errPx) >= l.GainSwitchPx {
		return l.HighGain
	}
	return l.LowGain
}

// ShapeStep applies minimum-move suppression, commit boosting and the
// per-step magnitude bound to a computed angular step.
//
// Steps below MinMoveDeg are noise and suppressed entirely. Steps between
// MinMoveDeg and CommitMoveDeg are boosted to CommitMoveDeg; without the
// boost, tiny commanded moves never produce physical motion and alignment
// stalls inside its own deadzone.
func (l Limits) ShapeStep(step float64) float64 {
	mag := abs(step)
	if mag < l.MinMoveDeg {
		return 0
	}
	if mag < l.CommitMoveDeg {
		mag = l.CommitMoveDeg
	}
	if mag > l.MaxStepDeg {
		mag = l.MaxStepDeg
	}
	if step < 0 {
		return -mag
	}
	return mag
}

// CheckReach fails with ErrOutOfReach when the estimated distance exceeds
// the arm's maximum extension. Called before any reach motion is issued.
func (l Limits) CheckReach(distanceCm float64) error {
	if distanceCm > l.MaxReachCm {
		return fmt.Errorf("%w: %.1fcm exceeds %.1fcm max", ErrOutOfReach, distanceCm, l.MaxReachCm)
	}
	return nil
}

// ClampAngle restricts a single joint angle to the servo travel range.
func ClampAngle(deg float64) float64 {
	if deg < arm.MinAngleDeg {
		return arm.MinAngleDeg
	}
	if deg > arm.MaxAngleDeg {
		return arm.MaxAngleDeg
	}
	return deg
}

// Clamp restricts v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
