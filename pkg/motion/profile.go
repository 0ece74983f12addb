// Package motion generates eased joint-space trajectories.
//
// A Profile converts a start/target pose pair into a time-sequenced series
// of intermediate poses using smoothstep easing, so the actuator sees zero
// commanded velocity at both trajectory boundaries.
package motion

import (
	"errors"
	"fmt"

	"github.com/dvelkov/go-grasp/pkg/arm"
)

// ErrInvalidTrajectory is returned when a profile cannot be constructed.
var ErrInvalidTrajectory = errors.New("invalid trajectory")

// Profile is a finite, restartable interpolation sequence between two poses.
// It is a pure value: evaluating it has no side effects.
type Profile struct {
	start  arm.JointVector
	target arm.JointVector
	steps  int
	next   int // iterator cursor
}

// NewProfile builds a profile of steps segments from start to target.
// The sequence has steps+1 points: point 0 is start, point steps is target.
func NewProfile(start, target arm.JointVector, steps int) (*Profile, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: step count %d < 1", ErrInvalidTrajectory, steps)
	}
	if !target.Valid() {
		return nil, fmt.Errorf("%w: target %s outside [%g, %g]",
			ErrInvalidTrajectory, target, arm.MinAngleDeg, arm.MaxAngleDeg)
	}
	return &Profile{start: start, target: target, steps: steps}, nil
}

// Len returns the number of points in the sequence (steps + 1).
func (p *Profile) Len() int {
	return p.steps + 1
}

// At evaluates the profile at normalized time t in [0, 1].
func (p *Profile) At(t float64) arm.JointVector {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	s := Ease(t)
	var out arm.JointVector
	for i := range out {
		out[i] = p.start[i] + (p.target[i]-p.start[i])*s
	}
	return out
}

// Point returns sequence point i, for i in [0, Len()-1].
func (p *Profile) Point(i int) arm.JointVector {
	return p.At(float64(i) / float64(p.steps))
}

// Next returns the next point in the sequence. ok is false once the
// sequence is exhausted; Reset rewinds it.
func (p *Profile) Next() (arm.JointVector, bool) {
	if p.next > p.steps {
		return arm.JointVector{}, false
	}
	v := p.Point(p.next)
	p.next++
	return v, true
}

// Reset rewinds the iterator to the first point.
func (p *Profile) Reset() {
	p.next = 0
}

// Ease is the smoothstep S-curve 3t^2 - 2t^3. Its first derivative is zero
// at t=0 and t=1, which removes velocity discontinuities at the endpoints.
func Ease(t float64) float64 {
	return 3*t*t - 2*t*t*t
}
