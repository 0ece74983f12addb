// Package arm defines the joint-space types shared by the motion profiler,
// the safety policy and the servo controller.
package arm

import "fmt"

// Joint indices into a JointVector. The wire order is fixed: the actuator
// firmware expects exactly this sequence.
const (
	Base = iota
	Shoulder
	Elbow
	WristPitch
	WristRoll
	Gripper
	NumJoints
)

// Servo travel limits (degrees). Every command is clamped to this range
// before transmission.
const (
	MinAngleDeg = 0.0
	MaxAngleDeg = 180.0
)

// jointNames is indexed by the joint constants above.
var jointNames = [NumJoints]string{
	"base", "shoulder", "elbow", "wrist_pitch", "wrist_roll", "gripper",
}

// JointName returns the human-readable name for a joint index.
func JointName(i int) string {
	if i < 0 || i >= NumJoints {
		return fmt.Sprintf("joint%d", i)
	}
	return jointNames[i]
}

// JointVector is an ordered set of six joint angles in degrees.
// It is a value type; methods return new vectors and never mutate.
type JointVector [NumJoints]float64

// Clamp returns a new JointVector with every angle restricted to [0, 180].
func (v JointVector) Clamp() JointVector {
	var out JointVector
	for i, a := range v {
		out[i] = clamp(a, MinAngleDeg, MaxAngleDeg)
	}
	return out
}

// Valid reports whether every angle already lies within [0, 180].
func (v JointVector) Valid() bool {
	for _, a := range v {
		if a < MinAngleDeg || a > MaxAngleDeg {
			return false
		}
	}
	return true
}

// With returns a copy of v with joint i set to angle.
func (v JointVector) With(i int, angle float64) JointVector {
	out := v
	out[i] = angle
	return out
}

// Sub returns the per-joint difference v - other.
func (v JointVector) Sub(other JointVector) JointVector {
	var out JointVector
	for i := range v {
		out[i] = v[i] - other[i]
	}
	return out
}

// MaxDelta returns the largest absolute per-joint difference between v and other.
func (v JointVector) MaxDelta(other JointVector) float64 {
	var maxD float64
	for i := range v {
		if d := abs(v[i] - other[i]); d > maxD {
			maxD = d
		}
	}
	return maxD
}

// String renders the vector in wire order for logs.
func (v JointVector) String() string {
	return fmt.Sprintf("[B:%.1f S:%.1f E:%.1f P:%.1f R:%.1f G:%.1f]",
		v[Base], v[Shoulder], v[Elbow], v[WristPitch], v[WristRoll], v[Gripper])
}

// clamp restricts x to the range [min, max].
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
