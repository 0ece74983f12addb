package servo

import (
	"time"

	"github.com/google/uuid"
)

// State names the stage the controller is in.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateAligning  State = "aligning"
	StateCapturing State = "capturing_snapshot"
	StateReaching  State = "reaching"
	StateGrasping  State = "grasping"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}

// Snapshot is the frozen visual state captured once per grasp attempt,
// between alignment and the blind reach. It is never updated again for the
// attempt: re-reading it mid-reach would mean chasing sensing noise.
type Snapshot struct {
	ErrorY     float64 // vertical pixel error at capture time
	DistanceCm float64 // estimated distance at capture time
	BoxWidthPx float64 // bounding-box pixel width at capture time
	Valid      bool
}

// Session is one grasp attempt. It is owned and mutated exclusively by the
// controller's worker goroutine; external readers get copies via Status.
type Session struct {
	ID            uuid.UUID
	Target        string
	State         State
	AlignedBase   float64 // base angle locked in by alignment
	Snapshot      Snapshot
	StartTime     time.Time
	LastDetection time.Time
	Failure       *Failure
}

// newSession starts a session in the searching state.
func newSession(target string) *Session {
	return &Session{
		ID:        uuid.New(),
		Target:    target,
		State:     StateSearching,
		StartTime: time.Now(),
	}
}

// detectionAge returns how long ago the session last saw the target.
func (s *Session) detectionAge(now time.Time) time.Duration {
	if s.LastDetection.IsZero() {
		return now.Sub(s.StartTime)
	}
	return now.Sub(s.LastDetection)
}
