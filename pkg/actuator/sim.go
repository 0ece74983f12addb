package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/dvelkov/go-grasp/pkg/arm"
)

// SimArm is an in-memory Commander for bench-less runs and tests. It
// records every commanded pose and answers distance queries from a
// caller-supplied function.
type SimArm struct {
	mu       sync.Mutex
	history  []arm.JointVector
	current  arm.JointVector
	distance func() float64
	delay    time.Duration
	sendErr  error
}

// NewSimArm creates a simulator. distance may be nil, in which case
// readings default to 25cm.
func NewSimArm(distance func() float64) *SimArm {
	return &SimArm{distance: distance}
}

// SetDelay makes every Send take the given time, simulating travel.
func (s *SimArm) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// FailNext makes the next Send return err once.
func (s *SimArm) FailNext(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

// Send records the pose.
func (s *SimArm) Send(ctx context.Context, pose arm.JointVector) error {
	s.mu.Lock()
	delay := s.delay
	if s.sendErr != nil {
		err := s.sendErr
		s.sendErr = nil
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	s.history = append(s.history, pose)
	s.current = pose
	s.mu.Unlock()
	return nil
}

// ReadDistance answers from the configured distance function.
func (s *SimArm) ReadDistance(ctx context.Context) (float64, error) {
	if s.distance == nil {
		return 25.0, nil
	}
	return s.distance(), nil
}

// Close is a no-op.
func (s *SimArm) Close() error {
	return nil
}

// Current returns the last commanded pose.
func (s *SimArm) Current() arm.JointVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// History returns a copy of all commanded poses in order.
func (s *SimArm) History() []arm.JointVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]arm.JointVector, len(s.history))
	copy(out, s.history)
	return out
}

// CommandCount returns how many poses have been commanded.
func (s *SimArm) CommandCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
