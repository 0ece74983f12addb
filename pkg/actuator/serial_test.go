package actuator

import (
	"context"
	"errors"
	"testing"

	"github.com/dvelkov/go-grasp/pkg/arm"
)

func TestEncodeFrame(t *testing.T) {
	pose := arm.JointVector{23, 100, 140, 90, 12, 170}
	got := encodeFrame(pose)
	want := "<23,100,140,90,12,170>"
	if got != want {
		t.Errorf("encodeFrame: got %q, want %q", got, want)
	}
}

func TestEncodeFrame_Rounds(t *testing.T) {
	pose := arm.JointVector{22.6, 99.4, 140.5, 90, 12, 170}
	got := encodeFrame(pose)
	want := "<23,99,141,90,12,170>"
	if got != want {
		t.Errorf("encodeFrame: got %q, want %q", got, want)
	}
}

func TestSimArm_RecordsHistory(t *testing.T) {
	sim := NewSimArm(nil)
	ctx := context.Background()

	a := arm.JointVector{10, 20, 30, 40, 50, 60}
	b := arm.JointVector{11, 21, 31, 41, 51, 61}

	if err := sim.Send(ctx, a); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := sim.Send(ctx, b); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if sim.CommandCount() != 2 {
		t.Errorf("CommandCount: got %d, want 2", sim.CommandCount())
	}
	if sim.Current() != b {
		t.Errorf("Current: got %v, want %v", sim.Current(), b)
	}
	if hist := sim.History(); hist[0] != a {
		t.Errorf("History[0]: got %v, want %v", hist[0], a)
	}
}

func TestSimArm_FailNext(t *testing.T) {
	sim := NewSimArm(nil)
	boom := errors.New("boom")
	sim.FailNext(boom)

	err := sim.Send(context.Background(), arm.JointVector{})
	if !errors.Is(err, boom) {
		t.Errorf("Send: got %v, want injected error", err)
	}

	// Failure is one-shot.
	if err := sim.Send(context.Background(), arm.JointVector{}); err != nil {
		t.Errorf("second Send: got %v, want nil", err)
	}
	if sim.CommandCount() != 1 {
		t.Errorf("CommandCount: got %d, want 1", sim.CommandCount())
	}
}

func TestSimArm_Distance(t *testing.T) {
	sim := NewSimArm(func() float64 { return 33.5 })
	d, err := sim.ReadDistance(context.Background())
	if err != nil {
		t.Fatalf("ReadDistance: %v", err)
	}
	if d != 33.5 {
		t.Errorf("ReadDistance: got %v, want 33.5", d)
	}

	// Default reading when no function is configured.
	sim = NewSimArm(nil)
	d, _ = sim.ReadDistance(context.Background())
	if d != 25.0 {
		t.Errorf("default ReadDistance: got %v, want 25.0", d)
	}
}
