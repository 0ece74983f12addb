package safety

import (
	"errors"
	"testing"
)

func TestInDeadzone(t *testing.T) {
	l := DefaultLimits() // deadzone 20px

	cases := []struct {
		errPx float64
		want  bool
	}{
		{0, true},
		{15, true},
		{-15, true},
		{19.9, true},
		{20, false},
		{-45, false},
	}
	for _, c := range cases {
		if got := l.InDeadzone(c.errPx); got != c.want {
			t.Errorf("InDeadzone(%v): got %v, want %v", c.errPx, got, c.want)
		}
	}
}

func TestGain_AdaptiveSwitch(t *testing.T) {
	l := DefaultLimits() // switch at 80px

	if got := l.Gain(200); got != l.HighGain {
		t.Errorf("Gain(200): got %v, want high gain %v", got, l.HighGain)
	}
	if got := l.Gain(-200); got != l.HighGain {
		t.Errorf("Gain(-200): got %v, want high gain %v", got, l.HighGain)
	}
	if got := l.Gain(40); got != l.LowGain {
		t.Errorf("Gain(40): got %v, want low gain %v", got, l.LowGain)
	}
	if got := l.Gain(80); got != l.HighGain {
		t.Errorf("Gain(80): boundary should use high gain, got %v", got)
	}
}

func TestShapeStep(t *testing.T) {
	l := Limits{MinMoveDeg: 1.0, CommitMoveDeg: 1.0, MaxStepDeg: 30}

	// Below the minimum move the step is noise and suppressed entirely.
	if got := l.ShapeStep(0.3); got != 0 {
		t.Errorf("ShapeStep(0.3): got %v, want 0", got)
	}
	if got := l.ShapeStep(-0.3); got != 0 {
		t.Errorf("ShapeStep(-0.3): got %v, want 0", got)
	}

	// At or above the minimum the step commits at exactly the commit move.
	if got := l.ShapeStep(1.0); got != 1.0 {
		t.Errorf("ShapeStep(1.0): got %v, want 1.0", got)
	}
	if got := l.ShapeStep(-1.0); got != -1.0 {
		t.Errorf("ShapeStep(-1.0): got %v, want -1.0", got)
	}
}

func TestShapeStep_CommitBoost(t *testing.T) {
	l := Limits{MinMoveDeg: 0.5, CommitMoveDeg: 1.5, MaxStepDeg: 30}

	// Between min and commit the step is boosted up to the commit move.
	if got := l.ShapeStep(0.8); got != 1.5 {
		t.Errorf("ShapeStep(0.8): got %v, want 1.5", got)
	}
	if got := l.ShapeStep(-0.8); got != -1.5 {
		t.Errorf("ShapeStep(-0.8): got %v, want -1.5", got)
	}

	// Above commit the step passes through unchanged.
	if got := l.ShapeStep(5); got != 5 {
		t.Errorf("ShapeStep(5): got %v, want 5", got)
	}
}

func TestShapeStep_MaxBound(t *testing.T) {
	l := DefaultLimits() // max 30 degrees

	if got := l.ShapeStep(120); got != 30 {
		t.Errorf("ShapeStep(120): got %v, want 30", got)
	}
	if got := l.ShapeStep(-120); got != -30 {
		t.Errorf("ShapeStep(-120): got %v, want -30", got)
	}
}

func TestCheckReach(t *testing.T) {
	l := DefaultLimits() // 40cm max

	if err := l.CheckReach(25); err != nil {
		t.Errorf("CheckReach(25): got %v, want nil", err)
	}
	if err := l.CheckReach(40); err != nil {
		t.Errorf("CheckReach(40): boundary should be reachable, got %v", err)
	}

	err := l.CheckReach(60)
	if !errors.Is(err, ErrOutOfReach) {
		t.Errorf("CheckReach(60): got %v, want ErrOutOfReach", err)
	}
}

func TestClampAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-10, 0},
		{0, 0},
		{90, 90},
		{180, 180},
		{210, 180},
	}
	for _, c := range cases {
		if got := ClampAngle(c.in); got != c.want {
			t.Errorf("ClampAngle(%v): got %v, want %v", c.in, got, c.want)
		}
	}
}
