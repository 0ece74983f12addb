package perception

import (
	"math"
	"testing"
	"time"
)

const tolerance = 1e-9

func TestEstimateDistance(t *testing.T) {
	// 4cm object at focal 1424px with 211px width is ~27cm (the
	// calibration case for the bench camera).
	got := EstimateDistance(1424, 4.0, 211)
	if math.Abs(got-27.0) > 0.1 {
		t.Errorf("EstimateDistance: got %v, want ~27.0", got)
	}

	if got := EstimateDistance(1424, 4.0, 0); got != -1 {
		t.Errorf("zero pixel width: got %v, want -1", got)
	}
	if got := EstimateDistance(1424, 0, 100); got != -1 {
		t.Errorf("unknown object width: got %v, want -1", got)
	}
}

func TestPixelErrors(t *testing.T) {
	// Object at frame center: zero error.
	errX, errY := PixelErrors(1280, 720, 640, 360)
	if errX != 0 || errY != 0 {
		t.Errorf("centered object: got (%v, %v), want (0, 0)", errX, errY)
	}

	// Object right of center: negative X error.
	errX, _ = PixelErrors(1280, 720, 900, 360)
	if errX >= 0 {
		t.Errorf("object right of center: got errX %v, want negative", errX)
	}

	// Object above center: positive Y error.
	_, errY = PixelErrors(1280, 720, 640, 100)
	if errY <= 0 {
		t.Errorf("object above center: got errY %v, want positive", errY)
	}
}

func TestBoundingBox(t *testing.T) {
	b := BoundingBox{X1: 100, Y1: 50, X2: 300, Y2: 250}
	if !floatEquals(b.Width(), 200) {
		t.Errorf("Width: got %v, want 200", b.Width())
	}
	if !floatEquals(b.Height(), 200) {
		t.Errorf("Height: got %v, want 200", b.Height())
	}
}

func TestBestMatch(t *testing.T) {
	raws := []rawDetection{
		{Label: "cup", Confidence: 0.9},
		{Label: "bottle", Confidence: 0.6},
		{Label: "bottle", Confidence: 0.8},
	}

	best, ok := bestMatch(raws, "bottle")
	if !ok {
		t.Fatal("bestMatch: bottle not found")
	}
	if best.Confidence != 0.8 {
		t.Errorf("bestMatch: got confidence %v, want 0.8", best.Confidence)
	}

	if _, ok := bestMatch(raws, "banana"); ok {
		t.Error("bestMatch: found a label that is not present")
	}
}

func TestScriptSource(t *testing.T) {
	det := Detection{Label: "bottle", ErrorX: 45, Confidence: 0.9}
	s := NewScriptSource([]ScriptFrame{
		{After: 0, Present: false},
		{After: 30 * time.Millisecond, Det: det, Present: true},
	})

	// Not started: nothing visible.
	if _, ok := s.Latest(); ok {
		t.Error("unstarted script reported a detection")
	}

	s.Start()
	if _, ok := s.Latest(); ok {
		t.Error("frame 0 is absent but a detection was reported")
	}

	time.Sleep(50 * time.Millisecond)
	got, ok := s.Latest()
	if !ok {
		t.Fatal("frame 1 should be active")
	}
	if got.Label != "bottle" || got.ErrorX != 45 {
		t.Errorf("got %+v, want scripted detection", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("scripted detection has no timestamp")
	}
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}
