package fuzzy

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const tolerance = 1e-9

// fiveRuleModel spreads rule centers across the pixel-error domain the way
// the trained alignment model does.
func fiveRuleModel(t *testing.T) *Model {
	t.Helper()
	rules := []Rule{
		{Center: -400, Sigma: 200, Slope: 0.05, Intercept: -1.0},
		{Center: -200, Sigma: 200, Slope: 0.05, Intercept: -0.5},
		{Center: 0, Sigma: 200, Slope: 0.05, Intercept: 0},
		{Center: 200, Sigma: 200, Slope: 0.05, Intercept: 0.5},
		{Center: 400, Sigma: 200, Slope: 0.05, Intercept: 1.0},
	}
	m, err := NewModel(rules)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func TestInfer_SingleRuleReducesToConsequent(t *testing.T) {
	m, err := NewModel([]Rule{{Center: 0, Sigma: 100, Slope: 0.1, Intercept: 2}})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	// With one rule the normalized weight is 1 regardless of membership,
	// so the output is exactly the consequent.
	got, err := m.Infer(50)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	want := 0.1*50 + 2
	if math.Abs(got-want) > tolerance {
		t.Errorf("Infer(50): got %v, want %v", got, want)
	}
}

func TestInfer_ZeroAtCenterOfSymmetricModel(t *testing.T) {
	m := fiveRuleModel(t)

	got, err := m.Infer(0)
	if err != nil {
		t.Fatalf("Infer(0): %v", err)
	}
	// The model is antisymmetric around zero, so zero error yields zero correction.
	if math.Abs(got) > 1e-6 {
		t.Errorf("Infer(0): got %v, want ~0", got)
	}
}

func TestInfer_SignFollowsError(t *testing.T) {
	m := fiveRuleModel(t)

	pos, err := m.Infer(150)
	if err != nil {
		t.Fatalf("Infer(150): %v", err)
	}
	neg, err := m.Infer(-150)
	if err != nil {
		t.Fatalf("Infer(-150): %v", err)
	}

	if pos <= 0 {
		t.Errorf("positive error should give positive correction, got %v", pos)
	}
	if neg >= 0 {
		t.Errorf("negative error should give negative correction, got %v", neg)
	}
}

func TestInfer_FarOutsideSupport(t *testing.T) {
	// Narrow rules: at x=10000 every membership underflows to zero.
	m, err := NewModel([]Rule{
		{Center: -10, Sigma: 5, Slope: 0.1, Intercept: 0},
		{Center: 10, Sigma: 5, Slope: 0.1, Intercept: 0},
	})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	out, err := m.Infer(10000)
	if err == nil {
		// A bounded output is also acceptable; NaN or unbounded is not.
		if math.IsNaN(out) || math.IsInf(out, 0) {
			t.Fatalf("Infer(10000): non-finite output %v", out)
		}
		return
	}
	if !errors.Is(err, ErrOutOfDomain) {
		t.Errorf("Infer(10000): got %v, want ErrOutOfDomain", err)
	}
}

func TestInfer_NeverNaN(t *testing.T) {
	m := fiveRuleModel(t)
	for _, x := range []float64{-1e6, -400, -20, 0, 20, 400, 1e6} {
		out, err := m.Infer(x)
		if err != nil {
			if !errors.Is(err, ErrOutOfDomain) {
				t.Errorf("Infer(%v): unexpected error %v", x, err)
			}
			continue
		}
		if math.IsNaN(out) || math.IsInf(out, 0) {
			t.Errorf("Infer(%v): non-finite output %v", x, out)
		}
	}
}

func TestNewModel_Validation(t *testing.T) {
	if _, err := NewModel(nil); err == nil {
		t.Error("empty rule set: want error, got nil")
	}
	if _, err := NewModel([]Rule{{Center: 0, Sigma: 0, Slope: 1}}); err == nil {
		t.Error("zero sigma: want error, got nil")
	}
	if _, err := NewModel([]Rule{{Center: 0, Sigma: -2, Slope: 1}}); err == nil {
		t.Error("negative sigma: want error, got nil")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuzzy_x.json")
	artifact := `{"rules":[
		{"center":-400,"sigma":200,"slope":0.04,"intercept":-0.8},
		{"center":0,"sigma":200,"slope":0.04,"intercept":0},
		{"center":400,"sigma":200,"slope":0.04,"intercept":0.8}
	]}`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.NumRules() != 3 {
		t.Errorf("NumRules: got %d, want 3", m.NumRules())
	}

	if _, err := m.Infer(100); err != nil {
		t.Errorf("Infer after Load: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing file: want error, got nil")
	}
}
