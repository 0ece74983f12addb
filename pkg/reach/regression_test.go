package reach

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const tolerance = 1e-9

// identityModel returns a 3->3 single-layer model whose network is the
// identity, so the prediction is determined by the normalization alone.
func identityModel(t *testing.T, input, output Norm) *Model {
	t.Helper()
	layer := Layer{
		Weights: [][]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
		Biases: []float64{0, 0, 0},
	}
	m, err := NewModel([]Layer{layer}, input, output)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func unitNorm() Norm {
	return Norm{Mean: [3]float64{0, 0, 0}, Scale: [3]float64{1, 1, 1}}
}

func TestPredict_Identity(t *testing.T) {
	m := identityModel(t, unitNorm(), unitNorm())

	in := [3]float64{12, -7, 3.5}
	out, err := m.Predict(in)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > tolerance {
			t.Errorf("out[%d]: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestPredict_NormalizationRoundTrip(t *testing.T) {
	// Feeding the stored input means must normalize to zero, pass through a
	// zero-weight network unchanged, and de-normalize to the output means.
	input := Norm{Mean: [3]float64{-40, 25, 180}, Scale: [3]float64{200, 15, 120}}
	output := Norm{Mean: [3]float64{70, 115, 0}, Scale: [3]float64{35, 25, 45}}

	zero := Layer{
		Weights: [][]float64{
			{0, 0, 0},
			{0, 0, 0},
			{0, 0, 0},
		},
		Biases: []float64{0, 0, 0},
	}
	m, err := NewModel([]Layer{zero}, input, output)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	out, err := m.Predict(input.Mean)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := range out {
		if math.Abs(out[i]-output.Mean[i]) > 1e-6 {
			t.Errorf("out[%d]: got %v, want output mean %v", i, out[i], output.Mean[i])
		}
	}
}

func TestPredict_ReLUOnHiddenLayersOnly(t *testing.T) {
	// Hidden layer drives all units negative; ReLU must zero them, so the
	// final layer sees zeros and emits its biases. The final layer itself is
	// linear: a negative bias must survive.
	hidden := Layer{
		Weights: [][]float64{
			{1, 0, 0},
			{0, 1, 0},
		},
		Biases: []float64{-100, -100},
	}
	final := Layer{
		Weights: [][]float64{
			{1, 0},
			{0, 1},
			{1, 1},
		},
		Biases: []float64{-5, 2, 0},
	}
	m, err := NewModel([]Layer{hidden, final}, unitNorm(), unitNorm())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	out, err := m.Predict([3]float64{1, 1, 1})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := [3]float64{-5, 2, 0}
	for i := range out {
		if math.Abs(out[i]-want[i]) > tolerance {
			t.Errorf("out[%d]: got %v, want %v", i, out[i], want[i])
		}
	}
}

func TestNewModel_ShapeValidation(t *testing.T) {
	good := Layer{
		Weights: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Biases:  []float64{0, 0, 0},
	}

	// Row width mismatch.
	bad := Layer{
		Weights: [][]float64{{1, 0}, {0, 1}, {0, 0}},
		Biases:  []float64{0, 0, 0},
	}
	if _, err := NewModel([]Layer{bad}, unitNorm(), unitNorm()); err == nil {
		t.Error("row width mismatch: want error, got nil")
	}

	// Bias count mismatch.
	bad = Layer{
		Weights: [][]float64{{1, 0, 0}, {0, 1, 0}},
		Biases:  []float64{0},
	}
	if _, err := NewModel([]Layer{bad}, unitNorm(), unitNorm()); err == nil {
		t.Error("bias count mismatch: want error, got nil")
	}

	// Final layer must be three-wide.
	narrow := Layer{
		Weights: [][]float64{{1, 0, 0}},
		Biases:  []float64{0},
	}
	if _, err := NewModel([]Layer{narrow}, unitNorm(), unitNorm()); err == nil {
		t.Error("narrow final layer: want error, got nil")
	}

	// Zero normalization scale.
	zeroScale := unitNorm()
	zeroScale.Scale[1] = 0
	if _, err := NewModel([]Layer{good}, zeroScale, unitNorm()); err == nil {
		t.Error("zero input scale: want error, got nil")
	}

	if _, err := NewModel(nil, unitNorm(), unitNorm()); err == nil {
		t.Error("no layers: want error, got nil")
	}
}

func TestLoad_Artifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reach.json")
	artifact := `{
		"layers": [
			{"weights": [[0.1,0,0],[0,0.1,0]], "biases": [0.5,0.5]},
			{"weights": [[1,0],[0,1],[1,1]], "biases": [0,0,0]}
		],
		"input_norm":  {"mean": [0,25,150], "scale": [200,15,100]},
		"output_norm": {"mean": [70,115,0], "scale": [35,25,45]}
	}`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.NumLayers() != 2 {
		t.Errorf("NumLayers: got %d, want 2", m.NumLayers())
	}
	if _, err := m.Predict([3]float64{-30, 22, 140}); err != nil {
		t.Errorf("Predict after Load: %v", err)
	}
}
