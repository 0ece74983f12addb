// Package reach implements the regression reach engine: a small trained
// feed-forward network that predicts the blind-reach joint targets from a
// single captured visual snapshot.
//
// Inputs are [vertical pixel error, estimated distance cm, bounding-box
// pixel width]; outputs are [shoulder target, elbow target, base
// correction], all in degrees. The engine is invoked exactly once per grasp
// attempt so per-frame jitter never steers the reach.
package reach

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// NumFeatures is the fixed width of the input and output vectors.
const NumFeatures = 3

// Layer is one dense affine transform: out = W*in + b.
// Weights is row-major: Weights[i] holds the input weights of output i.
type Layer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// Norm holds per-feature normalization statistics.
type Norm struct {
	Mean  [NumFeatures]float64 `json:"mean"`
	Scale [NumFeatures]float64 `json:"scale"`
}

// Model is an immutable trained network plus its paired input/output
// normalization statistics.
type Model struct {
	layers []Layer
	input  Norm
	output Norm
}

// NewModel validates layer shapes and normalization stats.
func NewModel(layers []Layer, input, output Norm) (*Model, error) {
	if len(layers) == 0 {
		return nil, errors.New("reach: model has no layers")
	}

	width := NumFeatures
	for li, l := range layers {
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Biases) {
			return nil, fmt.Errorf("reach: layer %d has %d weight rows but %d biases",
				li, len(l.Weights), len(l.Biases))
		}
		for ri, row := range l.Weights {
			if len(row) != width {
				return nil, fmt.Errorf("reach: layer %d row %d has width %d, want %d",
					li, ri, len(row), width)
			}
		}
		width = len(l.Weights)
	}
	if width != NumFeatures {
		return nil, fmt.Errorf("reach: final layer width %d, want %d", width, NumFeatures)
	}

	for i := 0; i < NumFeatures; i++ {
		if input.Scale[i] == 0 || output.Scale[i] == 0 {
			return nil, fmt.Errorf("reach: zero normalization scale for feature %d", i)
		}
	}

	out := make([]Layer, len(layers))
	copy(out, layers)
	return &Model{layers: out, input: input, output: output}, nil
}

// Load reads a trained model from a JSON weight file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reach: read model %s: %w", path, err)
	}
	var artifact struct {
		Layers []Layer `json:"layers"`
		Input  Norm    `json:"input_norm"`
		Output Norm    `json:"output_norm"`
	}
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("reach: parse model %s: %w", path, err)
	}
	return NewModel(artifact.Layers, artifact.Input, artifact.Output)
}

// NumLayers returns the layer count.
func (m *Model) NumLayers() int {
	return len(m.layers)
}

// Predict runs one stateless forward pass: normalize, dense layers with
// ReLU on every hidden layer and a linear final layer, then de-normalize.
func (m *Model) Predict(features [NumFeatures]float64) ([NumFeatures]float64, error) {
	x := make([]float64, NumFeatures)
	for i := range features {
		x[i] = (features[i] - m.input.Mean[i]) / m.input.Scale[i]
	}

	for li, l := range m.layers {
		y := make([]float64, len(l.Weights))
		for i, row := range l.Weights {
			sum := l.Biases[i]
			for j, w := range row {
				sum += w * x[j]
			}
			if li < len(m.layers)-1 && sum < 0 {
				sum = 0 // ReLU on hidden layers only
			}
			y[i] = sum
		}
		x = y
	}

	var out [NumFeatures]float64
	for i := range out {
		out[i] = x[i]*m.output.Scale[i] + m.output.Mean[i]
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return out, fmt.Errorf("reach: non-finite output %d for features %v", i, features)
		}
	}
	return out, nil
}
