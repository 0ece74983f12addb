// Package fuzzy implements the neuro-fuzzy correction engine used during
// alignment. A trained model maps a scalar pixel error to a scalar angular
// correction through a fixed five-stage Takagi-Sugeno pipeline: Gaussian
// fuzzification, firing strength, normalization, linear consequents and
// weighted aggregation.
package fuzzy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// ErrOutOfDomain is returned when the input lies so far outside every rule's
// support that the normalization denominator vanishes. Callers recover by
// substituting a zero correction for that cycle.
var ErrOutOfDomain = errors.New("fuzzy: input outside trained domain")

// firingFloor is the smallest total firing strength still considered
// numerically meaningful.
const firingFloor = 1e-12

// Rule is a single fuzzy rule: a Gaussian membership over the input domain
// and a linear consequent f(x) = Slope*x + Intercept.
type Rule struct {
	Center    float64 `json:"center"`
	Sigma     float64 `json:"sigma"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Model is an immutable set of trained rules.
type Model struct {
	rules []Rule
}

// NewModel validates the rule set and wraps it in a Model.
func NewModel(rules []Rule) (*Model, error) {
	if len(rules) == 0 {
		return nil, errors.New("fuzzy: model has no rules")
	}
	for i, r := range rules {
		if r.Sigma <= 0 || math.IsNaN(r.Sigma) {
			return nil, fmt.Errorf("fuzzy: rule %d has non-positive sigma %v", i, r.Sigma)
		}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &Model{rules: out}, nil
}

// Load reads a trained model from a JSON weight file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fuzzy: read model %s: %w", path, err)
	}
	var artifact struct {
		Rules []Rule `json:"rules"`
	}
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("fuzzy: parse model %s: %w", path, err)
	}
	return NewModel(artifact.Rules)
}

// NumRules returns the rule count.
func (m *Model) NumRules() int {
	return len(m.rules)
}

// Infer evaluates the pipeline for a single scalar input. It is stateless:
// nothing is retained between calls.
func (m *Model) Infer(x float64) (float64, error) {
	// Stage 1+2: Gaussian membership. With a single antecedent per rule the
	// firing strength equals the membership degree.
	firing := make([]float64, len(m.rules))
	var total float64
	for i, r := range m.rules {
		d := (x - r.Center) / r.Sigma
		firing[i] = math.Exp(-0.5 * d * d)
		total += firing[i]
	}

	// Stage 3: normalization. A vanishing denominator means x is far outside
	// every rule's support; dividing would amplify noise into garbage.
	if total < firingFloor {
		return 0, fmt.Errorf("%w: x=%g", ErrOutOfDomain, x)
	}

	// Stage 4+5: linear consequents, aggregated by normalized firing strength.
	var out float64
	for i, r := range m.rules {
		out += (firing[i] / total) * (r.Slope*x + r.Intercept)
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("%w: non-finite output for x=%g", ErrOutOfDomain, x)
	}
	return out, nil
}
