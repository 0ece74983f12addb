package servo

import (
	"errors"

	"github.com/dvelkov/go-grasp/internal/log"
	"github.com/dvelkov/go-grasp/pkg/fuzzy"
)

// ControlEngine maps a horizontal pixel error to a base-angle correction in
// degrees. The variant is selected once at startup, not per call.
type ControlEngine interface {
	// Name identifies the engine in telemetry.
	Name() string
	// Correct returns the raw correction before safety shaping.
	Correct(errPx float64) float64
}

// LearnedEngine runs the trained fuzzy model. An out-of-domain input is
// recovered locally with a zero correction for that cycle; it never fails
// the session.
type LearnedEngine struct {
	model *fuzzy.Model
}

// NewLearnedEngine wraps a loaded fuzzy model.
func NewLearnedEngine(model *fuzzy.Model) *LearnedEngine {
	return &LearnedEngine{model: model}
}

// Name implements ControlEngine.
func (e *LearnedEngine) Name() string { return "fuzzy" }

// Correct implements ControlEngine.
func (e *LearnedEngine) Correct(errPx float64) float64 {
	out, err := e.model.Infer(errPx)
	if err != nil {
		if errors.Is(err, fuzzy.ErrOutOfDomain) {
			log.Warn("fuzzy input outside trained domain, zero correction", "err_px", errPx)
			return 0
		}
		log.Error("fuzzy inference failed, zero correction", "err", err)
		return 0
	}
	return out
}

// ProportionalEngine is the fallback when no trained model is present: a
// plain linear step per pixel of error.
type ProportionalEngine struct {
	GainDegPerPx float64
}

// NewProportionalEngine builds the fallback engine.
func NewProportionalEngine(gainDegPerPx float64) *ProportionalEngine {
	return &ProportionalEngine{GainDegPerPx: gainDegPerPx}
}

// Name implements ControlEngine.
func (e *ProportionalEngine) Name() string { return "proportional" }

// Correct implements ControlEngine.
func (e *ProportionalEngine) Correct(errPx float64) float64 {
	return errPx * e.GainDegPerPx
}

// SelectEngine picks the learned engine when a model is available and the
// proportional fallback otherwise.
func SelectEngine(model *fuzzy.Model, fallbackGain float64) ControlEngine {
	if model != nil {
		return NewLearnedEngine(model)
	}
	log.Warn("no trained fuzzy model, using proportional fallback", "gain", fallbackGain)
	return NewProportionalEngine(fallbackGain)
}
