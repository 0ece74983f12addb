// simulate runs one full grasp session against the in-memory arm and a
// scripted detection stream: no camera, no serial port, no trained
// artifacts. Useful for exercising the whole pipeline on a laptop.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvelkov/go-grasp/internal/log"
	"github.com/dvelkov/go-grasp/pkg/actuator"
	"github.com/dvelkov/go-grasp/pkg/fuzzy"
	"github.com/dvelkov/go-grasp/pkg/perception"
	"github.com/dvelkov/go-grasp/pkg/reach"
	"github.com/dvelkov/go-grasp/pkg/servo"
)

func main() {
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()
	log.Init(*logLevel)

	source := perception.NewScriptSource(script())
	sim := actuator.NewSimArm(func() float64 { return 28 })

	controller := servo.New(simConfig(), source, sim, servo.SelectEngine(alignModel(), 0.05), reachModel())

	go func() {
		for st := range controller.Updates() {
			log.Debug("telemetry", "state", st.State,
				"correction", st.Telemetry.LastCorrection,
				"distance", st.Telemetry.LastDistance)
		}
	}()

	source.Start()
	if err := controller.Start("cup"); err != nil {
		log.Error("starting session", "err", err)
		os.Exit(1)
	}
	<-controller.Done()

	st := controller.Status()
	log.Info("session finished", "state", st.State)
	if st.Failure != nil {
		log.Error("session failed", "reason", st.Failure.Reason, "message", st.Failure.Message)
		os.Exit(1)
	}

	fmt.Printf("final pose: %s\n", sim.Current())
	fmt.Printf("commands issued: %d\n", sim.CommandCount())
}

// simConfig speeds the stage timing up for an interactive run.
func simConfig() servo.Config {
	cfg := servo.DefaultConfig()
	cfg.PollInterval = 20 * time.Millisecond
	cfg.SweepInterval = 100 * time.Millisecond
	cfg.SweepStepDeg = 5
	cfg.SearchTimeout = 30 * time.Second
	cfg.StaleTimeout = 2 * time.Second
	cfg.SettleDelay = 300 * time.Millisecond
	return cfg
}

// script stages a cup drifting into alignment: absent during the sweep,
// then a shrinking horizontal error, then three centered frames.
func script() []perception.ScriptFrame {
	errs := []float64{120, 60, 30, 10, 5, 0, 0, 0}

	frames := make([]perception.ScriptFrame, 0, len(errs))
	at := 1 * time.Second
	for _, e := range errs {
		frames = append(frames, perception.ScriptFrame{
			After:   at,
			Present: true,
			Det: perception.Detection{
				Label:      "cup",
				Confidence: 0.87,
				ErrorX:     e,
				ErrorY:     -15,
				DistanceCm: 30,
				Box:        perception.BoundingBox{X1: 290, Y1: 200, X2: 350, Y2: 280},
			},
		})
		at += 150 * time.Millisecond
	}
	return frames
}

// alignModel is a small symmetric rule set standing in for the trained
// artifact: corrections grow roughly linearly with pixel error.
func alignModel() *fuzzy.Model {
	m, err := fuzzy.NewModel([]fuzzy.Rule{
		{Center: -400, Sigma: 150, Slope: 0.05, Intercept: -2},
		{Center: -150, Sigma: 100, Slope: 0.05, Intercept: -1},
		{Center: 0, Sigma: 80, Slope: 0.05, Intercept: 0},
		{Center: 150, Sigma: 100, Slope: 0.05, Intercept: 1},
		{Center: 400, Sigma: 150, Slope: 0.05, Intercept: 2},
	})
	if err != nil {
		panic(err)
	}
	return m
}

// reachModel stands in for the trained regression artifact with a fixed
// plausible reach posture.
func reachModel() *reach.Model {
	m, err := reach.NewModel(
		[]reach.Layer{{
			Weights: [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
			Biases:  []float64{95, 110, 0},
		}},
		reach.Norm{Scale: [3]float64{1, 1, 1}},
		reach.Norm{Scale: [3]float64{1, 1, 1}},
	)
	if err != nil {
		panic(err)
	}
	return m
}
