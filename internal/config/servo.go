package config

import (
	"github.com/dvelkov/go-grasp/pkg/safety"
	"github.com/dvelkov/go-grasp/pkg/servo"
)

// Limits converts the safety section into the policy type.
func (c SafetyConfig) Limits() safety.Limits {
	return safety.Limits{
		DeadzonePx:    c.DeadzonePx,
		GainSwitchPx:  c.GainSwitchPx,
		HighGain:      c.HighGain,
		LowGain:       c.LowGain,
		MinMoveDeg:    c.MinMoveDeg,
		CommitMoveDeg: c.CommitMoveDeg,
		MaxStepDeg:    c.MaxStepDeg,
		MaxReachCm:    c.MaxReachCm,
	}
}

// Controller assembles the controller's stage parameters from the loaded
// configuration. Fields the file does not expose keep their defaults.
func (c Config) Controller() servo.Config {
	out := servo.DefaultConfig()
	out.Limits = c.Safety.Limits()
	out.ConfidenceFloor = c.Camera.ConfidenceFloor
	out.PollInterval = c.Servo.PollInterval
	out.SweepStepDeg = c.Servo.SweepStepDeg
	out.SweepInterval = c.Servo.SweepInterval
	out.SearchTimeout = c.Servo.SearchTimeout
	out.StaleTimeout = c.Servo.StaleTimeout
	out.ReachTimeout = c.Servo.ReachTimeout
	out.SettleDelay = c.Servo.SettleDelay
	out.CenteredFrames = c.Servo.CenteredFrames
	out.ReachSteps = c.Servo.ReachSteps
	out.ReachDuration = c.Servo.ReachDuration
	out.GripperOpenDeg = c.Servo.GripperOpenDeg
	out.GripperCloseDeg = c.Servo.GripperCloseDeg
	out.LiftDeg = c.Servo.LiftDeg
	out.InvertX = c.Servo.InvertX
	return out
}
