// Package config provides configuration loading for go-grasp commands.
// Values come from a YAML file with environment overrides for the bits
// that change between benches (serial device, web port).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root structure loaded from configs/config.yml.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Serial   SerialConfig `yaml:"serial"`
	Camera   CameraConfig `yaml:"camera"`
	Models   ModelConfig  `yaml:"models"`
	Safety   SafetyConfig `yaml:"safety"`
	Servo    ServoConfig  `yaml:"servo"`
	Web      WebConfig    `yaml:"web"`
}

// SerialConfig describes the actuator serial link.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// CameraConfig describes the camera and detector used by the perception source.
type CameraConfig struct {
	Device          int                `yaml:"device"`
	ModelPath       string             `yaml:"model_path"`
	FocalLengthPx   float64            `yaml:"focal_length_px"`
	ObjectWidthsCm  map[string]float64 `yaml:"object_widths_cm"`
	ConfidenceFloor float64            `yaml:"confidence_floor"`
}

// ModelConfig points at the trained weight artifacts.
type ModelConfig struct {
	FuzzyPath string `yaml:"fuzzy_path"`
	ReachPath string `yaml:"reach_path"`
}

// SafetyConfig carries the safety-policy limits.
type SafetyConfig struct {
	DeadzonePx    float64 `yaml:"deadzone_px"`
	GainSwitchPx  float64 `yaml:"gain_switch_px"`
	HighGain      float64 `yaml:"high_gain"`
	LowGain       float64 `yaml:"low_gain"`
	MinMoveDeg    float64 `yaml:"min_move_deg"`
	CommitMoveDeg float64 `yaml:"commit_move_deg"`
	MaxStepDeg    float64 `yaml:"max_step_deg"`
	MaxReachCm    float64 `yaml:"max_reach_cm"`
}

// ServoConfig carries the controller stage parameters.
type ServoConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	SweepStepDeg    float64       `yaml:"sweep_step_deg"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	SearchTimeout   time.Duration `yaml:"search_timeout"`
	StaleTimeout    time.Duration `yaml:"stale_timeout"`
	ReachTimeout    time.Duration `yaml:"reach_timeout"`
	CenteredFrames  int           `yaml:"centered_frames"`
	ReachSteps      int           `yaml:"reach_steps"`
	ReachDuration   time.Duration `yaml:"reach_duration"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	GripperOpenDeg  float64       `yaml:"gripper_open_deg"`
	GripperCloseDeg float64       `yaml:"gripper_close_deg"`
	LiftDeg         float64       `yaml:"lift_deg"`
	InvertX         bool          `yaml:"invert_x"`
}

// WebConfig describes the HTTP control surface.
type WebConfig struct {
	Port string `yaml:"port"`
}

// Default returns the bench-calibrated defaults. These mirror the physical
// rig: 40cm max grab reach, Logitech C270 focal length, 20px deadzone.
func Default() Config {
	return Config{
		LogLevel: "info",
		Serial: SerialConfig{
			Port:        "/dev/ttyUSB0",
			Baud:        9600,
			ReadTimeout: 2 * time.Second,
		},
		Camera: CameraConfig{
			Device:        0,
			ModelPath:     "models/yolov8n.onnx",
			FocalLengthPx: 1424,
			ObjectWidthsCm: map[string]float64{
				"bottle": 6.0,
				"cup":    8.0,
				"cube":   4.0,
			},
			ConfidenceFloor: 0.5,
		},
		Models: ModelConfig{
			FuzzyPath: "models/fuzzy_x.json",
			ReachPath: "models/reach.json",
		},
		Safety: SafetyConfig{
			DeadzonePx:    20,
			GainSwitchPx:  80,
			HighGain:      1.0,
			LowGain:       0.5,
			MinMoveDeg:    0.5,
			CommitMoveDeg: 1.0,
			MaxStepDeg:    30,
			MaxReachCm:    40,
		},
		Servo: ServoConfig{
			PollInterval:    50 * time.Millisecond,
			SweepStepDeg:    1.0,
			SweepInterval:   300 * time.Millisecond,
			SearchTimeout:   60 * time.Second,
			StaleTimeout:    3 * time.Second,
			ReachTimeout:    15 * time.Second,
			CenteredFrames:  3,
			ReachSteps:      30,
			ReachDuration:   2 * time.Second,
			SettleDelay:     800 * time.Millisecond,
			GripperOpenDeg:  170,
			GripperCloseDeg: 90,
			LiftDeg:         20,
			InvertX:         false,
		},
		Web: WebConfig{Port: "8090"},
	}
}

// Load reads the YAML file at path on top of the defaults.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides the per-bench settings from the environment.
func applyEnv(cfg *Config) {
	if port := os.Getenv("GRASP_SERIAL_PORT"); port != "" {
		cfg.Serial.Port = port
	}
	if port := os.Getenv("GRASP_WEB_PORT"); port != "" {
		cfg.Web.Port = port
	}
	if lvl := os.Getenv("GRASP_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
}
