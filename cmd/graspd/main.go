// graspd runs the grasp controller against the real rig: webcam perception,
// serial actuator and the HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvelkov/go-grasp/internal/config"
	"github.com/dvelkov/go-grasp/internal/log"
	"github.com/dvelkov/go-grasp/pkg/actuator"
	"github.com/dvelkov/go-grasp/pkg/fuzzy"
	"github.com/dvelkov/go-grasp/pkg/perception"
	"github.com/dvelkov/go-grasp/pkg/reach"
	"github.com/dvelkov/go-grasp/pkg/servo"
	"github.com/dvelkov/go-grasp/pkg/web"
)

// fallbackGainDegPerPx is the proportional gain used when no trained fuzzy
// model is available. Deliberately conservative.
const fallbackGainDegPerPx = 0.05

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the YAML config")
	simArm := flag.Bool("sim-arm", false, "drive the in-memory arm simulator instead of the serial link")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graspd: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	// The reach engine is mandatory: there is no blind reach without it.
	reachModel, err := reach.Load(cfg.Models.ReachPath)
	if err != nil {
		log.Error("loading reach model", "err", err)
		os.Exit(1)
	}

	// The fuzzy engine degrades to proportional control when missing.
	var fuzzyModel *fuzzy.Model
	if m, err := fuzzy.Load(cfg.Models.FuzzyPath); err != nil {
		log.Warn("fuzzy model unavailable", "err", err)
	} else {
		fuzzyModel = m
	}
	engine := servo.SelectEngine(fuzzyModel, fallbackGainDegPerPx)

	var commander actuator.Commander
	if *simArm {
		log.Info("using simulated arm")
		commander = actuator.NewSimArm(nil)
	} else {
		serialArm, err := actuator.OpenSerial(actuator.SerialConfig{
			Port:        cfg.Serial.Port,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeout,
		})
		if err != nil {
			log.Error("opening serial link", "err", err)
			os.Exit(1)
		}
		log.Info("serial link open", "port", cfg.Serial.Port, "baud", cfg.Serial.Baud)
		commander = serialArm
	}
	defer commander.Close()

	yolo := perception.DefaultYOLOConfig()
	yolo.ModelPath = cfg.Camera.ModelPath
	yolo.ConfidenceThresh = float32(cfg.Camera.ConfidenceFloor)
	source, err := perception.NewCameraSource(perception.CameraConfig{
		Device:         cfg.Camera.Device,
		YOLO:           yolo,
		FocalLengthPx:  cfg.Camera.FocalLengthPx,
		ObjectWidthsCm: cfg.Camera.ObjectWidthsCm,
	})
	if err != nil {
		log.Error("opening camera", "err", err)
		os.Exit(1)
	}
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := source.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("perception loop stopped", "err", err)
		}
	}()

	controller := servo.New(cfg.Controller(), source, commander, engine, reachModel)
	server := web.NewServer(cfg.Web.Port, controller)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		controller.Stop()
		cancel()
		server.Shutdown()
	}()

	if err := server.Start(); err != nil {
		log.Error("web server", "err", err)
		os.Exit(1)
	}
}
