// Package web exposes the grasp controller over HTTP: start/stop endpoints,
// a status snapshot and a live telemetry websocket.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/dvelkov/go-grasp/internal/log"
	"github.com/dvelkov/go-grasp/pkg/hub"
	"github.com/dvelkov/go-grasp/pkg/servo"
)

// Server wires the controller to fiber routes and fans its telemetry out
// over a websocket hub.
type Server struct {
	app        *fiber.App
	port       string
	controller *servo.Controller
	telemetry  *hub.Hub
}

// NewServer builds the HTTP surface around a controller.
func NewServer(port string, controller *servo.Controller) *Server {
	s := &Server{
		port:       port,
		controller: controller,
		telemetry:  hub.New("telemetry"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "graspd",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/grasp", s.handleGrasp)
	api.Post("/stop", s.handleStop)
	api.Get("/status", s.handleStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// Start runs the telemetry pumps and blocks serving HTTP.
func (s *Server) Start() error {
	go s.telemetry.Run()
	go s.pumpUpdates()

	log.Info("web interface listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server stopped", "err", err)
		}
	}()
}

// Shutdown stops the server and disconnects subscribers.
func (s *Server) Shutdown() error {
	s.telemetry.Stop()
	return s.app.Shutdown()
}

// pumpUpdates forwards controller status snapshots to the hub.
func (s *Server) pumpUpdates() {
	for st := range s.controller.Updates() {
		s.telemetry.Publish("status", st)
	}
}
