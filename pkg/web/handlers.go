package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/dvelkov/go-grasp/pkg/hub"
	"github.com/dvelkov/go-grasp/pkg/servo"
)

// GraspRequest starts a grasp attempt for a labeled object.
type GraspRequest struct {
	Label string `json:"label"`
}

// handleGrasp starts a session. 409 while one is already active.
func (s *Server) handleGrasp(c *fiber.Ctx) error {
	var req GraspRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "label is required",
		})
	}

	if err := s.controller.Start(req.Label); err != nil {
		if errors.Is(err, servo.ErrBusy) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(s.controller.Status())
}

// handleStop cancels the active session. Idempotent.
func (s *Server) handleStop(c *fiber.Ctx) error {
	s.controller.Stop()
	return c.JSON(s.controller.Status())
}

// handleStatus returns the current controller snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.controller.Status())
}

// handleTelemetryWS streams status events. The current snapshot is sent
// first so subscribers never start blind.
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	c.WriteJSON(hub.Event{Type: "status", Payload: s.controller.Status()})

	client := hub.NewClient(s.telemetry, c)
	client.Run()
}
