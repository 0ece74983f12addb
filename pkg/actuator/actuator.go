// Package actuator talks to the physical arm. The servo controller only
// depends on the Commander interface; the serial driver and the simulator
// are interchangeable behind it.
package actuator

import (
	"context"

	"github.com/dvelkov/go-grasp/pkg/arm"
)

// Commander accepts joint vectors and returns distance readings. Both calls
// may block briefly on the transport but are bounded by the context or the
// driver's own read timeout — never indefinitely.
type Commander interface {
	// Send transmits a full joint vector in wire order and waits for the
	// firmware acknowledgment.
	Send(ctx context.Context, pose arm.JointVector) error

	// ReadDistance queries the arm-mounted range sensor, in centimeters.
	ReadDistance(ctx context.Context) (float64, error)

	// Close releases the transport.
	Close() error
}
