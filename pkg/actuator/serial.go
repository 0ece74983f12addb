package actuator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	serial "go.bug.st/serial"

	"github.com/dvelkov/go-grasp/pkg/arm"
)

// Wire protocol, matching the arm firmware:
//
//	host -> arm: "<base,shoulder,elbow,pitch,roll,gripper>\n"  (integer degrees)
//	host -> arm: "<D?>\n"                                      (distance query)
//	arm -> host: "OK\n"                                        (command acknowledged)
//	arm -> host: "D <cm>\n"                                    (distance reply)
//	arm -> host: "ERR <msg>\n"                                 (command rejected)
const distanceQuery = "<D?>"

// ErrNak is returned when the firmware rejects a command.
var ErrNak = errors.New("actuator: command rejected")

// SerialConfig configures the serial driver.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration // per-reply bound; 0 means 2s
}

// SerialArm drives the arm over a serial link. It is not safe for
// concurrent use; the servo controller is the single writer by design.
type SerialArm struct {
	port    serial.Port
	reader  *bufio.Reader
	timeout time.Duration
}

// OpenSerial opens the serial port and wraps it in a SerialArm.
func OpenSerial(cfg SerialConfig) (*SerialArm, error) {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("actuator: open serial %s: %w", cfg.Port, err)
	}
	return &SerialArm{
		port:    port,
		reader:  bufio.NewReader(port),
		timeout: cfg.ReadTimeout,
	}, nil
}

// Send transmits the pose and waits for the acknowledgment line.
func (s *SerialArm) Send(ctx context.Context, pose arm.JointVector) error {
	frame := encodeFrame(pose)
	if _, err := s.port.Write([]byte(frame + "\n")); err != nil {
		return fmt.Errorf("actuator: write command: %w", err)
	}

	line, err := s.readLine(ctx)
	if err != nil {
		return err
	}
	switch {
	case line == "OK":
		return nil
	case strings.HasPrefix(line, "ERR"):
		return fmt.Errorf("%w: %s", ErrNak, line)
	default:
		return fmt.Errorf("actuator: unexpected reply %q", line)
	}
}

// ReadDistance queries the arm-mounted range sensor.
func (s *SerialArm) ReadDistance(ctx context.Context) (float64, error) {
	if _, err := s.port.Write([]byte(distanceQuery + "\n")); err != nil {
		return 0, fmt.Errorf("actuator: write distance query: %w", err)
	}

	line, err := s.readLine(ctx)
	if err != nil {
		return 0, err
	}
	rest, ok := strings.CutPrefix(line, "D ")
	if !ok {
		return 0, fmt.Errorf("actuator: unexpected distance reply %q", line)
	}
	cm, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return 0, fmt.Errorf("actuator: parse distance %q: %w", line, err)
	}
	return cm, nil
}

// Close closes the serial port.
func (s *SerialArm) Close() error {
	return s.port.Close()
}

// readLine reads one reply line, bounded by both the driver timeout and the
// caller's context.
func (s *SerialArm) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.reader.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("actuator: read reply: %w", res.err)
		}
		return strings.TrimSpace(res.line), nil
	case <-time.After(s.timeout):
		return "", errors.New("actuator: reply timeout")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// encodeFrame renders a pose as the firmware command frame. The firmware
// takes integer degrees; rounding happens here, after all clamping.
func encodeFrame(pose arm.JointVector) string {
	var b strings.Builder
	b.WriteByte('<')
	for i, a := range pose {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(a + 0.5)))
	}
	b.WriteByte('>')
	return b.String()
}
