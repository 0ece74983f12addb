package perception

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/dvelkov/go-grasp/internal/log"
)

// CameraConfig configures a CameraSource.
type CameraConfig struct {
	Device         int                // V4L device index
	YOLO           YOLOConfig         // detector configuration
	FocalLengthPx  float64            // calibrated focal length
	ObjectWidthsCm map[string]float64 // known real-world widths per label
}

// CameraSource grabs frames from a webcam, runs the object detector and
// publishes the most recent detection of the selected target label. It
// satisfies Source; readers never block the capture loop.
type CameraSource struct {
	cfg      CameraConfig
	capture  *gocv.VideoCapture
	detector *yoloDetector

	mu     sync.RWMutex
	target string
	latest Detection
	valid  bool
}

// NewCameraSource opens the camera and loads the detector model.
func NewCameraSource(cfg CameraConfig) (*CameraSource, error) {
	detector, err := newYOLO(cfg.YOLO)
	if err != nil {
		return nil, fmt.Errorf("perception: %w", err)
	}

	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		detector.close()
		return nil, fmt.Errorf("perception: open camera %d: %w", cfg.Device, err)
	}

	return &CameraSource{cfg: cfg, capture: capture, detector: detector}, nil
}

// SetTarget selects the object label to report. Detections of other labels
// are ignored. Clearing the target ("") invalidates the latest detection.
func (c *CameraSource) SetTarget(label string) {
	c.mu.Lock()
	c.target = label
	c.valid = false
	c.mu.Unlock()
}

// Latest returns the most recent detection of the current target, if any.
func (c *CameraSource) Latest() (Detection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.valid
}

// Run drives the capture loop until the context is cancelled. Each frame
// produces at most one published detection, stamped at detection time.
func (c *CameraSource) Run(ctx context.Context) error {
	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ok := c.capture.Read(&img); !ok || img.Empty() {
			log.Warn("camera read failed, retrying")
			time.Sleep(100 * time.Millisecond)
			continue
		}

		c.mu.RLock()
		target := c.target
		c.mu.RUnlock()
		if target == "" {
			continue
		}

		raws, err := c.detector.detect(img)
		if err != nil {
			log.Warn("detector error", "err", err)
			continue
		}

		best, ok := bestMatch(raws, target)
		if !ok {
			continue
		}

		errX, errY := PixelErrors(float64(img.Cols()), float64(img.Rows()),
			(best.Box.X1+best.Box.X2)/2, (best.Box.Y1+best.Box.Y2)/2)

		det := Detection{
			Timestamp:  time.Now(),
			ErrorX:     errX,
			ErrorY:     errY,
			Box:        best.Box,
			DistanceCm: EstimateDistance(c.cfg.FocalLengthPx, c.cfg.ObjectWidthsCm[best.Label], best.Box.Width()),
			Confidence: best.Confidence,
			Label:      best.Label,
		}

		c.mu.Lock()
		c.latest = det
		c.valid = true
		c.mu.Unlock()
	}
}

// Close releases the camera and detector.
func (c *CameraSource) Close() error {
	err := c.capture.Close()
	if derr := c.detector.close(); err == nil {
		err = derr
	}
	return err
}

// bestMatch picks the highest-confidence detection of the target label.
func bestMatch(raws []rawDetection, target string) (rawDetection, bool) {
	var best rawDetection
	found := false
	for _, r := range raws {
		if r.Label != target {
			continue
		}
		if !found || r.Confidence > best.Confidence {
			best = r
			found = true
		}
	}
	return best, found
}
