// Package perception defines the detection data model and the pull-based
// source interface the servo controller consumes. A concrete camera source
// backed by gocv lives in this package; the controller itself only ever
// sees Source.
package perception

import "time"

// BoundingBox is a pixel-space box in corner format.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

// Width returns the box width in pixels.
func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the box height in pixels.
func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Detection is a single visual measurement of the target object. It is
// immutable once created and superseded by the next detection; timestamps
// strictly increase across the detections a consumer acts upon.
type Detection struct {
	Timestamp  time.Time
	ErrorX     float64 // horizontal pixel error from frame center
	ErrorY     float64 // vertical pixel error from frame center
	Box        BoundingBox
	DistanceCm float64 // monocular estimate; <= 0 when unknown
	Confidence float64
	Label      string
}

// Age returns how old the detection is at time now.
func (d Detection) Age(now time.Time) time.Duration {
	return now.Sub(d.Timestamp)
}

// Source is the pull-based perception contract: a non-blocking read of the
// most recent detection. ok is false when nothing has been detected yet or
// the target is currently not visible. Freshness is the caller's problem —
// the controller compares timestamps rather than trusting push timing.
type Source interface {
	Latest() (Detection, bool)
}

// EstimateDistance applies the pinhole model: distance = width * focal / px.
// Returns -1 when the pixel width is unusable or the real width is unknown.
func EstimateDistance(focalPx, knownWidthCm, pixelWidth float64) float64 {
	if pixelWidth <= 0 || knownWidthCm <= 0 || focalPx <= 0 {
		return -1
	}
	return knownWidthCm * focalPx / pixelWidth
}

// PixelErrors converts an object center into signed errors from the frame
// center. Positive ErrorX means the object sits left of center (the base
// must rotate toward larger angles); positive ErrorY means above center.
func PixelErrors(frameW, frameH, objX, objY float64) (errX, errY float64) {
	return frameW/2 - objX, frameH/2 - objY
}
