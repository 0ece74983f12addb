// Package servo contains the grasp controller: a staged state machine that
// consumes noisy visual measurements and emits safe, smooth joint commands.
//
// The controller runs as a single worker goroutine per session. It is the
// sole writer of the session and the sole issuer of actuator commands while
// a session is active; observers only ever see copied snapshots.
package servo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvelkov/go-grasp/internal/log"
	"github.com/dvelkov/go-grasp/pkg/actuator"
	"github.com/dvelkov/go-grasp/pkg/arm"
	"github.com/dvelkov/go-grasp/pkg/motion"
	"github.com/dvelkov/go-grasp/pkg/perception"
	"github.com/dvelkov/go-grasp/pkg/reach"
	"github.com/dvelkov/go-grasp/pkg/safety"
)

// ErrBusy is returned by Start while a session is already active.
var ErrBusy = errors.New("servo: a session is already active")

// errStale signals that no fresh detection arrived within the staleness
// timeout. It converts to an ObjectLost failure at the stage boundary.
var errStale = errors.New("servo: detections went stale")

// TargetSetter is implemented by perception sources that filter detections
// by label (the camera source does; scripted test sources need not).
type TargetSetter interface {
	SetTarget(label string)
}

// Config carries the controller's stage parameters. Angles in degrees.
type Config struct {
	Limits   safety.Limits
	HomePose arm.JointVector // search/start pose

	ConfidenceFloor float64 // minimum confidence to accept a search hit

	PollInterval  time.Duration // mailbox poll cadence at wait points
	SweepStepDeg  float64       // base step per sweep tick
	SweepInterval time.Duration // dwell between sweep steps
	SearchTimeout time.Duration // whole-sweep bound
	StaleTimeout  time.Duration // per-frame staleness bound (object loss)
	ReachTimeout  time.Duration // whole reach-phase bound
	SettleDelay   time.Duration // pause after closing the gripper

	CenteredFrames int // consecutive in-deadzone frames to exit alignment

	ReachSteps    int           // motion profile step count
	ReachDuration time.Duration // motion profile total duration

	GripperOpenDeg  float64
	GripperCloseDeg float64
	LiftDeg         float64 // shoulder lift after grasping

	// Regression output clamps, matching the training data ranges.
	ShoulderMaxDeg float64
	ElbowMinDeg    float64
	ElbowMaxDeg    float64
	BaseCorrMaxDeg float64

	// InvertX flips the base correction sign. The mapping between pixel
	// error sign and base rotation depends on physical camera mounting and
	// must be calibrated per rig, not assumed.
	InvertX bool
}

// DefaultConfig returns the bench-calibrated stage parameters.
func DefaultConfig() Config {
	return Config{
		Limits:          safety.DefaultLimits(),
		HomePose:        arm.JointVector{23, 100, 140, 90, 12, 170},
		ConfidenceFloor: 0.5,
		PollInterval:    50 * time.Millisecond,
		SweepStepDeg:    1.0,
		SweepInterval:   300 * time.Millisecond,
		SearchTimeout:   60 * time.Second,
		StaleTimeout:    3 * time.Second,
		ReachTimeout:    15 * time.Second,
		SettleDelay:     800 * time.Millisecond,
		CenteredFrames:  3,
		ReachSteps:      30,
		ReachDuration:   2 * time.Second,
		GripperOpenDeg:  170,
		GripperCloseDeg: 90,
		LiftDeg:         20,
		ShoulderMaxDeg:  140,
		ElbowMinDeg:     70,
		ElbowMaxDeg:     160,
		BaseCorrMaxDeg:  90,
	}
}

// Controller owns the grasp state machine.
type Controller struct {
	cfg       Config
	source    perception.Source
	commander actuator.Commander
	engine    ControlEngine
	reacher   *reach.Model

	mu        sync.Mutex
	session   *Session
	telemetry Telemetry
	pose      arm.JointVector // current commanded pose
	cancel    context.CancelFunc
	done      chan struct{}

	updates chan Status
}

// New builds a controller. The reach model is required; the alignment
// engine may be a proportional fallback (see SelectEngine).
func New(cfg Config, source perception.Source, commander actuator.Commander,
	engine ControlEngine, reacher *reach.Model) *Controller {
	return &Controller{
		cfg:       cfg,
		source:    source,
		commander: commander,
		engine:    engine,
		reacher:   reacher,
		pose:      cfg.HomePose,
		telemetry: Telemetry{Mode: StateIdle, ActiveEngine: engine.Name()},
		updates:   make(chan Status, 64),
	}
}

// Start begins a grasp attempt for the named target label. It fails with
// ErrBusy while a session is active.
func (c *Controller) Start(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && !c.session.State.Terminal() {
		return ErrBusy
	}

	if ts, ok := c.source.(TargetSetter); ok {
		ts.SetTarget(label)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := newSession(label)
	c.session = sess
	c.cancel = cancel
	c.done = make(chan struct{})
	c.telemetry.Mode = sess.State

	log.Info("grasp session started", "target", label, "session", sess.ID)
	go c.run(ctx, sess, c.done)
	return nil
}

// Stop cancels the active session, if any. The worker finishes the step it
// is currently commanding, then halts.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done returns a channel closed when the current session's worker exits.
// Returns nil if no session was ever started.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Status returns a point-in-time copy of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Updates returns the telemetry stream. Slow consumers miss intermediate
// snapshots; the latest state is always available via Status.
func (c *Controller) Updates() <-chan Status {
	return c.updates
}

// CurrentPose returns the last commanded joint vector.
func (c *Controller) CurrentPose() arm.JointVector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pose
}

func (c *Controller) statusLocked() Status {
	st := Status{State: StateIdle, Telemetry: c.telemetry}
	if c.session != nil {
		st.State = c.session.State
		st.Target = c.session.Target
		st.SessionID = c.session.ID.String()
		st.Failure = failureInfo(c.session.Failure)
	}
	return st
}

// publish snapshots the state onto the updates channel without blocking.
func (c *Controller) publish() {
	c.mu.Lock()
	st := c.statusLocked()
	c.mu.Unlock()
	select {
	case c.updates <- st:
	default:
	}
}

// run drives one session through the state machine. It is the only
// goroutine that mutates the session or commands the actuator.
func (c *Controller) run(ctx context.Context, sess *Session, done chan struct{}) {
	defer close(done)

	// Move to the search pose with the gripper pre-opened.
	home := c.cfg.HomePose.With(arm.Gripper, c.cfg.GripperOpenDeg)
	if err := c.send(ctx, home, time.Now().Add(c.cfg.SearchTimeout)); err != nil {
		c.fail(sess, err)
		return
	}

	hit, err := c.search(ctx, sess)
	if err != nil {
		c.fail(sess, err)
		return
	}

	c.setState(sess, StateAligning)
	alignDet, err := c.align(ctx, sess, hit)
	if err != nil {
		c.fail(sess, err)
		return
	}

	c.setState(sess, StateCapturing)
	c.capture(ctx, sess, alignDet)

	c.setState(sess, StateReaching)
	if err := c.reachStage(ctx, sess); err != nil {
		c.fail(sess, err)
		return
	}

	c.setState(sess, StateGrasping)
	if err := c.grasp(ctx, sess); err != nil {
		c.fail(sess, err)
		return
	}

	c.setState(sess, StateComplete)
	log.Info("grasp complete", "session", sess.ID, "target", sess.Target)
}

// search sweeps the base across its full range until a detection matches
// the target label above the confidence floor. Covering the full range
// (both travel limits touched) or exhausting the sweep timeout without a
// match fails the session with TargetNotFound.
func (c *Controller) search(ctx context.Context, sess *Session) (perception.Detection, error) {
	deadline := time.Now().Add(c.cfg.SearchTimeout)
	dir := 1.0
	touchedLow, touchedHigh := false, false

	for {
		if det, ok := c.source.Latest(); ok &&
			det.Label == sess.Target && det.Confidence >= c.cfg.ConfidenceFloor {
			c.noteDetection(sess, det)
			log.Info("target acquired", "label", det.Label,
				"confidence", det.Confidence, "err_x", det.ErrorX)
			return det, nil
		}

		if time.Now().After(deadline) || (touchedLow && touchedHigh) {
			return perception.Detection{}, &Failure{
				Reason:       ReasonTargetNotFound,
				State:        StateSearching,
				Err:          fmt.Errorf("no %q above confidence %.2f across sweep", sess.Target, c.cfg.ConfidenceFloor),
				DetectionAge: sess.detectionAge(time.Now()),
			}
		}

		base := c.CurrentPose()[arm.Base] + dir*c.cfg.SweepStepDeg
		if base <= arm.MinAngleDeg {
			base = arm.MinAngleDeg
			touchedLow = true
			dir = 1
		} else if base >= arm.MaxAngleDeg {
			base = arm.MaxAngleDeg
			touchedHigh = true
			dir = -1
		}

		pose := c.CurrentPose().With(arm.Base, base)
		if err := c.send(ctx, pose, deadline); err != nil {
			return perception.Detection{}, err
		}

		if err := c.sleep(ctx, c.cfg.SweepInterval); err != nil {
			return perception.Detection{}, c.cancelled(sess)
		}
	}
}

// align repeatedly waits for a fresh frame, computes a shaped base
// correction and commands it, until the error stays inside the deadzone
// for the configured number of consecutive fresh frames. Returns the
// detection that completed alignment.
func (c *Controller) align(ctx context.Context, sess *Session, last perception.Detection) (perception.Detection, error) {
	lastActed := last.Timestamp
	centered := 0

	for {
		det, err := c.waitFresh(ctx, sess, lastActed)
		if err != nil {
			return perception.Detection{}, err
		}
		lastActed = det.Timestamp
		c.noteDetection(sess, det)

		if c.cfg.Limits.InDeadzone(det.ErrorX) {
			centered++
			log.Debug("aligned frame", "count", centered, "need", c.cfg.CenteredFrames)
			if centered >= c.cfg.CenteredFrames {
				return det, nil
			}
			continue
		}
		centered = 0

		raw := c.engine.Correct(det.ErrorX)
		if c.cfg.InvertX {
			raw = -raw
		}
		step := c.cfg.Limits.ShapeStep(raw * c.cfg.Limits.Gain(det.ErrorX))

		c.mu.Lock()
		c.telemetry.LastCorrection = step
		c.mu.Unlock()
		c.publish()

		if step == 0 {
			continue
		}

		pose := c.CurrentPose()
		pose = pose.With(arm.Base, safety.ClampAngle(pose[arm.Base]+step))

		log.Debug("alignment step", "err_x", det.ErrorX, "step", step, "base", pose[arm.Base])
		if err := c.send(ctx, pose, time.Now().Add(c.cfg.StaleTimeout)); err != nil {
			return perception.Detection{}, err
		}
	}
}

// capture freezes the visual snapshot for the blind reach. This is a
// deliberate single read; it is never updated again for this attempt.
func (c *Controller) capture(ctx context.Context, sess *Session, det perception.Detection) {
	dist := det.DistanceCm
	if dist <= 0 {
		// Monocular estimate unavailable (unknown object width); fall back
		// to the arm-mounted range sensor.
		if d, err := c.commander.ReadDistance(ctx); err == nil {
			dist = d
		} else {
			log.Warn("distance read failed during capture", "err", err)
		}
	}

	c.mu.Lock()
	sess.AlignedBase = c.pose[arm.Base]
	sess.Snapshot = Snapshot{
		ErrorY:     det.ErrorY,
		DistanceCm: dist,
		BoxWidthPx: det.Box.Width(),
		Valid:      true,
	}
	c.telemetry.LastDistance = dist
	c.mu.Unlock()
	c.publish()

	log.Info("snapshot captured", "err_y", det.ErrorY, "distance_cm", dist,
		"box_width_px", det.Box.Width(), "aligned_base", sess.AlignedBase)
}

// reachStage runs the regression engine once on the snapshot and executes
// the profiled blind reach. No re-sensing happens mid-trajectory.
func (c *Controller) reachStage(ctx context.Context, sess *Session) error {
	snap := sess.Snapshot

	// Reachability gate: fail before any motion command is issued. A
	// distance that could not be measured cannot be verified reachable.
	if snap.DistanceCm <= 0 {
		return &Failure{
			Reason:       ReasonOutOfReach,
			State:        StateReaching,
			Err:          errors.New("no usable distance estimate"),
			DetectionAge: sess.detectionAge(time.Now()),
		}
	}
	if err := c.cfg.Limits.CheckReach(snap.DistanceCm); err != nil {
		return &Failure{
			Reason:       ReasonOutOfReach,
			State:        StateReaching,
			Err:          err,
			DetectionAge: sess.detectionAge(time.Now()),
		}
	}

	out, err := c.reacher.Predict([3]float64{snap.ErrorY, snap.DistanceCm, snap.BoxWidthPx})
	if err != nil {
		return &Failure{
			Reason:       ReasonInvalidTrajectory,
			State:        StateReaching,
			Err:          err,
			DetectionAge: sess.detectionAge(time.Now()),
		}
	}

	shoulder := safety.Clamp(out[0], arm.MinAngleDeg, c.cfg.ShoulderMaxDeg)
	elbow := safety.Clamp(out[1], c.cfg.ElbowMinDeg, c.cfg.ElbowMaxDeg)
	baseCorr := safety.Clamp(out[2], -c.cfg.BaseCorrMaxDeg, c.cfg.BaseCorrMaxDeg)

	c.mu.Lock()
	c.telemetry.PredictedTargets = [3]float64{shoulder, elbow, baseCorr}
	c.mu.Unlock()
	c.publish()

	target := c.CurrentPose()
	target[arm.Base] = safety.ClampAngle(sess.AlignedBase + baseCorr)
	target[arm.Shoulder] = shoulder
	target[arm.Elbow] = elbow
	target[arm.Gripper] = c.cfg.GripperOpenDeg

	log.Info("executing blind reach", "target", target,
		"base_correction", baseCorr, "steps", c.cfg.ReachSteps)

	profile, err := motion.NewProfile(c.CurrentPose(), target.Clamp(), c.cfg.ReachSteps)
	if err != nil {
		return &Failure{
			Reason:       ReasonInvalidTrajectory,
			State:        StateReaching,
			Err:          err,
			DetectionAge: sess.detectionAge(time.Now()),
		}
	}

	deadline := time.Now().Add(c.cfg.ReachTimeout)
	stepDelay := c.cfg.ReachDuration / time.Duration(c.cfg.ReachSteps)

	for {
		pose, ok := profile.Next()
		if !ok {
			return nil
		}
		if time.Now().After(deadline) {
			return &Failure{
				Reason:       ReasonIO,
				State:        StateReaching,
				Err:          errors.New("reach phase timed out"),
				DetectionAge: sess.detectionAge(time.Now()),
			}
		}
		if err := c.send(ctx, pose, deadline); err != nil {
			return err
		}
		// Cancellation lands between steps: the commanded step finishes,
		// the trajectory does not.
		if err := c.sleep(ctx, stepDelay); err != nil {
			return c.cancelled(sess)
		}
	}
}

// grasp closes the gripper, settles, then lifts.
func (c *Controller) grasp(ctx context.Context, sess *Session) error {
	deadline := time.Now().Add(c.cfg.ReachTimeout)

	pose := c.CurrentPose().With(arm.Gripper, c.cfg.GripperCloseDeg)
	if err := c.send(ctx, pose, deadline); err != nil {
		return err
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return c.cancelled(sess)
	}

	lifted := safety.Clamp(pose[arm.Shoulder]+c.cfg.LiftDeg, arm.MinAngleDeg, c.cfg.ShoulderMaxDeg)
	pose = pose.With(arm.Shoulder, lifted)
	if err := c.send(ctx, pose, deadline); err != nil {
		return err
	}
	return nil
}

// waitFresh blocks until a detection strictly newer than lastActed is
// available. This is the sense-act-wait gate: at most one correction per
// physical camera frame, regardless of how fast the controller polls.
func (c *Controller) waitFresh(ctx context.Context, sess *Session, lastActed time.Time) (perception.Detection, error) {
	deadline := time.Now().Add(c.cfg.StaleTimeout)

	for {
		if det, ok := c.source.Latest(); ok && det.Timestamp.After(lastActed) {
			return det, nil
		}

		if time.Now().After(deadline) {
			return perception.Detection{}, &Failure{
				Reason:       ReasonObjectLost,
				State:        sess.State,
				Err:          errStale,
				DetectionAge: sess.detectionAge(time.Now()),
			}
		}

		select {
		case <-ctx.Done():
			return perception.Detection{}, c.cancelled(sess)
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// send clamps and transmits a pose, retrying transient transport errors
// until the stage deadline, and records it as the current commanded pose.
func (c *Controller) send(ctx context.Context, pose arm.JointVector, deadline time.Time) error {
	pose = pose.Clamp()

	for {
		err := c.commander.Send(ctx, pose)
		if err == nil {
			c.mu.Lock()
			c.pose = pose
			c.mu.Unlock()
			return nil
		}
		if ctx.Err() != nil {
			return c.cancelled(c.sessionRef())
		}
		if time.Now().After(deadline) {
			return &Failure{
				Reason:       ReasonIO,
				State:        c.stateRef(),
				Err:          err,
				DetectionAge: c.sessionRef().detectionAge(time.Now()),
			}
		}
		log.Warn("actuator send failed, retrying", "err", err)
		if serr := c.sleep(ctx, c.cfg.PollInterval); serr != nil {
			return c.cancelled(c.sessionRef())
		}
	}
}

// sleep waits for d or until the context is cancelled.
func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// cancelled builds the terminal cancellation failure.
func (c *Controller) cancelled(sess *Session) error {
	return &Failure{
		Reason:       ReasonCancelled,
		State:        sess.State,
		DetectionAge: sess.detectionAge(time.Now()),
	}
}

// noteDetection records the latest acted-upon detection on the session.
func (c *Controller) noteDetection(sess *Session, det perception.Detection) {
	c.mu.Lock()
	sess.LastDetection = det.Timestamp
	c.telemetry.LastDistance = det.DistanceCm
	c.mu.Unlock()
	c.publish()
}

// setState advances the session state and publishes it.
func (c *Controller) setState(sess *Session, s State) {
	c.mu.Lock()
	sess.State = s
	c.telemetry.Mode = s
	c.mu.Unlock()
	c.publish()
	log.Info("state transition", "session", sess.ID, "state", s)
}

// fail terminates the session. A cancellation reason lands in Cancelled,
// everything else in Failed; either way the failure context is preserved.
func (c *Controller) fail(sess *Session, err error) {
	var f *Failure
	if !errors.As(err, &f) {
		f = &Failure{
			Reason:       ReasonIO,
			State:        sess.State,
			Err:          err,
			DetectionAge: sess.detectionAge(time.Now()),
		}
	}

	c.mu.Lock()
	sess.Failure = f
	if f.Reason == ReasonCancelled {
		sess.State = StateCancelled
	} else {
		sess.State = StateFailed
	}
	c.telemetry.Mode = sess.State
	c.mu.Unlock()
	c.publish()

	log.Warn("grasp session ended", "session", sess.ID, "state", sess.State,
		"reason", f.Reason, "err", f.Err)
}

// sessionRef returns the active session for error context. Only called
// from the worker goroutine, where the session is always set.
func (c *Controller) sessionRef() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) stateRef() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StateIdle
	}
	return c.session.State
}
