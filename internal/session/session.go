// Package session coordinates the listening lifecycle: start, abort, auto-restart and
// capture error classification.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/hark/internal/event"
	"github.com/rbright/hark/internal/fsm"
)

const (
	// DefaultRestartInterval is the minimum time between two capture starts.
	DefaultRestartInterval = time.Second
	// DefaultPermissionWindow separates a policy block from a user denial. It is a heuristic:
	// a permission failure this soon after start is assumed to never have reached the user.
	DefaultPermissionWindow = 200 * time.Millisecond
)

// ErrAlreadyActive indicates Start was called while a session is listening.
var ErrAlreadyActive = errors.New("session already active")

// errRestartCancelled reports an automatic restart overtaken by Abort, Start or a fatal error.
var errRestartCancelled = errors.New("session start cancelled")

// Timer is a cancellable deferred callback.
type Timer interface {
	Stop() bool
}

// Options tunes controller timing. Both thresholds compare wall-clock samples taken at event
// time and are approximate.
type Options struct {
	RestartInterval  time.Duration
	PermissionWindow time.Duration

	Now       func() time.Time
	AfterFunc func(time.Duration, func()) Timer
}

func (o Options) withDefaults() Options {
	if o.RestartInterval <= 0 {
		o.RestartInterval = DefaultRestartInterval
	}
	if o.PermissionWindow <= 0 {
		o.PermissionWindow = DefaultPermissionWindow
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.AfterFunc == nil {
		o.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	return o
}

// Controller owns the session state and drives one Capture.
type Controller struct {
	logger  *slog.Logger
	hub     *event.Hub
	capture Capture
	opts    Options

	mu          sync.Mutex
	state       fsm.State
	autoRestart bool
	startedAt   time.Time
	runID       string
	ctx         context.Context
	pending     Timer
	generation  uint64
	swallowEnd  bool
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(logger *slog.Logger, hub *event.Hub, capture Capture, opts Options) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if hub == nil {
		hub = event.NewHub()
	}
	if capture == nil {
		capture = PlaceholderCapture{}
	}

	return &Controller{
		logger:  logger,
		hub:     hub,
		capture: capture,
		opts:    opts.withDefaults(),
		state:   fsm.StateIdle,
		ctx:     context.Background(),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a capture session is listening.
func (c *Controller) Active() bool {
	return c.State() == fsm.StateActive
}

// AutoRestart reports whether an ended session will be resumed.
func (c *Controller) AutoRestart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRestart
}

// RunID identifies the most recent capture start.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// StartedAt returns the time of the most recent capture start.
func (c *Controller) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}

// Start begins listening and enables auto-restart. ctx bounds this and every automatic
// restart.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.autoRestart = true
	c.ctx = ctx
	gen := c.generation
	c.mu.Unlock()

	return c.begin(ctx, gen)
}

// begin transitions to active and starts the capture. gen is the restart generation the
// caller observed; the start is refused once auto-restart is off or gen is stale.
func (c *Controller) begin(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if !c.autoRestart || gen != c.generation {
		c.mu.Unlock()
		return errRestartCancelled
	}
	next, err := fsm.Transition(c.state, fsm.EventStart)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrAlreadyActive, err)
	}
	c.state = next
	c.startedAt = c.opts.Now()
	c.runID = uuid.NewString()
	c.swallowEnd = false
	runID := c.runID
	c.mu.Unlock()

	c.logger.Debug("capture starting", "run_id", runID)
	if err := c.capture.Start(ctx); err != nil {
		c.mu.Lock()
		c.state, _ = fsm.Transition(c.state, fsm.EventFail)
		c.autoRestart = false
		c.mu.Unlock()
		c.logger.Error("capture start failed", "run_id", runID, "error", err.Error())
		return fmt.Errorf("start capture: %w", err)
	}
	return nil
}

// Stop ends the current capture gracefully. Auto-restart stays enabled, so the session
// resumes once the capture reports its end.
func (c *Controller) Stop() error {
	if !c.Active() {
		return nil
	}
	if err := c.capture.Stop(); err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	return nil
}

// Abort stops listening for good: auto-restart is disabled and the session marked inactive
// before the capture is told to abort, so no restart can be scheduled in between.
func (c *Controller) Abort() error {
	c.mu.Lock()
	wasActive := c.state == fsm.StateActive
	c.autoRestart = false
	c.state, _ = fsm.Transition(c.state, fsm.EventAbort)
	c.cancelPendingLocked()
	c.swallowEnd = wasActive
	runID := c.runID
	c.mu.Unlock()

	c.logger.Debug("session aborted", "run_id", runID, "was_active", wasActive)
	event.Emit(c.hub, event.End, event.Signal{})

	if err := c.capture.Abort(); err != nil {
		return fmt.Errorf("abort capture: %w", err)
	}
	return nil
}

// HandleStarted reports that the capture began listening.
func (c *Controller) HandleStarted() {
	c.logger.Debug("capture started", "run_id", c.RunID())
	event.Emit(c.hub, event.Start, event.Signal{})
}

// HandleBoundary forwards a sound or speech boundary.
func (c *Controller) HandleBoundary(topic event.Topic[event.Signal]) {
	event.Emit(c.hub, topic, event.Signal{})
}

// HandleEnded reports that the capture stopped and emits end. Unless auto-restart was
// disabled, the capture is restarted once RestartInterval has passed since the last start.
// The first end reported after an Abort of an active session is absorbed without an end
// event, since Abort already emitted one.
func (c *Controller) HandleEnded() {
	c.mu.Lock()
	c.state, _ = fsm.Transition(c.state, fsm.EventEnd)
	if c.swallowEnd {
		c.swallowEnd = false
		c.mu.Unlock()
		return
	}

	restartNow := false
	gen := c.generation
	if c.autoRestart {
		elapsed := c.opts.Now().Sub(c.startedAt)
		if elapsed >= c.opts.RestartInterval {
			restartNow = true
		} else {
			c.scheduleLocked(c.opts.RestartInterval - elapsed)
		}
	}
	runID := c.runID
	c.mu.Unlock()

	c.logger.Debug("capture ended", "run_id", runID, "restart_now", restartNow)
	event.Emit(c.hub, event.End, event.Signal{})

	if restartNow {
		c.restart(gen)
	}
}

// HandleError classifies a capture failure and publishes it.
func (c *Controller) HandleError(cause event.Cause) {
	c.mu.Lock()
	runID := c.runID
	elapsed := c.opts.Now().Sub(c.startedAt)
	switch cause.Code {
	case CauseNetwork:
		c.state, _ = fsm.Transition(c.state, fsm.EventFail)
	case CauseNotAllowed, CauseServiceNotAllowed:
		c.state, _ = fsm.Transition(c.state, fsm.EventFail)
		c.autoRestart = false
		c.cancelPendingLocked()
	}
	c.mu.Unlock()

	c.logger.Warn("capture error", "run_id", runID, "cause", cause.Code, "message", cause.Message, "elapsed_ms", elapsed.Milliseconds())
	event.Emit(c.hub, event.Error, cause)

	switch cause.Code {
	case CauseNetwork:
		event.Emit(c.hub, event.ErrorNetwork, cause)
	case CauseNotAllowed, CauseServiceNotAllowed:
		if elapsed < c.opts.PermissionWindow {
			event.Emit(c.hub, event.ErrorPermissionBlocked, cause)
		} else {
			event.Emit(c.hub, event.ErrorPermissionDenied, cause)
		}
	}
}

// scheduleLocked arms a restart timer. Callers hold c.mu.
func (c *Controller) scheduleLocked(delay time.Duration) {
	c.cancelPendingLocked()
	gen := c.generation
	c.pending = c.opts.AfterFunc(delay, func() {
		c.mu.Lock()
		fire := gen == c.generation && c.autoRestart && c.state == fsm.StateIdle
		c.pending = nil
		c.mu.Unlock()
		if fire {
			c.restart(gen)
		}
	})
	c.logger.Debug("restart scheduled", "delay_ms", delay.Milliseconds())
}

// cancelPendingLocked disarms a scheduled restart. Callers hold c.mu.
func (c *Controller) cancelPendingLocked() {
	c.generation++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// restart resumes capture after an end unless gen was superseded. Failures surface as error
// events.
func (c *Controller) restart(gen uint64) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	if ctx.Err() != nil {
		c.mu.Lock()
		c.autoRestart = false
		c.mu.Unlock()
		return
	}

	if err := c.begin(ctx, gen); err != nil {
		if errors.Is(err, ErrAlreadyActive) || errors.Is(err, errRestartCancelled) {
			c.logger.Debug("restart skipped", "reason", err.Error())
			return
		}
		event.Emit(c.hub, event.Error, event.Cause{Code: CauseStartFailed, Message: err.Error()})
	}
}
