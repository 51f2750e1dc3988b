package session

import (
	"context"
	"errors"

	"github.com/rbright/hark/internal/event"
)

// Capture cause codes that change controller behavior. Any other code is reported as a
// plain error.
const (
	CauseNetwork           = "network"
	CauseNotAllowed        = "not-allowed"
	CauseServiceNotAllowed = "service-not-allowed"
	CauseStartFailed       = "start-failed"
)

// ErrCaptureUnavailable indicates no capture backend is wired.
var ErrCaptureUnavailable = errors.New("speech capture is not configured")

// Capture is the external recognizer session driven by the controller.
type Capture interface {
	Start(context.Context) error
	Stop() error
	Abort() error
}

// Sink receives asynchronous capture signals. Implementations are called from the capture's
// own goroutine, one signal at a time.
type Sink interface {
	Started()
	Boundary(event.Topic[event.Signal])
	Result(alternatives []string)
	NoMatch()
	Failed(event.Cause)
	Ended()
}

// PlaceholderCapture is a capture backend that cannot start.
type PlaceholderCapture struct{}

func (PlaceholderCapture) Start(context.Context) error {
	return ErrCaptureUnavailable
}

func (PlaceholderCapture) Stop() error {
	return nil
}

func (PlaceholderCapture) Abort() error {
	return nil
}
