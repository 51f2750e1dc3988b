// Package recognizer is the application-facing voice command surface: it ties the command
// table, dispatch engine, event hub, listening session and voice together.
package recognizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/hark/internal/command"
	"github.com/rbright/hark/internal/dispatch"
	"github.com/rbright/hark/internal/event"
	"github.com/rbright/hark/internal/i18n"
	"github.com/rbright/hark/internal/metrics"
	"github.com/rbright/hark/internal/session"
	"github.com/rbright/hark/internal/voice"
)

// DefaultMaxAlternatives bounds the candidates taken from one recognition result.
const DefaultMaxAlternatives = 5

// CaptureFactory builds the capture backend. language reports the active language at the
// time the capture starts.
type CaptureFactory func(sink session.Sink, language func() string) session.Capture

// Options configures New. Only Language is required.
type Options struct {
	Language        string
	Logger          *slog.Logger
	Hub             *event.Hub
	Capture         CaptureFactory
	Synthesizer     voice.Synthesizer
	Voice           voice.Options
	Session         session.Options
	MaxAlternatives int
	Metrics         *metrics.Recorder
}

// Recognizer listens for spoken commands and dispatches them to registered listeners.
type Recognizer struct {
	logger  *slog.Logger
	hub     *event.Hub
	table   *command.Table
	engine  *dispatch.Engine
	ctrl    *session.Controller
	speaker *voice.Speaker
	metrics *metrics.Recorder
	maxAlt  int

	mu   sync.RWMutex
	lang string
}

// New constructs a recognizer for opts.Language.
func New(opts Options) (*Recognizer, error) {
	lang, err := i18n.CanonicalTag(opts.Language)
	if err != nil {
		return nil, fmt.Errorf("recognizer language: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	hub := opts.Hub
	if hub == nil {
		hub = event.NewHub()
	}
	maxAlt := opts.MaxAlternatives
	if maxAlt <= 0 {
		maxAlt = DefaultMaxAlternatives
	}

	r := &Recognizer{
		logger:  logger,
		hub:     hub,
		metrics: opts.Metrics,
		maxAlt:  maxAlt,
		lang:    lang,
	}
	r.table = command.New(lang, logger)
	r.engine = dispatch.New(r.table, hub, logger)
	r.speaker = voice.NewSpeaker(opts.Synthesizer, logger, opts.Voice)

	var capture session.Capture
	if opts.Capture != nil {
		capture = opts.Capture(r, r.Language)
	}
	r.ctrl = session.NewController(logger, hub, capture, opts.Session)

	if r.metrics != nil {
		r.metrics.Attach(hub)
	}
	return r, nil
}

// Events returns the hub for event.On and Off.
func (r *Recognizer) Events() *event.Hub { return r.hub }

// Commands returns the registered commands in dispatch order.
func (r *Recognizer) Commands() []command.Entry { return r.table.Snapshot() }

// Learn registers l under cmd.
func (r *Recognizer) Learn(cmd *command.Command, l command.Listener) error {
	return r.table.Register(cmd, l)
}

// Forget removes the listener named name from cmd (the first listener when name is empty).
func (r *Recognizer) Forget(cmd *command.Command, name string) error {
	return r.table.Unregister(cmd, name)
}

// Start begins listening. Capture failures after a successful start arrive as events.
func (r *Recognizer) Start(ctx context.Context) error {
	return r.ctrl.Start(ctx)
}

// Abort stops listening without auto-restart.
func (r *Recognizer) Abort() error {
	return r.ctrl.Abort()
}

// Active reports whether a capture session is listening.
func (r *Recognizer) Active() bool {
	return r.ctrl.Active()
}

// Session exposes the listening controller for status reporting.
func (r *Recognizer) Session() *session.Controller {
	return r.ctrl
}

// Language returns the active language tag.
func (r *Recognizer) Language() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lang
}

// SetLanguage switches the active language: commands are recompiled, a voice for the
// language is selected, and an active capture is stopped so it resumes in the new language.
// If any command has no text for lang the language is left unchanged.
func (r *Recognizer) SetLanguage(ctx context.Context, lang string) error {
	tag, err := i18n.CanonicalTag(lang)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if err := r.table.Relanguage(tag); err != nil {
		r.mu.Unlock()
		return err
	}
	r.lang = tag
	r.mu.Unlock()

	if _, err := r.speaker.SelectVoice(ctx, tag); err != nil {
		r.logger.Warn("voice selection failed", "language", tag, "error", err.Error())
	}

	if err := r.ctrl.Stop(); err != nil {
		r.logger.Warn("capture stop for language change failed", "language", tag, "error", err.Error())
	}
	r.logger.Info("language changed", "language", tag)
	return nil
}

// Hear dispatches one utterance given as one or more ranked candidates, bypassing capture.
func (r *Recognizer) Hear(candidates ...string) dispatch.Result {
	started := time.Now()
	res := r.engine.Hear(candidates)
	if r.metrics != nil {
		r.metrics.ObserveDispatch(res.Command, time.Since(started), res.Err != nil)
	}
	return res
}

// HearWord dispatches word resolved against the active language.
func (r *Recognizer) HearWord(word *i18n.Word) (dispatch.Result, error) {
	text, err := word.Resolve(r.Language())
	if err != nil {
		return dispatch.Result{}, err
	}
	return r.Hear(text), nil
}

// SelectVoice picks the synthesis voice for the active language.
func (r *Recognizer) SelectVoice(ctx context.Context) (voice.Voice, error) {
	return r.speaker.SelectVoice(ctx, r.Language())
}

// Voice returns the selected synthesis voice.
func (r *Recognizer) Voice() voice.Voice {
	return r.speaker.Voice()
}

// Say speaks text with the selected voice.
func (r *Recognizer) Say(ctx context.Context, text string) error {
	return r.speaker.Say(ctx, text)
}

// SayWord speaks word in the active language.
func (r *Recognizer) SayWord(ctx context.Context, word *i18n.Word) error {
	text, err := word.Resolve(r.Language())
	if err != nil {
		return err
	}
	return r.speaker.Say(ctx, text)
}

// Started implements session.Sink.
func (r *Recognizer) Started() { r.ctrl.HandleStarted() }

// Boundary implements session.Sink.
func (r *Recognizer) Boundary(topic event.Topic[event.Signal]) { r.ctrl.HandleBoundary(topic) }

// Result implements session.Sink. At most MaxAlternatives candidates are dispatched.
func (r *Recognizer) Result(alternatives []string) {
	if len(alternatives) > r.maxAlt {
		alternatives = alternatives[:r.maxAlt]
	}
	r.Hear(alternatives...)
}

// NoMatch implements session.Sink.
func (r *Recognizer) NoMatch() {
	event.Emit(r.hub, event.HearNoWords, event.Candidates{})
}

// Failed implements session.Sink.
func (r *Recognizer) Failed(cause event.Cause) { r.ctrl.HandleError(cause) }

// Ended implements session.Sink.
func (r *Recognizer) Ended() { r.ctrl.HandleEnded() }

var _ session.Sink = (*Recognizer)(nil)
