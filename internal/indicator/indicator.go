// Package indicator shows listening state as desktop notifications and audio cues driven by
// recognizer events.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/hark/internal/config"
	"github.com/rbright/hark/internal/event"
)

const subscriberName = "indicator"

// Notifier is the concrete indicator used by a running listener.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	language func() string

	ops  chan func(context.Context)
	done chan struct{}
	once sync.Once

	mu                    sync.Mutex
	desktopNotificationID uint32
	player                cuePlayer
}

// New creates a notifier. language reports the active language for message text.
func New(cfg config.IndicatorConfig, language func() string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if language == nil {
		language = func() string { return "en" }
	}
	n := &Notifier{
		cfg:      cfg,
		logger:   logger,
		language: language,
		ops:      make(chan func(context.Context), 16),
		done:     make(chan struct{}),
	}
	go n.loop()
	return n
}

// Attach subscribes the notifier to hub.
func (n *Notifier) Attach(hub *event.Hub) {
	event.On(hub, event.Start, subscriberName, func(event.Signal) { n.ShowListening() })
	event.On(hub, event.End, subscriberName, func(event.Signal) { n.Hide() })
	event.On(hub, event.HearWords, subscriberName, func(event.Match) { n.playCue(cueMatch) })
	event.On(hub, event.HearNoWords, subscriberName, func(event.Candidates) { n.playCue(cueMiss) })
	event.On(hub, event.ErrorNetwork, subscriberName, func(event.Cause) { n.ShowError(msgNetwork) })
	event.On(hub, event.ErrorPermissionBlocked, subscriberName, func(event.Cause) { n.ShowError(msgBlocked) })
	event.On(hub, event.ErrorPermissionDenied, subscriberName, func(event.Cause) { n.ShowError(msgDenied) })
}

// Detach removes the notifier's subscriptions from hub.
func (n *Notifier) Detach(hub *event.Hub) {
	for _, name := range []string{
		event.Start.Name(), event.End.Name(), event.HearWords.Name(), event.HearNoWords.Name(),
		event.ErrorNetwork.Name(), event.ErrorPermissionBlocked.Name(), event.ErrorPermissionDenied.Name(),
	} {
		_ = hub.Off(name, subscriberName)
	}
}

// Close stops the notification worker after pending operations finish and releases the
// cue connection.
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.ops) })
	<-n.done
	n.player.close()
}

// ShowListening signals listening start and emits the start cue.
func (n *Notifier) ShowListening() {
	n.playCue(cueStart)
	if !n.cfg.Enable {
		return
	}
	text := n.text(msgListening)
	n.enqueue(func(ctx context.Context) error {
		return n.notifyDesktop(ctx, notification{Summary: text, Urgency: urgencyNormal, TimeoutMS: 300000})
	})
}

// ShowError displays a localized error message and emits the error cue.
func (n *Notifier) ShowError(key messageKey) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	text := n.text(key)
	n.enqueue(func(ctx context.Context) error {
		return n.notifyDesktop(ctx, notification{Summary: text, Urgency: urgencyCritical, TimeoutMS: timeout})
	})
}

// Hide dismisses the listening notification.
func (n *Notifier) Hide() {
	if !n.cfg.Enable {
		return
	}
	n.enqueue(n.dismissDesktop)
}

func (n *Notifier) text(key messageKey) string {
	return localizedMessage(key, n.language())
}

// enqueue hands op to the worker without blocking event delivery.
func (n *Notifier) enqueue(op func(context.Context) error) {
	wrapped := func(ctx context.Context) {
		runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
		defer cancel()
		if err := op(runCtx); err != nil {
			n.log("indicator dispatch failed", err)
		}
	}
	defer func() {
		if recover() != nil {
			n.logger.Debug("indicator closed; dropping notification")
		}
	}()
	select {
	case n.ops <- wrapped:
	default:
		n.logger.Debug("indicator queue full; dropping notification")
	}
}

func (n *Notifier) loop() {
	defer close(n.done)
	for op := range n.ops {
		op(context.Background())
	}
}

// notifyDesktop sends note in place of the current desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, note notification) error {
	n.mu.Lock()
	note.ReplaceID = n.desktopNotificationID
	n.mu.Unlock()

	note.AppName = strings.TrimSpace(n.cfg.DesktopAppName)
	if note.AppName == "" {
		note.AppName = "hark"
	}

	id, err := desktopNotify(ctx, note)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := n.player.emit(ctx, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
