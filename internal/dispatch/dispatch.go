// Package dispatch matches ranked utterance candidates against the command table.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/hark/internal/command"
	"github.com/rbright/hark/internal/event"
)

// Result summarises one dispatch pass.
type Result struct {
	Matched   bool
	Candidate string
	Command   string
	Params    []string
	Listeners int
	Err       error
}

// Engine runs dispatch passes against a table snapshot taken at the start of each pass.
type Engine struct {
	logger *slog.Logger
	table  *command.Table
	hub    *event.Hub
}

// New constructs an engine over table publishing to hub.
func New(table *command.Table, hub *event.Hub, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if hub == nil {
		hub = event.NewHub()
	}
	return &Engine{logger: logger, table: table, hub: hub}
}

// Hear dispatches one utterance. Candidates are tried best first; within a candidate,
// commands are tried in registration order. The first match invokes every listener of that
// command and ends the pass. Listeners and subscribers may call Hear again; the nested pass
// runs to completion before the outer one continues.
func (e *Engine) Hear(candidates []string) Result {
	all := event.Candidates(append([]string(nil), candidates...))
	e.logger.Debug("heard", "candidates", []string(all))
	event.Emit(e.hub, event.Hear, all)

	entries := e.table.Snapshot()
	for _, raw := range all {
		candidate := strings.TrimSpace(raw)
		for _, entry := range entries {
			if entry.Matcher == nil {
				continue
			}
			params, ok := entry.Matcher.Match(candidate)
			if !ok {
				continue
			}

			e.logger.Debug("understood", "candidate", candidate, "command", entry.Text, "params", params)
			event.Emit(e.hub, event.HearWords, event.Match{
				Candidate:  candidate,
				Command:    entry.Text,
				Candidates: all,
			})

			err := e.invoke(entry, params)
			return Result{
				Matched:   true,
				Candidate: candidate,
				Command:   entry.Text,
				Params:    params,
				Listeners: len(entry.Listeners),
				Err:       err,
			}
		}
	}

	e.logger.Debug("no command matched", "candidates", []string(all))
	event.Emit(e.hub, event.HearNoWords, all)
	return Result{}
}

// invoke calls every listener of entry. Failures and panics are collected, never propagated
// to other listeners.
func (e *Engine) invoke(entry command.Entry, params []string) error {
	var errs []error
	for _, l := range entry.Listeners {
		if err := call(l, append([]string(nil), params...)); err != nil {
			e.logger.Error("listener failed", "command", entry.Text, "listener", l.Name, "error", err.Error())
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func call(l command.Listener, params []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %q panicked: %v", l.Name, r)
		}
	}()
	if err := l.Func(params); err != nil {
		return fmt.Errorf("listener %q: %w", l.Name, err)
	}
	return nil
}
