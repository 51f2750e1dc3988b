package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/hark/internal/action"
	"github.com/rbright/hark/internal/audio"
	"github.com/rbright/hark/internal/capture"
	"github.com/rbright/hark/internal/config"
	"github.com/rbright/hark/internal/event"
	"github.com/rbright/hark/internal/i18n"
	"github.com/rbright/hark/internal/indicator"
	"github.com/rbright/hark/internal/ipc"
	"github.com/rbright/hark/internal/metrics"
	"github.com/rbright/hark/internal/recognizer"
	"github.com/rbright/hark/internal/session"
	"github.com/rbright/hark/internal/voice"
)

var errNoRecognizer = errors.New("recognizer.cmd is not configured; set it or use listen --stdin")

// newRecognizer builds a recognizer for cfg and learns every configured command on it.
func (r Runner) newRecognizer(ctx context.Context, cfg config.Config, logger *slog.Logger, factory recognizer.CaptureFactory, rec *metrics.Recorder) (*recognizer.Recognizer, error) {
	var synth voice.Synthesizer
	if cfg.Voice.Enable {
		synth = voice.Espeak{Program: cfg.Voice.Program}
	}

	hark, err := recognizer.New(recognizer.Options{
		Language:    cfg.Language,
		Logger:      logger,
		Capture:     factory,
		Synthesizer: synth,
		Voice:       voice.Options{Pitch: cfg.Voice.Pitch, Rate: cfg.Voice.Rate},
		Session: session.Options{
			RestartInterval:  time.Duration(cfg.Session.RestartIntervalMS) * time.Millisecond,
			PermissionWindow: time.Duration(cfg.Session.PermissionWindowMS) * time.Millisecond,
		},
		MaxAlternatives: cfg.Recognizer.MaxAlternatives,
		Metrics:         rec,
	})
	if err != nil {
		return nil, err
	}

	strs, err := i18n.NewDictionary(cfg.Strings)
	if err != nil {
		return nil, fmt.Errorf("strings: %w", err)
	}
	if _, err := action.Register(hark, cfg.Commands, action.Options{
		Context:  ctx,
		Speaker:  hark,
		Strings:  strs,
		Language: hark.Language,
		Stdout:   r.Stdout,
		Logger:   logger,
	}); err != nil {
		return nil, err
	}

	if synth != nil {
		if _, err := hark.SelectVoice(ctx); err != nil {
			logger.Warn("voice selection failed", "language", hark.Language(), "error", err.Error())
		}
	}
	return hark, nil
}

// commandHear dispatches candidates on a running listener, or against the configured
// commands when none is running.
func (r Runner) commandHear(ctx context.Context, cfg config.Config, candidates []string, logger *slog.Logger) int {
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, ipc.CommandHear, candidates)
		if handled {
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			return r.printMatch(resp.Matched, resp.Message, resp.Params)
		}
	}

	hark, err := r.newRecognizer(ctx, cfg, logger, nil, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	res := hark.Hear(candidates...)
	if res.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", res.Err)
		return 1
	}
	if !res.Matched {
		return r.printMatch("", "", nil)
	}
	return r.printMatch(res.Command, res.Candidate, res.Params)
}

func (r Runner) printMatch(command string, candidate string, params []string) int {
	if command == "" {
		fmt.Fprintln(r.Stderr, "no match")
		return 1
	}
	line := fmt.Sprintf("matched %s: %q", command, candidate)
	if len(params) > 0 {
		line += " params=" + strings.Join(params, ",")
	}
	fmt.Fprintln(r.Stdout, line)
	return 0
}

// commandListen owns the listener socket and keeps capturing until ctx is cancelled or, with
// --stdin, input is exhausted. A running listener is asked to resume instead.
func (r Runner) commandListen(ctx context.Context, cfg config.Config, fromStdin bool, logger *slog.Logger) int {
	if !fromStdin && len(cfg.Recognizer.Cmd.Argv) == 0 {
		fmt.Fprintf(r.Stderr, "error: %v\n", errNoRecognizer)
		return 1
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStart, nil)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, resp.Message)
		return 0
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: 180 * time.Millisecond, Retries: 8})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	var lines *capture.Lines
	factory := func(sink session.Sink, language func() string) session.Capture {
		if fromStdin {
			lines = capture.NewLines(r.stdin(), sink, logger)
			return lines
		}
		return capture.NewProcess(capture.ProcessConfig{
			Argv:            cfg.Recognizer.Cmd.Argv,
			Continuous:      cfg.Recognizer.Continuous,
			MaxAlternatives: cfg.Recognizer.MaxAlternatives,
			Audio:           audio.Preference{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback},
			Devices:         audio.ListDevices,
		}, sink, language, logger)
	}

	recorder := metrics.New()
	hark, err := r.newRecognizer(ctx, cfg, logger, factory, recorder)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	hub := hark.Events()
	event.On(hub, event.Error, "cli", func(c event.Cause) {
		fmt.Fprintf(r.Stderr, "capture error: %s\n", c)
	})
	if cfg.Indicator.Enable {
		notifier := indicator.New(cfg.Indicator, hark.Language, logger)
		notifier.Attach(hub)
		defer notifier.Close()
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, ipc.HandlerFunc(hark.Handle))
	}()

	exitCode := 0
	if err := hark.Start(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		exitCode = 1
	} else {
		logger.Info("listening", "language", hark.Language(), "commands", len(hark.Commands()))
		var exhausted <-chan struct{}
		if lines != nil {
			exhausted = lines.Done()
		}
		select {
		case <-ctx.Done():
		case <-exhausted:
		}
	}

	if err := hark.Abort(); err != nil {
		logger.Warn("abort failed", "error", err.Error())
	}
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		exitCode = 1
	}

	if path := cfg.Metrics.Textfile; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			logger.Warn("metrics export failed", "path", path, "error", err.Error())
		}
	}
	logger.Info("listener stopped", "exit_code", exitCode)
	return exitCode
}
